package handler

import (
	"github.com/gin-gonic/gin"

	"fin-analyzer-go/internal/metrics"
	"fin-analyzer-go/internal/middleware"
)

// NewRouter 注册全部路由和中间件。
func NewRouter(h *AnalysisHandler, maxUploadBytes int64) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.BodyLimit(maxUploadBytes), middleware.RequestLogger())

	r.GET("/", h.Root)
	r.POST("/analyze", h.Analyze)
	r.GET("/history", h.History)
	r.GET("/metrics", metrics.Handler())

	return r
}
