// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fin-analyzer-go/internal/metrics"
	"fin-analyzer-go/internal/service"
	"fin-analyzer-go/pkg/log"
)

// AnalysisHandler 负责处理文档分析和历史记录相关的 API 请求。
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

// NewAnalysisHandler 创建一个新的 AnalysisHandler 实例。
func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// Root 是健康检查接口。
func (h *AnalysisHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Financial Document Analyzer API is running"})
}

// Analyze 接收 multipart 上传的 file 和可选的 query 字段，返回分析结果。
// 流水线中任何阶段的失败都统一返回 500。
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RequestsTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Uploaded file is too large"})
			return
		}
		metrics.RequestsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "A file upload is required in the 'file' field"})
		return
	}
	query := c.PostForm("query")

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, fileHeader.Filename, err)
		return
	}
	defer file.Close()

	result, err := h.analysisService.Analyze(c.Request.Context(), service.AnalyzeRequest{
		FileName: fileHeader.Filename,
		Query:    query,
		Content:  file,
	})
	if err != nil {
		h.fail(c, fileHeader.Filename, err)
		return
	}

	metrics.RequestsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"query":          result.Query,
		"analysis":       result.Analysis,
		"file_processed": result.FileProcessed,
	})
}

// History 返回全部分析记录，按 id 升序。
func (h *AnalysisHandler) History(c *gin.Context) {
	records, err := h.analysisService.History(c.Request.Context())
	if err != nil {
		log.Error("History: failed to load analysis records", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error fetching analysis history: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *AnalysisHandler) fail(c *gin.Context, fileName string, err error) {
	metrics.RequestsTotal.WithLabelValues("error").Inc()
	log.Errorf("Analyze: failed to process %s: %v", fileName, err)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error processing financial document: " + err.Error()})
}
