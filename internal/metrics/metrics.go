// Package metrics 暴露分析流水线的 Prometheus 指标。
package metrics

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fin_analyzer_requests_total",
			Help: "Total number of analyze requests by outcome",
		},
		[]string{"status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fin_analyzer_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	DocumentChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fin_analyzer_document_chars",
			Help:    "Extracted document length in characters before budgeting",
			Buckets: []float64{0, 100, 1000, 5000, 12000, 50000, 200000, 1000000},
		},
	)

	TruncatedDocuments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fin_analyzer_truncated_documents_total",
			Help: "Total number of documents cut down to the character budget",
		},
	)
)

var registerOnce sync.Once

// Init 注册全部指标，可重复调用。
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			StageDuration,
			DocumentChars,
			TruncatedDocuments,
		)
	})
}

// Handler 返回 /metrics 的 gin 处理函数。
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
