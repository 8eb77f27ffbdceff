// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fin-analyzer-go/pkg/log"
)

// 日志中请求体和响应体的最大长度
const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 将响应写入 gin.ResponseWriter，同时在上限内保留一份副本
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if remain := maxLoggedBody - w.body.Len(); remain > 0 {
		if len(b) < remain {
			remain = len(b)
		}
		w.body.Write(b[:remain])
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 是一个 Gin 中间件，记录每个请求的状态码、耗时和响应摘要。
// 上传文件的请求体不读取也不记录。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// 非文件上传的请求体读出后再放回，供后续处理函数使用
		var requestBody []byte
		multipart := strings.HasPrefix(c.ContentType(), "multipart/")
		if !multipart && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		blw := &bodyLogWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"contentLength", c.Request.ContentLength,
		}
		if len(requestBody) > 0 {
			fields = append(fields, "requestBody", truncate(requestBody))
		}
		if c.Request.URL.Path != "/metrics" {
			fields = append(fields, "responseBody", blw.body.String())
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
