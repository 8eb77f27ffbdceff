package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestLogger_KeepsRequestBody(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	var got string
	r.POST("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		got = string(b)
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"query":"revenue?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got != `{"query":"revenue?"}` {
		t.Errorf("expected handler to see the full body, got %q", got)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected response to pass through, got %q", rec.Body.String())
	}
}

func TestRequestLogger_LargeResponsePassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	payload := strings.Repeat("x", maxLoggedBody*3)
	r.GET("/big", func(c *gin.Context) {
		c.String(http.StatusOK, payload)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/big", nil))
	if rec.Body.Len() != len(payload) {
		t.Errorf("expected %d bytes, got %d", len(payload), rec.Body.Len())
	}
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   int64
		body    string
		wantErr bool
	}{
		{"under limit", 16, "short", false},
		{"over limit", 4, "much too long", true},
		{"unlimited", 0, strings.Repeat("y", 1024), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(BodyLimit(tt.limit))
			var readErr error
			r.POST("/", func(c *gin.Context) {
				_, readErr = io.ReadAll(c.Request.Body)
				c.Status(http.StatusNoContent)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
			if (readErr != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, readErr)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	short := []byte("abc")
	if truncate(short) != "abc" {
		t.Errorf("expected short body unchanged")
	}
	long := []byte(strings.Repeat("z", maxLoggedBody+10))
	if got := truncate(long); len(got) != maxLoggedBody+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("unexpected truncated length %d", len(got))
	}
}
