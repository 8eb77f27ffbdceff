package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"fin-analyzer-go/internal/config"
	"fin-analyzer-go/internal/metrics"
	"fin-analyzer-go/internal/model"
	"fin-analyzer-go/internal/pipeline"
	"fin-analyzer-go/internal/repository"
	"fin-analyzer-go/internal/service"
	"fin-analyzer-go/pkg/apperr"
	"fin-analyzer-go/pkg/budget"
	"fin-analyzer-go/pkg/database"
	"fin-analyzer-go/pkg/extractor"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	gotReq     service.AnalyzeRequest
	gotContent string
	called     bool
	result     *service.AnalyzeResult
	records    []model.FinancialAnalysis
	err        error
}

func (f *fakeService) Analyze(ctx context.Context, req service.AnalyzeRequest) (*service.AnalyzeResult, error) {
	f.called = true
	f.gotReq = req
	b, _ := io.ReadAll(req.Content)
	f.gotContent = string(b)
	return f.result, f.err
}

func (f *fakeService) History(ctx context.Context) ([]model.FinancialAnalysis, error) {
	return f.records, f.err
}

func multipartRequest(t *testing.T, fileName, content, query string, withFile bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if withFile {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	if query != "" {
		w.WriteField("query", query)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
}

func TestRoot(t *testing.T) {
	r := NewRouter(NewAnalysisHandler(&fakeService{}), 0)
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["message"] != "Financial Document Analyzer API is running" {
		t.Errorf("unexpected message %q", body["message"])
	}
}

func TestAnalyze_Success(t *testing.T) {
	svc := &fakeService{result: &service.AnalyzeResult{Query: "revenue?", Analysis: `{"revenue":"1"}`, FileProcessed: "q3.pdf"}}
	r := NewRouter(NewAnalysisHandler(svc), 0)

	rec := serve(r, multipartRequest(t, "q3.pdf", "%PDF-1.4", "revenue?", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "success" || body["query"] != "revenue?" || body["analysis"] != `{"revenue":"1"}` || body["file_processed"] != "q3.pdf" {
		t.Errorf("unexpected body %v", body)
	}
	if svc.gotReq.FileName != "q3.pdf" || svc.gotReq.Query != "revenue?" || svc.gotContent != "%PDF-1.4" {
		t.Errorf("unexpected service input: %+v content=%q", svc.gotReq, svc.gotContent)
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(NewAnalysisHandler(svc), 0)

	rec := serve(r, multipartRequest(t, "", "", "q", false))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["detail"] == "" {
		t.Error("expected detail in response")
	}
	if svc.called {
		t.Error("expected service not to be called")
	}
}

func TestAnalyze_PipelineFailure(t *testing.T) {
	svc := &fakeService{err: apperr.Analysis(errors.New("provider down"), "llm request failed")}
	r := NewRouter(NewAnalysisHandler(svc), 0)

	rec := serve(r, multipartRequest(t, "a.pdf", "x", "", true))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	want := "Error processing financial document: llm request failed: provider down"
	if body["detail"] != want {
		t.Errorf("expected detail %q, got %q", want, body["detail"])
	}
}

func TestAnalyze_TooLarge(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(NewAnalysisHandler(svc), 64)

	rec := serve(r, multipartRequest(t, "big.txt", strings.Repeat("x", 4096), "", true))
	if rec.Code < 400 || rec.Code >= 500 {
		t.Fatalf("expected a 4xx rejection, got %d", rec.Code)
	}
	if svc.called {
		t.Error("expected service not to be called")
	}
}

func TestHistory(t *testing.T) {
	svc := &fakeService{records: []model.FinancialAnalysis{
		{ID: 1, FileName: "a.pdf", Query: "q1", AnalysisResult: "r1"},
		{ID: 2, FileName: "b.txt", Query: "q2", AnalysisResult: "r2"},
	}}
	r := NewRouter(NewAnalysisHandler(svc), 0)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body []map[string]interface{}
	decode(t, rec, &body)
	if len(body) != 2 {
		t.Fatalf("expected 2 records, got %d", len(body))
	}
	for _, key := range []string{"id", "file_name", "query", "analysis_result", "created_at"} {
		if _, ok := body[0][key]; !ok {
			t.Errorf("expected key %q in record", key)
		}
	}
	if body[1]["file_name"] != "b.txt" {
		t.Errorf("unexpected second record %v", body[1])
	}
}

func TestHistory_StorageFailure(t *testing.T) {
	svc := &fakeService{err: apperr.Storage(errors.New("locked"), "failed to load analysis history")}
	r := NewRouter(NewAnalysisHandler(svc), 0)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/history", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.Init()
	svc := &fakeService{result: &service.AnalyzeResult{Query: "q", Analysis: "a", FileProcessed: "f.txt"}}
	r := NewRouter(NewAnalysisHandler(svc), 0)
	serve(r, multipartRequest(t, "f.txt", "x", "q", true))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fin_analyzer_requests_total") {
		t.Error("expected request counter in metrics output")
	}
}

type stubAnalyst struct {
	result string
}

func (s stubAnalyst) Analyze(ctx context.Context, query, documentText string) (string, error) {
	return s.result + " for " + query, nil
}

// newStack wires the real service, pipeline, extractor and sqlite store around a stub analyst.
func newStack(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "analysis.db")})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	scratch := filepath.Join(dir, "data")
	processor := pipeline.NewProcessor(extractor.New(), stubAnalyst{result: "summary"}, budget.DefaultMaxChars)
	svc := service.NewAnalysisService(processor, repository.NewAnalysisRepository(db), scratch)
	return NewRouter(NewAnalysisHandler(svc), 0), scratch
}

func TestEndToEnd_TextUploadIsRecorded(t *testing.T) {
	r, scratch := newStack(t)

	rec := serve(r, multipartRequest(t, "statement.txt", "Revenue: 1,000\n", "", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["query"] != service.DefaultQuery {
		t.Errorf("expected default query, got %q", body["query"])
	}
	if body["analysis"] != "summary for "+service.DefaultQuery {
		t.Errorf("unexpected analysis %q", body["analysis"])
	}

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/history", nil))
	var history []model.FinancialAnalysis
	decode(t, rec, &history)
	if len(history) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(history))
	}
	if history[0].FileName != "statement.txt" || history[0].AnalysisResult != body["analysis"] || history[0].CreatedAt.IsZero() {
		t.Errorf("unexpected history record %+v", history[0])
	}

	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Errorf("expected scratch dir to be empty, found %d entries", len(entries))
	}
}

func TestEndToEnd_CorruptedPDF(t *testing.T) {
	r, scratch := newStack(t)

	rec := serve(r, multipartRequest(t, "broken.pdf", "not really a pdf", "q", true))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if !strings.HasPrefix(body["detail"], "Error processing financial document: ") || !strings.Contains(body["detail"], "extraction") {
		t.Errorf("unexpected detail %q", body["detail"])
	}

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/history", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty history, got %s", rec.Body.String())
	}

	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Errorf("expected scratch dir to be empty, found %d entries", len(entries))
	}
}
