// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"fin-analyzer-go/internal/model"
	"fin-analyzer-go/internal/repository"
	"fin-analyzer-go/pkg/log"
)

// DefaultQuery 在调用方未提供问题时使用。
const DefaultQuery = "Analyze this financial document for investment insights."

var reSafeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// Runner 执行单个文档的提取与分析。
type Runner interface {
	Run(ctx context.Context, filePath, query string) (string, error)
}

// AnalyzeRequest 是一次分析请求的输入。
type AnalyzeRequest struct {
	FileName string
	Query    string
	Content  io.Reader
}

// AnalyzeResult 是一次成功分析的输出。
type AnalyzeResult struct {
	Query         string
	Analysis      string
	FileProcessed string
}

// AnalysisService 接口定义了分析相关的业务操作。
type AnalysisService interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error)
	History(ctx context.Context) ([]model.FinancialAnalysis, error)
}

type analysisService struct {
	runner     Runner
	repo       repository.AnalysisRepository
	scratchDir string
}

// NewAnalysisService 创建一个新的 AnalysisService 实例。
func NewAnalysisService(runner Runner, repo repository.AnalysisRepository, scratchDir string) AnalysisService {
	return &analysisService{
		runner:     runner,
		repo:       repo,
		scratchDir: scratchDir,
	}
}

// Analyze 把上传内容写入独立的临时文件，运行流水线并保存记录。
// 无论成功与否，临时文件都会在返回前删除。
func (s *analysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = DefaultQuery
	}

	scratchPath, err := s.writeScratch(req.FileName, req.Content)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(scratchPath); err != nil && !os.IsNotExist(err) {
			log.Warnf("[AnalysisService] 删除临时文件失败, Path: %s, Error: %v", scratchPath, err)
		}
	}()

	analysis, err := s.runner.Run(ctx, scratchPath, query)
	if err != nil {
		return nil, err
	}

	record := &model.FinancialAnalysis{
		FileName:       req.FileName,
		Query:          query,
		AnalysisResult: analysis,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// LLM 结果已经产生，但记录未保存
		log.Errorf("[AnalysisService] 分析完成但保存失败, FileName: %s, Error: %v", req.FileName, err)
		return nil, err
	}
	log.Infow("[AnalysisService] 分析记录已保存", "id", record.ID, "file_name", req.FileName)

	return &AnalyzeResult{
		Query:         query,
		Analysis:      analysis,
		FileProcessed: req.FileName,
	}, nil
}

// History 返回全部历史记录。
func (s *analysisService) History(ctx context.Context) ([]model.FinancialAnalysis, error) {
	return s.repo.FindAll(ctx)
}

// writeScratch 以 financial_document_<uuid><ext> 命名，保证并发请求互不覆盖。
// 只有形如 .pdf/.txt 的短扩展名会被保留，其余情况视为纯文本。
func (s *analysisService) writeScratch(fileName string, content io.Reader) (string, error) {
	if err := os.MkdirAll(s.scratchDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	ext := filepath.Ext(fileName)
	if !reSafeExt.MatchString(ext) {
		ext = ""
	}
	path := filepath.Join(s.scratchDir, fmt.Sprintf("financial_document_%s%s", uuid.NewString(), ext))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return path, nil
}
