// Package pipeline 定义了单个文档从提取到分析的核心流程。
package pipeline

import (
	"context"
	"path/filepath"
	"time"
	"unicode/utf8"

	"fin-analyzer-go/internal/metrics"
	"fin-analyzer-go/pkg/budget"
	"fin-analyzer-go/pkg/extractor"
	"fin-analyzer-go/pkg/llm"
	"fin-analyzer-go/pkg/log"
)

// Processor 封装了文件处理的所有依赖和逻辑。
type Processor struct {
	extractor extractor.Extractor
	analyst   llm.Analyst
	maxChars  int
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(ex extractor.Extractor, analyst llm.Analyst, maxChars int) *Processor {
	return &Processor{
		extractor: ex,
		analyst:   analyst,
		maxChars:  maxChars,
	}
}

// Run 依次执行提取、预算截断和 LLM 分析，返回模型给出的原始结果。
// 任一步骤失败都会中止并原样返回该步骤的错误。
func (p *Processor) Run(ctx context.Context, filePath, query string) (string, error) {
	fileName := filepath.Base(filePath)
	log.Infof("[Processor] 开始处理文件, FileName: %s", fileName)

	// 1. 提取文本
	log.Info("[Processor] 步骤1: 提取文档文本")
	start := time.Now()
	text, err := p.extractor.Extract(ctx, filePath)
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Errorf("[Processor] 文本提取失败, FileName: %s, Error: %v", fileName, err)
		return "", err
	}
	chars := utf8.RuneCountInString(text)
	metrics.DocumentChars.Observe(float64(chars))
	if chars == 0 {
		// 空文本照常交给模型，由模型说明数据不足
		log.Warnf("[Processor] 提取的文本内容为空, FileName: %s", fileName)
	}
	log.Infof("[Processor] 步骤1: 文本提取成功, 内容长度: %d 字符", chars)

	// 2. 按字符预算截断
	bounded, err := budget.Bound(text, p.maxChars)
	if err != nil {
		return "", err
	}
	if chars > p.maxChars {
		metrics.TruncatedDocuments.Inc()
		log.Infof("[Processor] 步骤2: 内容超出预算 %d 字符, 已截断中间部分", p.maxChars)
	}

	// 3. 调用分析智能体
	log.Info("[Processor] 步骤3: 调用 LLM 进行分析")
	start = time.Now()
	result, err := p.analyst.Analyze(ctx, query, bounded)
	metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Errorf("[Processor] LLM 分析失败, FileName: %s, Error: %v", fileName, err)
		return "", err
	}
	log.Infof("[Processor] 文件处理完成, FileName: %s, 结果长度: %d", fileName, len(result))
	return result, nil
}
