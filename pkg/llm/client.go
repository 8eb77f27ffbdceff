// Package llm 提供基于 OpenAI 兼容接口（默认 OpenRouter）的单智能体财务分析能力。
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"fin-analyzer-go/internal/config"
	"fin-analyzer-go/pkg/apperr"
	"fin-analyzer-go/pkg/log"
)

// 结果校验模式
const (
	ValidationOff    = "off"
	ValidationWarn   = "warn"
	ValidationStrict = "strict"
)

// Analyst 根据用户问题和文档文本产出分析结果。
type Analyst interface {
	Analyze(ctx context.Context, query, documentText string) (string, error)
}

// ChatCompleter 是 *openai.Client 中本包用到的部分，便于测试替换。
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewChatClient 创建指向 cfg.BaseURL 的 OpenAI 兼容客户端。
func NewChatClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Agent 是单个财务分析智能体：一个 persona，一个任务，可选的工具。
type Agent struct {
	chat          ChatCompleter
	persona       Persona
	model         string
	temperature   float32
	maxTokens     int
	maxIterations int
	timeout       time.Duration
	tools         map[string]Tool
	toolDefs      []openai.Tool
	validator     *ResultValidator
	strict        bool
}

// Option 定制 Agent。
type Option func(*Agent)

// WithTool 注册一个可供模型调用的工具。
func WithTool(t Tool) Option {
	return func(a *Agent) {
		a.tools[t.Name()] = t
		a.toolDefs = append(a.toolDefs, t.Definition())
	}
}

// WithValidator 开启结果校验，strict 为 true 时校验失败即返回错误。
func WithValidator(v *ResultValidator, strict bool) Option {
	return func(a *Agent) {
		a.validator = v
		a.strict = strict
	}
}

// WithPersona 替换默认 persona。
func WithPersona(p Persona) Option {
	return func(a *Agent) {
		a.persona = p
	}
}

// NewAgent creates the analyst agent.
func NewAgent(chat ChatCompleter, cfg config.LLMConfig, opts ...Option) *Agent {
	a := &Agent{
		chat:          chat,
		persona:       FinancialAnalyst,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		maxIterations: cfg.MaxIterations,
		timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		tools:         make(map[string]Tool),
	}
	if a.maxIterations < 1 {
		a.maxIterations = 1
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze 执行一次分析任务。模型在迭代预算内可以调用工具，预算用尽后再请求一次
// 并禁止工具调用，强制给出最终答案。返回的文本不做任何改写。
func (a *Agent) Analyze(ctx context.Context, query, documentText string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: a.persona.SystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: TaskPrompt(documentText, query)},
	}

	for i := 0; i < a.maxIterations; i++ {
		msg, err := a.complete(ctx, messages, true)
		if err != nil {
			return "", err
		}
		if len(msg.ToolCalls) == 0 {
			return a.finish(msg.Content)
		}

		log.Infow("[Agent] 模型请求调用工具", "iteration", i+1, "tool_calls", len(msg.ToolCalls))
		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    a.callTool(ctx, call),
			})
		}
	}

	log.Infof("[Agent] 已达到最大迭代次数 %d，请求最终答案", a.maxIterations)
	msg, err := a.complete(ctx, messages, false)
	if err != nil {
		return "", err
	}
	return a.finish(msg.Content)
}

func (a *Agent) complete(ctx context.Context, messages []openai.ChatCompletionMessage, allowTools bool) (openai.ChatCompletionMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}
	if len(a.toolDefs) > 0 {
		req.Tools = a.toolDefs
		if !allowTools {
			req.ToolChoice = "none"
		}
	}

	start := time.Now()
	resp, err := a.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Error("[Agent] 调用 LLM 失败", err)
		return openai.ChatCompletionMessage{}, apperr.Analysis(err, "llm request failed")
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, apperr.Analysis(nil, "llm returned no choices")
	}
	log.Infow("[Agent] LLM 调用完成",
		"model", a.model,
		"duration", time.Since(start).String(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Choices[0].Message, nil
}

func (a *Agent) callTool(ctx context.Context, call openai.ToolCall) string {
	tool, ok := a.tools[call.Function.Name]
	if !ok {
		return "Error: unknown tool " + call.Function.Name
	}
	return tool.Call(ctx, call.Function.Arguments)
}

func (a *Agent) finish(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		log.Warnw("[Agent] LLM 返回了空答案", "model", a.model)
	}
	if a.validator == nil {
		return content, nil
	}
	if err := a.validator.Validate(content); err != nil {
		if a.strict {
			return "", apperr.Analysis(err, "analysis result is not in the expected format")
		}
		log.Warnw("[Agent] 分析结果格式不符合预期", "error", err)
	}
	return content, nil
}
