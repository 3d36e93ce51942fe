package narrative

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"hakawati-story-api/internal/domain/entity"
	"hakawati-story-api/internal/domain/service"
	workflowchain "hakawati-story-api/internal/workflow/chain"
	wfmodel "hakawati-story-api/internal/workflow/model"
	workflowport "hakawati-story-api/internal/workflow/port"
	"hakawati-story-api/pkg/logger"
	"hakawati-story-api/pkg/metrics"
)

// NarrativeGenerator 叙事生成端口，会话层只依赖此接口
type NarrativeGenerator interface {
	Generate(ctx context.Context, req entity.StoryRequest) (*entity.StoryDocument, error)
}

// Options 生成参数
type Options struct {
	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int
	Timeout     time.Duration
}

// WorkflowName 链路追踪中的工作流名
const WorkflowName = "story_narrative"

// Generator 基于 eino 链的叙事生成器，每个请求只尝试一次
type Generator struct {
	factory workflowport.ChatModelFactory
	chain   *workflowchain.StoryChain
	opts    Options
}

func NewGenerator(factory workflowport.ChatModelFactory, opts Options) *Generator {
	return &Generator{
		factory: factory,
		chain:   workflowchain.NewStoryChain(factory),
		opts:    opts,
	}
}

// Generate 生成故事文档。配置缺失时在发起任何请求前返回 ConfigurationError。
func (g *Generator) Generate(ctx context.Context, req entity.StoryRequest) (*entity.StoryDocument, error) {
	start := time.Now()
	length := string(req.Length)
	status := "success"
	defer func() {
		metrics.StoryGenerationTotal.WithLabelValues(length, status).Inc()
		metrics.StoryGenerationDuration.WithLabelValues(length).Observe(time.Since(start).Seconds())
	}()

	provider := strings.TrimSpace(g.opts.Provider)
	if g.factory == nil {
		status = "config_error"
		return nil, &ConfigurationError{Reason: "no chat model factory"}
	}
	if err := g.factory.Configured(provider); err != nil {
		status = "config_error"
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	if req.TargetPageCount <= 0 {
		status = "config_error"
		return nil, &ConfigurationError{Reason: "target page count must be positive"}
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	in := &wfmodel.StoryGenerateInput{
		Provider:          provider,
		Model:             g.opts.Model,
		Temperature:       g.opts.Temperature,
		MaxTokens:         g.opts.MaxTokens,
		ChildName:         req.ChildName,
		Age:               req.Age,
		PageCount:         req.TargetPageCount,
		Rules:             BuildRules(req),
		IllustrationStyle: IllustrationStyle,
	}

	ctx = service.WithLLMCall(ctx, WorkflowName, provider)
	callStart := time.Now()
	outMsg, err := g.chain.Invoke(ctx, in)
	metrics.LLMCallDuration.WithLabelValues(provider, g.opts.Model).Observe(time.Since(callStart).Seconds())
	if err != nil {
		status = "backend_error"
		metrics.LLMCallTotal.WithLabelValues(provider, g.opts.Model, "error").Inc()
		logger.Error(ctx, "story generation failed", err, "provider", provider, "length", length)
		return nil, &BackendError{Provider: provider, Err: err}
	}
	metrics.LLMCallTotal.WithLabelValues(provider, g.opts.Model, "success").Inc()

	meta := usageMeta(outMsg.ResponseMeta, provider, g.opts.Model)
	if meta.PromptTokens > 0 || meta.CompletionTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues(provider, meta.Model, "prompt").Add(float64(meta.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(provider, meta.Model, "completion").Add(float64(meta.CompletionTokens))
	}

	doc, err := ParseDocument(outMsg.Content, req.TargetPageCount)
	if err != nil {
		status = "contract_error"
		var ce *ContractError
		if errors.As(err, &ce) {
			logger.Warn(ctx, "generated story rejected", "issues", ce.Issues, "provider", provider)
		}
		return nil, err
	}

	logger.Info(ctx, "story generated",
		"provider", provider,
		"model", meta.Model,
		"pages", doc.PageCount(),
		"prompt_tokens", meta.PromptTokens,
		"completion_tokens", meta.CompletionTokens,
	)
	return doc, nil
}

func usageMeta(rm *schema.ResponseMeta, provider, modelName string) wfmodel.LLMUsageMeta {
	meta := wfmodel.LLMUsageMeta{
		Provider:    provider,
		Model:       modelName,
		GeneratedAt: time.Now().UTC(),
	}
	if rm != nil && rm.Usage != nil {
		meta.PromptTokens = rm.Usage.PromptTokens
		meta.CompletionTokens = rm.Usage.CompletionTokens
	}
	return meta
}
