package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "hakawati-story-api/internal/domain/service"
	wfmodel "hakawati-story-api/internal/workflow/model"
	wfnode "hakawati-story-api/internal/workflow/node"
	workflowport "hakawati-story-api/internal/workflow/port"
	workflowprompt "hakawati-story-api/internal/workflow/prompt"
	"hakawati-story-api/pkg/logger"
)

// StoryChain 单次故事生成：init -> template -> llm -> finalize
type StoryChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.StoryGenerateInput, *schema.Message]
	chainErr  error
}

func NewStoryChain(factory workflowport.ChatModelFactory) *StoryChain {
	return &StoryChain{factory: factory}
}

func (c *StoryChain) Invoke(ctx context.Context, in *wfmodel.StoryGenerateInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type storyChainState struct {
	In       *wfmodel.StoryGenerateInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *StoryChain) getChain() (compose.Runnable[*wfmodel.StoryGenerateInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *StoryChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.StoryGenerateInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.StoryGenerateInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.StoryGenerateInput) (*storyChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			if in.PageCount <= 0 {
				return nil, fmt.Errorf("page count must be positive")
			}
			return &storyChainState{In: in}, nil
		}),
		compose.WithNodeName("story.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *storyChainState) (*storyChainState, error) {
			msgs, err := FormatStoryMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("story.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *storyChainState) (*storyChainState, error) {
			provider := strings.TrimSpace(st.In.Provider)
			ctx = llmctx.WithLLMCall(ctx, llmctx.LLMCallFromContext(ctx).Workflow, provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			// 结构化输出被拒绝时改用纯提示词重发，仍属于同一次逻辑生成
			outMsg, err := chatModel.Generate(ctx, st.Messages, buildStoryModelOptions(st.In, true)...)
			if err != nil && wfnode.IsStructuredOutputRejected(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"provider", provider,
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildStoryModelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("story.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *storyChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("story.finalize"),
	)

	return chain.Compile(ctx)
}

var defaultPromptRegistry = workflowprompt.NewRegistry()

// FormatStoryMessages 渲染故事生成提示词
func FormatStoryMessages(ctx context.Context, in *wfmodel.StoryGenerateInput) ([]*schema.Message, error) {
	vars := map[string]any{
		"child_name":         strings.TrimSpace(in.ChildName),
		"age":                in.Age,
		"page_count":         in.PageCount,
		"rules_block":        wfnode.BuildRulesBlock(in.Rules),
		"illustration_style": in.IllustrationStyle,
		"output_contract":    storyOutputContract,
	}
	return defaultPromptRegistry.Format(ctx, workflowprompt.PromptStoryV1, vars)
}

const storyOutputContract = `{
  "title": "string",
  "pages": [{"text": "string", "illustrationPrompt": "string"}],
  "dictionary": [{"word": "string", "definition": "string"}],
  "interactionQuestion": {
    "text": "string",
    "options": [{"text": "string", "isCorrect": true, "feedback": "string"}]
  },
  "moralBadgeName": "string",
  "proverb": {"text": "string", "explanation": "string"}
}`

func buildStoryModelOptions(in *wfmodel.StoryGenerateInput, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)

	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}

	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "story_document",
					"strict": false,
					"schema": storyJSONSchema(in.PageCount),
				},
			},
		}))
	}

	return opts
}

func storyJSONSchema(pageCount int) map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"title", "pages", "dictionary", "interactionQuestion", "moralBadgeName", "proverb"},
		"properties": map[string]any{
			"title": str,
			"pages": map[string]any{
				"type":     "array",
				"minItems": pageCount,
				"maxItems": pageCount,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"text", "illustrationPrompt"},
					"properties": map[string]any{
						"text":               str,
						"illustrationPrompt": str,
					},
				},
			},
			"dictionary": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"word", "definition"},
					"properties": map[string]any{
						"word":       str,
						"definition": str,
					},
				},
			},
			"interactionQuestion": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"text", "options"},
				"properties": map[string]any{
					"text": str,
					"options": map[string]any{
						"type":     "array",
						"minItems": 2,
						"maxItems": 2,
						"items": map[string]any{
							"type":                 "object",
							"additionalProperties": false,
							"required":             []any{"text", "isCorrect", "feedback"},
							"properties": map[string]any{
								"text":      str,
								"isCorrect": map[string]any{"type": "boolean"},
								"feedback":  str,
							},
						},
					},
				},
			},
			"moralBadgeName": str,
			"proverb": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"text", "explanation"},
				"properties": map[string]any{
					"text":        str,
					"explanation": str,
				},
			},
		},
	}
}
