// Package service 定义跨层共享的领域上下文约定
package service

import (
	"context"
	"strings"
)

type llmCallKey struct{}

// LLMCall 当前 LLM 调用所属的工作流与提供商，供回调打点使用
type LLMCall struct {
	Workflow string
	Provider string
}

// WithLLMCall 在上下文中标注 LLM 调用信息，空值记为 unknown
func WithLLMCall(ctx context.Context, workflow, provider string) context.Context {
	return context.WithValue(ctx, llmCallKey{}, LLMCall{
		Workflow: orUnknown(workflow),
		Provider: orUnknown(provider),
	})
}

// LLMCallFromContext 读取调用信息
func LLMCallFromContext(ctx context.Context) LLMCall {
	if ctx != nil {
		if c, ok := ctx.Value(llmCallKey{}).(LLMCall); ok {
			return c
		}
	}
	return LLMCall{Workflow: "unknown", Provider: "unknown"}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
