package node

import (
	"context"
	"errors"
	"strings"
)

// structuredOutputRejections provider 拒绝 json_schema 输出参数时的错误特征，每组关键词须全部出现
var structuredOutputRejections = [][]string{
	{"response_format"},
	{"json_schema"},
	{"response_schema"},
	{"structured output"},
	{"unknown parameter", "response"},
	{"invalid", "response"},
	{"failed to parse"},
}

// IsStructuredOutputRejected 判断故事生成失败是否源于 provider 不支持结构化输出。
// 命中时 story.llm 节点改用纯提示词重发一次；会话取消或超时不算，避免对已放弃的生成重试
func IsStructuredOutputRejected(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keywords := range structuredOutputRejections {
		if containsAll(msg, keywords) {
			return true
		}
	}
	return false
}

func containsAll(s string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return true
}
