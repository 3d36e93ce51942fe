package model

import "time"

// StoryGenerateInput 故事生成链输入：指令已按请求组装完毕
type StoryGenerateInput struct {
	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int

	ChildName         string
	Age               int
	PageCount         int
	Rules             []string
	IllustrationStyle string
}

// LLMUsageMeta 单次生成的用量信息
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	GeneratedAt      time.Time
}
