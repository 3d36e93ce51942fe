package port

import "context"

// ImageRef 插图引用：URL 与内联数据二选一
type ImageRef struct {
	URL      string `json:"url,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
}

// Inline 是否为内联数据
func (r ImageRef) Inline() bool {
	return len(r.Data) > 0
}

// ImageGenerator 插图生成后端
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (ImageRef, error)
}

// SpeechSynthesizer 语音合成后端，返回单声道有符号 16 位小端 PCM
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
