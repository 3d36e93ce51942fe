package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"hakawati-story-api/internal/config"
	"hakawati-story-api/internal/workflow/node"
	"hakawati-story-api/internal/workflow/port"
)

// 语音接口的单次输入上限
const maxSpeechInputRunes = 4096

// MediaClient 基于 OpenAI 兼容接口的插图与语音后端
type MediaClient struct {
	client *openai.Client
	image  config.ImageConfig
	speech config.SpeechConfig
}

// NewMediaClient 未配置 API Key 时返回 nil，调用方据此退回占位图与无旁白模式。
// 注意不要把 nil 的 *MediaClient 直接赋给接口，使用 ImageBackend/SpeechBackend。
func NewMediaClient(cfg *config.Config) *MediaClient {
	media := cfg.Media
	if strings.TrimSpace(media.APIKey) == "" {
		return nil
	}

	clientCfg := openai.DefaultConfig(media.APIKey)
	if media.BaseURL != "" {
		clientCfg.BaseURL = media.BaseURL
	}
	if media.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: media.Timeout}
	}

	return &MediaClient{
		client: openai.NewClientWithConfig(clientCfg),
		image:  media.Image,
		speech: media.Speech,
	}
}

// GenerateImage 实现 port.ImageGenerator，优先取 base64 内联数据
func (c *MediaClient) GenerateImage(ctx context.Context, prompt string) (port.ImageRef, error) {
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.image.Model,
		N:              1,
		Size:           c.image.Size,
		Quality:        c.image.Quality,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return port.ImageRef{}, fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 {
		return port.ImageRef{}, fmt.Errorf("create image: empty response")
	}

	item := resp.Data[0]
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return port.ImageRef{}, fmt.Errorf("decode image payload: %w", err)
		}
		return port.ImageRef{MIMEType: http.DetectContentType(data), Data: data}, nil
	}
	if item.URL != "" {
		return port.ImageRef{URL: item.URL}, nil
	}
	return port.ImageRef{}, fmt.Errorf("create image: response has neither data nor url")
}

// Synthesize 实现 port.SpeechSynthesizer，返回 s16le 单声道 PCM
func (c *MediaClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = node.ClipAtSentence(strings.TrimSpace(text), maxSpeechInputRunes)
	if text == "" {
		return nil, fmt.Errorf("speech input is empty")
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.speech.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(c.speech.Voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          c.speech.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech audio: %w", err)
	}
	return pcm, nil
}

// ImageBackend 插图后端；未启用时返回 nil 接口
func (c *MediaClient) ImageBackend() port.ImageGenerator {
	if c == nil || !c.image.Enabled {
		return nil
	}
	return c
}

// SpeechBackend 语音后端；未启用时返回 nil 接口
func (c *MediaClient) SpeechBackend() port.SpeechSynthesizer {
	if c == nil || !c.speech.Enabled {
		return nil
	}
	return c
}
