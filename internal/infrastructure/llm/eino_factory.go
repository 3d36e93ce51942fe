// Package llm 提供叙事、插图、语音三类模型后端的客户端。
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"hakawati-story-api/internal/config"
)

// EinoFactory 按 provider 名称惰性创建并复用 Eino ChatModel
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

func (f *EinoFactory) resolve(name string) (string, config.ProviderConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = f.config.DefaultProvider
	}
	if name == "" {
		return "", config.ProviderConfig{}, fmt.Errorf("no llm provider selected")
	}
	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return name, config.ProviderConfig{}, fmt.Errorf("provider %s not found in LLM config", name)
	}
	return name, providerCfg, nil
}

// Configured 检查 provider 是否存在且带有 API Key，不发起任何请求
func (f *EinoFactory) Configured(name string) error {
	name, providerCfg, err := f.resolve(name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(providerCfg.APIKey) == "" {
		return fmt.Errorf("provider %s has no api key", name)
	}
	if strings.TrimSpace(providerCfg.Model) == "" {
		return fmt.Errorf("provider %s has no model", name)
	}
	return nil
}

// Get 获取指定名称的 ChatModel，未指定时使用默认 provider
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name, providerCfg, err := f.resolve(name)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	cmCfg := &openai.ChatModelConfig{
		APIKey:  providerCfg.APIKey,
		BaseURL: providerCfg.BaseURL,
		Model:   providerCfg.Model,
		Timeout: providerCfg.Timeout,
	}
	if providerCfg.MaxTokens > 0 {
		maxTokens := providerCfg.MaxTokens
		cmCfg.MaxTokens = &maxTokens
	}
	if providerCfg.Temperature > 0 {
		temp := float32(providerCfg.Temperature)
		cmCfg.Temperature = &temp
	}

	chatModel, err := openai.NewChatModel(ctx, cmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}
