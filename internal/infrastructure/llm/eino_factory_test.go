package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hakawati-story-api/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: "http://127.0.0.1:1/v1"},
				"gemini": {Model: "gemini-2.0-flash"},
			},
		},
	}
}

func TestEinoFactory_Configured(t *testing.T) {
	f := NewEinoFactory(testConfig())

	assert.NoError(t, f.Configured(""))
	assert.NoError(t, f.Configured("openai"))
	assert.ErrorContains(t, f.Configured("gemini"), "no api key")
	assert.ErrorContains(t, f.Configured("deepseek"), "not found")
}

func TestEinoFactory_GetCachesModel(t *testing.T) {
	f := NewEinoFactory(testConfig())

	m1, err := f.Get(context.Background(), "")
	require.NoError(t, err)
	m2, err := f.Get(context.Background(), "openai")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
}

func TestMediaClient_DisabledBackends(t *testing.T) {
	var nilClient *MediaClient
	assert.Nil(t, nilClient.ImageBackend())
	assert.Nil(t, nilClient.SpeechBackend())

	cfg := testConfig()
	assert.Nil(t, NewMediaClient(cfg))

	cfg.Media.APIKey = "sk-test"
	cfg.Media.Image.Enabled = true
	mc := NewMediaClient(cfg)
	require.NotNil(t, mc)
	assert.NotNil(t, mc.ImageBackend())
	assert.Nil(t, mc.SpeechBackend())
}
