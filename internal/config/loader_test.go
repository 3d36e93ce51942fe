package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("HAKAWATI_TEST_HOST", "db.internal")

	assert.Equal(t, "host: db.internal", expandEnv("host: ${HAKAWATI_TEST_HOST}"))
	assert.Equal(t, "host: db.internal", expandEnv("host: ${HAKAWATI_TEST_HOST:localhost}"))
	assert.Equal(t, "port: 5432", expandEnv("port: ${HAKAWATI_TEST_UNSET_PORT:5432}"))
	assert.Equal(t, "key: ", expandEnv("key: ${HAKAWATI_TEST_UNSET_KEY:}"))
	assert.Equal(t, "raw: ${HAKAWATI_TEST_UNSET_RAW}", expandEnv("raw: ${HAKAWATI_TEST_UNSET_RAW}"))
}

func TestLoadFrom_LayersAndDefaults(t *testing.T) {
	dir := t.TempDir()
	base := `
app:
  name: hakawati-test
story:
  trigger_index: 2
llm:
  default_provider: openai
  providers:
    openai:
      api_key: ${HAKAWATI_TEST_KEY:}
      model: gpt-4o-mini
`
	overlay := `
story:
  session_ttl: 10m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(overlay), 0o600))
	t.Setenv("APP_ENV", "staging")
	t.Setenv("HAKAWATI_TEST_KEY", "sk-test")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "hakawati-test", cfg.App.Name)
	assert.Equal(t, 2, cfg.Story.TriggerIndex)
	assert.Equal(t, 10*time.Minute, cfg.Story.SessionTTL)
	assert.Equal(t, "sk-test", cfg.LLM.Providers["openai"].APIKey)

	// 未配置的字段落到默认值
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 24000, cfg.Media.Speech.SampleRate)
	assert.Equal(t, 90*time.Second, cfg.Story.GenerationTimeout)
}

func TestLoadFrom_MissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
}
