package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvOpenAIKey, EnvAnthropicKey, EnvGeminiKey, EnvGoogleKey,
		EnvOllamaBaseURL, EnvHost, EnvPort, EnvDebug, EnvCORSOrigins,
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, DefaultCORSOrigins, cfg.Server.CORSOrigins)
	assert.Equal(t, "http://localhost:11434", cfg.Providers.Ollama.BaseURL)
	assert.Equal(t, 180*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 0, cfg.Generation.MaxRetries)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.True(t, cfg.Observability.Metrics.IsEnabled())
	assert.False(t, cfg.Observability.Tracing.Enabled)
	assert.Empty(t, cfg.Providers.OpenAI.APIKey)
}

func TestFromEnv_ReadsVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvOpenAIKey, "sk-env")
	t.Setenv(EnvGoogleKey, "g-env")
	t.Setenv(EnvOllamaBaseURL, "http://gpu-box:11434")
	t.Setenv(EnvPort, "9001")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvCORSOrigins, `["https://a.example","https://b.example"]`)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "g-env", cfg.Providers.Gemini.APIKey)
	assert.Equal(t, "http://gpu-box:11434", cfg.Providers.Ollama.BaseURL)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "0.0.0.0:9001", cfg.Server.Address())
}

func TestParse_ExpandsEnvAndDecodes(t *testing.T) {
	clearEnv(t)
	t.Setenv("MY_ANTHROPIC", "ak-file")

	cfg, err := Parse([]byte(`
server:
  port: 8080
  cors_origins: "http://x.example,http://y.example"
  rate_limit:
    requests_per_second: 5
logger:
  level: debug
  format: json
generation:
  timeout: 45s
  max_retries: 2
providers:
  anthropic:
    api_key: ${MY_ANTHROPIC}
  ollama:
    base_url: ${MISSING_OLLAMA:-http://fallback:11434}
observability:
  tracing:
    enabled: true
    exporter: stdout
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://x.example", "http://y.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5.0, cfg.Server.RateLimit.RequestsPerSecond)
	assert.Equal(t, 11, cfg.Server.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 45*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 2, cfg.Generation.MaxRetries)
	assert.Equal(t, "ak-file", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "http://fallback:11434", cfg.Providers.Ollama.BaseURL)
	assert.Equal(t, TracingExporterStdout, cfg.Observability.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Observability.Tracing.SamplingRate)
}

func TestParse_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad level", "logger:\n  level: chatty\n"},
		{"bad format", "logger:\n  format: xml\n"},
		{"bad exporter", "observability:\n  tracing:\n    exporter: zipkin\n"},
		{"bad sampling", "observability:\n  tracing:\n    sampling_rate: 2\n"},
		{"unknown key", "servre:\n  port: 1\n"},
		{"negative retries", "generation:\n  max_retries: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "debater.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  host: 127.0.0.1\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.Address())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv_DoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("DEBATER_TEST_A=from-file\nDEBATER_TEST_B=from-file\n"), 0o600))

	t.Setenv("DEBATER_TEST_A", "from-env")
	os.Unsetenv("DEBATER_TEST_B")
	t.Cleanup(func() { os.Unsetenv("DEBATER_TEST_B") })

	LoadDotEnvForConfig(filepath.Join(dir, "debater.yaml"))

	assert.Equal(t, "from-env", os.Getenv("DEBATER_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("DEBATER_TEST_B"))
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList(""))
	assert.Equal(t, []string{"a", "b"}, parseList(" a , b ,"))
	assert.Equal(t, []string{"x"}, parseList(`["x"]`))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "debater.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: info\n"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *Config, 1)
	go func() {
		_ = Watch(ctx, path, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: debug\n"), 0o600))

	select {
	case cfg := <-got:
		assert.Equal(t, "debug", cfg.Logger.Level)
	case <-ctx.Done():
		t.Fatal("config change not observed")
	}
}
