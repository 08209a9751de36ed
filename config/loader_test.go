// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 120*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, time.Hour, cfg.Server.BlobTTL)
	assert.Equal(t, int64(256<<20), cfg.Server.BlobMaxBytes)
	assert.False(t, cfg.Server.AuthEnabled())

	assert.Equal(t, "realistic", cfg.Generator.DefaultStyle)
	assert.Equal(t, "512x512", cfg.Generator.DefaultSize)
	assert.Equal(t, 30*time.Second, cfg.Generator.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Generator.ImageLoadTimeout)
	assert.True(t, cfg.Generator.FallbackEnabled())
	assert.Equal(t, "https://source.unsplash.com", cfg.Generator.FallbackBaseURL)
	assert.Equal(t, "800x600", cfg.Generator.FallbackSize)

	assert.Equal(t, "https://image.pollinations.ai", cfg.Providers.Pollinations.BaseURL)
	assert.Equal(t, "https://api-inference.huggingface.co", cfg.Providers.HuggingFace.BaseURL)
	assert.Equal(t, "https://api.deepai.org", cfg.Providers.DeepAI.BaseURL)

	assert.False(t, cfg.Breaker.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "imageflow", cfg.Telemetry.ServiceName)

	require.NoError(t, cfg.Validate())
}

func TestProvidersConfig_BuildOrder(t *testing.T) {
	p := DefaultProvidersConfig()
	var names []string
	for _, spec := range p.Build() {
		names = append(names, spec.Name())
	}
	assert.Equal(t, []string{"Pollinations AI", "Hugging Face", "Alternative API"}, names)

	p.HuggingFace.Enabled = false
	names = names[:0]
	for _, spec := range p.Build() {
		names = append(names, spec.Name())
	}
	assert.Equal(t, []string{"Pollinations AI", "Alternative API"}, names)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
server:
  http_port: 8888
  api_keys: ["k1", "k2"]
  session_ttl: 5m

generator:
  default_style: cartoon
  request_timeout: 45s
  disable_fallback: true

providers:
  huggingface:
    api_key: hf_abc
    use_fallback_model: true
  deepai:
    enabled: false

breaker:
  enabled: true
  threshold: 5

log:
  level: "debug"
  format: "console"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
	assert.True(t, cfg.Server.AuthEnabled())

	assert.Equal(t, "cartoon", cfg.Generator.DefaultStyle)
	assert.Equal(t, "512x512", cfg.Generator.DefaultSize, "untouched keys keep defaults")
	assert.Equal(t, 45*time.Second, cfg.Generator.RequestTimeout)
	assert.False(t, cfg.Generator.FallbackEnabled())

	assert.Equal(t, "hf_abc", cfg.Providers.HuggingFace.APIKey)
	assert.True(t, cfg.Providers.HuggingFace.UseFallbackModel)
	assert.True(t, cfg.Providers.HuggingFace.Enabled)
	assert.Equal(t, "https://api-inference.huggingface.co", cfg.Providers.HuggingFace.BaseURL)
	assert.False(t, cfg.Providers.DeepAI.Enabled)

	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, 5, cfg.Breaker.Threshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.ResetTimeout)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("IMAGEFLOW_SERVER_HTTP_PORT", "7777")
	t.Setenv("IMAGEFLOW_SERVER_API_KEYS", "a, b ,,c")
	t.Setenv("IMAGEFLOW_GENERATOR_DEFAULT_SIZE", "1024x768")
	t.Setenv("IMAGEFLOW_GENERATOR_IMAGE_LOAD_TIMEOUT", "3s")
	t.Setenv("IMAGEFLOW_GENERATOR_DISABLE_FALLBACK", "true")
	t.Setenv("IMAGEFLOW_PROVIDERS_HUGGINGFACE_API_KEY", "hf_env")
	t.Setenv("IMAGEFLOW_PROVIDERS_POLLINATIONS_TIMEOUT", "12s")
	t.Setenv("IMAGEFLOW_TELEMETRY_SAMPLE_RATE", "0.25")
	t.Setenv("IMAGEFLOW_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)
	assert.Equal(t, "1024x768", cfg.Generator.DefaultSize)
	assert.Equal(t, 3*time.Second, cfg.Generator.ImageLoadTimeout)
	assert.False(t, cfg.Generator.FallbackEnabled())
	assert.Equal(t, "hf_env", cfg.Providers.HuggingFace.APIKey)
	assert.Equal(t, 12*time.Second, cfg.Providers.Pollinations.Timeout)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
server:
  http_port: 8888
generator:
  default_style: abstract
  default_size: 256x256
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))
	t.Setenv("IMAGEFLOW_SERVER_HTTP_PORT", "9999")
	t.Setenv("IMAGEFLOW_GENERATOR_DEFAULT_STYLE", "artistic")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "artistic", cfg.Generator.DefaultStyle)
	assert.Equal(t, "256x256", cfg.Generator.DefaultSize)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("IMAGEFLOW_GENERATOR_REQUEST_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	assert.ErrorContains(t, err, "IMAGEFLOW_GENERATOR_REQUEST_TIMEOUT")
}

func TestLoader_Validators(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	require.NoError(t, err)

	t.Setenv("IMAGEFLOW_GENERATOR_DEFAULT_STYLE", "noir")
	_, err = NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		Load()
	assert.ErrorContains(t, err, `unknown default_style "noir"`)
}

func TestMustLoad_Panics(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: hello"), 0644))
	assert.Panics(t, func() { MustLoad(configPath) })
}

// --- Validate 测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad http port", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"same ports", func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort }, "ports must differ"},
		{"zero session ttl", func(c *Config) { c.Server.SessionTTL = 0 }, "session_ttl"},
		{"zero blob ttl", func(c *Config) { c.Server.BlobTTL = 0 }, "blob_ttl"},
		{"negative blob cap", func(c *Config) { c.Server.BlobMaxBytes = -1 }, "blob_max_bytes"},
		{"bad default size", func(c *Config) { c.Generator.DefaultSize = "big" }, "invalid default_size"},
		{"bad fallback url", func(c *Config) { c.Generator.FallbackBaseURL = "unsplash" }, "fallback_base_url"},
		{"bad provider url", func(c *Config) { c.Providers.DeepAI.BaseURL = "ftp://x" }, "providers.deepai.base_url"},
		{"nothing enabled", func(c *Config) {
			c.Providers.Pollinations.Enabled = false
			c.Providers.HuggingFace.Enabled = false
			c.Providers.DeepAI.Enabled = false
			c.Generator.DisableFallback = true
		}, "no provider enabled"},
		{"breaker threshold", func(c *Config) { c.Breaker.Enabled = true; c.Breaker.Threshold = 0 }, "breaker"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
		{"sample rate", func(c *Config) { c.Telemetry.SampleRate = 2 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.HTTPPort = -1
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestConfig_DisabledFallbackSkipsFallbackChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generator.DisableFallback = true
	cfg.Generator.FallbackBaseURL = ""
	assert.NoError(t, cfg.Validate())
}
