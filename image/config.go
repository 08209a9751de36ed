package image

import "time"

// PollinationsConfig configures the Pollinations AI provider.
type PollinationsConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" env:"ENABLED"`
	BaseURL string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// HuggingFaceConfig configures the Hugging Face inference provider.
type HuggingFaceConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	BaseURL string `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"API_KEY"`
	// UseFallbackModel selects StyleProfile.Fallback instead of Primary.
	UseFallbackModel bool          `json:"use_fallback_model" yaml:"use_fallback_model" env:"USE_FALLBACK_MODEL"`
	Timeout          time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// DeepAIConfig configures the DeepAI text2img provider.
type DeepAIConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" env:"ENABLED"`
	BaseURL string        `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	APIKey  string        `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"API_KEY"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
}

// DefaultPollinationsConfig returns the default Pollinations config.
func DefaultPollinationsConfig() PollinationsConfig {
	return PollinationsConfig{
		Enabled: true,
		BaseURL: "https://image.pollinations.ai",
		Timeout: 30 * time.Second,
	}
}

// DefaultHuggingFaceConfig returns the default Hugging Face config.
func DefaultHuggingFaceConfig() HuggingFaceConfig {
	return HuggingFaceConfig{
		Enabled: true,
		BaseURL: "https://api-inference.huggingface.co",
	}
}

// DefaultDeepAIConfig returns the default DeepAI config.
func DefaultDeepAIConfig() DeepAIConfig {
	return DeepAIConfig{
		Enabled: true,
		BaseURL: "https://api.deepai.org",
	}
}
