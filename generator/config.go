package generator

import (
	"time"

	"github.com/BaSui01/imageflow/image"
)

// Config holds orchestrator settings.
type Config struct {
	DefaultStyle     string        `yaml:"default_style" env:"DEFAULT_STYLE" json:"default_style"`
	DefaultSize      string        `yaml:"default_size" env:"DEFAULT_SIZE" json:"default_size"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" json:"request_timeout"`
	ImageLoadTimeout time.Duration `yaml:"image_load_timeout" env:"IMAGE_LOAD_TIMEOUT" json:"image_load_timeout"`
	DisableFallback  bool          `yaml:"disable_fallback" env:"DISABLE_FALLBACK" json:"disable_fallback"`
	FallbackBaseURL  string        `yaml:"fallback_base_url" env:"FALLBACK_BASE_URL" json:"fallback_base_url"`
	FallbackSize     string        `yaml:"fallback_size" env:"FALLBACK_SIZE" json:"fallback_size"`
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStyle:     image.StyleRealistic,
		DefaultSize:      "512x512",
		RequestTimeout:   30 * time.Second,
		ImageLoadTimeout: image.DefaultImageLoadTimeout,
		FallbackBaseURL:  "https://source.unsplash.com",
		FallbackSize:     "800x600",
	}
}

// FallbackEnabled reports whether the stock-photo fallback runs after every
// provider failed. The zero Config keeps it on.
func (c Config) FallbackEnabled() bool { return !c.DisableFallback }

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultStyle == "" {
		c.DefaultStyle = d.DefaultStyle
	}
	if c.DefaultSize == "" {
		c.DefaultSize = d.DefaultSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ImageLoadTimeout <= 0 {
		c.ImageLoadTimeout = d.ImageLoadTimeout
	}
	if c.FallbackBaseURL == "" {
		c.FallbackBaseURL = d.FallbackBaseURL
	}
	if c.FallbackSize == "" {
		c.FallbackSize = d.FallbackSize
	}
	return c
}
