// =============================================================================
// 📦 ImageFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/imageflow/generator"
	"github.com/BaSui01/imageflow/image"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Generator: generator.DefaultConfig(),
		Providers: DefaultProvidersConfig(),
		Breaker:   DefaultBreakerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
		SessionTTL:      30 * time.Minute,
		BlobTTL:         time.Hour,
		BlobMaxBytes:    256 << 20,
	}
}

// DefaultProvidersConfig 返回默认提供方配置
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Pollinations: image.DefaultPollinationsConfig(),
		HuggingFace:  image.DefaultHuggingFaceConfig(),
		DeepAI:       image.DefaultDeepAIConfig(),
	}
}

// DefaultBreakerConfig 返回默认熔断器配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:      false,
		Threshold:    3,
		ResetTimeout: 60 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "imageflow",
		SampleRate:   1.0,
	}
}
