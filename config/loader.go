// =============================================================================
// 📦 ImageFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("IMAGEFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/imageflow/generator"
	"github.com/BaSui01/imageflow/image"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "IMAGEFLOW"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ImageFlow 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Generator 编排器配置
	Generator generator.Config `yaml:"generator" env:"GENERATOR"`

	// Providers 图像服务提供方配置
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Breaker 熔断器配置
	Breaker BreakerConfig `yaml:"breaker" env:"BREAKER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（需覆盖完整的提供方链）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每个客户端 IP 的限流速率
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 静态 API Key 列表，为空且未配置 JWT 时不鉴权
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// HS256 JWT 签名密钥
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	// 会话空闲淘汰时间
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	// 二进制结果的保留时间
	BlobTTL time.Duration `yaml:"blob_ttl" env:"BLOB_TTL"`
	// 二进制结果总字节上限，超出时淘汰最旧的结果
	BlobMaxBytes int64 `yaml:"blob_max_bytes" env:"BLOB_MAX_BYTES"`
}

// AuthEnabled 是否启用鉴权
func (s ServerConfig) AuthEnabled() bool {
	return len(s.APIKeys) > 0 || s.JWTSecret != ""
}

// ProvidersConfig 图像服务提供方配置，按尝试顺序排列
type ProvidersConfig struct {
	Pollinations image.PollinationsConfig `yaml:"pollinations" env:"POLLINATIONS"`
	HuggingFace  image.HuggingFaceConfig  `yaml:"huggingface" env:"HUGGINGFACE"`
	DeepAI       image.DeepAIConfig       `yaml:"deepai" env:"DEEPAI"`
}

// Build 按优先级构建已启用的提供方列表
func (p ProvidersConfig) Build() []image.ProviderSpec {
	var specs []image.ProviderSpec
	if p.Pollinations.Enabled {
		specs = append(specs, image.NewPollinationsProvider(p.Pollinations))
	}
	if p.HuggingFace.Enabled {
		specs = append(specs, image.NewHuggingFaceProvider(p.HuggingFace))
	}
	if p.DeepAI.Enabled {
		specs = append(specs, image.NewDeepAIProvider(p.DeepAI))
	}
	return specs
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 连续失败阈值
	Threshold int `yaml:"threshold" env:"THRESHOLD"`
	// 熔断恢复等待时间
	ResetTimeout time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			out := parts[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，收集全部问题后一次性返回
func (c *Config) Validate() error {
	var errs []string

	// 服务器
	if !validPort(c.Server.HTTPPort) {
		errs = append(errs, "invalid HTTP port")
	}
	if !validPort(c.Server.MetricsPort) {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.HTTPPort == c.Server.MetricsPort {
		errs = append(errs, "HTTP and metrics ports must differ")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, "rate limit values must not be negative")
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, "session_ttl must be positive")
	}
	if c.Server.BlobTTL <= 0 {
		errs = append(errs, "blob_ttl must be positive")
	}
	if c.Server.BlobMaxBytes < 0 {
		errs = append(errs, "blob_max_bytes must not be negative")
	}

	// 编排器
	if _, err := image.LookupStyle(c.Generator.DefaultStyle); err != nil {
		errs = append(errs, fmt.Sprintf("unknown default_style %q", c.Generator.DefaultStyle))
	}
	if _, _, err := image.ParseSize(c.Generator.DefaultSize); err != nil {
		errs = append(errs, fmt.Sprintf("invalid default_size %q", c.Generator.DefaultSize))
	}
	if c.Generator.RequestTimeout <= 0 {
		errs = append(errs, "request_timeout must be positive")
	}
	if c.Generator.ImageLoadTimeout <= 0 {
		errs = append(errs, "image_load_timeout must be positive")
	}
	if c.Generator.FallbackEnabled() {
		if !validBaseURL(c.Generator.FallbackBaseURL) {
			errs = append(errs, fmt.Sprintf("invalid fallback_base_url %q", c.Generator.FallbackBaseURL))
		}
		if _, _, err := image.ParseSize(c.Generator.FallbackSize); err != nil {
			errs = append(errs, fmt.Sprintf("invalid fallback_size %q", c.Generator.FallbackSize))
		}
	}

	// 提供方
	p := c.Providers
	if p.Pollinations.Enabled && !validBaseURL(p.Pollinations.BaseURL) {
		errs = append(errs, "invalid providers.pollinations.base_url")
	}
	if p.HuggingFace.Enabled && !validBaseURL(p.HuggingFace.BaseURL) {
		errs = append(errs, "invalid providers.huggingface.base_url")
	}
	if p.DeepAI.Enabled && !validBaseURL(p.DeepAI.BaseURL) {
		errs = append(errs, "invalid providers.deepai.base_url")
	}
	if len(p.Build()) == 0 && !c.Generator.FallbackEnabled() {
		errs = append(errs, "no provider enabled and fallback disabled")
	}

	// 熔断器
	if c.Breaker.Enabled && (c.Breaker.Threshold <= 0 || c.Breaker.ResetTimeout <= 0) {
		errs = append(errs, "breaker threshold and reset_timeout must be positive")
	}

	// 日志
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Sprintf("invalid log format %q", c.Log.Format))
	}

	// 遥测
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
