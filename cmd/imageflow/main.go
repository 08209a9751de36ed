// =============================================================================
// ImageFlow 主入口
// =============================================================================
// 图像生成服务入口点，包含 HTTP 服务、单次生成、健康检查、Prometheus 指标
//
// 使用方法:
//
//	imageflow serve                          # 启动服务
//	imageflow serve --config config.yaml     # 指定配置文件
//	imageflow generate --prompt "a red fox"  # 单次生成
//	imageflow styles                         # 列出风格
//	imageflow version                        # 显示版本信息
//	imageflow health                         # 健康检查
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "generate":
		err = runGenerate(os.Args[2:], os.Stdout)
	case "styles":
		printStyles(os.Stdout)
	case "version":
		printVersion(os.Stdout)
	case "health":
		err = runHealthCheck(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ImageFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewServer(cfg, logger, otelProviders).Run(ctx); err != nil {
		logger.Error("server exited", zap.Error(err))
		return err
	}

	logger.Info("ImageFlow stopped")
	return nil
}

// =============================================================================
// 🎨 generate 命令
// =============================================================================

func runGenerate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	prompt := fs.String("prompt", "", "Text prompt (required)")
	style := fs.String("style", "", "Style: realistic, artistic, cartoon, abstract")
	size := fs.String("size", "", "Size as <width>x<height>")
	outPath := fs.String("out", "", "Write the image to this file")
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, nil, logger)
	result, err := a.newOrchestrator(nil).Generate(ctx, *prompt, *style, *size)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "service:  %s\n", result.Provider)
	fmt.Fprintf(out, "type:     %s\n", result.Kind)
	fmt.Fprintf(out, "fallback: %t\n", result.Fallback)
	fmt.Fprintf(out, "image:    %s\n", result.URL)

	if *outPath == "" {
		return nil
	}
	data, err := a.download(ctx, result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *outPath, err)
	}
	fmt.Fprintf(out, "written:  %s (%d bytes)\n", *outPath, len(data))
	return nil
}

// download 返回结果的图像字节：二进制结果取自 blob 存储，URL 结果重新下载
func (a *app) download(ctx context.Context, result *image.GenerationResult) ([]byte, error) {
	if result.Kind == image.KindBinary {
		blob, ok := a.blobs.Get(result.URL)
		if !ok {
			return nil, errors.New("binary result no longer available")
		}
		return blob.Data, nil
	}

	resp, err := a.client.R().SetContext(ctx).Get(result.URL)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download image: HTTP %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	fmt.Fprintln(out, "OK")
	return nil
}

// =============================================================================
// 📋 风格、版本和帮助
// =============================================================================

func printStyles(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STYLE\tPRIMARY MODEL\tFALLBACK MODEL\tDESCRIPTION")
	for _, p := range image.Styles() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Key, p.Primary, p.Fallback, p.Description)
	}
	_ = tw.Flush()
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "ImageFlow %s\n", Version)
	fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `ImageFlow - text-to-image generation with provider fallback

Usage:
  imageflow <command> [options]

Commands:
  serve     Start the ImageFlow server
  generate  Generate a single image
  styles    List available styles
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Options for 'generate':
  --prompt <text>   Text prompt (required)
  --style <style>   realistic | artistic | cartoon | abstract
  --size <WxH>      Image size, e.g. 512x512
  --out <file>      Write the image to a file
  --config <path>   Path to configuration file (YAML)

Examples:
  imageflow serve --config /etc/imageflow/config.yaml
  imageflow generate --prompt "a lighthouse at dusk" --style artistic --out out.png
  imageflow health --addr http://localhost:8080
  imageflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
