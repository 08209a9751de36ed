package main

import (
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/generator"
	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/internal/circuitbreaker"
)

// =============================================================================
// 🧩 组件装配（serve 与 generate 共用）
// =============================================================================

// app 持有进程内共享的生成组件
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	client    *resty.Client
	blobs     *image.BlobStore
	transport *image.Transport
	specs     []image.ProviderSpec
	breakers  map[string]generator.Breaker
}

// breakerObserver 接收熔断器状态变更
type breakerObserver interface {
	RecordBreakerState(provider string, state int)
}

func newApp(cfg *config.Config, observer breakerObserver, logger *zap.Logger) *app {
	client := image.NewHTTPClient(logger)
	blobs := image.NewBlobStore(
		image.WithBlobTTL(cfg.Server.BlobTTL),
		image.WithBlobMaxBytes(cfg.Server.BlobMaxBytes),
		image.WithBlobLogger(logger),
	)
	loader := image.NewHTTPImageLoader(client, cfg.Generator.ImageLoadTimeout, logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		blobs:     blobs,
		transport: image.NewTransport(client, loader, blobs, logger),
		specs:     cfg.Providers.Build(),
	}
	if cfg.Breaker.Enabled {
		a.breakers = newBreakers(a.specs, cfg.Breaker, observer, logger)
	}
	return a
}

func newBreakers(specs []image.ProviderSpec, cfg config.BreakerConfig, observer breakerObserver, logger *zap.Logger) map[string]generator.Breaker {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name()
	}

	cbCfg := circuitbreaker.Config{
		Threshold:        cfg.Threshold,
		ResetTimeout:     cfg.ResetTimeout,
		HalfOpenMaxCalls: 1,
	}
	if observer != nil {
		cbCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
			observer.RecordBreakerState(name, int(to))
		}
	}

	set := circuitbreaker.NewSet(names, cbCfg, logger)
	out := make(map[string]generator.Breaker, len(set))
	for name, cb := range set {
		out[name] = cb
		if observer != nil {
			observer.RecordBreakerState(name, int(cb.State()))
		}
	}
	return out
}

// newOrchestrator 构建一个编排器；所有会话共享 transport、blob 存储与熔断器
func (a *app) newOrchestrator(metrics generator.MetricsRecorder) *generator.Orchestrator {
	opts := []generator.Option{
		generator.WithLogger(a.logger),
		generator.WithExecutor(a.transport),
		generator.WithBreakers(a.breakers),
	}
	if metrics != nil {
		opts = append(opts, generator.WithMetrics(metrics))
	}
	return generator.New(a.cfg.Generator, a.specs, opts...)
}

func (a *app) providerNames() []string {
	names := make([]string, len(a.specs))
	for i, spec := range a.specs {
		names[i] = spec.Name()
	}
	return names
}

func (a *app) fallbackName() string {
	if !a.cfg.Generator.FallbackEnabled() {
		return ""
	}
	return generator.FallbackProviderName
}
