package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/generator"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/internal/server"
	"github.com/BaSui01/imageflow/internal/telemetry"
)

// =============================================================================
// 🖥️ 服务器结构
// =============================================================================

// Server ImageFlow 服务
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Providers

	registry  *prometheus.Registry
	collector *metrics.Collector
	app       *app

	sessions       *handlers.SessionRegistry
	imageHandler   *handlers.ImageHandler
	catalogHandler *handlers.CatalogHandler
	healthHandler  *handlers.HealthHandler
}

// NewServer 装配服务组件（不监听端口）
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollectorWith(registry, "imageflow", logger)

	var recorder generator.MetricsRecorder = collector
	if meter, err := telemetry.NewGenerationMeter(); err != nil {
		logger.Warn("otel generation meter unavailable", zap.Error(err))
	} else {
		recorder = generator.MultiRecorder(collector, meter)
	}

	a := newApp(cfg, collector, logger)
	sessions := handlers.NewSessionRegistry(func() *generator.Orchestrator {
		return a.newOrchestrator(recorder)
	}, cfg.Server.SessionTTL, collector, logger)

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		telemetry:      otelProviders,
		registry:       registry,
		collector:      collector,
		app:            a,
		sessions:       sessions,
		imageHandler:   handlers.NewImageHandler(sessions, a.blobs, logger),
		catalogHandler: handlers.NewCatalogHandler(a.specs, a.fallbackName(), logger),
		healthHandler:  handlers.NewHealthHandler(logger),
	}
	s.healthHandler.RegisterCheck(handlers.NewProvidersHealthCheck(a.providerNames, cfg.Generator.FallbackEnabled()))
	return s
}

// =============================================================================
// 🚀 启动与运行
// =============================================================================

// Run 并发运行 API 服务、指标服务、会话回收与 blob 过期清理，直到 ctx 结束或任一组件失败
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	api := server.NewManager("api", s.routes(gctx), s.managerConfig(s.cfg.Server.HTTPPort), s.logger)
	metricsSrv := server.NewManager("metrics", s.metricsRoutes(), s.managerConfig(s.cfg.Server.MetricsPort), s.logger)

	g.Go(func() error { return api.Run(gctx) })
	g.Go(func() error { return metricsSrv.Run(gctx) })
	g.Go(func() error {
		s.sessions.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.app.blobs.Run(gctx)
		return nil
	})

	s.logger.Info("ImageFlow started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Strings("providers", s.app.providerNames()),
		zap.Bool("fallback", s.cfg.Generator.FallbackEnabled()),
		zap.Bool("auth", s.cfg.Server.AuthEnabled()),
	)

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if s.telemetry != nil {
		if terr := s.telemetry.Shutdown(shutdownCtx); terr != nil {
			s.logger.Warn("telemetry shutdown failed", zap.Error(terr))
		}
	}
	return err
}

func (s *Server) managerConfig(port int) server.Config {
	cfg := server.DefaultConfig()
	cfg.Addr = fmt.Sprintf(":%d", port)
	cfg.ReadTimeout = s.cfg.Server.ReadTimeout
	cfg.WriteTimeout = s.cfg.Server.WriteTimeout
	cfg.ShutdownTimeout = s.cfg.Server.ShutdownTimeout
	return cfg
}

// =============================================================================
// 🛣️ 路由
// =============================================================================

func (s *Server) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("/v1/images/generations", s.imageHandler.HandleGenerations)
	mux.HandleFunc("/v1/images/history", s.imageHandler.HandleHistory)
	mux.HandleFunc(handlers.BlobPathPrefix, s.imageHandler.HandleBlob)
	mux.HandleFunc("/v1/styles", s.catalogHandler.HandleStyles)
	mux.HandleFunc("/v1/providers", s.catalogHandler.HandleProviders)
	mux.Handle("/", handlers.NotFound(s.logger))

	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		chain = append(chain, RateLimiter(ctx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
	}
	if s.cfg.Server.AuthEnabled() {
		chain = append(chain, Auth(s.cfg.Server.APIKeys, s.cfg.Server.JWTSecret, s.logger))
	}
	chain = append(chain, SessionScope())

	return Chain(mux, chain...)
}

func (s *Server) metricsRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry:          s.registry,
		EnableOpenMetrics: true,
		Timeout:           10 * time.Second,
	}))
	return mux
}
