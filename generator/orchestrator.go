package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
)

const instrumentationName = "github.com/BaSui01/imageflow/generator"

// UnavailableMessage is the caller-facing message of ALL_PROVIDERS_UNAVAILABLE.
const UnavailableMessage = "All image generation services are currently unavailable. Please try again later."

// Cancellation causes attached to a generation's context.
var (
	ErrSuperseded      = errors.New("generation superseded by a newer request")
	ErrCancelRequested = errors.New("generation cancelled by caller")
)

// Executor issues request plans and validates image URLs.
// *image.Transport implements it.
type Executor interface {
	ImageChecker
	Execute(ctx context.Context, provider string, plan *image.RequestPlan) (*image.GenerationResult, error)
}

// Breaker guards calls to a single provider.
type Breaker interface {
	Call(ctx context.Context, fn func() error) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithExecutor replaces the default HTTP transport.
func WithExecutor(exec Executor) Option {
	return func(o *Orchestrator) { o.exec = exec }
}

// WithBreakers installs circuit breakers keyed by provider name.
func WithBreakers(breakers map[string]Breaker) Option {
	return func(o *Orchestrator) { o.breakers = breakers }
}

type activeToken struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// Orchestrator runs the provider chain for one logical client. At most one
// generation is active at a time; starting another supersedes it.
type Orchestrator struct {
	cfg       Config
	providers []image.ProviderSpec
	exec      Executor
	fallback  *StockFallback
	breakers  map[string]Breaker
	metrics   MetricsRecorder
	logger    *zap.Logger
	tracer    trace.Tracer
	history   History

	mu     sync.Mutex
	active *activeToken
}

// New creates an orchestrator trying providers in the given order.
func New(cfg Config, providers []image.ProviderSpec, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg.withDefaults(),
		providers: append([]image.ProviderSpec(nil), providers...),
		metrics:   nopRecorder{},
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "generator"))
	if o.exec == nil {
		loader := image.NewHTTPImageLoader(nil, o.cfg.ImageLoadTimeout, o.logger)
		o.exec = image.NewTransport(nil, loader, nil, o.logger)
	}
	o.fallback = NewStockFallback(o.cfg.FallbackBaseURL, o.cfg.FallbackSize, o.exec)
	return o
}

// Generate produces an image for prompt. It returns INVALID_INPUT for a blank
// prompt, CANCELLED when the call is superseded or cancelled, and
// ALL_PROVIDERS_UNAVAILABLE when every provider and the fallback failed.
// Empty style and size use the configured defaults.
func (o *Orchestrator) Generate(ctx context.Context, prompt, style, size string) (*image.GenerationResult, error) {
	if strings.TrimSpace(prompt) == "" {
		o.metrics.RecordGeneration(StatusInvalid, 0)
		return nil, types.NewError(types.ErrInvalidInput, "prompt cannot be empty")
	}
	if style == "" {
		style = o.cfg.DefaultStyle
	}
	if size == "" {
		size = o.cfg.DefaultSize
	}

	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "imageflow.generate", trace.WithAttributes(
		attribute.String("imageflow.style", style),
		attribute.String("imageflow.size", size),
	))
	defer span.End()

	tok := o.activate(ctx)
	defer o.release(tok)

	result, err := o.run(tok.ctx, prompt, style, size)

	entry := HistoryEntry{
		Prompt:    prompt,
		Style:     style,
		Size:      size,
		Timestamp: time.Now(),
	}
	var status string
	if err == nil {
		entry.Provider = result.Provider
		entry.Success = true
		entry.Fallback = result.Fallback
		status = StatusSuccess
		if result.Fallback {
			status = StatusFallback
		}
		span.SetAttributes(
			attribute.String("imageflow.provider", result.Provider),
			attribute.Bool("imageflow.fallback", result.Fallback),
		)
	} else {
		entry.Provider = FailedProvider
		entry.Error = errorMessage(err)
		status = StatusUnavailable
		if types.IsCode(err, types.ErrCancelled) {
			status = StatusCancelled
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, entry.Error)
	}
	o.history.Append(entry)
	o.metrics.RecordGeneration(status, time.Since(start))

	return result, err
}

func (o *Orchestrator) run(ctx context.Context, prompt, style, size string) (*image.GenerationResult, error) {
	var lastErr error
	for i, p := range o.providers {
		if ctx.Err() != nil {
			return nil, o.cancelled(ctx)
		}
		result, err := o.attempt(ctx, i, p, prompt, style, size)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, o.cancelled(ctx)
		}
		lastErr = err
	}
	if ctx.Err() != nil {
		return nil, o.cancelled(ctx)
	}

	if !o.cfg.FallbackEnabled() {
		return nil, o.unavailable(lastErr)
	}

	result, err := o.fallback.Find(ctx, prompt)
	if err == nil {
		o.metrics.RecordFallback(StatusSuccess)
		o.logger.Info("fallback image found", zap.String("url", result.URL))
		return result, nil
	}
	if ctx.Err() != nil {
		o.metrics.RecordFallback(StatusCancelled)
		return nil, o.cancelled(ctx)
	}
	o.metrics.RecordFallback(StatusFailure)
	return nil, o.unavailable(err)
}

func (o *Orchestrator) attempt(ctx context.Context, index int, p image.ProviderSpec, prompt, style, size string) (*image.GenerationResult, error) {
	name := p.Name()
	ctx, span := o.tracer.Start(ctx, "imageflow.provider_attempt", trace.WithAttributes(
		attribute.String("imageflow.provider", name),
		attribute.Int("imageflow.attempt", index+1),
	))
	defer span.End()

	start := time.Now()
	result, err := o.execute(ctx, p, prompt, style, size)
	duration := time.Since(start)

	if err == nil {
		o.metrics.RecordProviderAttempt(name, StatusSuccess, duration)
		o.logger.Info("image generated",
			zap.String("provider", name),
			zap.Int("attempt", index+1),
			zap.Duration("duration", duration),
			zap.String("kind", string(result.Kind)),
		)
		return result, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if ctx.Err() != nil {
		o.metrics.RecordProviderAttempt(name, StatusCancelled, duration)
		return nil, err
	}

	status := StatusFailure
	if types.IsCode(err, types.ErrCircuitOpen) {
		status = StatusCircuitOpen
	}
	o.metrics.RecordProviderAttempt(name, status, duration)
	o.logger.Warn("provider attempt failed",
		zap.String("provider", name),
		zap.Int("attempt", index+1),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
	return nil, types.NewError(types.ErrProviderFailure, "provider attempt failed").
		WithProvider(name).
		WithCause(err)
}

func (o *Orchestrator) execute(ctx context.Context, p image.ProviderSpec, prompt, style, size string) (*image.GenerationResult, error) {
	plan, err := p.FormatRequest(prompt, style, size)
	if err != nil {
		return nil, err
	}
	timeout := plan.Timeout
	if timeout <= 0 {
		timeout = o.cfg.RequestTimeout
	}

	var result *image.GenerationResult
	call := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var err error
		result, err = o.exec.Execute(attemptCtx, p.Name(), plan)
		return err
	}

	if b, ok := o.breakers[p.Name()]; ok && b != nil {
		err = b.Call(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) cancelled(ctx context.Context) error {
	cause := context.Cause(ctx)
	o.logger.Info("generation cancelled", zap.Error(cause))
	return types.NewError(types.ErrCancelled, "generation cancelled").WithCause(cause)
}

func (o *Orchestrator) unavailable(cause error) error {
	o.logger.Error("all image providers failed", zap.Error(cause))
	return types.NewError(types.ErrAllProvidersUnavailable, UnavailableMessage).WithCause(cause)
}

// activate cancels the current generation, if any, and installs a new token.
func (o *Orchestrator) activate(ctx context.Context) *activeToken {
	genCtx, cancel := context.WithCancelCause(ctx)
	tok := &activeToken{ctx: genCtx, cancel: cancel}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		o.active.cancel(ErrSuperseded)
		o.logger.Debug("superseding active generation")
	}
	o.active = tok
	return tok
}

// release clears the active slot only if it still holds tok.
func (o *Orchestrator) release(tok *activeToken) {
	o.mu.Lock()
	if o.active == tok {
		o.active = nil
	}
	o.mu.Unlock()
	tok.cancel(nil)
}

// CancelCurrentGeneration cancels the active generation, if any.
func (o *Orchestrator) CancelCurrentGeneration() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		o.active.cancel(ErrCancelRequested)
		o.active = nil
	}
}

// Busy reports whether a generation is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// History returns a snapshot of all calls in chronological order.
func (o *Orchestrator) History() []HistoryEntry {
	return o.history.Snapshot()
}

// SuccessRate returns the percentage of successful calls, 0 when none.
func (o *Orchestrator) SuccessRate() float64 {
	return o.history.SuccessRate()
}

// Providers returns provider names in trial order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

func errorMessage(err error) string {
	var e *types.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
