package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/internal/ctxkeys"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/types"
)

// publicPaths 无需鉴权的探针路径
var publicPaths = []string{"/health", "/healthz", "/ready", "/version"}

// Middleware 类型定义
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个为最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// statusRecorder 捕获状态码与响应大小
type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	wroteHeader  bool
	bytesWritten int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Unwrap 供 http.ResponseController 使用
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recovery panic 恢复中间件
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", zap.Any("error", err), zap.String("path", r.URL.Path))
					handlers.WriteErrorMessage(w, r, http.StatusInternalServerError, types.ErrInternalError, "internal server error", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID 为每个请求分配 X-Request-ID（客户端提供则沿用）并注入 context
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
		})
	}
}

// SecurityHeaders 添加通用安全响应头
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'")
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger 请求日志中间件
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			id, _ := ctxkeys.RequestID(r.Context())
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", id),
			)
		})
	}
}

// =============================================================================
// MetricsMiddleware — records HTTP request metrics via metrics.Collector
// =============================================================================

// MetricsMiddleware 记录请求耗时、状态与大小
func MetricsMiddleware(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}
			collector.RecordHTTPRequest(r.Method, normalizePath(r.URL.Path), rec.statusCode, time.Since(start), requestSize, rec.bytesWritten)
		})
	}
}

// knownPaths 静态路由，其余路径统一归为 "other" 以限制标签基数
var knownPaths = map[string]struct{}{
	"/health": {}, "/healthz": {}, "/ready": {}, "/version": {},
	"/v1/images/generations": {}, "/v1/images/history": {},
	"/v1/styles": {}, "/v1/providers": {},
}

// normalizePath 将动态路径归一化：
//
//	/v1/images/blobs/<uuid> -> /v1/images/blobs/:id
//	/anything/else          -> other
func normalizePath(path string) string {
	if _, ok := knownPaths[path]; ok {
		return path
	}
	if strings.HasPrefix(path, handlers.BlobPathPrefix) {
		return handlers.BlobPathPrefix + ":id"
	}
	return "other"
}

// =============================================================================
// OTelTracing — OpenTelemetry HTTP tracing middleware
// =============================================================================

// OTelTracing 为每个请求创建 server span，并提取入站 W3C trace context
func OTelTracing() Middleware {
	tracer := otel.Tracer("imageflow/http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			route := normalizePath(r.URL.Path)
			ctx, span := tracer.Start(ctx, r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRoute(route),
				),
			)
			defer span.End()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rec.statusCode))
			if rec.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
			}
		})
	}
}

// =============================================================================
// Auth — API key or HS256 JWT
// =============================================================================

// Auth 接受 X-API-Key 静态密钥或 HS256 签名的 Bearer JWT。
// 认证主体写入 context，用于会话隔离。publicPaths 不鉴权。
func Auth(apiKeys []string, jwtSecret string, logger *zap.Logger) Middleware {
	skipSet := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		skipSet[p] = struct{}{}
	}

	secret := []byte(jwtSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(token *jwt.Token) (any, error) {
		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := skipSet[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			if key := r.Header.Get("X-API-Key"); key != "" {
				if matchAPIKey(apiKeys, key) {
					next.ServeHTTP(w, r.WithContext(ctxkeys.WithSubject(r.Context(), "key:"+keyFingerprint(key))))
					return
				}
				unauthorized(w, r, "invalid API key", logger)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if len(secret) == 0 || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, r, "missing credentials", logger)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := parser.ParseWithClaims(strings.TrimPrefix(authHeader, "Bearer "), claims, keyFunc)
			if err != nil || !token.Valid {
				logger.Debug("JWT validation failed", zap.Error(err))
				unauthorized(w, r, "invalid or expired token", logger)
				return
			}

			subject := claims.Subject
			if subject == "" {
				subject = "anonymous"
			}
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithSubject(r.Context(), "jwt:"+subject)))
		})
	}
}

func matchAPIKey(keys []string, candidate string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}

// keyFingerprint 避免在 context 与日志中保存完整密钥
func keyFingerprint(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()[:8]
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string, logger *zap.Logger) {
	handlers.WriteError(w, r, types.NewError(types.ErrUnauthorized, message), logger)
}

// SessionScope 将 X-Session-ID 限定在认证主体之下，不同主体的同名会话互不影响
func SessionScope() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := strings.TrimSpace(r.Header.Get(handlers.SessionHeader))
			if session == "" {
				session = handlers.DefaultSessionID
			}
			if subject, ok := ctxkeys.Subject(r.Context()); ok {
				session = subject + "/" + session
			}
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithSessionID(r.Context(), session)))
		})
	}
}

// =============================================================================
// RateLimiter — per-client token bucket
// =============================================================================

// RateLimiter 基于客户端 IP 的令牌桶限流，空闲 visitor 在 ctx 存活期间定期清理
func RateLimiter(ctx context.Context, rps float64, burst int, logger *zap.Logger) Middleware {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for ip, v := range visitors {
					if time.Since(v.lastSeen) > 3*time.Minute {
						delete(visitors, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			mu.Lock()
			v, exists := visitors[ip]
			if !exists {
				v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				visitors[ip] = v
			}
			v.lastSeen = time.Now()
			mu.Unlock()

			if !v.limiter.Allow() {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter(rps)))
				handlers.WriteError(w, r, types.NewError(types.ErrRateLimited, "too many requests").WithRetryable(true), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(rps float64) float64 {
	if rps <= 0 {
		return 1
	}
	secs := 1 / rps
	if secs < 1 {
		return 1
	}
	return secs
}
