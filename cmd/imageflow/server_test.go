package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/config"
)

var testPNG = []byte("\x89PNG\r\n\x1a\nserver-test")

// newUpstream 模拟 provider：Pollinations 失败，Hugging Face 返回二进制图像
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/prompt/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/models/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(testPNG)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(upstream string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers.Pollinations.BaseURL = upstream
	cfg.Providers.HuggingFace.BaseURL = upstream
	cfg.Providers.DeepAI.Enabled = false
	cfg.Generator.DisableFallback = true
	cfg.Breaker.Enabled = true
	return cfg
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.RemoteAddr = "192.0.2.1:5555"
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestServer_GenerateFlowsThroughChain(t *testing.T) {
	upstream := newUpstream(t)
	s := NewServer(testConfig(upstream.URL), zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := s.routes(ctx)

	w, env := doRequest(t, h, http.MethodPost, "/v1/images/generations", map[string]string{"prompt": "a red fox"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))

	var res handlers.GenerateResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Hugging Face", res.Service)
	require.NotEmpty(t, res.DownloadURL)

	// 下载二进制结果
	w, _ = doRequest(t, h, http.MethodGet, res.DownloadURL, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testPNG, w.Body.Bytes())

	// 历史
	w, env = doRequest(t, h, http.MethodGet, "/v1/images/history", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist handlers.HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, "Hugging Face", hist.Entries[0].Provider)
	assert.InDelta(t, 100.0, hist.SuccessRate, 1e-9)
}

func TestServer_BlobCapEvictsOldResults(t *testing.T) {
	upstream := newUpstream(t)
	cfg := testConfig(upstream.URL)
	cfg.Server.BlobMaxBytes = int64(len(testPNG))
	s := NewServer(cfg, zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := s.routes(ctx)

	generate := func() handlers.GenerateResponse {
		w, env := doRequest(t, h, http.MethodPost, "/v1/images/generations", map[string]string{"prompt": "a red fox"}, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res handlers.GenerateResponse
		require.NoError(t, json.Unmarshal(env.Data, &res))
		require.NotEmpty(t, res.DownloadURL)
		return res
	}

	first := generate()
	second := generate()
	assert.Equal(t, 1, s.app.blobs.Len())

	w, _ := doRequest(t, h, http.MethodGet, first.DownloadURL, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = doRequest(t, h, http.MethodGet, second.DownloadURL, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ErrorsAndRoutes(t *testing.T) {
	upstream := newUpstream(t)
	s := NewServer(testConfig(upstream.URL), zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := s.routes(ctx)

	w, env := doRequest(t, h, http.MethodPost, "/v1/images/generations", map[string]string{"prompt": " "}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	w, env = doRequest(t, h, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, _ = doRequest(t, h, http.MethodGet, "/v1/providers", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pollinations AI")
	assert.NotContains(t, w.Body.String(), "Alternative API")

	w, _ = doRequest(t, h, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_AuthEnabled(t *testing.T) {
	upstream := newUpstream(t)
	cfg := testConfig(upstream.URL)
	cfg.Server.APIKeys = []string{"secret-key"}
	s := NewServer(cfg, zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := s.routes(ctx)

	w, _ := doRequest(t, h, http.MethodGet, "/v1/styles", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doRequest(t, h, http.MethodGet, "/v1/styles", nil, map[string]string{"X-API-Key": "secret-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	upstream := newUpstream(t)
	s := NewServer(testConfig(upstream.URL), zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doRequest(t, s.routes(ctx), http.MethodPost, "/v1/images/generations", map[string]string{"prompt": "fox"}, nil)

	w := httptest.NewRecorder()
	s.metricsRoutes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "imageflow_generations_total")
	assert.Contains(t, body, "imageflow_provider_attempts_total")
	assert.Contains(t, body, "imageflow_http_requests_total")
	assert.Contains(t, body, "imageflow_active_sessions")
	assert.Contains(t, body, "imageflow_circuit_breaker_state")
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	upstream := newUpstream(t)
	cfg := testConfig(upstream.URL)
	cfg.Server.HTTPPort = 0
	cfg.Server.MetricsPort = 0
	s := NewServer(cfg, zaptest.NewLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
