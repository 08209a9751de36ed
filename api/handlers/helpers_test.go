package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/generator"
	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
)

// =============================================================================
// 🧪 测试辅助类型
// =============================================================================

type stubSpec struct{ name string }

func (s stubSpec) Name() string     { return s.name }
func (s stubSpec) Endpoint() string { return "https://" + strings.ToLower(s.name) + ".test" }
func (s stubSpec) Method() string   { return http.MethodGet }

func (s stubSpec) FormatRequest(prompt, style, size string) (*image.RequestPlan, error) {
	return &image.RequestPlan{
		URL:      s.Endpoint() + "/" + prompt,
		Method:   http.MethodGet,
		Response: image.ResponseDirect,
	}, nil
}

// stubExecutor 根据 prompt 决定行为："slow" 阻塞到取消，"fail" 失败，"binary" 返回 blob
type stubExecutor struct {
	blobs *image.BlobStore
}

func (e *stubExecutor) LoadImage(ctx context.Context, url string) error {
	return types.NewError(types.ErrImageLoadFailed, "image load failed")
}

func (e *stubExecutor) Execute(ctx context.Context, provider string, plan *image.RequestPlan) (*image.GenerationResult, error) {
	switch {
	case strings.HasSuffix(plan.URL, "/slow"):
		<-ctx.Done()
		return nil, ctx.Err()
	case strings.HasSuffix(plan.URL, "/fail"):
		return nil, errors.New("upstream down")
	case strings.HasSuffix(plan.URL, "/binary"):
		blob := e.blobs.Put(pngData, "image/png")
		return &image.GenerationResult{URL: blob.Locator(), Kind: image.KindBinary, Provider: provider, Blob: blob, CreatedAt: time.Now()}, nil
	}
	return &image.GenerationResult{URL: plan.URL, Kind: image.KindURL, Provider: provider, CreatedAt: time.Now()}, nil
}

var pngData = []byte("\x89PNG\r\n\x1a\npixels")

type testEnv struct {
	handler  *ImageHandler
	sessions *SessionRegistry
	blobs    *image.BlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	blobs := image.NewBlobStore()
	exec := &stubExecutor{blobs: blobs}
	cfg := generator.DefaultConfig()
	cfg.DisableFallback = true
	specs := []image.ProviderSpec{stubSpec{name: "A"}}

	sessions := NewSessionRegistry(func() *generator.Orchestrator {
		return generator.New(cfg, specs, generator.WithExecutor(exec))
	}, time.Minute, nil, zap.NewNop())

	return &testEnv{
		handler:  NewImageHandler(sessions, blobs, zap.NewNop()),
		sessions: sessions,
		blobs:    blobs,
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}
