package image

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/types"
)

const userAgent = "imageflow/1.0"

// MaxResponseBytes caps every provider and image-load response body.
const MaxResponseBytes = 32 << 20

// NewHTTPClient returns the resty client shared by the transport and the
// image loader. Retries stay off: every attempt is issued exactly once.
func NewHTTPClient(logger *zap.Logger) *resty.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return resty.New().
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0).
		SetResponseBodyLimit(MaxResponseBytes).
		SetLogger(logger.Named("resty").Sugar())
}

// Transport executes RequestPlans and interprets their responses.
type Transport struct {
	client *resty.Client
	loader ImageLoader
	blobs  *BlobStore
	logger *zap.Logger
}

// NewTransport creates a transport. A nil loader becomes an HTTPImageLoader
// on the same client; a nil blob store becomes a fresh one.
func NewTransport(client *resty.Client, loader ImageLoader, blobs *BlobStore, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = NewHTTPClient(logger)
	}
	if loader == nil {
		loader = NewHTTPImageLoader(client, DefaultImageLoadTimeout, logger)
	}
	if blobs == nil {
		blobs = NewBlobStore()
	}
	return &Transport{
		client: client,
		loader: loader,
		blobs:  blobs,
		logger: logger.With(zap.String("component", "image_transport")),
	}
}

// Blobs returns the store binary results are written to.
func (t *Transport) Blobs() *BlobStore { return t.blobs }

// Loader returns the image-load checker.
func (t *Transport) Loader() ImageLoader { return t.loader }

// LoadImage runs the image-load check on url.
func (t *Transport) LoadImage(ctx context.Context, url string) error {
	return t.loader.Load(ctx, url)
}

// Execute issues plan bound to ctx and turns the response into a result.
// The caller owns the deadline.
func (t *Transport) Execute(ctx context.Context, provider string, plan *RequestPlan) (*GenerationResult, error) {
	req := t.client.R().SetContext(ctx)
	for k, v := range plan.Headers {
		req.SetHeader(k, v)
	}
	switch {
	case plan.JSONBody != nil:
		req.SetHeader("Content-Type", "application/json").SetBody(plan.JSONBody)
	case len(plan.FormFields) > 0:
		req.SetMultipartFormData(plan.FormFields)
	}

	method := plan.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := req.Execute(method, plan.URL)
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, types.Errorf(types.ErrUpstreamError, "response exceeds %d bytes", t.client.ResponseBodyLimit).
			WithCause(err).
			WithProvider(provider)
	}
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "request failed").
			WithCause(err).
			WithProvider(provider).
			WithRetryable(true)
	}
	if !resp.IsSuccess() {
		return nil, types.Errorf(types.ErrUpstreamError, "HTTP %d: %s", resp.StatusCode(), http.StatusText(resp.StatusCode())).
			WithHTTPStatus(resp.StatusCode()).
			WithProvider(provider).
			WithRetryable(resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests)
	}

	t.logger.Debug("provider responded",
		zap.String("provider", provider),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", resp.Time()),
	)

	switch plan.Response {
	case ResponseBinary:
		return t.interpretBinary(provider, resp)
	case ResponseJSON:
		return t.interpretJSON(ctx, provider, plan.ImageField, resp)
	default:
		return t.interpretDirect(ctx, provider, plan.URL)
	}
}

func (t *Transport) interpretDirect(ctx context.Context, provider, url string) (*GenerationResult, error) {
	if err := t.loader.Load(ctx, url); err != nil {
		return nil, withProvider(err, provider)
	}
	return &GenerationResult{
		URL:       url,
		Kind:      KindURL,
		Provider:  provider,
		CreatedAt: time.Now(),
	}, nil
}

func (t *Transport) interpretBinary(provider string, resp *resty.Response) (*GenerationResult, error) {
	contentType := resp.Header().Get("Content-Type")
	if !IsImageContentType(contentType) {
		return nil, types.NewError(types.ErrNotAnImage, "response is not an image").WithProvider(provider)
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, types.NewError(types.ErrNotAnImage, "response is empty").WithProvider(provider)
	}

	blob := t.blobs.Put(body, contentType)
	return &GenerationResult{
		URL:       blob.Locator(),
		Kind:      KindBinary,
		Provider:  provider,
		Blob:      blob,
		CreatedAt: time.Now(),
	}, nil
}

func (t *Transport) interpretJSON(ctx context.Context, provider, field string, resp *resty.Response) (*GenerationResult, error) {
	var payload map[string]any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "malformed JSON response").
			WithCause(err).
			WithProvider(provider)
	}

	url, _ := payload[field].(string)
	if url == "" {
		return nil, types.NewError(types.ErrNoImageURL, "no image URL in response").WithProvider(provider)
	}
	return t.interpretDirect(ctx, provider, url)
}

func withProvider(err error, provider string) error {
	if e, ok := err.(*types.Error); ok && e.Provider == "" {
		return e.WithProvider(provider)
	}
	return err
}
