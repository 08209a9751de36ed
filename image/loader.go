package image

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/types"
)

// DefaultImageLoadTimeout bounds a single image-load check.
const DefaultImageLoadTimeout = 10 * time.Second

// ImageLoader confirms that a URL serves a loadable image.
type ImageLoader interface {
	Load(ctx context.Context, url string) error
}

// HTTPImageLoader fetches the URL and accepts it when the response is 2xx
// with a non-empty image body.
type HTTPImageLoader struct {
	client  *resty.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPImageLoader creates a loader. A non-positive timeout uses
// DefaultImageLoadTimeout.
func NewHTTPImageLoader(client *resty.Client, timeout time.Duration, logger *zap.Logger) *HTTPImageLoader {
	if client == nil {
		client = NewHTTPClient(logger)
	}
	if timeout <= 0 {
		timeout = DefaultImageLoadTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPImageLoader{
		client:  client,
		timeout: timeout,
		logger:  logger.With(zap.String("component", "image_loader")),
	}
}

// Load fails with IMAGE_LOAD_FAILED on transport errors, timeouts, bad
// status, empty bodies and non-image content.
func (l *HTTPImageLoader) Load(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Accept", "image/*").
		Get(url)
	if err != nil {
		if errors.Is(err, resty.ErrResponseBodyTooLarge) {
			return types.NewError(types.ErrImageLoadFailed, "image failed to load: body too large").WithCause(err)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return types.NewError(types.ErrImageLoadFailed, "image load timeout").WithCause(err)
		}
		return types.NewError(types.ErrImageLoadFailed, "image failed to load").WithCause(err)
	}
	if !resp.IsSuccess() {
		return types.Errorf(types.ErrImageLoadFailed, "image failed to load: HTTP %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) == 0 {
		return types.NewError(types.ErrImageLoadFailed, "image failed to load: empty body")
	}
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if !IsImageContentType(contentType) {
		return types.Errorf(types.ErrImageLoadFailed, "image failed to load: content type %q", contentType)
	}

	l.logger.Debug("image loaded",
		zap.String("url", url),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// IsImageContentType reports whether a Content-Type header names an image.
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}
