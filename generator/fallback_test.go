package generator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
)

func TestStockFallback_URL(t *testing.T) {
	f := NewStockFallback("https://source.unsplash.com/", "800x600", nil)
	assert.Equal(t, "https://source.unsplash.com/800x600/?beautiful,sunset,ocean",
		f.URL([]string{"beautiful", "sunset", "ocean"}))
}

func TestStockFallback_Find(t *testing.T) {
	requests := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("\xff\xd8\xff\xe0jpeg"))
	}))
	defer srv.Close()

	logger := zaptest.NewLogger(t)
	loader := image.NewHTTPImageLoader(nil, time.Second, logger)
	f := NewStockFallback(srv.URL, "800x600", image.NewTransport(nil, loader, nil, logger))

	res, err := f.Find(context.Background(), "Misty mountains at dawn")
	require.NoError(t, err)
	assert.Equal(t, "/800x600/?misty,mountains,dawn", <-requests)
	assert.True(t, res.Fallback)
	assert.Equal(t, image.KindURL, res.Kind)
	assert.Equal(t, FallbackProviderName, res.Provider)
}

func TestStockFallback_FindFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	logger := zaptest.NewLogger(t)
	f := NewStockFallback(srv.URL, "800x600", image.NewTransport(nil, nil, nil, logger))

	_, err := f.Find(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrImageLoadFailed))
}
