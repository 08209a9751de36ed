package generator

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
)

// FallbackProviderName is the provider name of stock-photo results.
const FallbackProviderName = "Unsplash (fallback)"

// ImageChecker validates that a URL serves a loadable image.
type ImageChecker interface {
	LoadImage(ctx context.Context, url string) error
}

// StockFallback finds a stock photo matching a prompt's keywords.
type StockFallback struct {
	BaseURL string
	Size    string
	checker ImageChecker
}

// NewStockFallback creates a fallback searching baseURL at the given size.
func NewStockFallback(baseURL, size string, checker ImageChecker) *StockFallback {
	return &StockFallback{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Size:    size,
		checker: checker,
	}
}

// URL builds the stock-photo locator for keywords.
func (f *StockFallback) URL(keywords []string) string {
	return f.BaseURL + "/" + f.Size + "/?" + strings.Join(keywords, ",")
}

// Find extracts keywords from prompt and validates the resulting locator.
func (f *StockFallback) Find(ctx context.Context, prompt string) (*image.GenerationResult, error) {
	url := f.URL(ExtractKeywords(prompt))
	if err := f.checker.LoadImage(ctx, url); err != nil {
		return nil, types.NewError(types.ErrImageLoadFailed, "fallback image failed to load").
			WithProvider(FallbackProviderName).
			WithCause(err)
	}
	return &image.GenerationResult{
		URL:       url,
		Kind:      image.KindURL,
		Provider:  FallbackProviderName,
		Fallback:  true,
		CreatedAt: time.Now(),
	}, nil
}
