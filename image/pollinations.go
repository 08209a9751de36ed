package image

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// PollinationsProvider folds prompt and style into the URL path; the URL
// itself serves the generated image.
type PollinationsProvider struct {
	cfg PollinationsConfig
}

// NewPollinationsProvider creates a new Pollinations provider.
func NewPollinationsProvider(cfg PollinationsConfig) *PollinationsProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPollinationsConfig().BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &PollinationsProvider{cfg: cfg}
}

func (p *PollinationsProvider) Name() string { return "Pollinations AI" }

func (p *PollinationsProvider) Endpoint() string { return p.cfg.BaseURL + "/prompt/" }

func (p *PollinationsProvider) Method() string { return http.MethodGet }

// FormatRequest builds
// GET /prompt/{prompt[ <style> style]}?width=W&height=H&nologo=true&private=true
func (p *PollinationsProvider) FormatRequest(prompt, style, size string) (*RequestPlan, error) {
	width, height, err := ParseSize(size)
	if err != nil {
		return nil, err
	}

	text := prompt
	if style != StyleRealistic {
		text += " " + style + " style"
	}

	return &RequestPlan{
		URL: fmt.Sprintf("%s%s?width=%d&height=%d&nologo=true&private=true",
			p.Endpoint(), url.PathEscape(text), width, height),
		Method:   p.Method(),
		Timeout:  p.cfg.Timeout,
		Response: ResponseDirect,
	}, nil
}
