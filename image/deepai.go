package image

import (
	"net/http"
	"strings"
)

// DeepAIProvider submits the style-annotated prompt as a multipart form and
// reads the image URL from the JSON reply.
type DeepAIProvider struct {
	cfg DeepAIConfig
}

// NewDeepAIProvider creates a new DeepAI provider.
func NewDeepAIProvider(cfg DeepAIConfig) *DeepAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDeepAIConfig().BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &DeepAIProvider{cfg: cfg}
}

func (p *DeepAIProvider) Name() string { return "Alternative API" }

func (p *DeepAIProvider) Endpoint() string { return p.cfg.BaseURL + "/api/text2img" }

func (p *DeepAIProvider) Method() string { return http.MethodPost }

// FormatRequest ignores size; the endpoint picks its own dimensions.
func (p *DeepAIProvider) FormatRequest(prompt, style, size string) (*RequestPlan, error) {
	text := prompt
	if style != StyleRealistic {
		text += " in " + style + " style"
	}

	var headers map[string]string
	if p.cfg.APIKey != "" {
		headers = map[string]string{"api-key": p.cfg.APIKey}
	}

	return &RequestPlan{
		URL:        p.Endpoint(),
		Method:     p.Method(),
		Headers:    headers,
		FormFields: map[string]string{"text": text},
		Timeout:    p.cfg.Timeout,
		Response:   ResponseJSON,
		ImageField: "output_url",
	}, nil
}
