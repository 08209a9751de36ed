package image

import (
	"net/http"
	"strings"
)

const (
	hfInferenceSteps  = 25
	hfGuidanceScale   = 7.5
	hfNegativePrompt  = "blurry, low quality, distorted, ugly, bad anatomy"
	hfModelsPathInfix = "/models/"
)

// HuggingFaceProvider posts to the inference endpoint of the model mapped
// from the requested style and receives raw image bytes.
type HuggingFaceProvider struct {
	cfg HuggingFaceConfig
}

// NewHuggingFaceProvider creates a new Hugging Face provider.
func NewHuggingFaceProvider(cfg HuggingFaceConfig) *HuggingFaceProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHuggingFaceConfig().BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HuggingFaceProvider{cfg: cfg}
}

func (p *HuggingFaceProvider) Name() string { return "Hugging Face" }

func (p *HuggingFaceProvider) Endpoint() string { return p.cfg.BaseURL + hfModelsPathInfix }

func (p *HuggingFaceProvider) Method() string { return http.MethodPost }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NegativePrompt    string  `json:"negative_prompt"`
}

// FormatRequest fails with UNKNOWN_STYLE when style has no model mapping.
func (p *HuggingFaceProvider) FormatRequest(prompt, style, size string) (*RequestPlan, error) {
	profile, err := LookupStyle(style)
	if err != nil {
		return nil, err
	}
	width, height, err := ParseSize(size)
	if err != nil {
		return nil, err
	}

	model := profile.Primary
	if p.cfg.UseFallbackModel {
		model = profile.Fallback
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if p.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.cfg.APIKey
	}

	return &RequestPlan{
		URL:     p.Endpoint() + model,
		Method:  p.Method(),
		Headers: headers,
		JSONBody: hfRequest{
			Inputs: prompt,
			Parameters: hfParameters{
				Width:             width,
				Height:            height,
				NumInferenceSteps: hfInferenceSteps,
				GuidanceScale:     hfGuidanceScale,
				NegativePrompt:    hfNegativePrompt,
			},
		},
		Timeout:  p.cfg.Timeout,
		Response: ResponseBinary,
	}, nil
}
