package image

import (
	"time"
)

// ResultKind tells callers how to consume GenerationResult.URL.
type ResultKind string

const (
	// KindURL means URL is a remote image address.
	KindURL ResultKind = "url"
	// KindBinary means URL is a blob: locator into a BlobStore.
	KindBinary ResultKind = "binary"
)

// ResponseKind declares how a provider's HTTP response must be interpreted.
type ResponseKind string

const (
	// ResponseDirect: the request URL itself is the image.
	ResponseDirect ResponseKind = "direct"
	// ResponseBinary: the response body is the image bytes.
	ResponseBinary ResponseKind = "binary"
	// ResponseJSON: the response body is JSON carrying an image URL field.
	ResponseJSON ResponseKind = "json"
)

// RequestPlan is a single outbound call built by a ProviderSpec.
// At most one of JSONBody and FormFields is set.
type RequestPlan struct {
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers,omitempty"`
	JSONBody   any               `json:"json_body,omitempty"`
	FormFields map[string]string `json:"form_fields,omitempty"`
	Timeout    time.Duration     `json:"timeout,omitempty"` // zero means the caller's default
	Response   ResponseKind      `json:"response"`
	ImageField string            `json:"image_field,omitempty"` // for ResponseJSON
}

// GenerationResult is the outcome of a successful attempt.
type GenerationResult struct {
	URL       string     `json:"image_url"`
	Kind      ResultKind `json:"type"`
	Provider  string     `json:"service"`
	Fallback  bool       `json:"is_fallback,omitempty"`
	Blob      *Blob      `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// ProviderSpec describes one image provider. FormatRequest must be pure:
// it may not perform I/O or mutate shared state.
type ProviderSpec interface {
	// Name is the provider's display name, also used in history and metrics.
	Name() string

	// Endpoint is the provider's base endpoint.
	Endpoint() string

	// Method is the HTTP method of the provider's request.
	Method() string

	// FormatRequest builds a fresh plan for one attempt.
	FormatRequest(prompt, style, size string) (*RequestPlan, error)
}
