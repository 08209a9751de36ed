package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
)

// ProviderInfo provider 列表项
type ProviderInfo struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
	Order    int    `json:"order"`
}

// ProvidersResponse provider 列表
type ProvidersResponse struct {
	Providers []ProviderInfo `json:"providers"`
	Fallback  string         `json:"fallback,omitempty"`
}

// CatalogHandler 风格与 provider 查询处理器
type CatalogHandler struct {
	providers []ProviderInfo
	fallback  string
	logger    *zap.Logger
}

// NewCatalogHandler 创建查询处理器。fallback 为空表示未启用兜底。
func NewCatalogHandler(specs []image.ProviderSpec, fallback string, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	infos := make([]ProviderInfo, 0, len(specs))
	for i, spec := range specs {
		infos = append(infos, ProviderInfo{
			Name:     spec.Name(),
			Endpoint: spec.Endpoint(),
			Method:   spec.Method(),
			Order:    i + 1,
		})
	}
	return &CatalogHandler{providers: infos, fallback: fallback, logger: logger}
}

// HandleStyles 处理 GET /v1/styles
func (h *CatalogHandler) HandleStyles(w http.ResponseWriter, r *http.Request) {
	if !h.allowGet(w, r) {
		return
	}
	WriteSuccess(w, r, image.Styles())
}

// HandleProviders 处理 GET /v1/providers
func (h *CatalogHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	if !h.allowGet(w, r) {
		return
	}
	WriteSuccess(w, r, ProvidersResponse{Providers: h.providers, Fallback: h.fallback})
}

// Names 返回 provider 名称（按尝试顺序）
func (h *CatalogHandler) Names() []string {
	names := make([]string, len(h.providers))
	for i, p := range h.providers {
		names[i] = p.Name
	}
	return names
}

func (h *CatalogHandler) allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	w.Header().Set("Allow", "GET")
	WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrMethodNotAllowed, "method not allowed", h.logger)
	return false
}
