package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/generator"
	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/internal/ctxkeys"
	"github.com/BaSui01/imageflow/types"
)

// BlobPathPrefix 二进制结果的下载路径前缀
const BlobPathPrefix = "/v1/images/blobs/"

// =============================================================================
// 🖼️ 图像生成 Handler
// =============================================================================

// GenerateRequest 生成请求体
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
	Size   string `json:"size,omitempty"`
}

// GenerateResponse 生成结果
type GenerateResponse struct {
	ImageURL    string           `json:"image_url"`
	Type        image.ResultKind `json:"type"`
	Service     string           `json:"service"`
	IsFallback  bool             `json:"is_fallback"`
	DownloadURL string           `json:"download_url,omitempty"`
	ContentType string           `json:"content_type,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// HistoryResponse 历史快照
type HistoryResponse struct {
	Entries     []generator.HistoryEntry `json:"entries"`
	SuccessRate float64                  `json:"success_rate"`
}

// ImageHandler 图像生成处理器
type ImageHandler struct {
	sessions *SessionRegistry
	blobs    *image.BlobStore
	logger   *zap.Logger
}

// NewImageHandler 创建图像生成处理器
func NewImageHandler(sessions *SessionRegistry, blobs *image.BlobStore, logger *zap.Logger) *ImageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageHandler{
		sessions: sessions,
		blobs:    blobs,
		logger:   logger.With(zap.String("component", "image_handler")),
	}
}

// HandleGenerations 处理 /v1/images/generations（POST 生成，DELETE 取消）
func (h *ImageHandler) HandleGenerations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleGenerate(w, r)
	case http.MethodDelete:
		h.handleCancel(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrMethodNotAllowed, "method not allowed", h.logger)
	}
}

func (h *ImageHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req GenerateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	sessionID := SessionID(r)
	orch := h.sessions.Get(sessionID)

	result, err := orch.Generate(r.Context(), req.Prompt, req.Style, req.Size)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("image generated",
		zap.String("session_id", sessionID),
		zap.String("service", result.Provider),
		zap.Bool("fallback", result.Fallback),
	)
	WriteSuccess(w, r, toGenerateResponse(result))
}

func (h *ImageHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(r)
	orch, ok := h.sessions.Lookup(sessionID)
	cancelled := ok && orch.Busy()
	if ok {
		orch.CancelCurrentGeneration()
	}
	WriteSuccess(w, r, map[string]any{
		"session_id": sessionID,
		"cancelled":  cancelled,
	})
}

// HandleHistory 处理 GET /v1/images/history
func (h *ImageHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	resp := HistoryResponse{Entries: []generator.HistoryEntry{}}
	if orch, ok := h.sessions.Lookup(SessionID(r)); ok {
		resp.Entries = orch.History()
		resp.SuccessRate = orch.SuccessRate()
	}
	WriteSuccess(w, r, resp)
}

// HandleBlob 处理 GET /v1/images/blobs/{id}
func (h *ImageHandler) HandleBlob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		WriteErrorMessage(w, r, http.StatusMethodNotAllowed, types.ErrMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, BlobPathPrefix)
	blob, ok := h.blobs.Get(id)
	if id == "" || strings.Contains(id, "/") || !ok {
		WriteError(w, r, types.Errorf(types.ErrNotFound, "blob %q not found", id), h.logger)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, "", blob.CreatedAt, bytes.NewReader(blob.Data))
}

// SessionID 返回请求所属会话
func SessionID(r *http.Request) string {
	if id, ok := ctxkeys.SessionID(r.Context()); ok {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	return DefaultSessionID
}

func toGenerateResponse(res *image.GenerationResult) GenerateResponse {
	resp := GenerateResponse{
		ImageURL:   res.URL,
		Type:       res.Kind,
		Service:    res.Provider,
		IsFallback: res.Fallback,
		CreatedAt:  res.CreatedAt,
	}
	if res.Kind == image.KindBinary && res.Blob != nil {
		resp.DownloadURL = BlobPathPrefix + res.Blob.ID
		resp.ContentType = res.Blob.ContentType
	}
	return resp
}
