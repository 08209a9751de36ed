package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/image"
)

func newCatalog() *CatalogHandler {
	specs := []image.ProviderSpec{
		image.NewPollinationsProvider(image.DefaultPollinationsConfig()),
		image.NewHuggingFaceProvider(image.DefaultHuggingFaceConfig()),
		image.NewDeepAIProvider(image.DefaultDeepAIConfig()),
	}
	return NewCatalogHandler(specs, "Unsplash (fallback)", zap.NewNop())
}

func TestCatalogHandler_Styles(t *testing.T) {
	w := httptest.NewRecorder()
	newCatalog().HandleStyles(w, httptest.NewRequest(http.MethodGet, "/v1/styles", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var styles []image.StyleProfile
	decodeResponse(t, w, &styles)
	require.Len(t, styles, 4)
	assert.Equal(t, image.StyleRealistic, styles[0].Key)
	assert.Equal(t, image.StyleAbstract, styles[3].Key)
}

func TestCatalogHandler_Providers(t *testing.T) {
	h := newCatalog()
	w := httptest.NewRecorder()
	h.HandleProviders(w, httptest.NewRequest(http.MethodGet, "/v1/providers", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var data ProvidersResponse
	decodeResponse(t, w, &data)
	require.Len(t, data.Providers, 3)
	assert.Equal(t, "Pollinations AI", data.Providers[0].Name)
	assert.Equal(t, http.MethodGet, data.Providers[0].Method)
	assert.Equal(t, 3, data.Providers[2].Order)
	assert.Equal(t, "Unsplash (fallback)", data.Fallback)
	assert.Equal(t, []string{"Pollinations AI", "Hugging Face", "Alternative API"}, h.Names())
}

func TestCatalogHandler_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	newCatalog().HandleStyles(w, httptest.NewRequest(http.MethodPost, "/v1/styles", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET", w.Header().Get("Allow"))
}
