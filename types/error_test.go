package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("Hugging Face")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[INVALID_INPUT] prompt cannot be empty",
		NewError(ErrInvalidInput, "prompt cannot be empty").Error())
	assert.Equal(t, "[NO_IMAGE_URL] no image URL in response: boom",
		NewError(ErrNoImageURL, "no image URL in response").WithCause(errors.New("boom")).Error())
	assert.Equal(t, "[INVALID_SIZE] bad size \"axb\"",
		Errorf(ErrInvalidSize, "bad size %q", "axb").Error())
}

func TestIsCode_WalksNestedErrors(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrNotAnImage, "response is not an image")
	outer := NewError(ErrProviderFailure, "attempt failed").WithCause(inner)
	wrapped := fmt.Errorf("chain: %w", outer)

	assert.True(t, IsCode(wrapped, ErrProviderFailure))
	assert.True(t, IsCode(wrapped, ErrNotAnImage))
	assert.False(t, IsCode(wrapped, ErrCancelled))
	assert.Equal(t, ErrProviderFailure, GetErrorCode(wrapped))
	assert.False(t, IsCode(errors.New("plain"), ErrProviderFailure))
	assert.False(t, IsCode(nil, ErrProviderFailure))
}
