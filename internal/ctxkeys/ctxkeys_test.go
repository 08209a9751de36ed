package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	_, ok := RequestID(context.Background())
	assert.False(t, ok)

	ctx := WithRequestID(context.Background(), "req-1")
	id, ok := RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	_, ok = RequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}

func TestSessionAndSubjectAreIndependent(t *testing.T) {
	ctx := WithSessionID(context.Background(), "s-1")
	ctx = WithSubject(ctx, "alice")

	sid, ok := SessionID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "s-1", sid)

	sub, ok := Subject(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", sub)

	_, ok = RequestID(ctx)
	assert.False(t, ok)
}
