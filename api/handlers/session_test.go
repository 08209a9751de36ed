package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/generator"
	"github.com/BaSui01/imageflow/image"
)

type gaugeRecorder struct {
	mu     sync.Mutex
	values []int
}

func (g *gaugeRecorder) SetActiveSessions(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = append(g.values, n)
}

func (g *gaugeRecorder) last() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.values) == 0 {
		return -1
	}
	return g.values[len(g.values)-1]
}

func newCountingRegistry(ttl time.Duration, gauge SessionGauge) (*SessionRegistry, *int) {
	created := 0
	reg := NewSessionRegistry(func() *generator.Orchestrator {
		created++
		return generator.New(generator.DefaultConfig(), nil, generator.WithExecutor(&stubExecutor{blobs: image.NewBlobStore()}))
	}, ttl, gauge, zap.NewNop())
	return reg, &created
}

func TestSessionRegistry_GetReusesOrchestrator(t *testing.T) {
	gauge := &gaugeRecorder{}
	reg, created := newCountingRegistry(time.Minute, gauge)

	a := reg.Get("s1")
	b := reg.Get("s1")
	assert.Same(t, a, b)
	assert.Equal(t, 1, *created)

	c := reg.Get("")
	assert.NotSame(t, a, c)
	d, ok := reg.Lookup(DefaultSessionID)
	require.True(t, ok)
	assert.Same(t, c, d)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 2, gauge.last())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, reg.Len())
}

func TestSessionRegistry_SweepEvictsIdleSessions(t *testing.T) {
	gauge := &gaugeRecorder{}
	reg, _ := newCountingRegistry(time.Minute, gauge)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	reg.Get("old")
	now = now.Add(50 * time.Second)
	reg.Get("fresh")
	now = now.Add(20 * time.Second)

	assert.Equal(t, 1, reg.Sweep())
	_, ok := reg.Lookup("old")
	assert.False(t, ok)
	_, ok = reg.Lookup("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, gauge.last())
}

func TestSessionRegistry_SweepKeepsBusySessions(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.sessions.now = func() time.Time { return now }

	first := startSlow(t, env, "busy")
	busy, ok := env.sessions.Lookup("busy")
	require.True(t, ok)

	now = now.Add(time.Hour)
	assert.Equal(t, 0, env.sessions.Sweep())

	busy.CancelCurrentGeneration()
	<-first

	assert.Equal(t, 1, env.sessions.Sweep())
}

func TestSessionRegistry_ZeroTTLNeverEvicts(t *testing.T) {
	reg, _ := newCountingRegistry(0, nil)
	reg.Get("a")
	assert.Equal(t, 0, reg.Sweep())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
