package handlers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/generator"
)

// =============================================================================
// 👥 会话注册表
// =============================================================================

// SessionHeader 标识调用方会话；同一会话内新的生成会取代进行中的生成
const SessionHeader = "X-Session-ID"

// DefaultSessionID 未携带会话头时使用的会话
const DefaultSessionID = "default"

// OrchestratorFactory 为新会话创建编排器
type OrchestratorFactory func() *generator.Orchestrator

// SessionGauge 接收活跃会话数
type SessionGauge interface {
	SetActiveSessions(n int)
}

type session struct {
	orch     *generator.Orchestrator
	lastSeen time.Time
}

// SessionRegistry 按会话 ID 维护编排器，空闲超过 TTL 且无进行中生成的会话会被回收
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  OrchestratorFactory
	ttl      time.Duration
	gauge    SessionGauge
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionRegistry 创建会话注册表。ttl <= 0 表示永不回收。
func NewSessionRegistry(factory OrchestratorFactory, ttl time.Duration, gauge SessionGauge, logger *zap.Logger) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		sessions: make(map[string]*session),
		factory:  factory,
		ttl:      ttl,
		gauge:    gauge,
		logger:   logger.With(zap.String("component", "sessions")),
		now:      time.Now,
	}
}

// Get 返回会话的编排器，不存在时创建
func (s *SessionRegistry) Get(id string) *generator.Orchestrator {
	if id == "" {
		id = DefaultSessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{orch: s.factory()}
		s.sessions[id] = sess
		s.logger.Debug("session created", zap.String("session_id", id))
		s.reportLocked()
	}
	sess.lastSeen = s.now()
	return sess.orch
}

// Lookup 返回已存在的会话编排器，不创建
func (s *SessionRegistry) Lookup(id string) (*generator.Orchestrator, bool) {
	if id == "" {
		id = DefaultSessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.orch, true
}

// Len 返回会话数
func (s *SessionRegistry) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep 回收过期会话，返回回收数量
func (s *SessionRegistry) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.After(cutoff) || sess.orch.Busy() {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	if evicted > 0 {
		s.logger.Debug("sessions evicted", zap.Int("count", evicted))
		s.reportLocked()
	}
	return evicted
}

// Run 周期性回收过期会话，直到 ctx 结束
func (s *SessionRegistry) Run(ctx context.Context) {
	if s.ttl <= 0 {
		<-ctx.Done()
		return
	}

	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionRegistry) reportLocked() {
	if s.gauge != nil {
		s.gauge.SetActiveSessions(len(s.sessions))
	}
}
