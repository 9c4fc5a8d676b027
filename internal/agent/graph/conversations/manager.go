package conversations

import (
	"context"
	"strings"
	"sync"

	"github.com/Chative-querybot/server/internal/agent/model"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// SessionManager owns load/save around a turn and guarantees one in-flight turn per session.
type SessionManager struct {
	repo model.SessionRepository

	mu    sync.Mutex
	locks map[string]*sessionLock
}

func NewSessionManager(repo model.SessionRepository) *SessionManager {
	return &SessionManager{
		repo:  repo,
		locks: map[string]*sessionLock{},
	}
}

func (m *SessionManager) acquire(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// WithSession loads the session, runs fn under the session lock and saves the result,
// even when fn fails, so resets performed by fn are persisted.
func (m *SessionManager) WithSession(ctx context.Context, sessionID string, fn func(*model.Session) error) error {
	release := m.acquire(sessionID)
	defer release()

	session, err := m.repo.Load(ctx, sessionID)
	if err != nil {
		return err
	}

	runErr := fn(session)
	if err := m.repo.Save(ctx, session); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("Failed to save session")
		if runErr == nil {
			return err
		}
	}
	return runErr
}

// Snapshot returns a copy of the stored session without holding it.
func (m *SessionManager) Snapshot(ctx context.Context, sessionID string) (*model.Session, error) {
	release := m.acquire(sessionID)
	defer release()
	return m.repo.Load(ctx, sessionID)
}

func (m *SessionManager) Reset(ctx context.Context, sessionID string) error {
	release := m.acquire(sessionID)
	defer release()
	return m.repo.Delete(ctx, sessionID)
}

// BuildHistoryContext renders the last maxTurns records as prompt text. The transcript is
// only ever read by the oracle.
func BuildHistoryContext(history model.TurnHistory, maxTurns int) string {
	recent := trimTail(history, maxTurns)
	if len(recent) == 0 {
		return "(none)"
	}

	var b strings.Builder
	for _, rec := range recent {
		if rec.Text == "" {
			continue
		}
		switch rec.Role {
		case model.RoleUser:
			b.WriteString("User: ")
		case model.RoleClarification:
			b.WriteString("Clarification: ")
		default:
			continue
		}
		b.WriteString(rec.Text)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// ====================== Helper function ======================
func trimTail(records model.TurnHistory, maxTurns int) model.TurnHistory {
	if maxTurns <= 0 || len(records) <= maxTurns {
		result := make(model.TurnHistory, len(records))
		copy(result, records)
		return result
	}
	source := records[len(records)-maxTurns:]
	result := make(model.TurnHistory, len(source))
	copy(result, source)
	return result
}
