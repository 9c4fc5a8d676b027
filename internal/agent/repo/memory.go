package repo

import (
	"context"
	"sync"
	"time"

	"github.com/Chative-querybot/server/internal/agent/model"
)

type memoryEntry struct {
	session *model.Session
	touched time.Time
}

// MemorySessionRepository is a process-local store. Entries idle longer than ttl are
// dropped on the next access.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: map[string]memoryEntry{},
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Load(ctx context.Context, sessionID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		return model.NewSession(sessionID), nil
	}
	if r.ttl > 0 && r.now().Sub(e.touched) > r.ttl {
		delete(r.sessions, sessionID)
		return model.NewSession(sessionID), nil
	}
	return e.session.Clone(), nil
}

func (r *MemorySessionRepository) Save(ctx context.Context, session *model.Session) error {
	if session == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.Context.IsEmpty() && len(session.History) == 0 {
		delete(r.sessions, session.ID)
		return nil
	}
	r.sessions[session.ID] = memoryEntry{session: session.Clone(), touched: r.now()}
	return nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
