package conversations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/repo"
)

func TestWithSessionPersistsChanges(t *testing.T) {
	m := NewSessionManager(repo.NewMemorySessionRepository(0))
	ctx := context.Background()

	err := m.WithSession(ctx, "s1", func(s *model.Session) error {
		s.Context.SetTable("orders")
		return nil
	})
	if err != nil {
		t.Fatalf("WithSession() error = %v", err)
	}

	snap, err := m.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Context.Table != "orders" {
		t.Fatalf("table = %q", snap.Context.Table)
	}
}

func TestWithSessionSavesOnError(t *testing.T) {
	m := NewSessionManager(repo.NewMemorySessionRepository(0))
	ctx := context.Background()
	_ = m.WithSession(ctx, "s1", func(s *model.Session) error {
		s.Context.SetTable("orders")
		return nil
	})

	boom := errors.New("boom")
	err := m.WithSession(ctx, "s1", func(s *model.Session) error {
		s.Reset()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	snap, _ := m.Snapshot(ctx, "s1")
	if snap.Context.HasTable() {
		t.Fatal("reset inside a failing turn was not persisted")
	}
}

func TestWithSessionSerializesSameSession(t *testing.T) {
	m := NewSessionManager(repo.NewMemorySessionRepository(0))
	ctx := context.Background()

	var inFlight, maxSeen int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithSession(ctx, "same", func(s *model.Session) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxSeen)
					if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				s.History.AppendUser("x")
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent turns = %d, want 1", maxSeen)
	}
	snap, _ := m.Snapshot(ctx, "same")
	if len(snap.History) != 8 {
		t.Fatalf("history = %d records, want 8", len(snap.History))
	}
	if len(m.locks) != 0 {
		t.Fatalf("locks leaked: %d", len(m.locks))
	}
}

func TestBuildHistoryContextTrimsToLastTurns(t *testing.T) {
	var h model.TurnHistory
	h.AppendUser("first")
	h.AppendClarification(model.SlotTable, "which table?")
	h.AppendUser("orders")

	got := BuildHistoryContext(h, 2)
	if strings.Contains(got, "first") {
		t.Fatalf("oldest record should be trimmed:\n%s", got)
	}
	want := "Clarification: which table?\nUser: orders"
	if got != want {
		t.Fatalf("BuildHistoryContext() = %q, want %q", got, want)
	}
}

func TestBuildHistoryContextEmpty(t *testing.T) {
	if got := BuildHistoryContext(nil, 10); got != "(none)" {
		t.Fatalf("BuildHistoryContext(nil) = %q", got)
	}
}
