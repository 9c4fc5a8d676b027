package agent

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Chative-querybot/server/internal/agent/graph"
	"github.com/Chative-querybot/server/internal/agent/inspect/inspecttest"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	"github.com/Chative-querybot/server/internal/agent/oracle/oracletest"
	"github.com/Chative-querybot/server/internal/agent/repo"
	"github.com/Chative-querybot/server/internal/agent/respond"
	"github.com/Chative-querybot/server/internal/storage"
)

// splitStorage answers catalog lookups from memory and runs statements on exec.
type splitStorage struct {
	*inspecttest.Catalog
	exec respond.Storage
}

func (s *splitStorage) ExecuteQuery(ctx context.Context, q string, args ...any) (*model.ExecResult, error) {
	return s.exec.ExecuteQuery(ctx, q, args...)
}

type staticExec struct {
	result *model.ExecResult
	calls  int
}

func (s *staticExec) ExecuteQuery(ctx context.Context, q string, args ...any) (*model.ExecResult, error) {
	s.calls++
	return s.result, nil
}

func catalog() *inspecttest.Catalog {
	return inspecttest.New().
		WithTable("orders", "id", "total", "status").
		WithTable("customers", "id", "name", "city")
}

func oneRow() *staticExec {
	return &staticExec{result: &model.ExecResult{
		Kind:    model.ResultRows,
		Columns: []string{"id", "total"},
		Rows:    [][]any{{int64(7), 120.5}},
	}}
}

func newBot(t *testing.T, o oracle.Oracle, exec respond.Storage, stream bool) (*Bot, model.SessionRepository) {
	t.Helper()
	runner, err := graph.BuildTurnGraph(context.Background(), graph.Config{
		Oracle:          o,
		Storage:         &splitStorage{Catalog: catalog(), exec: exec},
		Dialect:         "postgres",
		HistoryMaxTurns: 10,
		FormatterConfig: model.FormatterModelConfig{Stream: stream, MaxRows: 50},
	})
	if err != nil {
		t.Fatalf("BuildTurnGraph() error = %v", err)
	}
	r := repo.NewMemorySessionRepository(time.Hour)
	return New(runner, r), r
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	o := oracletest.New()
	bot, r := newBot(t, o, oneRow(), false)
	ctx := context.Background()

	s := model.NewSession("s1")
	s.Context.SetTable("orders")
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	for _, in := range []string{"", "   ", "\t\n"} {
		if got := bot.Submit(ctx, "s1", in); got != InvalidInputMessage {
			t.Fatalf("Submit(%q) = %q", in, got)
		}
	}
	if len(o.Calls()) != 0 {
		t.Fatalf("oracle calls = %d, want 0", len(o.Calls()))
	}
	if got := bot.CurrentTable(ctx, "s1"); got != "orders" {
		t.Fatalf("CurrentTable() = %q, want orders", got)
	}
}

func TestMultiTurnResolution(t *testing.T) {
	o := oracletest.New().
		On(oracle.PurposeClassify, "database_query").
		On(oracle.PurposeMatchTable, "orders").
		On(oracle.PurposeMatchColumns, "None", "id, total").
		On(oracle.PurposeExtractConditions, "1=1").
		On(oracle.PurposeValidateSQL, "SELECT id, total FROM orders WHERE 1=1;").
		On(oracle.PurposeFormat, "Order 7 totals 120.5.")
	exec := oneRow()
	bot, _ := newBot(t, o, exec, false)
	ctx := context.Background()

	first := bot.Submit(ctx, "s1", "show me orders")
	if first != "I couldn't identify the columns you are referring to. Available columns: id, total, status. Please specify." {
		t.Fatalf("first = %q", first)
	}
	if got := bot.CurrentTable(ctx, "s1"); got != "orders" {
		t.Fatalf("CurrentTable() = %q", got)
	}
	if hint := bot.Hint(ctx, "s1"); !strings.Contains(hint, "the table: orders)") {
		t.Fatalf("Hint() = %q", hint)
	}

	second := bot.Submit(ctx, "s1", "id and total")
	if second != "Order 7 totals 120.5." {
		t.Fatalf("second = %q", second)
	}
	if exec.calls != 1 {
		t.Fatalf("exec calls = %d, want 1", exec.calls)
	}
	if hint := bot.Hint(ctx, "s1"); hint != "" {
		t.Fatalf("Hint() after answer = %q, want empty", hint)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	o := oracletest.New().
		On(oracle.PurposeClassify, "database_query").
		On(oracle.PurposeMatchTable, "orders").
		On(oracle.PurposeMatchColumns, "None")
	bot, _ := newBot(t, o, oneRow(), false)
	ctx := context.Background()

	bot.Submit(ctx, "a", "orders please")
	if got := bot.CurrentTable(ctx, "b"); got != "" {
		t.Fatalf("CurrentTable(b) = %q, want empty", got)
	}
	if err := bot.ResetSession(ctx, "a"); err != nil {
		t.Fatalf("ResetSession() error = %v", err)
	}
	if got := bot.CurrentTable(ctx, "a"); got != "" {
		t.Fatalf("CurrentTable(a) after reset = %q", got)
	}
}

func TestSubmitStreamDeliversEverything(t *testing.T) {
	tests := []struct {
		name     string
		oracle   *oracletest.Oracle
		want     string
		multiple bool
	}{
		{
			name:   "schema listing",
			oracle: oracletest.New().On(oracle.PurposeClassify, "schema_listing"),
			want:   "Available tables: orders, customers",
		},
		{
			name: "streamed answer",
			oracle: oracletest.New().
				On(oracle.PurposeClassify, "database_query").
				On(oracle.PurposeMatchTable, "orders").
				On(oracle.PurposeMatchColumns, "*").
				On(oracle.PurposeExtractConditions, "1=1").
				On(oracle.PurposeValidateSQL, "SELECT * FROM orders WHERE 1=1;").
				On(oracle.PurposeFormat, "One order was found."),
			want:     "One order was found.",
			multiple: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, _ := newBot(t, tt.oracle, oneRow(), true)
			var fragments []string
			got := bot.SubmitStream(context.Background(), "s1", "go", func(f string) {
				fragments = append(fragments, f)
			})
			if got != tt.want {
				t.Fatalf("SubmitStream() = %q, want %q", got, tt.want)
			}
			if strings.Join(fragments, "") != tt.want {
				t.Fatalf("fragments = %q", fragments)
			}
			if tt.multiple != (len(fragments) > 1) {
				t.Fatalf("fragments = %d", len(fragments))
			}
		})
	}
}

type panicRunner struct{}

func (panicRunner) Run(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
	s.Session.Context.SetTable("orders")
	panic("boom")
}

type errRunner struct{}

func (errRunner) Run(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
	s.Session.Context.SetTable("orders")
	return s, errors.New("graph exploded")
}

func TestFailuresAreRecovered(t *testing.T) {
	for name, runner := range map[string]graph.Runner{"panic": panicRunner{}, "error": errRunner{}} {
		t.Run(name, func(t *testing.T) {
			bot := New(runner, repo.NewMemorySessionRepository(time.Hour))
			ctx := context.Background()

			var sunk []string
			got := bot.SubmitStream(ctx, "s1", "orders", func(f string) { sunk = append(sunk, f) })
			if got != RecoveryMessage {
				t.Fatalf("SubmitStream() = %q", got)
			}
			if len(sunk) != 1 || sunk[0] != RecoveryMessage {
				t.Fatalf("sink = %q", sunk)
			}
			if table := bot.CurrentTable(ctx, "s1"); table != "" {
				t.Fatalf("CurrentTable() = %q, want reset session", table)
			}
		})
	}
}

func TestStorageOutageReportsNoResults(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()
	for i := 0; i < 3; i++ {
		mock.ExpectQuery(`SELECT \* FROM orders`).
			WillReturnError(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")})
	}
	exec := storage.NewExecutor(db, storage.Postgres, nil, storage.Config{MaxAttempts: 3, RetryDelay: time.Millisecond})

	o := oracletest.New().
		On(oracle.PurposeClassify, "database_query").
		On(oracle.PurposeMatchTable, "orders").
		On(oracle.PurposeMatchColumns, "all").
		On(oracle.PurposeExtractConditions, "1=1").
		On(oracle.PurposeValidateSQL, "SELECT * FROM orders WHERE 1=1;")
	bot, _ := newBot(t, o, exec, false)
	ctx := context.Background()

	if got := bot.Submit(ctx, "s1", "every order"); got != respond.NoResultsMessage {
		t.Fatalf("Submit() = %q, want %q", got, respond.NoResultsMessage)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
	if table := bot.CurrentTable(ctx, "s1"); table != "" {
		t.Fatalf("CurrentTable() = %q, want cleared", table)
	}
	if o.CallsFor(oracle.PurposeFormat) != 0 {
		t.Fatal("formatter must not run after a storage outage")
	}
}
