package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	"github.com/Chative-querybot/server/internal/agent/oracle/oracletest"
	errx "github.com/Chative-querybot/server/internal/core/error"
)

func TestBuildNaive(t *testing.T) {
	tests := []struct {
		name string
		q    model.SlotQuery
		want string
	}{
		{"defaults", model.SlotQuery{Table: "t"}, "SELECT * FROM t WHERE 1=1;"},
		{"columns", model.SlotQuery{Table: "orders", Columns: []string{"id", "total"}, Conditions: "total > 5"}, "SELECT id, total FROM orders WHERE total > 5;"},
		{"quoted", model.SlotQuery{Table: "Order Items", Columns: []string{"unit price"}, Conditions: "1=1"}, `SELECT "unit price" FROM "Order Items" WHERE 1=1;`},
		{"embedded quote", model.SlotQuery{Table: `we"ird`, Columns: []string{"*"}}, `SELECT * FROM "we""ird" WHERE 1=1;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildNaive(tt.q); got != tt.want {
				t.Fatalf("BuildNaive() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsValidSQL(t *testing.T) {
	tests := map[string]bool{
		"SELECT * FROM t WHERE 1=1;":           true,
		"select id\nfrom orders":               true,
		"WITH x AS (SELECT 1) SELECT * FROM x": true,
		"DELETE FROM t":                        false,
		"SELECT 1":                             false,
		"selected_items fromage":               false,
		"":                                     false,
	}
	for sql, want := range tests {
		if got := IsValidSQL(sql); got != want {
			t.Errorf("IsValidSQL(%q) = %v, want %v", sql, got, want)
		}
	}
}

func TestSynthesizeAcceptsOracleStatement(t *testing.T) {
	o := oracletest.New().On(oracle.PurposeValidateSQL, "```sql\nSELECT * FROM t WHERE 1=1;\n```")
	s := NewSynthesizer(o, "postgres")

	got, err := s.Synthesize(context.Background(), model.SlotQuery{Table: "t", Columns: []string{"*"}, Conditions: "1=1"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if got != "SELECT * FROM t WHERE 1=1;" {
		t.Fatalf("Synthesize() = %q", got)
	}
	p := o.LastPrompt(oracle.PurposeValidateSQL)
	if !strings.Contains(p, "SELECT * FROM t WHERE 1=1;") || !strings.Contains(p, "postgres") {
		t.Fatalf("prompt missing naive sql or dialect:\n%s", p)
	}
}

func TestSynthesizeAcceptsSingleStatements(t *testing.T) {
	for _, sql := range []string{
		"SELECT id FROM t WHERE 1=1",
		"SELECT id FROM t WHERE 1=1;",
		"WITH x AS (SELECT id FROM t) SELECT * FROM x;",
		"(SELECT id FROM t) UNION (SELECT id FROM u)",
	} {
		o := oracletest.New().On(oracle.PurposeValidateSQL, sql)
		got, err := NewSynthesizer(o, "").Synthesize(context.Background(), model.SlotQuery{Table: "t"})
		if err != nil || got != sql {
			t.Errorf("Synthesize(%q) = %q, %v", sql, got, err)
		}
	}
}

func TestSynthesizeFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*oracletest.Oracle)
		wantErr error
	}{
		{"none sentinel", func(o *oracletest.Oracle) { o.On(oracle.PurposeValidateSQL, "None") }, ErrUnsalvageable},
		{"oracle error", func(o *oracletest.Oracle) { o.Fail(oracle.PurposeValidateSQL, errors.New("503")) }, ErrUnsalvageable},
		{"bad shape", func(o *oracletest.Oracle) { o.On(oracle.PurposeValidateSQL, "DELETE FROM t") }, ErrInvalidShape},
		{"stacked statements", func(o *oracletest.Oracle) {
			o.On(oracle.PurposeValidateSQL, "SELECT * FROM t WHERE 1=1; DROP TABLE t;")
		}, ErrInvalidShape},
		{"dml mentioning select", func(o *oracletest.Oracle) {
			o.On(oracle.PurposeValidateSQL, "DELETE FROM t WHERE id IN (SELECT id FROM t)")
		}, ErrInvalidShape},
		{"trailing comment", func(o *oracletest.Oracle) {
			o.On(oracle.PurposeValidateSQL, "SELECT * FROM t WHERE 1=1 -- or 1=1")
		}, ErrInvalidShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := oracletest.New()
			tt.setup(o)
			_, err := NewSynthesizer(o, "").Synthesize(context.Background(), model.SlotQuery{Table: "t"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !errx.IsKind(err, errx.KindSynthesis) {
				t.Fatalf("kind = %v", errx.KindOf(err))
			}
		})
	}
}
