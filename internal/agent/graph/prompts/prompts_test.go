package prompts

import (
	"context"
	"strings"
	"testing"
)

func TestRenderMatchTableIncludesTablesAndHistory(t *testing.T) {
	got, err := RenderMatchTable(context.Background(), "show me everything", "User: hi", []string{"orders", "customers"})
	if err != nil {
		t.Fatalf("RenderMatchTable() error = %v", err)
	}
	for _, want := range []string{"'show me everything'", "orders, customers", "User: hi", "'None'"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestRenderDoesNotEvaluateUserText(t *testing.T) {
	got, err := RenderClassify(context.Background(), "{{.Tables}} please", nil)
	if err != nil {
		t.Fatalf("RenderClassify() error = %v", err)
	}
	if !strings.Contains(got, "'{{.Tables}} please'") {
		t.Fatalf("user text was not kept verbatim:\n%s", got)
	}
	if !strings.Contains(got, "tables: none") {
		t.Fatalf("empty table list should render as none:\n%s", got)
	}
}

func TestRenderFormatResponseTruncationNote(t *testing.T) {
	got, err := RenderFormatResponse(context.Background(), FormatVars{
		Table:         "orders",
		SchemaColumns: []string{"id", "total", "status"},
		ResultColumns: []string{"id", "total"},
		Rows:          "(1, 9.5)\n(2, 3)",
		RowCount:      10,
		Shown:         2,
	})
	if err != nil {
		t.Fatalf("RenderFormatResponse() error = %v", err)
	}
	if !strings.Contains(got, "10 rows, first 2 shown") {
		t.Fatalf("missing truncation note:\n%s", got)
	}
	if !strings.Contains(got, "Columns present in the results: id, total") {
		t.Fatalf("missing result columns:\n%s", got)
	}
}

func TestRenderValidateSQLDefaultsDialect(t *testing.T) {
	got, err := RenderValidateSQL(context.Background(), ValidateSQLVars{
		Table:      "t",
		Columns:    []string{"*"},
		Conditions: "1=1",
		SQL:        "SELECT * FROM t WHERE 1=1;",
	})
	if err != nil {
		t.Fatalf("RenderValidateSQL() error = %v", err)
	}
	if !strings.Contains(got, "SQL dialect: standard SQL") || !strings.Contains(got, "SELECT * FROM t WHERE 1=1;") {
		t.Fatalf("unexpected prompt:\n%s", got)
	}
}

func TestJoinList(t *testing.T) {
	if got := JoinList(nil); got != "none" {
		t.Fatalf("JoinList(nil) = %q", got)
	}
	if got := JoinList([]string{"a", "b"}); got != "a, b" {
		t.Fatalf("JoinList = %q", got)
	}
}
