package model

import (
	"math"
	"reflect"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestSetTableInvalidatesDownstreamSlots(t *testing.T) {
	ctx := SessionContext{}
	ctx.SetTable("orders")
	ctx.SetColumns([]string{"id"})
	ctx.SetConditions("id>5")
	if ctx.State() != Ready {
		t.Fatalf("State() = %v, want ready", ctx.State())
	}

	if !ctx.SetTable("customers") {
		t.Fatal("SetTable() should report a change")
	}
	if ctx.Table != "customers" {
		t.Fatalf("Table = %q", ctx.Table)
	}
	if ctx.Columns != nil || ctx.Conditions != "" {
		t.Fatalf("downstream slots survived table switch: %+v", ctx)
	}
	if ctx.State() != NeedColumns {
		t.Fatalf("State() = %v, want need_columns", ctx.State())
	}
}

func TestSetSameTableKeepsSlots(t *testing.T) {
	ctx := SessionContext{}
	ctx.SetTable("orders")
	ctx.SetColumns([]string{"id", "total"})
	version := ctx.Version

	if ctx.SetTable("orders") {
		t.Fatal("SetTable() with the same table should not report a change")
	}
	if !reflect.DeepEqual(ctx.Columns, []string{"id", "total"}) {
		t.Fatalf("Columns = %v", ctx.Columns)
	}
	if ctx.Version != version {
		t.Fatalf("Version changed from %d to %d", version, ctx.Version)
	}
}

func TestQueryAppliesDefaults(t *testing.T) {
	ctx := SessionContext{}
	ctx.SetTable("t")
	got := ctx.Query()
	want := SlotQuery{Table: "t", Columns: []string{AllColumns}, Conditions: NoConditions}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Query() = %+v, want %+v", got, want)
	}
}

func TestSessionResetAndClone(t *testing.T) {
	s := NewSession("s1")
	s.Context.SetTable("orders")
	s.Context.SetColumns([]string{"id"})
	s.History.AppendUser("show orders")
	s.History.AppendClarification(SlotConditions, "which?")

	c := s.Clone()
	c.Context.Columns[0] = "mutated"
	c.History[0].Text = "mutated"
	if s.Context.Columns[0] != "id" || s.History[0].Text != "show orders" {
		t.Fatal("Clone() shares memory with the original")
	}

	s.Reset()
	if !s.Context.IsEmpty() || len(s.History) != 0 {
		t.Fatalf("Reset() left state behind: %+v", s)
	}
	if s.Context.State() != NeedTable {
		t.Fatalf("State() = %v", s.Context.State())
	}
}

func TestOutcomeTerminal(t *testing.T) {
	if OutcomeClarification.Terminal() || OutcomeInvalidInput.Terminal() {
		t.Fatal("clarification and invalid input keep the episode open")
	}
	if !OutcomeAnswered.Terminal() || !OutcomeExecutionFailed.Terminal() {
		t.Fatal("answered and execution failures are terminal")
	}
}

func TestComputeCost(t *testing.T) {
	usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}
	in, out, total := ComputeCost(usage, ResolvePricing("gemini-2.5-flash"))
	if !approx(in, 0.30) || !approx(out, 1.25) || !approx(total, 1.55) {
		t.Fatalf("ComputeCost() = %v %v %v", in, out, total)
	}
	if _, _, total := ComputeCost(nil, Pricing{}); total != 0 {
		t.Fatalf("nil usage cost = %v", total)
	}
	if p := ResolvePricing("unknown"); p != (Pricing{}) {
		t.Fatalf("unknown model pricing = %+v", p)
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
