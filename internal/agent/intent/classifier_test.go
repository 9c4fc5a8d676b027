package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	"github.com/Chative-querybot/server/internal/agent/oracle/oracletest"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		setup func(o *oracletest.Oracle)
		want  model.Intent
	}{
		{"schema listing", func(o *oracletest.Oracle) { o.On(oracle.PurposeClassify, "schema_listing") }, model.IntentSchemaListing},
		{"data query", func(o *oracletest.Oracle) { o.On(oracle.PurposeClassify, "database_query") }, model.IntentDataQuery},
		{"generic", func(o *oracletest.Oracle) { o.On(oracle.PurposeClassify, "generic") }, model.IntentGeneric},
		{"garbage", func(o *oracletest.Oracle) { o.On(oracle.PurposeClassify, "maybe a query?") }, model.IntentUnclassifiable},
		{"empty", func(o *oracletest.Oracle) { o.On(oracle.PurposeClassify, "  ") }, model.IntentUnclassifiable},
		{"oracle error", func(o *oracletest.Oracle) { o.Fail(oracle.PurposeClassify, errors.New("timeout")) }, model.IntentUnclassifiable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := oracletest.New()
			tt.setup(o)
			c := NewClassifier(o)
			if got := c.Classify(context.Background(), "list tables", []string{"orders"}); got != tt.want {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyPromptListsTables(t *testing.T) {
	o := oracletest.New().On(oracle.PurposeClassify, "database_query")
	NewClassifier(o).Classify(context.Background(), "orders from paris", []string{"orders", "customers"})
	if p := o.LastPrompt(oracle.PurposeClassify); !strings.Contains(p, "orders, customers") {
		t.Fatalf("prompt does not list tables:\n%s", p)
	}
}

func TestAnswerFallsBackToApology(t *testing.T) {
	o := oracletest.New().Fail(oracle.PurposeGeneric, errors.New("quota"))
	if got := NewClassifier(o).Answer(context.Background(), "hello"); got != ApologyMessage {
		t.Fatalf("Answer() = %q", got)
	}
}

func TestListingResponse(t *testing.T) {
	if got := ListingResponse([]string{"orders", "customers"}); got != "Available tables: orders, customers" {
		t.Fatalf("ListingResponse() = %q", got)
	}
	if got := ListingResponse(nil); got != "Available tables: none" {
		t.Fatalf("ListingResponse(nil) = %q", got)
	}
}

func TestClassifyKeepsConfiguredOutputBudget(t *testing.T) {
	o := oracletest.New().On(oracle.PurposeClassify, "generic")
	NewClassifier(o).Classify(context.Background(), "hello", []string{"orders"})

	calls := o.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	// Thinking models spend output tokens before the label, so no per-call cap is set.
	if calls[0].Options.MaxTokens != nil {
		t.Fatalf("max tokens = %d, want model default", *calls[0].Options.MaxTokens)
	}
	if tp := calls[0].Options.Temperature; tp == nil || *tp != 0 {
		t.Fatalf("temperature = %v, want 0", tp)
	}
}
