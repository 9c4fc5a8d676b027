package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/classify.txt
	classifyPrompt string
	//go:embed template/match_table.txt
	matchTablePrompt string
	//go:embed template/match_columns.txt
	matchColumnsPrompt string
	//go:embed template/extract_conditions.txt
	extractConditionsPrompt string
	//go:embed template/validate_sql.txt
	validateSQLPrompt string
	//go:embed template/format_response.txt
	formatResponsePrompt string
	//go:embed template/generic.txt
	genericPrompt string
)

// render formats tpl via the Eino prompt component (Go template) so prompt callbacks fire.
func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	msgs, err := prompt.FromMessages(schema.GoTemplate, schema.UserMessage(tpl)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

// JoinList renders a list for prompts and user-facing text. An empty list is "none".
func JoinList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func RenderClassify(ctx context.Context, utterance string, tables []string) (string, error) {
	return render(ctx, "classify", classifyPrompt, map[string]any{
		"Utterance": utterance,
		"Tables":    JoinList(tables),
	})
}

func RenderMatchTable(ctx context.Context, utterance, history string, tables []string) (string, error) {
	return render(ctx, "match_table", matchTablePrompt, map[string]any{
		"Utterance": utterance,
		"History":   history,
		"Tables":    JoinList(tables),
	})
}

func RenderMatchColumns(ctx context.Context, utterance, history, table string, columns []string) (string, error) {
	return render(ctx, "match_columns", matchColumnsPrompt, map[string]any{
		"Utterance": utterance,
		"History":   history,
		"Table":     table,
		"Columns":   JoinList(columns),
	})
}

// RenderExtractConditions includes both the selected columns and every column of the
// table, since filters may use columns that are not projected.
func RenderExtractConditions(ctx context.Context, utterance, history, table string, selected, tableColumns []string) (string, error) {
	return render(ctx, "extract_conditions", extractConditionsPrompt, map[string]any{
		"Utterance":    utterance,
		"History":      history,
		"Table":        table,
		"Columns":      JoinList(selected),
		"TableColumns": JoinList(tableColumns),
	})
}

type ValidateSQLVars struct {
	Table      string
	Columns    []string
	Conditions string
	Dialect    string
	SQL        string
}

func RenderValidateSQL(ctx context.Context, v ValidateSQLVars) (string, error) {
	dialect := v.Dialect
	if dialect == "" {
		dialect = "standard SQL"
	}
	return render(ctx, "validate_sql", validateSQLPrompt, map[string]any{
		"Table":      v.Table,
		"Columns":    JoinList(v.Columns),
		"Conditions": v.Conditions,
		"Dialect":    dialect,
		"SQL":        v.SQL,
	})
}

type FormatVars struct {
	Table         string
	SchemaColumns []string
	ResultColumns []string
	// Rows is the pre-rendered record list.
	Rows     string
	RowCount int
	Shown    int
}

func RenderFormatResponse(ctx context.Context, v FormatVars) (string, error) {
	return render(ctx, "format_response", formatResponsePrompt, map[string]any{
		"Table":         v.Table,
		"SchemaColumns": JoinList(v.SchemaColumns),
		"ResultColumns": JoinList(v.ResultColumns),
		"Rows":          v.Rows,
		"RowCount":      v.RowCount,
		"Shown":         v.Shown,
		"Truncated":     v.Shown < v.RowCount,
	})
}

func RenderGeneric(ctx context.Context, utterance string) (string, error) {
	return render(ctx, "generic", genericPrompt, map[string]any{
		"Utterance": utterance,
	})
}
