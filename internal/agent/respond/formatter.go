package respond

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Chative-querybot/server/internal/agent/graph/prompts"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

// Schema supplies the table's columns as narration context.
type Schema interface {
	Columns(ctx context.Context, table string) []string
}

type Formatter struct {
	oracle  oracle.Oracle
	schema  Schema
	stream  bool
	maxRows int
}

func NewFormatter(o oracle.Oracle, schema Schema, cfg model.FormatterModelConfig) *Formatter {
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 200
	}
	return &Formatter{oracle: o, schema: schema, stream: cfg.Stream, maxRows: maxRows}
}

// Format returns the narrated answer. Every returned text is also delivered to sink,
// fragment by fragment when streaming is on.
func (f *Formatter) Format(ctx context.Context, table string, res *model.ExecResult, sink model.FragmentSink) string {
	emit := func(s string) string {
		if sink != nil && s != "" {
			sink(s)
		}
		return s
	}

	switch {
	case res == nil || res.Empty():
		return emit(NoResultsMessage)
	case res.Kind == model.ResultAffected:
		return emit(fmt.Sprintf("Query executed successfully, %d rows affected.", res.RowsAffected))
	}

	shown := res.Rows
	if len(shown) > f.maxRows {
		shown = shown[:f.maxRows]
	}
	records := FormatRecords(shown)

	p, err := prompts.RenderFormatResponse(ctx, prompts.FormatVars{
		Table:         table,
		SchemaColumns: f.schema.Columns(ctx, table),
		ResultColumns: res.Columns,
		Rows:          records,
		RowCount:      len(res.Rows),
		Shown:         len(shown),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render format prompt")
		return emit(records)
	}

	opts := []oracle.Option{oracle.WithPurpose(oracle.PurposeFormat)}
	if !f.stream {
		out, err := f.oracle.Complete(ctx, p, opts...)
		if err != nil {
			logx.Warn().Err(err).Msg("Response formatting failed; returning plain rows")
			return emit(records)
		}
		return emit(out)
	}

	var b strings.Builder
	for fragment, err := range f.oracle.Stream(ctx, p, opts...) {
		if err != nil {
			if b.Len() == 0 {
				logx.Warn().Err(err).Msg("Response stream failed; returning plain rows")
				return emit(records)
			}
			logx.Warn().Err(err).Int("received", b.Len()).Msg("Response stream ended early")
			break
		}
		b.WriteString(fragment)
		emit(fragment)
	}
	return b.String()
}

// FormatRecords renders one record per line, e.g. (1, 'Ada', NULL).
func FormatRecords(rows [][]any) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		vals := make([]string, 0, len(row))
		for _, v := range row {
			vals = append(vals, formatValue(v))
		}
		lines = append(lines, "("+strings.Join(vals, ", ")+")")
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(t, "'", `\'`) + "'"
	case []byte:
		return "'" + string(t) + "'"
	case time.Time:
		return "'" + t.Format(time.RFC3339) + "'"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
