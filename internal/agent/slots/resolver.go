// Package slots fills table, columns and conditions across turns and asks for
// clarification when a slot cannot be resolved.
package slots

import (
	"context"
	"fmt"

	"github.com/Chative-querybot/server/internal/agent/graph/conversations"
	"github.com/Chative-querybot/server/internal/agent/graph/parsers"
	"github.com/Chative-querybot/server/internal/agent/graph/prompts"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

const (
	noTablesClarification   = "I couldn't find any tables in the database. Could you check the connection or specify the table?"
	conditionsClarification = "I couldn't identify the conditions for your query. Could you clarify?"
)

// Schema is the fresh-per-call view of the catalog.
type Schema interface {
	Tables(ctx context.Context) []string
	Columns(ctx context.Context, table string) []string
}

// Outcome is either Ready or a clarification for Field.
type Outcome struct {
	Ready         bool
	Field         model.Slot
	Clarification string
}

func ready() Outcome { return Outcome{Ready: true} }

type Resolver struct {
	oracle   oracle.Oracle
	schema   Schema
	maxTurns int
}

func NewResolver(o oracle.Oracle, schema Schema, historyMaxTurns int) *Resolver {
	return &Resolver{oracle: o, schema: schema, maxTurns: historyMaxTurns}
}

// Resolve advances every slot the utterance settles and stops at the first one it cannot.
// Each call re-checks the table first, so a user may switch tables while answering a
// columns or conditions question.
func (r *Resolver) Resolve(ctx context.Context, utterance string, session *model.Session) Outcome {
	log := logx.Session(session.ID)
	session.History.AppendUser(utterance)

	tables := r.schema.Tables(ctx)
	match := r.matchTable(ctx, utterance, session.History, tables)
	if !match.Matched {
		return r.clarify(session, model.SlotTable, tableClarification(tables))
	}
	if session.Context.Table != match.Name {
		log.Debug().Str("table", match.Name).Str("previous", session.Context.Table).Msg("Table resolved")
		session.History.Clear()
		session.Context.SetTable(match.Name)
	}
	table := session.Context.Table

	var tableColumns []string
	if !session.Context.ColumnsResolved() {
		tableColumns = r.schema.Columns(ctx, table)
		cols := r.matchColumns(ctx, utterance, session.History, table, tableColumns)
		if !cols.Resolved {
			return r.clarify(session, model.SlotColumns, columnsClarification(tableColumns))
		}
		log.Debug().Strs("columns", cols.Columns).Msg("Columns resolved")
		session.Context.SetColumns(cols.Columns)
	}

	if !session.Context.ConditionsResolved() {
		if tableColumns == nil {
			tableColumns = r.schema.Columns(ctx, table)
		}
		cond, ok := r.extractConditions(ctx, utterance, session.History, table, session.Context.Columns, tableColumns)
		if !ok {
			return r.clarify(session, model.SlotConditions, conditionsClarification)
		}
		log.Debug().Str("conditions", cond).Msg("Conditions resolved")
		session.Context.SetConditions(cond)
	}

	return ready()
}

func (r *Resolver) clarify(session *model.Session, field model.Slot, text string) Outcome {
	session.History.AppendClarification(field, text)
	return Outcome{Field: field, Clarification: text}
}

func (r *Resolver) history(h model.TurnHistory) string {
	return conversations.BuildHistoryContext(h, r.maxTurns)
}

func (r *Resolver) matchTable(ctx context.Context, utterance string, h model.TurnHistory, tables []string) model.TableMatch {
	if len(tables) == 0 {
		return model.Unmatched()
	}
	p, err := prompts.RenderMatchTable(ctx, utterance, r.history(h), tables)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render match-table prompt")
		return model.Unmatched()
	}
	out, err := r.oracle.Complete(ctx, p, oracle.WithPurpose(oracle.PurposeMatchTable))
	if err != nil {
		logx.Warn().Err(err).Msg("Table matching failed")
		return model.Unmatched()
	}
	return parsers.ParseTableMatch(out, tables)
}

func (r *Resolver) matchColumns(ctx context.Context, utterance string, h model.TurnHistory, table string, columns []string) model.ColumnsMatch {
	if len(columns) == 0 {
		return model.UnresolvedColumns()
	}
	p, err := prompts.RenderMatchColumns(ctx, utterance, r.history(h), table, columns)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render match-columns prompt")
		return model.UnresolvedColumns()
	}
	out, err := r.oracle.Complete(ctx, p, oracle.WithPurpose(oracle.PurposeMatchColumns))
	if err != nil {
		logx.Warn().Err(err).Msg("Column matching failed")
		return model.UnresolvedColumns()
	}
	return parsers.ParseColumns(out, columns)
}

func (r *Resolver) extractConditions(ctx context.Context, utterance string, h model.TurnHistory, table string, selected, tableColumns []string) (string, bool) {
	p, err := prompts.RenderExtractConditions(ctx, utterance, r.history(h), table, selected, tableColumns)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render extract-conditions prompt")
		return "", false
	}
	out, err := r.oracle.Complete(ctx, p, oracle.WithPurpose(oracle.PurposeExtractConditions))
	if err != nil {
		logx.Warn().Err(err).Msg("Condition extraction failed")
		return "", false
	}
	return parsers.ParseConditions(out)
}

func tableClarification(tables []string) string {
	if len(tables) == 0 {
		return noTablesClarification
	}
	return fmt.Sprintf("I couldn't understand the table you are referring to. Here are the available tables: %s. Could you please specify the table?", prompts.JoinList(tables))
}

func columnsClarification(columns []string) string {
	return fmt.Sprintf("I couldn't identify the columns you are referring to. Available columns: %s. Please specify.", prompts.JoinList(columns))
}
