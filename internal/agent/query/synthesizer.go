// Package query turns a resolved slot set into a validated SELECT statement.
package query

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/Chative-querybot/server/internal/agent/graph/parsers"
	"github.com/Chative-querybot/server/internal/agent/graph/prompts"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	errx "github.com/Chative-querybot/server/internal/core/error"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

const (
	UnsalvageableMessage = "The SQL query could not be generated. Please start your query with more information."
	InvalidShapeMessage  = "The generated SQL query is not valid. Please provide more information to generate a valid SQL query."
)

var (
	ErrUnsalvageable = errors.New("sql could not be generated")
	ErrInvalidShape  = errors.New("sql failed the select/from check")
)

var (
	plainIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	selectRe     = regexp.MustCompile(`(?i)\bselect\b`)
	fromRe       = regexp.MustCompile(`(?i)\bfrom\b`)

	leadingKeywordRe = regexp.MustCompile(`(?i)^\(*\s*(select|with)\b`)
)

type Synthesizer struct {
	oracle  oracle.Oracle
	dialect string
}

// NewSynthesizer builds a synthesizer; dialect is only used as prompt context.
func NewSynthesizer(o oracle.Oracle, dialect string) *Synthesizer {
	return &Synthesizer{oracle: o, dialect: dialect}
}

// Synthesize builds the naive statement, has the oracle validate or repair it and
// applies the shape check. Errors wrap ErrUnsalvageable or ErrInvalidShape.
func (s *Synthesizer) Synthesize(ctx context.Context, q model.SlotQuery) (string, error) {
	naive := BuildNaive(q)

	p, err := prompts.RenderValidateSQL(ctx, prompts.ValidateSQLVars{
		Table:      q.Table,
		Columns:    q.Columns,
		Conditions: q.Conditions,
		Dialect:    s.dialect,
		SQL:        naive,
	})
	if err != nil {
		return "", errx.Synthesis(errors.Join(ErrUnsalvageable, err), UnsalvageableMessage)
	}

	out, err := s.oracle.Complete(ctx, p, oracle.WithPurpose(oracle.PurposeValidateSQL), oracle.WithTemperature(0))
	if err != nil {
		logx.Warn().Err(err).Str("sql", naive).Msg("SQL validation call failed")
		return "", errx.Synthesis(errors.Join(ErrUnsalvageable, err), UnsalvageableMessage)
	}

	sql, ok := parsers.ParseSQL(out)
	if !ok {
		logx.Info().Str("sql", naive).Msg("Oracle declared the query unsalvageable")
		return "", errx.Synthesis(ErrUnsalvageable, UnsalvageableMessage)
	}
	if !IsValidSQL(sql) || !isSingleSelect(sql) {
		logx.Info().Str("sql", sql).Msg("Repaired SQL failed the shape check")
		return "", errx.Synthesis(ErrInvalidShape, InvalidShapeMessage)
	}

	logx.Debug().Str("naive", naive).Str("sql", sql).Msg("SQL synthesized")
	return sql, nil
}

// BuildNaive renders SELECT <columns> FROM <table> WHERE <conditions>; with defaults
// "*" and "1=1". Identifiers that are not plain words are double-quoted.
func BuildNaive(q model.SlotQuery) string {
	cols := q.Columns
	if len(cols) == 0 {
		cols = []string{model.AllColumns}
	}
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, quoteIdent(c))
	}
	cond := strings.TrimSpace(q.Conditions)
	if cond == "" {
		cond = model.NoConditions
	}
	return "SELECT " + strings.Join(quoted, ", ") + " FROM " + quoteIdent(q.Table) + " WHERE " + cond + ";"
}

// IsValidSQL is a shallow gate: a SELECT token and a FROM token, case-insensitive.
// It does not check syntax.
func IsValidSQL(sql string) bool {
	return selectRe.MatchString(sql) && fromRe.MatchString(sql)
}

// isSingleSelect accepts one SELECT or WITH statement with at most a trailing semicolon
// and no comment markers.
func isSingleSelect(sql string) bool {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if strings.Contains(s, ";") || strings.Contains(s, "--") || strings.Contains(s, "/*") {
		return false
	}
	return leadingKeywordRe.MatchString(s)
}

func quoteIdent(value string) string {
	if value == model.AllColumns || plainIdentRe.MatchString(value) {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
