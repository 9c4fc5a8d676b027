package parsers

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Chative-querybot/server/internal/agent/model"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 16 * 1024 // 16KB
	maxItems      = 200       // maximum number of listed columns
	maxErrSnippet = 200       // limit log snippet size
)

// noneSentinels are the oracle's ways of saying "no answer".
var noneSentinels = map[string]struct{}{
	"none":  {},
	"null":  {},
	"nil":   {},
	"n/a":   {},
	"no":    {},
	"empty": {},
}

var (
	fenceRe      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	leadWhereRe  = regexp.MustCompile(`(?i)^where\s+`)
	labelRe      = regexp.MustCompile(`(?i)^(table|table name|columns|intent|answer)\s*:\s*`)
	allColumnsRe = regexp.MustCompile(`(?i)^(\*|all|all columns|every column|everything)$`)
)

// normalize bounds, fences and trims raw oracle text.
func normalize(content string) string {
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "")
	}
	content = strings.TrimSpace(content)
	if m := fenceRe.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}
	return content
}

// cleanToken strips quoting and trailing punctuation from a single answer token.
func cleanToken(s string) string {
	s = strings.TrimSpace(s)
	s = labelRe.ReplaceAllString(s, "")
	s = strings.Trim(s, "`'\" \t")
	s = strings.TrimRight(s, ".;,")
	return strings.Trim(s, "`'\" \t")
}

func isNone(s string) bool {
	if s == "" {
		return true
	}
	_, ok := noneSentinels[strings.ToLower(s)]
	return ok
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// lookup finds name in available: exact first, then case-insensitive, then without a
// schema qualifier. The catalog spelling is returned.
func lookup(name string, available []string) (string, bool) {
	if slices.Contains(available, name) {
		return name, true
	}
	for _, a := range available {
		if strings.EqualFold(a, name) {
			return a, true
		}
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		return lookup(cleanToken(name[i+1:]), available)
	}
	return "", false
}

// ParseIntent maps the classifier completion to an Intent. Anything unknown is
// IntentUnclassifiable.
func ParseIntent(content string) model.Intent {
	s := strings.ToLower(cleanToken(firstLine(normalize(content))))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case "schema_listing", "schemalisting", "list_tables", "schema":
		return model.IntentSchemaListing
	case "database_query", "data_query", "dataquery", "query":
		return model.IntentDataQuery
	case "generic", "general":
		return model.IntentGeneric
	}
	logx.Debug().Str("component", "slot_parser").Str("content", safeSnippet(content)).Msg("Unrecognised intent")
	return model.IntentUnclassifiable
}

// ParseTableMatch turns the match-table completion into a typed match. Names outside
// available are treated as no match.
func ParseTableMatch(content string, available []string) model.TableMatch {
	name := cleanToken(firstLine(normalize(content)))
	if isNone(name) {
		return model.Unmatched()
	}
	if found, ok := lookup(name, available); ok {
		return model.Matched(found)
	}
	logx.Debug().Str("component", "slot_parser").Str("content", safeSnippet(content)).Msg("Oracle named an unknown table")
	return model.Unmatched()
}

// ParseColumns turns the match-columns completion into a typed match. Only catalog
// columns survive, in the order the oracle listed them.
func ParseColumns(content string, available []string) model.ColumnsMatch {
	s := normalize(content)
	if allColumnsRe.MatchString(cleanToken(s)) {
		return model.AllColumnsMatch()
	}
	if isNone(cleanToken(s)) {
		return model.UnresolvedColumns()
	}

	s = labelRe.ReplaceAllString(s, "")
	items := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	var columns []string
	for _, item := range items {
		tok := cleanToken(item)
		if tok == model.AllColumns {
			return model.AllColumnsMatch()
		}
		found, ok := lookup(strings.TrimLeft(tok, "- "), available)
		if !ok || slices.Contains(columns, found) {
			continue
		}
		columns = append(columns, found)
	}
	if len(columns) == 0 {
		logx.Debug().Str("component", "slot_parser").Str("content", safeSnippet(content)).Msg("No known columns in completion")
		return model.UnresolvedColumns()
	}
	return model.SomeColumns(columns)
}

// ParseConditions extracts a WHERE predicate. "1=1" means no filter. Empty answers,
// sentinels, stacked statements and SQL comments are rejected.
func ParseConditions(content string) (string, bool) {
	s := unwrapQuotes(strings.Trim(normalize(content), "` \t\r\n"))
	s = leadWhereRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	if isNone(s) {
		return "", false
	}
	if strings.Contains(s, ";") || strings.Contains(s, "--") || strings.Contains(s, "/*") {
		logx.Warn().Str("component", "slot_parser").Str("content", safeSnippet(content)).Msg("Rejected conditions with statement separators or comments")
		return "", false
	}
	if strings.ReplaceAll(s, " ", "") == model.NoConditions {
		return model.NoConditions, true
	}
	return s, true
}

// ParseSQL extracts the repaired statement from the validate-sql completion.
func ParseSQL(content string) (string, bool) {
	s := normalize(content)
	if isNone(cleanToken(s)) {
		return "", false
	}
	return s, true
}

// unwrapQuotes removes one pair of matching outer quotes when they enclose the whole text.
func unwrapQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return s
	}
	inner := s[1 : len(s)-1]
	if strings.IndexByte(inner, q) >= 0 {
		return s
	}
	return strings.TrimSpace(inner)
}

func safeSnippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	cut := maxErrSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
