package model

import (
	"slices"
	"strings"
)

// Slot names one piece of query intent that must be resolved before SQL synthesis.
type Slot string

const (
	SlotTable      Slot = "table"
	SlotColumns    Slot = "columns"
	SlotConditions Slot = "conditions"
)

const (
	// AllColumns is the projection sentinel meaning every column of the table.
	AllColumns = "*"
	// NoConditions is the tautology used when the user asked for no filter.
	NoConditions = "1=1"
)

// ResolutionState is derived from which slots are filled.
type ResolutionState int

const (
	NeedTable ResolutionState = iota
	NeedColumns
	NeedConditions
	Ready
)

func (s ResolutionState) String() string {
	switch s {
	case NeedTable:
		return "need_table"
	case NeedColumns:
		return "need_columns"
	case NeedConditions:
		return "need_conditions"
	default:
		return "ready"
	}
}

// SessionContext holds the resolved slots of one conversation.
// Columns and Conditions are only meaningful relative to Table; SetTable is the
// single transition that invalidates them.
type SessionContext struct {
	Table      string   `json:"table,omitempty"`
	Columns    []string `json:"columns,omitempty"`
	Conditions string   `json:"conditions,omitempty"`
	Version    int      `json:"version"`
}

// SetTable records the resolved table. A different table drops the downstream
// slots. Reports whether the table changed.
func (c *SessionContext) SetTable(name string) bool {
	if name == c.Table {
		return false
	}
	c.Table = name
	c.Columns = nil
	c.Conditions = ""
	c.Version++
	return true
}

func (c *SessionContext) SetColumns(columns []string) {
	c.Columns = slices.Clone(columns)
	c.Version++
}

func (c *SessionContext) SetConditions(conditions string) {
	c.Conditions = conditions
	c.Version++
}

// Clear removes every slot. The version keeps counting so stale copies are detectable.
func (c *SessionContext) Clear() {
	c.Table = ""
	c.Columns = nil
	c.Conditions = ""
	c.Version++
}

func (c *SessionContext) HasTable() bool          { return c.Table != "" }
func (c *SessionContext) ColumnsResolved() bool    { return c.HasTable() && len(c.Columns) > 0 }
func (c *SessionContext) ConditionsResolved() bool { return c.HasTable() && c.Conditions != "" }

// IsEmpty reports whether no slot is set.
func (c *SessionContext) IsEmpty() bool {
	return c.Table == "" && len(c.Columns) == 0 && c.Conditions == ""
}

func (c *SessionContext) State() ResolutionState {
	switch {
	case !c.HasTable():
		return NeedTable
	case !c.ColumnsResolved():
		return NeedColumns
	case !c.ConditionsResolved():
		return NeedConditions
	default:
		return Ready
	}
}

// SlotQuery is the triple handed to SQL synthesis.
type SlotQuery struct {
	Table      string
	Columns    []string
	Conditions string
}

// Query derives the SlotQuery from the context, applying the "*" and "1=1" defaults.
func (c *SessionContext) Query() SlotQuery {
	q := SlotQuery{
		Table:      c.Table,
		Columns:    slices.Clone(c.Columns),
		Conditions: c.Conditions,
	}
	if len(q.Columns) == 0 {
		q.Columns = []string{AllColumns}
	}
	if strings.TrimSpace(q.Conditions) == "" {
		q.Conditions = NoConditions
	}
	return q
}

// Role identifies who produced a history record.
type Role string

const (
	RoleUser          Role = "user"
	RoleClarification Role = "clarification"
)

// TurnRecord is one entry of the conversation history.
type TurnRecord struct {
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Field Slot   `json:"field,omitempty"`
}

// TurnHistory is append-only within a resolution episode and wiped with the context.
type TurnHistory []TurnRecord

func (h *TurnHistory) AppendUser(text string) {
	*h = append(*h, TurnRecord{Role: RoleUser, Text: text})
}

func (h *TurnHistory) AppendClarification(field Slot, text string) {
	*h = append(*h, TurnRecord{Role: RoleClarification, Text: text, Field: field})
}

func (h *TurnHistory) Clear() {
	*h = nil
}

// Session is one user's conversation state.
type Session struct {
	ID      string         `json:"id"`
	Context SessionContext `json:"context"`
	History TurnHistory    `json:"history,omitempty"`
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Reset clears slots and history; used on every terminal outcome.
func (s *Session) Reset() {
	s.Context.Clear()
	s.History.Clear()
}

// Clone returns a deep copy so repositories never share slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Context.Columns = slices.Clone(s.Context.Columns)
	out.History = slices.Clone(s.History)
	return &out
}
