package model

// TableMatch is the typed form of the oracle's table answer.
type TableMatch struct {
	Name    string
	Matched bool
}

func Matched(name string) TableMatch { return TableMatch{Name: name, Matched: true} }
func Unmatched() TableMatch          { return TableMatch{} }

// ColumnsMatch is the typed form of the oracle's column answer.
type ColumnsMatch struct {
	Columns  []string
	All      bool
	Resolved bool
}

func AllColumnsMatch() ColumnsMatch { return ColumnsMatch{Columns: []string{AllColumns}, All: true, Resolved: true} }
func SomeColumns(columns []string) ColumnsMatch {
	return ColumnsMatch{Columns: columns, Resolved: len(columns) > 0}
}
func UnresolvedColumns() ColumnsMatch { return ColumnsMatch{} }

// ResultKind distinguishes row sets from affected-row counts.
type ResultKind int

const (
	ResultRows ResultKind = iota
	ResultAffected
)

// ExecResult is the outcome of executing a validated statement.
type ExecResult struct {
	Kind         ResultKind
	Columns      []string
	Rows         [][]any
	RowsAffected int64
}

func (r *ExecResult) Empty() bool {
	return r == nil || (r.Kind == ResultRows && len(r.Rows) == 0)
}
