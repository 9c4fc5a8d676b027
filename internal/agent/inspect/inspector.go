// Package inspect lists the tables and columns the resolver may choose from.
// Nothing is cached: every resolution step sees the catalog as it is now.
package inspect

import (
	"context"

	logx "github.com/Chative-querybot/server/pkg/logger"
)

// Catalog is the storage side of schema introspection.
type Catalog interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]string, error)
}

type Inspector struct {
	catalog Catalog
}

func New(catalog Catalog) *Inspector {
	return &Inspector{catalog: catalog}
}

// Tables returns the current table names. A lookup failure yields an empty set.
func (i *Inspector) Tables(ctx context.Context) []string {
	tables, err := i.catalog.ListTables(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Table lookup failed; treating as no tables")
		return nil
	}
	return tables
}

// Columns returns the columns of table in ordinal order. A lookup failure yields an empty set.
func (i *Inspector) Columns(ctx context.Context, table string) []string {
	if table == "" {
		return nil
	}
	columns, err := i.catalog.ListColumns(ctx, table)
	if err != nil {
		logx.Warn().Err(err).Str("table", table).Msg("Column lookup failed; treating as no columns")
		return nil
	}
	return columns
}
