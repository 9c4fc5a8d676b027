// Package respond executes validated SQL and narrates the result.
package respond

import (
	"context"

	"github.com/Chative-querybot/server/internal/agent/model"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

const NoResultsMessage = "No results found."

// Storage is the statement side of the storage collaborator. It retries on its own.
type Storage interface {
	ExecuteQuery(ctx context.Context, query string, args ...any) (*model.ExecResult, error)
}

type Executor struct {
	storage Storage
}

func NewExecutor(s Storage) *Executor {
	return &Executor{storage: s}
}

// Execute runs sql once. A storage failure is final at this level.
func (e *Executor) Execute(ctx context.Context, sql string) (*model.ExecResult, error) {
	res, err := e.storage.ExecuteQuery(ctx, sql)
	if err != nil {
		logx.Warn().Err(err).Str("sql", sql).Msg("Query execution failed")
		return nil, err
	}
	return res, nil
}
