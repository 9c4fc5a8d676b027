package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chative-querybot/server/internal/agent"
	"github.com/Chative-querybot/server/internal/agent/graph"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	"github.com/Chative-querybot/server/internal/agent/repo"
	"github.com/Chative-querybot/server/internal/storage"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

// app is the fully wired bot plus whatever needs closing on shutdown.
type app struct {
	bot     *agent.Bot
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	a := &app{}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	sessions, closeSessions, err := repo.New(ctx, cfg.Session, cfg.Redis)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.closers = append(a.closers, closeSessions)

	models, err := oracle.NewChatModels(ctx, oracle.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Oracle:    cfg.Oracle,
		Formatter: cfg.Formatter,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		Oracle:          models.Oracle,
		Formatter:       models.Formatter,
		Storage:         db,
		Dialect:         db.Dialect().Name,
		HistoryMaxTurns: cfg.Session.HistoryMaxTurns,
		FormatterConfig: cfg.Formatter,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.bot = agent.New(runner, sessions)
	logx.Info().
		Str("dialect", db.Dialect().Name).
		Str("session_store", cfg.Session.Store).
		Str("oracle_model", cfg.Oracle.Model).
		Str("formatter_model", cfg.Formatter.Model).
		Msg("Query bot ready")
	return a, nil
}
