// Package repo persists sessions between turns.
package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-querybot/server/internal/agent/model"
	pkgredis "github.com/Chative-querybot/server/pkg/redis"
)

// New builds the repository selected by cfg.Store ("memory" or "redis").
func New(ctx context.Context, cfg model.SessionConfig, redisCfg pkgredis.Config) (model.SessionRepository, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store)) {
	case "", "memory":
		return NewMemorySessionRepository(cfg.TTL), func() error { return nil }, nil
	case "redis":
		rdb, err := redisCfg.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisSessionRepository(rdb, cfg.TTL), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
