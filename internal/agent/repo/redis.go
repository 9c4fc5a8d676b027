package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chative-querybot/server/internal/agent/model"
	errx "github.com/Chative-querybot/server/internal/core/error"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

const (
	fieldTable      = "table"
	fieldColumns    = "columns"
	fieldConditions = "conditions"
	fieldVersion    = "version"
)

// RedisSessionRepository keeps slots in a hash and the turn history in a list, both
// refreshed to the same TTL on every save.
type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) contextKey(sessionID string) string {
	return fmt.Sprintf("session:%s:context", sessionID)
}

func (r *RedisSessionRepository) historyKey(sessionID string) string {
	return fmt.Sprintf("session:%s:history", sessionID)
}

func (r *RedisSessionRepository) Load(ctx context.Context, sessionID string) (*model.Session, error) {
	session := model.NewSession(sessionID)

	fields, err := r.rdb.HGetAll(ctx, r.contextKey(sessionID)).Result()
	if err != nil && err != redis.Nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session context from redis")
		return nil, errx.WrapRedis(err)
	}
	if len(fields) > 0 {
		if err := decodeContext(fields, &session.Context); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to decode session context")
			return nil, err
		}
	}

	rows, err := r.rdb.LRange(ctx, r.historyKey(sessionID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session history from redis")
		return nil, errx.WrapRedis(err)
	}
	for i, s := range rows {
		var rec model.TurnRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal turn record")
			return nil, fmt.Errorf("unmarshal turn record at index %d: %w", i, err)
		}
		session.History = append(session.History, rec)
	}
	return session, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, session *model.Session) error {
	if session == nil {
		return nil
	}
	if session.Context.IsEmpty() && len(session.History) == 0 {
		return r.Delete(ctx, session.ID)
	}

	fields, err := encodeContext(session.Context)
	if err != nil {
		return err
	}
	history := make([]any, 0, len(session.History))
	for _, rec := range session.History {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal turn record: %w", err)
		}
		history = append(history, b)
	}

	ck, hk := r.contextKey(session.ID), r.historyKey(session.ID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, ck, hk)
		pipe.HSet(ctx, ck, fields)
		if len(history) > 0 {
			pipe.RPush(ctx, hk, history...)
		}
		// extend TTL on touch
		if r.ttl > 0 {
			pipe.Expire(ctx, ck, r.ttl)
			if len(history) > 0 {
				pipe.Expire(ctx, hk, r.ttl)
			}
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", session.ID).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, r.contextKey(sessionID), r.historyKey(sessionID)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func encodeContext(c model.SessionContext) (map[string]any, error) {
	fields := map[string]any{
		fieldTable:      c.Table,
		fieldConditions: c.Conditions,
		fieldVersion:    c.Version,
	}
	if len(c.Columns) > 0 {
		b, err := json.Marshal(c.Columns)
		if err != nil {
			return nil, fmt.Errorf("marshal columns: %w", err)
		}
		fields[fieldColumns] = string(b)
	}
	return fields, nil
}

func decodeContext(fields map[string]string, c *model.SessionContext) error {
	c.Table = fields[fieldTable]
	c.Conditions = fields[fieldConditions]
	if v := fields[fieldVersion]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse version %q: %w", v, err)
		}
		c.Version = n
	}
	if v := fields[fieldColumns]; v != "" {
		if err := json.Unmarshal([]byte(v), &c.Columns); err != nil {
			return fmt.Errorf("unmarshal columns: %w", err)
		}
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
