package repo

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Chative-querybot/server/internal/agent/model"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("redis.ParseURL() error = %v", err)
	}
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	return rdb
}

func TestRedisRoundTrip(t *testing.T) {
	rdb := newTestRedis(t)
	r := NewRedisSessionRepository(rdb, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()
	t.Cleanup(func() { _ = r.Delete(ctx, id) })

	s := model.NewSession(id)
	s.Context.SetTable("orders")
	s.Context.SetColumns([]string{"id", "total"})
	s.History.AppendUser("orders")
	s.History.AppendClarification(model.SlotConditions, "I couldn't identify the conditions for your query. Could you clarify?")
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := r.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Context.Table != "orders" || len(got.Context.Columns) != 2 || got.Context.Version != s.Context.Version {
		t.Fatalf("context = %+v, want %+v", got.Context, s.Context)
	}
	if len(got.History) != 2 || got.History[1].Field != model.SlotConditions {
		t.Fatalf("history = %+v", got.History)
	}

	ttl, err := rdb.TTL(ctx, r.contextKey(id)).Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("ttl = %v, err = %v", ttl, err)
	}
}

func TestRedisSaveEmptyDeletes(t *testing.T) {
	rdb := newTestRedis(t)
	r := NewRedisSessionRepository(rdb, time.Minute)
	ctx := context.Background()
	id := uuid.NewString()

	s := model.NewSession(id)
	s.Context.SetTable("orders")
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Reset()
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	n, err := rdb.Exists(ctx, r.contextKey(id), r.historyKey(id)).Result()
	if err != nil || n != 0 {
		t.Fatalf("exists = %d, err = %v", n, err)
	}
}

func TestEncodeDecodeContext(t *testing.T) {
	in := model.SessionContext{Table: "orders", Columns: []string{"id"}, Conditions: "id > 5", Version: 3}
	fields, err := encodeContext(in)
	if err != nil {
		t.Fatalf("encodeContext() error = %v", err)
	}
	str := map[string]string{}
	for k, v := range fields {
		switch tv := v.(type) {
		case string:
			str[k] = tv
		case int:
			str[k] = strconv.Itoa(tv)
		}
	}
	var out model.SessionContext
	if err := decodeContext(str, &out); err != nil {
		t.Fatalf("decodeContext() error = %v", err)
	}
	if out.Table != in.Table || out.Conditions != in.Conditions || out.Version != 3 || out.Columns[0] != "id" {
		t.Fatalf("decoded = %+v", out)
	}
}
