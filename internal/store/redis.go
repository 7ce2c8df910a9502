package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// Redis stores each statement as a JSON string and its audit log as a list
// of JSON entries:
//
//	{prefix}stmt:{id}        statement
//	{prefix}stmt:{id}:audit  audit entries, RPUSH order
//
// Redis shares statements across server processes; per-id locking is still
// done in-process by the caller.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys when the database is shared.
	Prefix string
	// TTL expires idle statements; zero keeps them until deleted.
	TTL time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisWithClient(client, opts.Prefix, opts.TTL), client, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb redis.Cmdable, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis) statementKey(id string) string {
	return r.prefix + "stmt:" + id
}

func (r *Redis) auditKey(id string) string {
	return r.prefix + "stmt:" + id + ":audit"
}

func (r *Redis) Create(ctx context.Context, st *models.Statement) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode statement: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, r.statementKey(st.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis SETNX failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("statement %q already exists", st.ID)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*models.Statement, error) {
	data, err := r.rdb.Get(ctx, r.statementKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &models.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}
	var st models.Statement
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode statement %q: %w", id, err)
	}
	return &st, nil
}

func (r *Redis) Commit(ctx context.Context, st *models.Statement, entries []models.AuditEntry) error {
	if err := r.exists(ctx, st.ID); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode statement: %w", err)
	}
	encoded, err := encodeEntries(entries)
	if err != nil {
		return err
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.statementKey(st.ID), data, r.ttl)
		if len(encoded) > 0 {
			pipe.RPush(ctx, r.auditKey(st.ID), encoded...)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, r.auditKey(st.ID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit failed: %w", err)
	}
	return nil
}

func (r *Redis) AuditLog(ctx context.Context, id string) ([]models.AuditEntry, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	raw, err := r.rdb.LRange(ctx, r.auditKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE failed: %w", err)
	}
	return decodeEntries(raw)
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, r.statementKey(id), r.auditKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	if n == 0 {
		return &models.NotFoundError{ID: id}
	}
	return nil
}

func (r *Redis) exists(ctx context.Context, id string) error {
	n, err := r.rdb.Exists(ctx, r.statementKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis EXISTS failed: %w", err)
	}
	if n == 0 {
		return &models.NotFoundError{ID: id}
	}
	return nil
}

func encodeEntries(entries []models.AuditEntry) ([]any, error) {
	out := make([]any, 0, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode audit entry %d: %w", i, err)
		}
		out = append(out, string(data))
	}
	return out, nil
}

func decodeEntries(raw []string) ([]models.AuditEntry, error) {
	out := make([]models.AuditEntry, 0, len(raw))
	for i, s := range raw {
		var e models.AuditEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("failed to decode audit entry %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}
