package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hfi/llm-secret-redactor/pkg/placeholder"
)

// RedisStore keeps session mappings in Redis hashes, one forward and one
// reverse hash per session, with server-side TTL doing the expiry. Useful
// when several proxy replicas must share one session space. The MaxSessions
// bound is left to the Redis memory policy; MaxSecretsPerSession and TTL are
// enforced here.
type RedisStore struct {
	client *redis.Client
	cfg    Config
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(address, password string, db int, cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		cfg:    cfg,
		prefix: "redact:",
	}, nil
}

func (r *RedisStore) fwdKey(sessionID string) string { return r.prefix + "s:" + sessionID + ":fwd" }
func (r *RedisStore) revKey(sessionID string) string { return r.prefix + "s:" + sessionID + ":rev" }

// Put implements Store.
func (r *RedisStore) Put(sessionID, prefix, secret string) (string, error) {
	ctx := context.Background()
	fwd, rev := r.fwdKey(sessionID), r.revKey(sessionID)

	if token, err := r.client.HGet(ctx, rev, secret).Result(); err == nil {
		r.touch(ctx, sessionID)
		return token, nil
	}

	count, err := r.client.HLen(ctx, fwd).Result()
	if err != nil {
		return "", fmt.Errorf("session %q: %w", sessionID, err)
	}
	if int(count) >= r.cfg.MaxSecretsPerSession {
		return "", ErrSessionFull
	}

	token := placeholder.Generate(prefix, secret)
	for attempt := 1; ; attempt++ {
		taken, err := r.client.HExists(ctx, fwd, token).Result()
		if err != nil {
			return "", fmt.Errorf("session %q: %w", sessionID, err)
		}
		if !taken {
			break
		}
		token = placeholder.Generate(prefix, fmt.Sprintf("%s\x00%d", secret, attempt))
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, fwd, token, secret)
	pipe.HSet(ctx, rev, secret, token)
	pipe.Expire(ctx, fwd, r.cfg.TTL)
	pipe.Expire(ctx, rev, r.cfg.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("session %q: %w", sessionID, err)
	}
	return token, nil
}

// Resolve implements Store.
func (r *RedisStore) Resolve(sessionID, token string) (string, error) {
	ctx := context.Background()
	secret, err := r.client.HGet(ctx, r.fwdKey(sessionID), token).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", ErrNotFound
	}
	r.touch(ctx, sessionID)
	return secret, nil
}

// Placeholders implements Store.
func (r *RedisStore) Placeholders(sessionID string) []string {
	ctx := context.Background()
	tokens, err := r.client.HKeys(ctx, r.fwdKey(sessionID)).Result()
	if err != nil {
		return nil
	}
	return tokens
}

// Touch implements Store.
func (r *RedisStore) Touch(sessionID string) {
	r.touch(context.Background(), sessionID)
}

func (r *RedisStore) touch(ctx context.Context, sessionID string) {
	r.client.Expire(ctx, r.fwdKey(sessionID), r.cfg.TTL)
	r.client.Expire(ctx, r.revKey(sessionID), r.cfg.TTL)
}

// Clear implements Store.
func (r *RedisStore) Clear(sessionID string) {
	ctx := context.Background()
	r.client.Del(ctx, r.fwdKey(sessionID), r.revKey(sessionID))
}

// EvictExpired is a no-op: Redis expires sessions server-side via TTL.
func (r *RedisStore) EvictExpired() int { return 0 }

// Stats implements Store. Session count only; walking every hash for secret
// totals is not worth the scan on a shared instance.
func (r *RedisStore) Stats() Stats {
	ctx := context.Background()
	var cursor uint64
	sessions := 0
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"s:*:fwd", 100).Result()
		if err != nil {
			return Stats{Sessions: sessions}
		}
		sessions += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return Stats{Sessions: sessions}
}

// Ping implements Store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
