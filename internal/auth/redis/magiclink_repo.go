// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package redis stores pending magic links in Redis. Keys carry a TTL, so
// expired links disappear without a sweep.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/specz/specz/internal/auth"
)

// DefaultPrefix namespaces every key written by the repository.
const DefaultPrefix = "specz"

// replaceLua swaps the link for an email in one step.
// KEYS[1] = email index key, KEYS[2] = token key
// ARGV = email, expires_at ms, created_at ms, ttl ms
var replaceLua = goredis.NewScript(`
local old = redis.call('GET', KEYS[1])
if old and old ~= KEYS[2] then
  redis.call('DEL', old)
end
redis.call('HSET', KEYS[2], 'email', ARGV[1], 'expires_at', ARGV[2], 'created_at', ARGV[3])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
redis.call('SET', KEYS[1], KEYS[2], 'PX', ARGV[4])
return 1
`)

// consumeLua deletes a link and returns its fields when unexpired. An
// expired link is left for its TTL to evict.
// KEYS[1] = token key
// ARGV = now ms, email index key prefix
var consumeLua = goredis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'email', 'expires_at', 'created_at')
if not f[1] then
  return false
end
if tonumber(f[2]) <= tonumber(ARGV[1]) then
  return false
end
redis.call('DEL', KEYS[1])
local ek = ARGV[2] .. f[1]
if redis.call('GET', ek) == KEYS[1] then
  redis.call('DEL', ek)
end
return f
`)

// MagicLinkRepository implements auth.MagicLinkRepository using Redis.
type MagicLinkRepository struct {
	client goredis.UniversalClient
	prefix string
}

// NewMagicLinkRepository creates a repository. An empty prefix uses
// DefaultPrefix.
func NewMagicLinkRepository(client goredis.UniversalClient, prefix string) (*MagicLinkRepository, error) {
	if client == nil {
		return nil, oops.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &MagicLinkRepository{client: client, prefix: prefix}, nil
}

func (r *MagicLinkRepository) tokenKey(id string) string {
	return r.prefix + ":magiclink:token:" + id
}

func (r *MagicLinkRepository) emailPrefix() string {
	return r.prefix + ":magiclink:email:"
}

// Replace stores link and drops any earlier link for the same email.
func (r *MagicLinkRepository) Replace(ctx context.Context, link *auth.MagicLink) error {
	ttl := time.Until(link.ExpiresAt)
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	keys := []string{r.emailPrefix() + link.Email, r.tokenKey(link.ID)}
	err := replaceLua.Run(ctx, r.client, keys,
		link.Email,
		link.ExpiresAt.UnixMilli(),
		link.CreatedAt.UnixMilli(),
		ttl.Milliseconds(),
	).Err()
	if err != nil {
		return oops.Code("MAGIC_LINK_REPLACE_FAILED").
			With("operation", "replace magic link").
			Wrap(err)
	}
	return nil
}

// Consume atomically removes the link and returns it if it was still valid.
func (r *MagicLinkRepository) Consume(ctx context.Context, id string, now time.Time) (*auth.MagicLink, error) {
	fields, err := consumeLua.Run(ctx, r.client, []string{r.tokenKey(id)},
		now.UnixMilli(), r.emailPrefix()).StringSlice()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("MAGIC_LINK_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MAGIC_LINK_CONSUME_FAILED").
			With("operation", "consume magic link").
			Wrap(err)
	}
	if len(fields) != 3 {
		return nil, oops.Code("MAGIC_LINK_CONSUME_FAILED").
			With("fields", len(fields)).
			Errorf("unexpected magic link record")
	}

	expires, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, oops.Code("MAGIC_LINK_CONSUME_FAILED").With("field", "expires_at").Wrap(err)
	}
	created, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, oops.Code("MAGIC_LINK_CONSUME_FAILED").With("field", "created_at").Wrap(err)
	}

	return &auth.MagicLink{
		ID:        id,
		Email:     fields[0],
		ExpiresAt: time.UnixMilli(expires).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}

// DeleteExpired is a no-op: Redis evicts links when their TTL lapses.
func (r *MagicLinkRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping verifies the Redis connection.
func (r *MagicLinkRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return oops.Code("REDIS_PING_FAILED").Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.MagicLinkRepository = (*MagicLinkRepository)(nil)
