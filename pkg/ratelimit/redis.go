// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func init() {
	Counters.Register("redis", func(ctx context.Context, params map[string]string) (Counter, error) {
		db := 0
		if s := params["db"]; s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("redis rate limit: invalid db %q: %w", s, err)
			}
			db = n
		}
		client := redis.NewClient(&redis.Options{
			Addr:     params["addr"],
			Password: params["password"],
			DB:       db,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", params["addr"], err)
		}
		return NewRedisCounter(client, params["prefix"]), nil
	})
}

// compile-time check
var _ Counter = (*RedisCounter)(nil)

// takeScript trims the sorted set to the window, adds the hit when under the
// limit, and returns {count, admitted, oldest score}.
var takeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local admitted = 0
if count < limit then
  redis.call('ZADD', KEYS[1], now, ARGV[4])
  count = count + 1
  admitted = 1
end
redis.call('PEXPIRE', KEYS[1], window)
local oldest = now
local first = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if first[2] then
  oldest = tonumber(first[2])
end
return {count, admitted, oldest}
`)

// RedisCounter shares hit logs across gateway instances through Redis sorted
// sets scored by hit time in milliseconds.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter wraps client. Keys are written as <prefix><key>; an empty
// prefix defaults to "pulse:ratelimit:".
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "pulse:ratelimit:"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

// Take runs the sliding-window script atomically on the server.
func (r *RedisCounter) Take(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Usage, error) {
	k := r.prefix + key
	member := strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()
	vals, err := takeScript.Run(ctx, r.client, []string{k},
		now.UnixMilli(), window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		return Usage{}, fmt.Errorf("redis rate limit %s: %w", k, err)
	}
	if len(vals) != 3 {
		return Usage{}, fmt.Errorf("redis rate limit %s: unexpected reply %v", k, vals)
	}
	return Usage{
		Count:    int(vals[0]),
		Admitted: vals[1] == 1,
		ResetAt:  time.UnixMilli(vals[2]).Add(window),
	}, nil
}

// Close closes the Redis client.
func (r *RedisCounter) Close() error {
	return r.client.Close()
}
