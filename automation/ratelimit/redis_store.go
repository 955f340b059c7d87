package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
)

// 淘汰过期记录、计数、写入在一个脚本内完成，多进程共享同一配额
var acquireScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, oldest[2]}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, tostring(now)}
`)

// RedisStore 基于有序集合的滑动窗口存储，分数为毫秒时间戳
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "throttle:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Acquire(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Permit, time.Time, bool, error) {
	member := uuid.NewString()
	res, err := acquireScript.Run(ctx, s.client, []string{s.key(key)},
		now.UnixMilli(), window.Milliseconds(), limit, member).Slice()
	if err != nil {
		return Permit{}, time.Time{}, false, fmt.Errorf("run acquire script: %w", err)
	}
	if len(res) != 2 {
		return Permit{}, time.Time{}, false, fmt.Errorf("unexpected acquire script reply: %v", res)
	}

	ok, err := cast.ToIntE(res[0])
	if err != nil {
		return Permit{}, time.Time{}, false, fmt.Errorf("parse acquire flag: %w", err)
	}
	ms, err := cast.ToFloat64E(res[1])
	if err != nil {
		return Permit{}, time.Time{}, false, fmt.Errorf("parse acquire score: %w", err)
	}
	at := time.UnixMilli(int64(ms))
	if ok != 1 {
		return Permit{}, at, false, nil
	}
	return Permit{ID: member, At: at}, at, true, nil
}

func (s *RedisStore) Release(ctx context.Context, key string, permit Permit) error {
	return s.client.ZRem(ctx, s.key(key), permit.ID).Err()
}

func (s *RedisStore) Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	min := "(" + strconv.FormatInt(now.UnixMilli()-window.Milliseconds(), 10)
	n, err := s.client.ZCount(ctx, s.key(key), min, "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ WindowStore = (*RedisStore)(nil)
