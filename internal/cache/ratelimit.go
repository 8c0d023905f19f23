package cache

import (
	"context"
	"time"
)

// tokenBucketScript 令牌桶限流脚本，保证读改写的原子性
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'updated_at')
local tokens = tonumber(bucket[1])
local updated_at = tonumber(bucket[2])

if tokens == nil or updated_at == nil then
    tokens = capacity
    updated_at = now
end

local elapsed = math.max(0, now - updated_at)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
local retry_after = 0

if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
else
    retry_after = (requested - tokens) / rate
end

redis.call('HSET', key, 'tokens', tokens, 'updated_at', now)
redis.call('EXPIRE', key, 86400)

return {allowed, math.floor(tokens), math.ceil(retry_after)}
`

// RateLimitResult 一次限流判定的结果
type RateLimitResult struct {
	Allowed    bool
	Limit      int // 桶容量
	Remaining  int // 剩余令牌
	RetryAfter int // 被拒绝时建议的重试秒数
}

// Allow 从 key 对应的令牌桶中取出一个令牌
// 桶容量为 2*qps，每秒补充 qps 个令牌
func (c *RedisCache) Allow(ctx context.Context, key string, qps int) (*RateLimitResult, error) {
	capacity := 2 * qps
	now := float64(time.Now().UnixNano()) / 1e9

	result, err := c.client.Eval(ctx, tokenBucketScript,
		[]string{"rate_limit:" + key},
		capacity, float64(qps), now, 1,
	).Result()
	if err != nil {
		return nil, err
	}
	return parseBucketResult(result, capacity), nil
}

// parseBucketResult 解析 Lua 脚本返回的 {allowed, remaining, retry_after}
func parseBucketResult(result interface{}, capacity int) *RateLimitResult {
	res := &RateLimitResult{Limit: capacity, Remaining: capacity}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 3 {
		return res
	}
	if v, ok := arr[0].(int64); ok {
		res.Allowed = v == 1
	}
	if v, ok := arr[1].(int64); ok {
		res.Remaining = int(v)
	}
	if v, ok := arr[2].(int64); ok {
		res.RetryAfter = int(v)
	}
	return res
}
