// Package cache 提供 Redis 缓存操作的封装
// 处理 JWT 黑名单和聊天接口限流等需要跨实例共享的数据
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatbuddy/internal/config"
)

// Store 缓存层对外暴露的能力
// Redis 未启用时由 NoopCache 实现
type Store interface {
	BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error
	IsTokenBlacklisted(ctx context.Context, tokenHash string) bool
	Allow(ctx context.Context, key string, qps int) (*RateLimitResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client
}

// New 按配置创建缓存实现
// redis.enabled 为 false 时返回 NoopCache
func New(cfg config.RedisConfig) (Store, error) {
	if !cfg.Enabled {
		return NoopCache{}, nil
	}
	return NewRedisCache(cfg)
}

// NewRedisCache 创建 RedisCache 实例并检查连接
// 参数:
//   - cfg: Redis 连接配置
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping 检查 Redis 连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ==================== JWT 黑名单 ====================

// BlacklistToken 将 Token 加入黑名单
// 登出时调用，TTL 为 Token 的剩余有效期
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值（不存储原始 Token）
//   - expireAt: Token 的原始过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error {
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, blacklistKey(tokenHash), "1", ttl).Err()
}

// IsTokenBlacklisted 检查 Token 是否在黑名单中
func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, tokenHash string) bool {
	return c.client.Exists(ctx, blacklistKey(tokenHash)).Val() > 0
}

func blacklistKey(tokenHash string) string {
	return "jwt:blacklist:" + tokenHash
}

// NoopCache 未启用 Redis 时的空实现
// 黑名单不生效，限流始终放行
type NoopCache struct{}

func (NoopCache) BlacklistToken(context.Context, string, time.Time) error { return nil }
func (NoopCache) IsTokenBlacklisted(context.Context, string) bool         { return false }
func (NoopCache) Ping(context.Context) error                              { return nil }
func (NoopCache) Close() error                                            { return nil }

func (NoopCache) Allow(_ context.Context, _ string, qps int) (*RateLimitResult, error) {
	return &RateLimitResult{Allowed: true, Limit: 2 * qps, Remaining: 2 * qps}, nil
}
