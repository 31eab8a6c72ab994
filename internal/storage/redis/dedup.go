package redis

import (
	"context"
	"time"
)

// Deduper 基于 Redis 的消息去重锁。
// 同一 key 在 TTL 窗口内只有第一次 AcquireOnce 返回 true，
// 用于吸收服务商 webhook 的重复投递。
type Deduper struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewDeduper 创建去重器
//
// 参数:
//   - client: Redis 客户端
//   - prefix: 键前缀，按业务隔离
//   - ttl: 去重窗口时长
func NewDeduper(client *Client, prefix string, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduper{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// AcquireOnce 尝试占用 key。首次占用返回 true，窗口内重复返回 false。
func (d *Deduper) AcquireOnce(ctx context.Context, key string) (bool, error) {
	return d.client.rdb.SetNX(ctx, d.prefix+":"+key, 1, d.ttl).Result()
}

// Release 主动释放 key，用于处理失败后允许重新投递
func (d *Deduper) Release(ctx context.Context, key string) error {
	return d.client.rdb.Del(ctx, d.prefix+":"+key).Err()
}

// RateLimiter 基于 Redis 计数器的滑动窗口限流。
type RateLimiter struct {
	client *Client
	prefix string
	window time.Duration
	limit  int64
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client, prefix string, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		window: window,
		limit:  limit,
	}
}

// Allow 递增计数并判断是否超出窗口限额
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	fullKey := r.prefix + ":" + key

	count, err := r.client.rdb.Incr(ctx, fullKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// 首个请求建立窗口
		if err := r.client.rdb.Expire(ctx, fullKey, r.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= r.limit, nil
}
