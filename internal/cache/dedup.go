// Package cache 提供进程内的去重锁，作为未配置 Redis 时的退路。
// 单实例部署可用；多实例部署必须使用 Redis 去重。
package cache

import (
	"context"
	"sync"
	"time"
)

// Deduper 基于内存的消息去重锁，语义与 Redis 版一致：
// 同一 key 在 TTL 窗口内只有第一次 AcquireOnce 返回 true。
type Deduper struct {
	entries sync.Map
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewDeduper 创建内存去重器并启动过期清理循环
func NewDeduper(ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	d := &Deduper{
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go d.cleanupLoop()
	return d
}

// AcquireOnce 尝试占用 key。首次占用返回 true，窗口内重复返回 false。
func (d *Deduper) AcquireOnce(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	actual, loaded := d.entries.LoadOrStore(key, now.Add(d.ttl))
	if !loaded {
		return true, nil
	}

	// 过期条目视为未占用，原子替换
	if now.After(actual.(time.Time)) {
		d.entries.Store(key, now.Add(d.ttl))
		return true, nil
	}
	return false, nil
}

// Release 主动释放 key，用于处理失败后允许重新投递
func (d *Deduper) Release(ctx context.Context, key string) error {
	d.entries.Delete(key)
	return nil
}

// Close 停止清理循环
func (d *Deduper) Close() {
	d.once.Do(func() { close(d.stop) })
}

func (d *Deduper) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			now := time.Now()
			d.entries.Range(func(key, value interface{}) bool {
				if now.After(value.(time.Time)) {
					d.entries.Delete(key)
				}
				return true
			})
		}
	}
}
