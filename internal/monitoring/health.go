package monitoring

import (
	"context"
	"time"

	"github.com/heptiolabs/healthcheck"

	"aomail/backend/internal/storage"
)

// NewHealthHandler 构建存活/就绪探针。
// /live 只看进程自身（协程数上限），/ready 还要求数据库与 Redis 可用。
// Redis 未启用时传 nil pinger，跳过对应检查。
func NewHealthHandler(store storage.Store, pinger Pinger) healthcheck.Handler {
	handler := healthcheck.NewHandler()

	handler.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(2000))

	handler.AddReadinessCheck("database", func() error {
		return store.Health()
	})

	if pinger != nil {
		handler.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return pinger.Ping(ctx)
		})
	}

	return handler
}
