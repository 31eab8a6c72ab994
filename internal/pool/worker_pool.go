// Package pool 提供限定并发度的任务池，摄取单元经由它异步执行。
package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPool 协程池
//
// webhook 处理器收到通知后立即返回 200，摄取工作投递到池中排队执行，
// 避免每条通知各起一个协程导致资源耗尽。
type WorkerPool struct {
	maxWorkers int
	taskQueue  chan func(ctx context.Context)
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewWorkerPool 创建协程池
//
// 参数:
//   - maxWorkers: 最大协程数
//   - queueSize: 任务队列大小
func NewWorkerPool(maxWorkers, queueSize int, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		maxWorkers: maxWorkers,
		taskQueue:  make(chan func(ctx context.Context), queueSize),
		logger:     logger,
	}
}

// Start 启动协程池。ctx 取消后工作协程停止取新任务。
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Submit 提交任务
//
// 如果队列已满，会阻塞直到有空位
func (p *WorkerPool) Submit(task func(ctx context.Context)) {
	p.taskQueue <- task
}

// TrySubmit 尝试提交任务
//
// 如果队列已满，立即返回 false
func (p *WorkerPool) TrySubmit(task func(ctx context.Context)) bool {
	select {
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Stop 停止协程池，等待已入队任务执行完毕
func (p *WorkerPool) Stop() {
	close(p.taskQueue)
	p.wg.Wait()
}

// worker 工作协程
func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.run(ctx, task)
		}
	}
}

// run 执行单个任务并捕获 panic
func (p *WorkerPool) run(ctx context.Context, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", zap.Any("panic", r))
		}
	}()
	task(ctx)
}
