package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Type defines the type of worker pool.
type Type string

// HealthCheckPool 健康检查与探测专用池
const HealthCheckPool Type = "health-check"

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 池容量（最大并发 goroutine 数）
	Capacity int
	// ExpiryDuration goroutine 空闲过期时间
	ExpiryDuration time.Duration
	// PreAlloc 是否预分配 worker 队列
	PreAlloc bool
	// Nonblocking 池满时提交直接返回 ErrPoolOverload
	Nonblocking bool
	// MaxBlockingTasks 阻塞模式下最大等待任务数（0 表示无限制）
	MaxBlockingTasks int
	// PanicHandler 恐慌处理函数，为空时记录错误日志
	PanicHandler func(interface{})
}

// HealthCheckPoolConfig 返回探测池配置。
// 探测任务不能被丢弃，所以池满时阻塞等待。
func HealthCheckPoolConfig() *Config {
	return &Config{
		Capacity:         16,
		ExpiryDuration:   30 * time.Second,
		PreAlloc:         true,
		MaxBlockingTasks: 0,
	}
}

// Pool represents a worker pool.
type Pool struct {
	name     string
	typ      Type
	pool     *ants.Pool
	config   *Config
	stats    poolStatsCounter
	closed   atomic.Bool
	closedMu sync.Mutex
}

type poolStatsCounter struct {
	SubmittedTasks atomic.Int64
	CompletedTasks atomic.Int64
	RejectedTasks  atomic.Int64
	PanicRecovered atomic.Int64
}

// Stats contains statistics about the worker pool.
type Stats struct {
	SubmittedTasks int64 // 已提交任务数
	CompletedTasks int64 // 已完成任务数
	RejectedTasks  int64 // 拒绝任务数
	PanicRecovered int64 // 恢复的 panic 数
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(name string, typ Type, config *Config) (*Pool, error) {
	if config == nil {
		config = HealthCheckPoolConfig()
	}
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidPoolConfig, config.Capacity)
	}

	p := &Pool{
		name:   name,
		typ:    typ,
		config: config,
	}

	pool, err := ants.NewPool(config.Capacity, p.antsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create ants pool %s: %w", name, err)
	}
	p.pool = pool

	logger.Debugw("Worker pool created",
		"name", name,
		"type", string(typ),
		"capacity", config.Capacity,
	)

	return p, nil
}

func (p *Pool) antsOptions() []ants.Option {
	handler := p.config.PanicHandler
	if handler == nil {
		handler = func(r interface{}) {
			logger.Errorw("Worker panic recovered", "pool", p.name, "panic", r)
		}
	}

	return []ants.Option{
		ants.WithExpiryDuration(p.config.ExpiryDuration),
		ants.WithPreAlloc(p.config.PreAlloc),
		ants.WithNonblocking(p.config.Nonblocking),
		ants.WithMaxBlockingTasks(p.config.MaxBlockingTasks),
		ants.WithPanicHandler(func(r interface{}) {
			p.stats.PanicRecovered.Add(1)
			handler(r)
		}),
	}
}

// Submit 提交任务到池中执行
func (p *Pool) Submit(task func()) error {
	return p.submit(task, nil)
}

// submit 提交任务，done 在任务计数之后调用，任务 panic 时同样调用。
func (p *Pool) submit(task, done func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.stats.SubmittedTasks.Add(1)
	err := p.pool.Submit(func() {
		if done != nil {
			defer done()
		}
		task()
		p.stats.CompletedTasks.Add(1)
	})
	if err != nil {
		p.stats.SubmittedTasks.Add(-1)
		p.stats.RejectedTasks.Add(1)
		switch {
		case errors.Is(err, ants.ErrPoolOverload):
			return ErrPoolOverload
		case errors.Is(err, ants.ErrPoolClosed):
			return ErrPoolClosed
		}
		return err
	}
	return nil
}

// RunAll submits every task and waits until all submitted tasks return.
// Tasks that could not be submitted are reported in the returned error
// and do not run. Tasks still queued when ctx is cancelled are skipped.
func (p *Pool) RunAll(ctx context.Context, tasks ...func()) error {
	var (
		wg   sync.WaitGroup
		errs []error
	)

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("task %d: %w", i, err))
			continue
		}

		wg.Add(1)
		if err := p.submit(func() {
			if ctx.Err() != nil {
				return
			}
			task()
		}, wg.Done); err != nil {
			wg.Done()
			errs = append(errs, fmt.Errorf("task %d: %w", i, err))
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

// Release 关闭池并释放资源
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Swap(true) {
		return
	}
	p.pool.Release()
	logger.Debugw("Worker pool released", "name", p.name, "type", string(p.typ))
}

// Stats 返回池统计信息快照
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks: p.stats.SubmittedTasks.Load(),
		CompletedTasks: p.stats.CompletedTasks.Load(),
		RejectedTasks:  p.stats.RejectedTasks.Load(),
		PanicRecovered: p.stats.PanicRecovered.Load(),
	}
}
