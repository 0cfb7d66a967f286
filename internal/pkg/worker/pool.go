// Package worker provides goroutine pool management.
//
// Per-file work never runs on naked goroutines: it goes through a Pool with
// context propagation, and a Group stops scheduling after the first failure.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"socialpatch.io/socialpatch/internal/pkg/logger"
)

// ErrPoolClosed is reported by a Group whose pool was already released.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool wraps ants.Pool. Work is submitted through a Group.
type Pool struct {
	pool *ants.Pool
	name string
}

// PoolConfig contains Worker Pool configuration.
type PoolConfig struct {
	Size int
}

// DefaultPoolConfig returns default configuration: one worker, so files are
// handled strictly one after another.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Size: 1}
}

// NewPool creates a named worker pool.
func NewPool(name string, cfg PoolConfig) (*Pool, error) {
	if cfg.Size < 1 {
		return nil, errors.New("worker pool size must be at least 1")
	}

	panicHandler := func(p interface{}) {
		logger.Error("Worker panic recovered",
			zap.String("pool", name),
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	antsPool, err := ants.NewPool(cfg.Size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Pool{pool: antsPool, name: name}, nil
}

// Release shuts the pool down, waiting at most 30s for running tasks.
func (p *Pool) Release() {
	const shutdownTimeout = 30 * time.Second
	if err := p.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("Worker pool shutdown timeout",
			zap.String("pool", p.name),
			zap.Error(err),
		)
	}
}

// Metrics returns a snapshot of the pool's occupancy.
func (p *Pool) Metrics() map[string]int {
	return map[string]int{
		"running": p.pool.Running(),
		"free":    p.pool.Free(),
		"cap":     p.pool.Cap(),
	}
}

// Group runs error-returning tasks on a Pool. The first failure cancels the
// group context; tasks that have not started by then are skipped.
type Group struct {
	pool   *Pool
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

// Group returns a new Group bound to ctx and the derived context its tasks run with.
func (p *Pool) Group(ctx context.Context) (*Group, context.Context) {
	gctx, cancel := context.WithCancelCause(ctx)
	return &Group{pool: p, ctx: gctx, cancel: cancel}, gctx
}

// Go submits fn, blocking while the pool is saturated. It is a no-op once
// the group context is done.
func (g *Group) Go(fn func(ctx context.Context) error) {
	if g.ctx.Err() != nil {
		return
	}

	g.wg.Add(1)
	err := g.pool.pool.Submit(func() {
		defer g.wg.Done()
		if g.ctx.Err() != nil {
			logger.Debug("Task skipped: group cancelled",
				zap.String("pool", g.pool.name),
				zap.Error(context.Cause(g.ctx)),
			)
			return
		}
		if err := fn(g.ctx); err != nil {
			g.fail(err)
		}
	})
	if err != nil {
		g.wg.Done()
		g.fail(mapSubmitErr(err))
	}
}

// Wait blocks until every submitted task has returned and reports the first
// task error, or the parent context's error if the group was cancelled from
// outside.
func (g *Group) Wait() error {
	g.wg.Wait()
	if g.ctx.Err() != nil {
		g.fail(context.Cause(g.ctx))
	}
	g.cancel(nil)
	return g.err
}

func (g *Group) fail(err error) {
	g.once.Do(func() {
		g.err = err
		g.cancel(err)
	})
}

func mapSubmitErr(err error) error {
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	return err
}
