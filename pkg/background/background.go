// Package background runs detached work spawned by request handlers.
//
// Handlers acknowledge inbound webhooks immediately and hand the slow
// part (orchestration, delivery) to a Runner so the HTTP response never
// waits on it.
package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/logger"
)

// ErrClosed is returned when spawning on a closed group.
var ErrClosed = errors.New("task group closed")

// Runner spawns named detached tasks.
type Runner interface {
	Go(name string, fn func(ctx context.Context)) error
}

// TaskGroup is the production Runner. It tracks in-flight tasks so
// shutdown can wait for them, and recovers panics so a bad task never
// takes the process down.
type TaskGroup struct {
	wg     sync.WaitGroup
	done   chan struct{}
	closed atomic.Bool
}

func NewTaskGroup() *TaskGroup {
	return &TaskGroup{done: make(chan struct{})}
}

func (g *TaskGroup) Go(name string, fn func(ctx context.Context)) error {
	if g.closed.Load() {
		return ErrClosed
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorCF("background", "Task panicked", map[string]any{
					"task":  name,
					"panic": fmt.Sprintf("%v", r),
				})
			}
		}()
		fn(context.Background())
	}()
	return nil
}

// Close stops new tasks and waits up to timeout for in-flight ones.
func (g *TaskGroup) Close(timeout time.Duration) error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(g.done)

	finished := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("tasks still running after %s", timeout)
	}
}

// Synchronous runs tasks inline. Intended for tests that need task
// effects to be visible as soon as the handler returns.
type Synchronous struct{}

func (Synchronous) Go(name string, fn func(ctx context.Context)) error {
	fn(context.Background())
	return nil
}
