// Package task runs one operation on a background goroutine with a FIFO
// progress source and a cooperative cancellation handle.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// CanceledPrefix starts the final line of a task that stopped on request.
const CanceledPrefix = "Canceled"

// Operation is the work a task performs. It must check ctx at its
// checkpoints and return promptly once ctx is done.
type Operation func(ctx context.Context, p Reporter) error

// CancelHandle is the shared cancellation flag of a task.
type CancelHandle struct {
	ctx    context.Context
	cancel context.CancelFunc

	requested atomic.Bool
	released  atomic.Bool
}

func newCancelHandle(parent context.Context) *CancelHandle {
	ctx, cancel := context.WithCancel(parent)
	return &CancelHandle{ctx: ctx, cancel: cancel}
}

// Cancel requests cancellation. It does not wait for the worker.
func (h *CancelHandle) Cancel() {
	h.requested.Store(true)
	h.cancel()
}

// Requested reports whether cancellation has been requested, either through
// Cancel or by the parent context. Releasing a finished task does not count.
func (h *CancelHandle) Requested() bool {
	if h.requested.Load() {
		return true
	}
	return h.ctx.Err() != nil && !h.released.Load()
}

// release frees the context once the worker has returned.
func (h *CancelHandle) release() {
	if h.ctx.Err() != nil {
		h.requested.Store(true)
	}
	h.released.Store(true)
	h.cancel()
}

// Context returns the context observed by the worker.
func (h *CancelHandle) Context() context.Context {
	return h.ctx
}

type Task struct {
	id       string
	kind     string
	progress *Progress
	handle   *CancelHandle

	done chan struct{}
	once sync.Once
	err  error
}

// Start launches op on a new goroutine and returns immediately.
func Start(ctx context.Context, kind string, op Operation) *Task {
	t := &Task{
		id:       uuid.NewString(),
		kind:     kind,
		progress: NewProgress(),
		handle:   newCancelHandle(ctx),
		done:     make(chan struct{}),
	}
	go t.run(op)
	return t
}

func (t *Task) run(op Operation) {
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("panic: %v", r)
			t.progress.Reportf("Error: %v", t.err)
		}
		t.finish()
	}()

	err := op(t.handle.ctx, t.progress)
	t.err = err

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		if !strings.HasPrefix(t.progress.Last(), CanceledPrefix) {
			t.progress.Report(CanceledPrefix)
		}
	default:
		t.progress.Reportf("Error: %v", err)
	}
}

func (t *Task) finish() {
	t.once.Do(func() {
		t.progress.Close()
		t.handle.release()
		close(t.done)
	})
}

func (t *Task) ID() string            { return t.id }
func (t *Task) Kind() string          { return t.kind }
func (t *Task) Progress() *Progress   { return t.progress }
func (t *Task) Handle() *CancelHandle { return t.handle }
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the operation's error once Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Poll drains p without blocking.
func Poll(p *Progress) ([]string, bool) {
	return p.Drain()
}

// Cancel requests cancellation through h.
func Cancel(h *CancelHandle) {
	h.Cancel()
}
