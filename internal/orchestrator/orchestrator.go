// Package orchestrator runs at most one background task at a time on behalf
// of an interactive caller and accumulates its progress log.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/infracollect/fileman/internal/task"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Start while a task is active.
var ErrAlreadyRunning = errors.New("Already running an operation")

// OperationFactory builds the operation for a task kind.
type OperationFactory interface {
	Create(ctx context.Context, kind string, params any) (task.Operation, error)
}

type Orchestrator struct {
	mu      sync.Mutex
	factory OperationFactory
	logger  *zap.Logger

	active *task.Task
	log    []string
	status string
}

func New(factory OperationFactory, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		factory: factory,
		logger:  logger,
		status:  "Idle",
	}
}

// Start launches a task of the given kind and returns its ID. It never
// queues: a second Start while a task is active fails with ErrAlreadyRunning
// and spawns nothing.
func (o *Orchestrator) Start(ctx context.Context, kind string, params any) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		return "", ErrAlreadyRunning
	}

	op, err := o.factory.Create(ctx, kind, params)
	if err != nil {
		return "", fmt.Errorf("failed to create %s task: %w", kind, err)
	}

	t := task.Start(ctx, kind, op)
	o.active = t
	o.status = fmt.Sprintf("Running %s", kind)
	o.logger.Info("task started", zap.String("task_id", t.ID()), zap.String("kind", kind))
	return t.ID(), nil
}

// Poll drains pending progress lines into the log without blocking and
// returns them. idle is true when no task is active, including when this call
// observed the active task finish.
func (o *Orchestrator) Poll() (lines []string, idle bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil {
		return nil, true
	}

	lines, closed := task.Poll(o.active.Progress())
	o.log = append(o.log, lines...)
	if len(lines) > 0 {
		o.status = lines[len(lines)-1]
	}
	if !closed {
		return lines, false
	}

	o.logger.Info("task finished",
		zap.String("task_id", o.active.ID()),
		zap.String("kind", o.active.Kind()),
		zap.Error(o.active.Err()),
	)
	o.active = nil
	return lines, true
}

// Cancel requests cooperative cancellation of the active task. It reports
// whether a task was active.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil {
		return false
	}
	task.Cancel(o.active.Handle())
	o.status = "Cancel requested"
	o.logger.Info("task cancel requested", zap.String("task_id", o.active.ID()))
	return true
}

func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != nil
}

// Log returns a copy of every line polled so far.
func (o *Orchestrator) Log() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.log...)
}

// Status returns a one-line summary: the last progress line, or the state.
func (o *Orchestrator) Status() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Wait polls every interval until the orchestrator is idle, handing each
// batch of new lines to onLines. If ctx is done first, the active task is
// canceled and Wait keeps polling until the worker has returned.
func (o *Orchestrator) Wait(ctx context.Context, interval time.Duration, onLines func([]string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := ctx.Done()
	for {
		lines, idle := o.Poll()
		if len(lines) > 0 && onLines != nil {
			onLines(lines)
		}
		if idle {
			return
		}

		select {
		case <-done:
			o.Cancel()
			done = nil
		case <-ticker.C:
		}
	}
}
