package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/infracollect/fileman/internal/config"
	"github.com/infracollect/fileman/internal/orchestrator"
	"github.com/infracollect/fileman/internal/task"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var errTaskCanceled = errors.New("operation canceled")

// runTask starts kind on the orchestrator and prints its progress lines until
// it finishes. A task that ends on an "Error:" line fails the command.
func runTask(ctx context.Context, command *cli.Command, kind string, params any) error {
	injector := getInjector(ctx)
	logger := getLogger(ctx)
	o := do.MustInvoke[*orchestrator.Orchestrator](injector)
	cfg := do.MustInvoke[config.Config](injector)

	id, err := o.Start(ctx, kind, params)
	if err != nil {
		return err
	}
	logger.Debug("waiting for task", zap.String("task_id", id), zap.String("kind", kind))

	w := command.Root().Writer
	var last string
	o.Wait(ctx, cfg.Tasks.PollInterval, func(lines []string) {
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
		last = lines[len(lines)-1]
	})

	switch {
	case strings.HasPrefix(last, "Error: "):
		return errors.New(strings.TrimPrefix(last, "Error: "))
	case strings.HasPrefix(last, task.CanceledPrefix):
		return errTaskCanceled
	}
	return nil
}
