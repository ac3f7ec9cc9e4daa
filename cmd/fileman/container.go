package main

import (
	"context"
	"fmt"

	"github.com/infracollect/fileman/internal/archive"
	"github.com/infracollect/fileman/internal/config"
	"github.com/infracollect/fileman/internal/jobs"
	"github.com/infracollect/fileman/internal/orchestrator"
	"github.com/infracollect/fileman/internal/publish"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// BuildContainer creates a new DI container with all dependencies registered.
// Dependencies are lazily initialized when first requested.
func BuildContainer(ctx context.Context, logger *zap.Logger, fs afero.Fs, cfg config.Config) *do.RootScope {
	injector := do.New()

	// Eager: already built by the command's Before hook.
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, fs)
	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i do.Injector) (*archive.Facade, error) {
		cfg := do.MustInvoke[config.Config](i)
		log := do.MustInvoke[*zap.Logger](i).Named("archive")

		var opts []archive.FacadeOption
		switch {
		case cfg.Archiver.ForceBuiltin:
			opts = append(opts, archive.WithProber(archive.Never))
		case len(cfg.Archiver.ProbeArgs) > 0:
			opts = append(opts, archive.WithProber(&archive.ToolProbe{
				Program: cfg.Archiver.Program,
				Args:    cfg.Archiver.ProbeArgs,
			}))
		}
		return archive.NewFacade(do.MustInvoke[afero.Fs](i), cfg.Archiver.Program, log, opts...), nil
	})

	// Only resolved when a publish target is configured.
	do.Provide(injector, func(i do.Injector) (jobs.Publisher, error) {
		cfg := do.MustInvoke[config.Config](i)
		log := do.MustInvoke[*zap.Logger](i).Named("publish")

		p, err := publish.New(ctx, cfg.PublishTarget(), do.MustInvoke[afero.Fs](i), log)
		if err != nil {
			return nil, fmt.Errorf("failed to build publisher: %w", err)
		}
		if p == nil {
			return nil, nil
		}
		return p, nil
	})

	do.Provide(injector, func(i do.Injector) (*jobs.Registry, error) {
		deps := jobs.Deps{
			Archiver: do.MustInvoke[*archive.Facade](i),
			Fs:       do.MustInvoke[afero.Fs](i),
		}
		if cfg := do.MustInvoke[config.Config](i); cfg.Publish.Kind != "" {
			p, err := do.Invoke[jobs.Publisher](i)
			if err != nil {
				return nil, err
			}
			deps.Publisher = p
		}
		return jobs.NewDefaultRegistry(do.MustInvoke[*zap.Logger](i).Named("jobs"), deps), nil
	})

	do.Provide(injector, func(i do.Injector) (*orchestrator.Orchestrator, error) {
		registry := do.MustInvoke[*jobs.Registry](i)
		return orchestrator.New(registry, do.MustInvoke[*zap.Logger](i).Named("orchestrator")), nil
	})

	return injector
}
