package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/infracollect/fileman/internal/archive"
	"github.com/infracollect/fileman/internal/config"
	"github.com/infracollect/fileman/internal/jobs"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
)

var doctorCommand = &cli.Command{
	Name:  "doctor",
	Usage: "Show which archive backend is in use and the effective configuration",
	Action: func(ctx context.Context, command *cli.Command) error {
		injector := getInjector(ctx)
		cfg := do.MustInvoke[config.Config](injector)
		facade := do.MustInvoke[*archive.Facade](injector)
		registry := do.MustInvoke[*jobs.Registry](injector)

		w := command.Root().Writer
		backend := facade.Backend(ctx).Name()
		fmt.Fprintf(w, "archiver program: %s\n", cfg.Archiver.Program)
		fmt.Fprintf(w, "archive backend:  %s\n", backend)
		if backend == archive.BuiltinStrategyName {
			fmt.Fprintln(w, "  built-in formats: zip, tar, tar.gz, tar.zst (no encryption)")
		}
		fmt.Fprintf(w, "task kinds:       %s\n", strings.Join(registry.Available(), ", "))

		publishTarget := "none"
		switch cfg.Publish.Kind {
		case "s3":
			publishTarget = fmt.Sprintf("s3://%s/%s", cfg.Publish.Bucket, cfg.Publish.Prefix)
		case "folder":
			publishTarget = cfg.Publish.Folder
		}
		fmt.Fprintf(w, "publish target:   %s\n", publishTarget)
		return nil
	},
}
