package main

import (
	"context"
	"fmt"

	"github.com/infracollect/fileman/internal/archive"
	"github.com/infracollect/fileman/internal/jobs"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
)

var archiveCommand = &cli.Command{
	Name:  "archive",
	Usage: "List, extract and create archives",
	Commands: []*cli.Command{
		archiveListCommand,
		archiveExtractCommand,
		archiveCreateCommand,
	},
}

var archiveListCommand = &cli.Command{
	Name:  "list",
	Usage: "List the entries of an archive",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to list",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		path := command.StringArg("archive")
		if path == "" {
			return fmt.Errorf("no archive provided")
		}

		facade := do.MustInvoke[*archive.Facade](getInjector(ctx))
		listing, err := facade.List(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprint(command.Root().Writer, listing)
		return nil
	},
}

var archiveExtractCommand = &cli.Command{
	Name:  "extract",
	Usage: "Extract an archive into a directory",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   ".",
			Usage:   "Destination directory",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Archive password (external archiver only)",
			Sources: cli.EnvVars("FILEMAN_ARCHIVE_PASSWORD"),
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to extract",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		path := command.StringArg("archive")
		if path == "" {
			return fmt.Errorf("no archive provided")
		}

		return runTask(ctx, command, jobs.KindArchiveExtract, jobs.ExtractParams{
			Path:        path,
			Destination: command.String("output"),
			Password:    command.String("password"),
		})
	},
}

var archiveCreateCommand = &cli.Command{
	Name:  "create",
	Usage: "Create an archive from files and directories",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "Archive to write; its suffix selects the format",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"t"},
			Usage:   "Archive type passed to the external archiver (e.g. 7z, zip)",
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Archive password (external archiver only)",
			Sources: cli.EnvVars("FILEMAN_ARCHIVE_PASSWORD"),
		},
		&cli.BoolFlag{
			Name:  "publish",
			Usage: "Publish the archive to the configured target once created",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArgs{
			Name:      "sources",
			UsageText: "Files and directories to add",
			Min:       1,
			Max:       -1,
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		return runTask(ctx, command, jobs.KindArchiveCreate, jobs.CreateParams{
			Sources:  command.StringArgs("sources"),
			Output:   command.String("output"),
			Format:   command.String("format"),
			Password: command.String("password"),
			Publish:  command.Bool("publish"),
		})
	},
}
