package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/infracollect/fileman/internal/config"
	"github.com/infracollect/fileman/internal/fileops"
	"github.com/infracollect/fileman/internal/jobs"
	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

var yesFlag = &cli.BoolFlag{
	Name:    "yes",
	Aliases: []string{"y"},
	Usage:   "Do not ask for confirmation",
}

var duplicatesCommand = &cli.Command{
	Name:  "duplicates",
	Usage: "Find files with identical content",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "recursive",
			Aliases: []string{"r"},
			Usage:   "Scan subdirectories (defaults to tasks.recursive_duplicates)",
		},
		&cli.StringFlag{
			Name:  "pattern",
			Usage: "Only consider files matching this glob, e.g. '**/*.jpg'",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "dir",
			UsageText: "The directory to scan",
			Value:     ".",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		cfg := do.MustInvoke[config.Config](getInjector(ctx))
		recursive := cfg.Tasks.RecursiveDuplicates
		if command.IsSet("recursive") {
			recursive = command.Bool("recursive")
		}

		return runTask(ctx, command, jobs.KindFindDuplicates, jobs.DuplicatesParams{
			Dir:       command.StringArg("dir"),
			Recursive: recursive,
			Pattern:   command.String("pattern"),
		})
	},
}

var secureDeleteCommand = &cli.Command{
	Name:  "secure-delete",
	Usage: "Overwrite a file with random data, then delete it",
	Flags: []cli.Flag{yesFlag},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "file",
			UsageText: "The file to destroy",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		path := command.StringArg("file")
		if path == "" {
			return fmt.Errorf("no file provided")
		}

		root := command.Root()
		if err := confirm(ctx, root.Reader, root.Writer, command.Bool("yes"), "securely delete "+path); err != nil {
			return err
		}

		cfg := do.MustInvoke[config.Config](getInjector(ctx))
		return runTask(ctx, command, jobs.KindSecureDelete, jobs.SecureDeleteParams{
			Path:      path,
			ChunkSize: cfg.Tasks.SecureDeleteChunk,
		})
	},
}

var splitCommand = &cli.Command{
	Name:  "split",
	Usage: "Split a file into numbered chunks (<file>.0, <file>.1, ...)",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "size",
			Usage: "Chunk size in MiB (defaults to tasks.split_chunk_mib)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "file",
			UsageText: "The file to split",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		path := command.StringArg("file")
		if path == "" {
			return fmt.Errorf("no file provided")
		}

		cfg := do.MustInvoke[config.Config](getInjector(ctx))
		chunk := cfg.SplitChunkBytes()
		if command.IsSet("size") {
			chunk = command.Int64("size") << 20
		}

		return runTask(ctx, command, jobs.KindSplit, jobs.SplitParams{Path: path, ChunkSize: chunk})
	},
}

var joinCommand = &cli.Command{
	Name:  "join",
	Usage: "Join <base>.0, <base>.1, ... back into one file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "File to write (defaults to the base path)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "base",
			UsageText: "The split file's original path",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		base := command.StringArg("base")
		if base == "" {
			return fmt.Errorf("no base path provided")
		}
		output := command.String("output")
		if output == "" {
			output = base
		}

		return runTask(ctx, command, jobs.KindJoin, jobs.JoinParams{Base: base, Output: output})
	},
}

var hashCommand = &cli.Command{
	Name:  "hash",
	Usage: "Print the digest of a file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "algorithm",
			Aliases: []string{"a"},
			Value:   fileops.AlgoSHA256,
			Usage:   "sha256 or blake3",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "file",
			UsageText: "The file to hash",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		path := command.StringArg("file")
		if path == "" {
			return fmt.Errorf("no file provided")
		}

		fs := do.MustInvoke[afero.Fs](getInjector(ctx))
		digest, err := fileops.Hash(fs, path, command.String("algorithm"))
		if err != nil {
			return err
		}
		fmt.Fprintf(command.Root().Writer, "%s  %s\n", digest, filepath.Clean(path))
		return nil
	},
}

var renameCommand = &cli.Command{
	Name:      "rename",
	Usage:     "Rename several files at once",
	UsageText: "fileman rename old1:new1,old2:new2",
	Flags:     []cli.Flag{yesFlag},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "pairs",
			UsageText: "Comma separated old:new pairs",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		pairs, err := fileops.ParseRenamePairs(command.StringArg("pairs"))
		if err != nil {
			return err
		}

		root := command.Root()
		question := fmt.Sprintf("rename %d file(s)", len(pairs))
		if err := confirm(ctx, root.Reader, root.Writer, command.Bool("yes"), question); err != nil {
			return err
		}

		fs := do.MustInvoke[afero.Fs](getInjector(ctx))
		errs := fileops.BatchRename(fs, pairs)
		fmt.Fprintf(root.Writer, "Renamed %d of %d file(s)\n", len(pairs)-len(errs), len(pairs))
		return errors.Join(errs...)
	},
}
