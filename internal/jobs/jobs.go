// Package jobs adapts archive and file operations to background tasks. Each
// kind is registered under a name and turns validated parameters into a
// task.Operation that forwards progress lines.
package jobs

import (
	"context"
	"errors"

	"github.com/infracollect/fileman/internal/fileops"
	"github.com/infracollect/fileman/internal/task"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	KindArchiveExtract = "archive_extract"
	KindArchiveCreate  = "archive_create"
	KindFindDuplicates = "find_duplicates"
	KindSecureDelete   = "secure_delete"
	KindSplit          = "split"
	KindJoin           = "join"
)

// Archiver is the archive facade as seen by the adapters.
type Archiver interface {
	Extract(ctx context.Context, path, dest, password string) (string, error)
	Create(ctx context.Context, sources []string, output, format, password string) (string, error)
}

// Publisher ships a created archive somewhere and returns its location.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Deps are the services the adapters run against. Publisher is optional.
type Deps struct {
	Archiver  Archiver
	Fs        afero.Fs
	Publisher Publisher
}

type ExtractParams struct {
	Path        string `validate:"required"`
	Destination string `validate:"required"`
	Password    string
}

type CreateParams struct {
	Sources  []string `validate:"required,min=1,dive,required"`
	Output   string   `validate:"required"`
	Format   string
	Password string
	// Publish ships the archive through the configured publisher, if any.
	Publish bool
}

type DuplicatesParams struct {
	Dir       string `validate:"required"`
	Recursive bool
	Pattern   string
}

type SecureDeleteParams struct {
	Path      string `validate:"required"`
	ChunkSize int    `validate:"gte=0"`
}

type SplitParams struct {
	Path      string `validate:"required"`
	ChunkSize int64  `validate:"gt=0"`
}

type JoinParams struct {
	Base   string `validate:"required"`
	Output string `validate:"required"`
}

// NewDefaultRegistry returns a registry with every kind registered.
func NewDefaultRegistry(logger *zap.Logger, deps Deps) *Registry {
	r := NewRegistry(logger)
	Register(r, deps)
	return r
}

// Register adds every kind to r.
func Register(r *Registry, deps Deps) {
	r.Register(KindArchiveExtract, NewFactory(KindArchiveExtract, extractFactory(deps)))
	r.Register(KindArchiveCreate, NewFactory(KindArchiveCreate, createFactory(deps)))
	r.Register(KindFindDuplicates, NewFactory(KindFindDuplicates, duplicatesFactory(deps)))
	r.Register(KindSecureDelete, NewFactory(KindSecureDelete, secureDeleteFactory(deps)))
	r.Register(KindSplit, NewFactory(KindSplit, splitFactory(deps)))
	r.Register(KindJoin, NewFactory(KindJoin, joinFactory(deps)))
}

func extractFactory(deps Deps) TypedFactory[ExtractParams] {
	return func(_ context.Context, logger *zap.Logger, params ExtractParams) (task.Operation, error) {
		return func(ctx context.Context, p task.Reporter) error {
			p.Reportf("Starting extract: %s -> %s", params.Path, params.Destination)
			if err := canceledBeforeStart(ctx, p); err != nil {
				return err
			}

			msg, err := deps.Archiver.Extract(ctx, params.Path, params.Destination, params.Password)
			if err != nil {
				return reportCanceled(err, p, "Canceled during extract")
			}
			logger.Debug("extract finished", zap.String("archive", params.Path))
			p.Reportf("Finished: %s", msg)
			return nil
		}, nil
	}
}

func createFactory(deps Deps) TypedFactory[CreateParams] {
	return func(_ context.Context, logger *zap.Logger, params CreateParams) (task.Operation, error) {
		return func(ctx context.Context, p task.Reporter) error {
			p.Reportf("Starting archive create -> %s", params.Output)
			if err := canceledBeforeStart(ctx, p); err != nil {
				return err
			}

			msg, err := deps.Archiver.Create(ctx, params.Sources, params.Output, params.Format, params.Password)
			if err != nil {
				return reportCanceled(err, p, "Canceled during create")
			}
			p.Reportf("Finished: %s", msg)

			if !params.Publish {
				return nil
			}
			if deps.Publisher == nil {
				logger.Warn("publish requested but no publisher is configured", zap.String("archive", params.Output))
				return nil
			}
			if ctx.Err() != nil {
				p.Report("Canceled before publish")
				return ctx.Err()
			}

			p.Reportf("Publishing %s", params.Output)
			location, err := deps.Publisher.Publish(ctx, params.Output)
			if err != nil {
				return reportCanceled(err, p, "Canceled during publish")
			}
			p.Reportf("Published: %s", location)
			return nil
		}, nil
	}
}

func duplicatesFactory(deps Deps) TypedFactory[DuplicatesParams] {
	return func(_ context.Context, _ *zap.Logger, params DuplicatesParams) (task.Operation, error) {
		opts := fileops.DuplicateOptions{Recursive: params.Recursive, Pattern: params.Pattern}
		return func(ctx context.Context, p task.Reporter) error {
			_, err := fileops.FindDuplicates(ctx, deps.Fs, params.Dir, opts, task.Func(p))
			return err
		}, nil
	}
}

func secureDeleteFactory(deps Deps) TypedFactory[SecureDeleteParams] {
	return func(_ context.Context, _ *zap.Logger, params SecureDeleteParams) (task.Operation, error) {
		return func(ctx context.Context, p task.Reporter) error {
			p.Reportf("Secure deleting: %s", params.Path)
			if err := canceledBeforeStart(ctx, p); err != nil {
				return err
			}
			return fileops.SecureDelete(ctx, deps.Fs, params.Path, params.ChunkSize, task.Func(p))
		}, nil
	}
}

func splitFactory(deps Deps) TypedFactory[SplitParams] {
	return func(_ context.Context, _ *zap.Logger, params SplitParams) (task.Operation, error) {
		return func(ctx context.Context, p task.Reporter) error {
			if err := canceledBeforeStart(ctx, p); err != nil {
				return err
			}
			_, err := fileops.Split(ctx, deps.Fs, params.Path, params.ChunkSize, task.Func(p))
			return err
		}, nil
	}
}

func joinFactory(deps Deps) TypedFactory[JoinParams] {
	return func(_ context.Context, _ *zap.Logger, params JoinParams) (task.Operation, error) {
		return func(ctx context.Context, p task.Reporter) error {
			if err := canceledBeforeStart(ctx, p); err != nil {
				return err
			}
			_, err := fileops.Join(ctx, deps.Fs, params.Base, params.Output, task.Func(p))
			return err
		}, nil
	}
}

func canceledBeforeStart(ctx context.Context, p task.Reporter) error {
	if err := ctx.Err(); err != nil {
		p.Report("Canceled before start")
		return err
	}
	return nil
}

// reportCanceled emits line when err is a cancellation and returns err.
func reportCanceled(err error, p task.Reporter, line string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		p.Report(line)
	}
	return err
}
