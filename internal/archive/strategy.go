// Package archive lists, extracts and creates archives through either an
// external 7-Zip compatible tool or a built-in zip/tar implementation.
package archive

import (
	"context"
	"errors"
	"io/fs"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
)

// Request carries the arguments of a single archive operation.
type Request struct {
	// Path is the archive to read (list, extract).
	Path string
	// Destination is the extraction directory or the archive to write (create).
	Destination string
	// Sources are the files and directories to add, in order (create).
	Sources []string
	// Format is an optional archive type hint passed to the external tool.
	Format string
	// Password is optional; see each strategy for how it is honored.
	Password string
}

// Strategy is one way of performing the three archive operations.
type Strategy interface {
	Name() string
	List(ctx context.Context, path string) (string, error)
	Extract(ctx context.Context, req Request) (string, error)
	Create(ctx context.Context, req Request) (string, error)
}

// checkedStrategy is implemented by strategies that can skip the existence
// check when the facade has already done it.
type checkedStrategy interface {
	list(ctx context.Context, path string) (string, error)
	extract(ctx context.Context, req Request) (string, error)
}

func requireExists(fsys afero.Fs, op, path string) error {
	if _, err := fsys.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failure.New(failure.NotFound, "archive not found").WithPath(op, path)
		}
		return &failure.Error{Kind: failure.Io, Op: op, Path: path, Err: err}
	}
	return nil
}

func requireSources(op string, sources []string) error {
	if len(sources) == 0 {
		return failure.New(failure.InvalidArgument, "no sources provided").WithPath(op, "")
	}
	return nil
}
