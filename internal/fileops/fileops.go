// Package fileops implements the long-running file operations driven by
// background tasks: duplicate scanning, secure deletion, split and join,
// plus hashing and batch renaming.
//
// Every operation works on an afero.Fs and reports human-readable progress
// lines through an optional callback. Operations check their context at
// checkpoints and stop early when it is done; writes already flushed are kept.
package fileops

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
)

// ProgressFunc receives one progress line. A nil ProgressFunc discards lines.
type ProgressFunc func(line string)

func (f ProgressFunc) emit(format string, args ...any) {
	if f != nil {
		f(fmt.Sprintf(format, args...))
	}
}

func statFile(fsys afero.Fs, op, path string) (fs.FileInfo, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.New(failure.NotFound, "file not found").WithPath(op, path)
		}
		return nil, &failure.Error{Kind: failure.Io, Op: op, Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, failure.New(failure.InvalidArgument, "is a directory").WithPath(op, path)
	}
	return info, nil
}

func ioErr(op, path, msg string, err error) error {
	return &failure.Error{Kind: failure.Io, Op: op, Path: path, Msg: msg, Err: err}
}
