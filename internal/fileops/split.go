package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
)

// PartPath returns the name of chunk i of base: "<base>.<i>", decimal and
// unpadded, counting from 0.
func PartPath(base string, i int) string {
	return fmt.Sprintf("%s.%d", base, i)
}

// Split copies path into consecutive chunks of chunkSize bytes named by
// PartPath and returns the number of chunks written. An empty file yields no
// chunks.
func Split(ctx context.Context, fsys afero.Fs, path string, chunkSize int64, progress ProgressFunc) (int, error) {
	if chunkSize <= 0 {
		return 0, failure.New(failure.InvalidArgument, "chunk size must be positive, got %d", chunkSize).WithPath("split", path)
	}
	info, err := statFile(fsys, "split", path)
	if err != nil {
		return 0, err
	}

	src, err := fsys.Open(path)
	if err != nil {
		return 0, ioErr("split", path, "failed to open file", err)
	}
	defer src.Close()

	total := int((info.Size() + chunkSize - 1) / chunkSize)
	progress.emit("Splitting %s into %d chunks of %d bytes", path, total, chunkSize)

	for i := range total {
		if ctx.Err() != nil {
			progress.emit("Canceled during split after %d chunks", i)
			return i, fmt.Errorf("split canceled: %w", ctx.Err())
		}

		part := PartPath(path, i)
		n, err := writePart(fsys, part, io.LimitReader(src, chunkSize))
		if err != nil {
			return i, err
		}
		progress.emit("Created: %s (%d bytes)", part, n)
	}

	progress.emit("Split complete: %d chunks", total)
	return total, nil
}

func writePart(fsys afero.Fs, part string, r io.Reader) (n int64, err error) {
	f, err := fsys.Create(part)
	if err != nil {
		return 0, ioErr("split", part, "failed to create chunk", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioErr("split", part, "failed to close chunk", cerr)
		}
	}()

	n, err = io.Copy(f, r)
	if err != nil {
		return n, ioErr("split", part, "failed to write chunk", err)
	}
	return n, nil
}

// Join concatenates <base>.0, <base>.1, ... into output, stopping at the
// first missing part, and returns the number of parts joined. A missing
// later part ends the join successfully, but a missing part 0 is NotFound
// rather than an empty join, and no output file is created.
func Join(ctx context.Context, fsys afero.Fs, base, output string, progress ProgressFunc) (n int, err error) {
	if _, err := fsys.Stat(PartPath(base, 0)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, failure.New(failure.NotFound, "no parts found").WithPath("join", PartPath(base, 0))
		}
		return 0, ioErr("join", PartPath(base, 0), "", err)
	}

	out, err := fsys.Create(output)
	if err != nil {
		return 0, ioErr("join", output, "failed to create output", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = ioErr("join", output, "failed to close output", cerr)
		}
	}()

	progress.emit("Joining %s.* into %s", base, output)
	for i := 0; ; i++ {
		if ctx.Err() != nil {
			progress.emit("Canceled during join after %d parts", i)
			return i, fmt.Errorf("join canceled: %w", ctx.Err())
		}

		part := PartPath(base, i)
		f, err := fsys.Open(part)
		if errors.Is(err, fs.ErrNotExist) {
			progress.emit("Joined %d parts into: %s", i, output)
			return i, nil
		}
		if err != nil {
			return i, ioErr("join", part, "failed to open part", err)
		}

		_, err = io.Copy(out, f)
		f.Close()
		if err != nil {
			return i, ioErr("join", part, "failed to append part", err)
		}
		progress.emit("Appended: %s", part)
	}
}
