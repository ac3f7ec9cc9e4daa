package fileops

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// DefaultOverwriteChunk is the secure-delete write size.
const DefaultOverwriteChunk = 1 << 20

// SecureDelete overwrites path with random bytes in chunkSize pieces, syncs
// it, then removes it. A cancellation observed between chunks stops the
// overwrite and leaves the file in place, partially overwritten.
func SecureDelete(ctx context.Context, fsys afero.Fs, path string, chunkSize int, progress ProgressFunc) error {
	info, err := statFile(fsys, "secure-delete", path)
	if err != nil {
		return err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultOverwriteChunk
	}

	f, err := fsys.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return ioErr("secure-delete", path, "failed to open file", err)
	}

	if err := overwrite(ctx, f, info.Size(), chunkSize, progress); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return ioErr("secure-delete", path, "failed to sync file", err)
	}
	if err := f.Close(); err != nil {
		return ioErr("secure-delete", path, "failed to close file", err)
	}

	if err := fsys.Remove(path); err != nil {
		return ioErr("secure-delete", path, "failed to delete file", err)
	}
	progress.emit("Secure delete complete")
	return nil
}

func overwrite(ctx context.Context, w io.Writer, size int64, chunkSize int, progress ProgressFunc) error {
	buf := make([]byte, min(int64(chunkSize), max(size, 1)))

	var written int64
	for written < size {
		if ctx.Err() != nil {
			progress.emit("Canceled during overwrite")
			return fmt.Errorf("secure delete canceled: %w", ctx.Err())
		}

		n := min(int64(len(buf)), size-written)
		if _, err := rand.Read(buf[:n]); err != nil {
			return fmt.Errorf("failed to generate random data: %w", err)
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return ioErr("secure-delete", "", "failed to overwrite", err)
		}

		written += n
		progress.emit("Overwrite progress: %.1f%%", float64(written)/float64(size)*100)
	}
	return nil
}
