package fileops

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
	"lukechampine.com/blake3"
)

type DuplicateOptions struct {
	// Recursive walks subdirectories instead of only the top level.
	Recursive bool
	// Pattern is an optional doublestar glob matched against the slash
	// separated path relative to the scanned directory.
	Pattern string
}

// FindDuplicates groups the regular files of dir by BLAKE3 digest and returns
// every group with more than one member. Paths inside a group and the groups
// themselves are sorted.
func FindDuplicates(ctx context.Context, fsys afero.Fs, dir string, opts DuplicateOptions, progress ProgressFunc) ([][]string, error) {
	progress.emit("Scanning directory: %s", dir)
	if ctx.Err() != nil {
		progress.emit("Canceled before scan")
		return nil, fmt.Errorf("duplicate scan canceled: %w", ctx.Err())
	}

	if opts.Pattern != "" && !doublestar.ValidatePattern(opts.Pattern) {
		return nil, failure.New(failure.InvalidArgument, "invalid pattern %q", opts.Pattern).WithPath("duplicates", dir)
	}

	files, err := listFiles(fsys, dir, opts)
	if err != nil {
		return nil, err
	}
	progress.emit("Found %d files, hashing...", len(files))

	byDigest := make(map[string][]string)
	for i, path := range files {
		if ctx.Err() != nil {
			progress.emit("Canceled during hashing")
			return nil, fmt.Errorf("duplicate scan canceled: %w", ctx.Err())
		}

		digest, err := digestFile(fsys, path, blake3.New(32, nil))
		if err != nil {
			progress.emit("Skipped %s: %v", path, err)
		} else {
			byDigest[digest] = append(byDigest[digest], path)
		}
		progress.emit("Hashed %d/%d: %s", i+1, len(files), path)
	}

	var groups [][]string
	for _, paths := range byDigest {
		if len(paths) > 1 {
			slices.Sort(paths)
			groups = append(groups, paths)
		}
	}
	slices.SortFunc(groups, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})

	for _, group := range groups {
		progress.emit("Duplicate group (%d files)", len(group))
		for _, path := range group {
			progress.emit("  %s", path)
		}
	}
	if len(groups) == 0 {
		progress.emit("No duplicates found.")
	} else {
		progress.emit("Found %d duplicate groups", len(groups))
	}
	return groups, nil
}

func listFiles(fsys afero.Fs, dir string, opts DuplicateOptions) ([]string, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.New(failure.NotFound, "directory not found").WithPath("duplicates", dir)
		}
		return nil, &failure.Error{Kind: failure.Io, Op: "duplicates", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, failure.New(failure.InvalidArgument, "not a directory").WithPath("duplicates", dir)
	}

	var files []string
	keep := func(path string, fi os.FileInfo) {
		if !fi.Mode().IsRegular() {
			return
		}
		if opts.Pattern != "" {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return
			}
			if ok, _ := doublestar.Match(opts.Pattern, filepath.ToSlash(rel)); !ok {
				return
			}
		}
		files = append(files, path)
	}

	if !opts.Recursive {
		entries, err := afero.ReadDir(fsys, dir)
		if err != nil {
			return nil, ioErr("duplicates", dir, "failed to read directory", err)
		}
		for _, entry := range entries {
			keep(filepath.Join(dir, entry.Name()), entry)
		}
		return files, nil
	}

	err = afero.Walk(fsys, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return ioErr("duplicates", path, "failed to walk", err)
		}
		keep(path, fi)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func digestFile(fsys afero.Fs, path string, h hash.Hash) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", ioErr("hash", path, "failed to open file", err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", ioErr("hash", path, "failed to read file", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
