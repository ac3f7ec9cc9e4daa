package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	BuiltinStrategyName = "builtin"

	extractCompleteMsg = "Extraction complete"
	createCompleteMsg  = "Archive created"
)

// BuiltinStrategy implements zip and tar (plain, gzip, zstd) natively.
//
// Encryption is not supported: Create refuses a password rather than writing
// a plaintext archive the caller believes is protected, and Extract ignores a
// password but refuses encrypted zip entries.
type BuiltinStrategy struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewBuiltinStrategy(fs afero.Fs, logger *zap.Logger) *BuiltinStrategy {
	return &BuiltinStrategy{fs: fs, logger: logger}
}

func (s *BuiltinStrategy) Name() string {
	return BuiltinStrategyName
}

func (s *BuiltinStrategy) List(ctx context.Context, path string) (string, error) {
	if err := requireExists(s.fs, "list", path); err != nil {
		return "", err
	}
	return s.list(ctx, path)
}

func (s *BuiltinStrategy) list(ctx context.Context, path string) (string, error) {
	var (
		names []string
		err   error
	)
	switch format := DetectFormat(path); {
	case format == FormatZip:
		names, err = s.listZip(ctx, path)
	case format.IsTar():
		names, err = s.listTar(ctx, path, format)
	default:
		return "", unsupported("list", path)
	}
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func (s *BuiltinStrategy) Extract(ctx context.Context, req Request) (string, error) {
	if err := requireExists(s.fs, "extract", req.Path); err != nil {
		return "", err
	}
	return s.extract(ctx, req)
}

func (s *BuiltinStrategy) extract(ctx context.Context, req Request) (string, error) {
	if req.Password != "" {
		s.logger.Warn("password ignored by built-in extractor", zap.String("archive", req.Path))
	}

	if err := s.fs.MkdirAll(req.Destination, 0755); err != nil {
		return "", &failure.Error{Kind: failure.Io, Op: "extract", Path: req.Destination, Msg: "failed to create destination", Err: err}
	}

	var err error
	switch format := DetectFormat(req.Path); {
	case format == FormatZip:
		err = s.extractZip(ctx, req.Path, req.Destination)
	case format.IsTar():
		err = s.extractTar(ctx, req.Path, req.Destination, format)
	default:
		return "", unsupported("extract", req.Path)
	}
	if err != nil {
		return "", err
	}
	return extractCompleteMsg, nil
}

func (s *BuiltinStrategy) Create(ctx context.Context, req Request) (string, error) {
	if err := requireSources("create", req.Sources); err != nil {
		return "", err
	}
	if req.Password != "" {
		return "", failure.New(failure.Unsupported, "password-protected archives require the external archiver").WithPath("create", req.Destination)
	}

	format := DetectFormat(req.Destination)
	if format == FormatUnknown {
		return "", unsupported("create", req.Destination)
	}

	for _, src := range req.Sources {
		if _, err := s.fs.Stat(src); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", failure.New(failure.NotFound, "source not found").WithPath("create", src)
			}
			return "", &failure.Error{Kind: failure.Io, Op: "create", Path: src, Err: err}
		}
	}

	if err := s.createParent(req.Destination); err != nil {
		return "", err
	}

	var err error
	if format == FormatZip {
		err = s.createZip(ctx, req.Sources, req.Destination)
	} else {
		err = s.createTar(ctx, req.Sources, req.Destination, format)
	}
	if err != nil {
		return "", err
	}
	return createCompleteMsg, nil
}

func (s *BuiltinStrategy) createParent(output string) error {
	dir := filepath.Dir(output)
	if dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return &failure.Error{Kind: failure.Io, Op: "create", Path: dir, Msg: "failed to create parent directory", Err: err}
		}
	}
	return nil
}

// writeFile copies an archive entry to target, creating parent directories.
func (s *BuiltinStrategy) writeFile(target string, mode fs.FileMode, r io.Reader) (err error) {
	if err := s.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return &failure.Error{Kind: failure.Io, Op: "extract", Path: target, Msg: "failed to create parent directory", Err: err}
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}

	f, err := s.fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "extract", Path: target, Msg: "failed to create file", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &failure.Error{Kind: failure.Io, Op: "extract", Path: target, Err: cerr}
		}
	}()

	tr := &trackingReader{r: r}
	if _, err := io.Copy(f, tr); err != nil {
		if tr.err != nil {
			return &failure.Error{Kind: failure.ContainerFormat, Op: "extract", Path: target, Msg: "failed to read entry", Err: err}
		}
		return &failure.Error{Kind: failure.Io, Op: "extract", Path: target, Msg: "failed to write file", Err: err}
	}
	return nil
}

// copyInto appends the file at path to w.
func (s *BuiltinStrategy) copyInto(w io.Writer, path string) error {
	f, err := s.fs.Open(path)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: path, Msg: "failed to open source", Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: path, Msg: "failed to write entry", Err: err}
	}
	return nil
}

// entryTarget maps an archive entry name to a path under dest. Root, "." and
// ".." segments are dropped, so the result never leaves dest. ok is false when
// nothing remains of the name.
func entryTarget(dest, name string) (target string, ok bool) {
	clean := sanitizeEntryName(name)
	if clean == "" {
		return "", false
	}

	target = filepath.Join(dest, filepath.FromSlash(clean))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

func sanitizeEntryName(name string) string {
	parts := strings.Split(strings.ReplaceAll(name, "\\", "/"), "/")
	kept := parts[:0]
	for _, p := range parts {
		switch p {
		case "", ".", "..":
			continue
		}
		kept = append(kept, p)
	}
	return path.Join(kept...)
}

func walk(fsys afero.Fs, root string, fn func(path string, info os.FileInfo) error) error {
	return afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return &failure.Error{Kind: failure.Io, Op: "walk", Path: p, Err: err}
		}
		return fn(p, info)
	})
}

func unsupported(op, path string) error {
	return failure.New(failure.Unsupported, "unsupported archive format").WithPath(op, path)
}

func containerErr(op, path string, err error) error {
	return &failure.Error{Kind: failure.ContainerFormat, Op: op, Path: path, Err: err}
}

func canceled(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s canceled: %w", op, err)
	}
	return nil
}

// trackingReader remembers the last non-EOF read error so copy failures can be
// attributed to the archive rather than the destination.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

// nopWriteCloser wraps a Writer to provide a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (n *nopWriteCloser) Close() error {
	return nil
}
