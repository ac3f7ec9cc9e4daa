package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// openTar returns a tar reader over path, decompressing according to format.
// The returned closer releases both the decompressor and the file.
func (s *BuiltinStrategy) openTar(op, path string, format Format) (*tar.Reader, func(), error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, nil, &failure.Error{Kind: failure.Io, Op: op, Path: path, Msg: "failed to open archive", Err: err}
	}

	var r io.Reader = f
	closeFn := func() { f.Close() }

	switch format {
	case FormatTarGz:
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, containerErr(op, path, fmt.Errorf("failed to create gzip reader: %w", err))
		}
		r = gr
		closeFn = func() { gr.Close(); f.Close() }
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, containerErr(op, path, fmt.Errorf("failed to create zstd reader: %w", err))
		}
		r = zr
		closeFn = func() { zr.Close(); f.Close() }
	}

	return tar.NewReader(r), closeFn, nil
}

func (s *BuiltinStrategy) listTar(ctx context.Context, path string, format Format) ([]string, error) {
	tr, closeFn, err := s.openTar("list", path, format)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var names []string
	for {
		if err := canceled(ctx, "list"); err != nil {
			return nil, err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, containerErr("list", path, err)
		}
		names = append(names, header.Name)
	}
	return names, nil
}

func (s *BuiltinStrategy) extractTar(ctx context.Context, path, dest string, format Format) error {
	tr, closeFn, err := s.openTar("extract", path, format)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		if err := canceled(ctx, "extract"); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return containerErr("extract", path, err)
		}

		target, ok := entryTarget(dest, header.Name)
		if !ok {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := s.fs.MkdirAll(target, 0755); err != nil {
				return &failure.Error{Kind: failure.Io, Op: "extract", Path: target, Msg: "failed to create directory", Err: err}
			}
		case tar.TypeReg:
			if err := s.writeFile(target, header.FileInfo().Mode(), tr); err != nil {
				return err
			}
		default:
			s.logger.Debug("skipping tar entry",
				zap.String("name", header.Name),
				zap.String("type", string(header.Typeflag)),
			)
		}
	}
}

func (s *BuiltinStrategy) createTar(ctx context.Context, sources []string, output string, format Format) (err error) {
	f, err := s.fs.Create(output)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: output, Msg: "failed to create tar file", Err: err}
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	var compressor io.WriteCloser
	switch format {
	case FormatTarGz:
		compressor, err = gzip.NewWriterLevel(f, gzip.DefaultCompression)
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
	case FormatTarZst:
		compressor, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
	default:
		compressor = &nopWriteCloser{f}
	}

	tw := tar.NewWriter(compressor)
	for _, src := range sources {
		if err := canceled(ctx, "create"); err != nil {
			return errors.Join(err, tw.Close(), compressor.Close())
		}
		if err := s.addTarSource(ctx, tw, src); err != nil {
			return errors.Join(err, tw.Close(), compressor.Close())
		}
	}

	if err := tw.Close(); err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: output, Msg: "failed to close tar writer", Err: err}
	}
	if err := compressor.Close(); err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: output, Msg: "failed to close compressor", Err: err}
	}
	return nil
}

// addTarSource appends src under its own path. Directories are appended
// recursively.
func (s *BuiltinStrategy) addTarSource(ctx context.Context, tw *tar.Writer, src string) error {
	info, err := s.fs.Stat(src)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: src, Err: err}
	}

	if !info.IsDir() {
		return s.addTarEntry(tw, src, info)
	}

	return walk(s.fs, src, func(p string, fi os.FileInfo) error {
		if err := canceled(ctx, "create"); err != nil {
			return err
		}
		return s.addTarEntry(tw, p, fi)
	})
}

func (s *BuiltinStrategy) addTarEntry(tw *tar.Writer, path string, info os.FileInfo) error {
	name := sanitizeEntryName(filepath.ToSlash(path))
	if name == "" {
		return nil
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		s.logger.Debug("skipping non-regular file", zap.String("path", path))
		return nil
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: path, Err: err}
	}
	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: path, Msg: "failed to write tar header", Err: err}
	}
	if info.IsDir() {
		return nil
	}
	return s.copyInto(tw, path)
}
