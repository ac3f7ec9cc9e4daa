package archive

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/klauspost/compress/flate"
	"github.com/spf13/afero"
)

// zip flag bit 0 marks an encrypted entry.
const zipFlagEncrypted = 0x1

func (s *BuiltinStrategy) openZip(op, path string) (*zip.Reader, afero.File, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, nil, &failure.Error{Kind: failure.Io, Op: op, Path: path, Msg: "failed to open archive", Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, &failure.Error{Kind: failure.Io, Op: op, Path: path, Err: err}
	}

	// Insecure names are sanitized per entry, so the reader is still usable.
	zr, err := zip.NewReader(f, info.Size())
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		f.Close()
		return nil, nil, containerErr(op, path, err)
	}
	return zr, f, nil
}

func (s *BuiltinStrategy) listZip(ctx context.Context, path string) ([]string, error) {
	zr, f, err := s.openZip("list", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := make([]string, 0, len(zr.File))
	for _, entry := range zr.File {
		if err := canceled(ctx, "list"); err != nil {
			return nil, err
		}
		names = append(names, entry.Name)
	}
	return names, nil
}

func (s *BuiltinStrategy) extractZip(ctx context.Context, path, dest string) error {
	zr, f, err := s.openZip("extract", path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, entry := range zr.File {
		if err := canceled(ctx, "extract"); err != nil {
			return err
		}

		target, ok := entryTarget(dest, entry.Name)
		if !ok {
			s.logger.Debug("skipping zip entry with empty name after sanitizing")
			continue
		}

		if strings.HasSuffix(entry.Name, "/") {
			if err := s.fs.MkdirAll(target, 0755); err != nil {
				return &failure.Error{Kind: failure.Io, Op: "extract", Path: target, Msg: "failed to create directory", Err: err}
			}
			continue
		}

		if entry.Flags&zipFlagEncrypted != 0 {
			return failure.New(failure.Unsupported, "encrypted entry %q requires the external archiver", entry.Name).WithPath("extract", path)
		}

		if err := s.extractZipEntry(entry, target); err != nil {
			return err
		}
	}
	return nil
}

func (s *BuiltinStrategy) extractZipEntry(entry *zip.File, target string) error {
	rc, err := entry.Open()
	if err != nil {
		return containerErr("extract", entry.Name, err)
	}
	defer rc.Close()

	return s.writeFile(target, entry.Mode(), rc)
}

func (s *BuiltinStrategy) createZip(ctx context.Context, sources []string, output string) (err error) {
	f, err := s.fs.Create(output)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: output, Msg: "failed to create zip file", Err: err}
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for _, src := range sources {
		if err := canceled(ctx, "create"); err != nil {
			zw.Close()
			return err
		}
		if err := s.addZipSource(ctx, zw, src); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: output, Msg: "failed to finalize zip", Err: err}
	}
	return nil
}

// addZipSource adds a file under its base name, or every file below a
// directory under its path relative to that directory.
func (s *BuiltinStrategy) addZipSource(ctx context.Context, zw *zip.Writer, src string) error {
	info, err := s.fs.Stat(src)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: src, Err: err}
	}

	if !info.IsDir() {
		return s.addZipFile(zw, src, filepath.Base(src), info)
	}

	return walk(s.fs, src, func(p string, fi os.FileInfo) error {
		if !fi.Mode().IsRegular() {
			return nil
		}
		if err := canceled(ctx, "create"); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return &failure.Error{Kind: failure.Io, Op: "create", Path: p, Err: err}
		}
		return s.addZipFile(zw, p, filepath.ToSlash(rel), fi)
	})
}

func (s *BuiltinStrategy) addZipFile(zw *zip.Writer, path, name string, info os.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: path, Err: err}
	}
	header.Name = name
	header.Method = zip.Deflate

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return &failure.Error{Kind: failure.Io, Op: "create", Path: path, Msg: "failed to create zip entry " + name, Err: err}
	}
	return s.copyInto(entry, path)
}
