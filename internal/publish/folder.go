package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
)

// FolderPublisher copies archives into a directory.
type FolderPublisher struct {
	src  afero.Fs
	dest afero.Fs
	dir  string
}

// NewFolderPublisher publishes from src into dir on the same filesystem. The
// directory is created if needed.
func NewFolderPublisher(src afero.Fs, dir string) (*FolderPublisher, error) {
	clean := filepath.Clean(dir)
	if err := src.MkdirAll(clean, 0755); err != nil {
		return nil, fmt.Errorf("failed to create publish directory %s: %w", clean, err)
	}

	return &FolderPublisher{
		src:  src,
		dest: afero.NewBasePathFs(src, clean),
		dir:  clean,
	}, nil
}

func (p *FolderPublisher) Name() string {
	return fmt.Sprintf("folder(%s)", p.dir)
}

func (p *FolderPublisher) Publish(ctx context.Context, localPath string) (_ string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	in, err := p.src.Open(localPath)
	if err != nil {
		return "", &failure.Error{Kind: failure.Io, Op: "publish", Path: localPath, Msg: "failed to open archive", Err: err}
	}
	defer in.Close()

	name := filepath.Base(localPath)
	out, err := p.dest.Create(name)
	if err != nil {
		return "", &failure.Error{Kind: failure.Io, Op: "publish", Path: name, Msg: "failed to create file", Err: err}
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	if _, err = io.Copy(out, in); err != nil {
		return "", &failure.Error{Kind: failure.Io, Op: "publish", Path: name, Msg: "failed to copy archive", Err: err}
	}
	return filepath.Join(p.dir, name), nil
}
