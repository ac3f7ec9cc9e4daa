// Package publish ships created archives to a destination outside the
// working tree: an S3-compatible bucket or a local folder.
package publish

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	KindS3     = "s3"
	KindFolder = "folder"
)

type Publisher interface {
	Name() string
	Publish(ctx context.Context, localPath string) (location string, err error)
}

type Config struct {
	Kind   string
	S3     S3Config
	Folder string
}

// New builds the publisher selected by cfg.Kind. An empty kind yields nil.
func New(ctx context.Context, cfg Config, fs afero.Fs, logger *zap.Logger) (Publisher, error) {
	switch cfg.Kind {
	case "":
		return nil, nil
	case KindS3:
		p, err := NewS3Publisher(ctx, cfg.S3, fs, logger.Named(KindS3))
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindFolder:
		p, err := NewFolderPublisher(fs, cfg.Folder)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported publish kind %q", cfg.Kind)
	}
}
