package publish

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const defaultS3Timeout = 10 * time.Minute

// S3Uploader is an interface for uploading objects to S3.
// This allows for easy mocking in tests.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	Timeout         time.Duration
}

// S3Publisher uploads archives to S3-compatible object storage.
type S3Publisher struct {
	bucket   string
	prefix   string
	uploader S3Uploader
	fs       afero.Fs
	logger   *zap.Logger
}

func NewS3Publisher(ctx context.Context, cfg S3Config, fs afero.Fs, logger *zap.Logger) (*S3Publisher, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultS3Timeout
	}

	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(&http.Client{
			Transport: cleanhttp.DefaultPooledTransport(),
			Timeout:   timeout,
		}),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// S3-compatible services (R2, MinIO, ...)
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewS3PublisherWithUploader(cfg.Bucket, cfg.Prefix, manager.NewUploader(client), fs, logger), nil
}

// NewS3PublisherWithUploader creates a publisher around a custom uploader.
func NewS3PublisherWithUploader(bucket, prefix string, uploader S3Uploader, fs afero.Fs, logger *zap.Logger) *S3Publisher {
	return &S3Publisher{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		uploader: uploader,
		fs:       fs,
		logger:   logger,
	}
}

func (p *S3Publisher) Name() string {
	if p.prefix != "" {
		return fmt.Sprintf("s3(%s/%s)", p.bucket, p.prefix)
	}
	return fmt.Sprintf("s3(%s)", p.bucket)
}

// Publish uploads the file at localPath under the prefix, keyed by its base
// name, and returns its s3:// URL.
func (p *S3Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := p.fs.Open(localPath)
	if err != nil {
		return "", &failure.Error{Kind: failure.Io, Op: "publish", Path: localPath, Msg: "failed to open archive", Err: err}
	}
	defer f.Close()

	key := filepath.Base(localPath)
	if p.prefix != "" {
		key = path.Join(p.prefix, key)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType := contentTypeFromPath(localPath); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	start := time.Now()
	if _, err := p.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to s3://%s/%s: %w", p.bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", p.bucket, key)
	p.logger.Debug("uploaded archive", zap.String("location", location), zap.Duration("duration", time.Since(start)))
	return location, nil
}

// contentTypeFromPath returns the Content-Type based on the archive suffix.
func contentTypeFromPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".zip":
		return "application/zip"
	case ".tar":
		return "application/x-tar"
	case ".gz", ".tgz":
		return "application/gzip"
	case ".zst", ".tzst":
		return "application/zstd"
	case ".7z":
		return "application/x-7z-compressed"
	default:
		return ""
	}
}
