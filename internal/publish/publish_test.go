package publish

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockUploader struct {
	uploads []mockUpload
	err     error
}

type mockUpload struct {
	bucket      string
	key         string
	body        []byte
	contentType string
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, _ := io.ReadAll(input.Body)
	upload := mockUpload{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	}
	if input.ContentType != nil {
		upload.contentType = *input.ContentType
	}
	m.uploads = append(m.uploads, upload)
	return &manager.UploadOutput{}, nil
}

func TestS3Publisher_Name(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		expected string
	}{
		{name: "bucket only", expected: "s3(my-bucket)"},
		{name: "bucket with prefix", prefix: "/backups/daily/", expected: "s3(my-bucket/backups/daily)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewS3PublisherWithUploader("my-bucket", tt.prefix, &mockUploader{}, afero.NewMemMapFs(), zap.NewNop())
			assert.Equal(t, tt.expected, p.Name())
		})
	}
}

func TestS3Publisher_Publish(t *testing.T) {
	tests := []struct {
		name                string
		prefix              string
		path                string
		expectedKey         string
		expectedContentType string
	}{
		{
			name:                "zip without prefix",
			path:                "/work/site.zip",
			expectedKey:         "site.zip",
			expectedContentType: "application/zip",
		},
		{
			name:                "tar.gz with prefix",
			prefix:              "backups",
			path:                "/work/site.tar.gz",
			expectedKey:         "backups/site.tar.gz",
			expectedContentType: "application/gzip",
		},
		{
			name:                "tar.zst",
			path:                "/work/site.tar.zst",
			expectedKey:         "site.tar.zst",
			expectedContentType: "application/zstd",
		},
		{
			name:        "unknown extension",
			path:        "/work/site.bin",
			expectedKey: "site.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, tt.path, []byte("archive bytes"), 0644))

			uploader := &mockUploader{}
			p := NewS3PublisherWithUploader("bucket", tt.prefix, uploader, fsys, zap.NewNop())

			location, err := p.Publish(t.Context(), tt.path)
			require.NoError(t, err)
			assert.Equal(t, "s3://bucket/"+tt.expectedKey, location)

			require.Len(t, uploader.uploads, 1)
			upload := uploader.uploads[0]
			assert.Equal(t, "bucket", upload.bucket)
			assert.Equal(t, tt.expectedKey, upload.key)
			assert.Equal(t, "archive bytes", string(upload.body))
			assert.Equal(t, tt.expectedContentType, upload.contentType)
		})
	}
}

func TestS3Publisher_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/a.zip", []byte("x"), 0644))

	p := NewS3PublisherWithUploader("bucket", "", &mockUploader{err: errors.New("access denied")}, fsys, zap.NewNop())
	_, err := p.Publish(t.Context(), "/a.zip")
	require.Error(t, err)
	assert.ErrorContains(t, err, "s3://bucket/a.zip")
	assert.ErrorContains(t, err, "access denied")

	_, err = p.Publish(t.Context(), "/missing.zip")
	assert.Error(t, err)
}

func TestFolderPublisher(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/work/out.tar", []byte("tarball"), 0644))

	p, err := NewFolderPublisher(fsys, "/published/")
	require.NoError(t, err)
	assert.Equal(t, "folder(/published)", p.Name())

	location, err := p.Publish(t.Context(), "/work/out.tar")
	require.NoError(t, err)
	assert.Equal(t, "/published/out.tar", location)

	data, err := afero.ReadFile(fsys, "/published/out.tar")
	require.NoError(t, err)
	assert.Equal(t, "tarball", string(data))
}

func TestNew(t *testing.T) {
	fsys := afero.NewMemMapFs()

	p, err := New(t.Context(), Config{}, fsys, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = New(t.Context(), Config{Kind: KindFolder, Folder: "/dest"}, fsys, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "folder(/dest)", p.Name())

	_, err = New(t.Context(), Config{Kind: "ftp"}, fsys, zap.NewNop())
	assert.ErrorContains(t, err, `unsupported publish kind "ftp"`)
}
