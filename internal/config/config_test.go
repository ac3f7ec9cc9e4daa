package config

import (
	"testing"
	"time"

	"github.com/infracollect/fileman/internal/publish"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "7z", cfg.Archiver.Program)
	assert.Equal(t, 100*time.Millisecond, cfg.Tasks.PollInterval)
	assert.Equal(t, 1<<20, cfg.Tasks.SecureDeleteChunk)
	assert.Equal(t, int64(100<<20), cfg.SplitChunkBytes())
	assert.Empty(t, cfg.Publish.Kind)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, cfg Config)
		wantErr string
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "comment-only document keeps defaults",
			yaml: "# nothing configured yet\n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "overrides",
			yaml: `
archiver:
  program: /usr/bin/7zz
  force_builtin: true
tasks:
  poll_interval: 250ms
  split_chunk_mib: 4
  recursive_duplicates: true
`,
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "/usr/bin/7zz", cfg.Archiver.Program)
				assert.True(t, cfg.Archiver.ForceBuiltin)
				assert.Equal(t, 250*time.Millisecond, cfg.Tasks.PollInterval)
				assert.Equal(t, int64(4<<20), cfg.SplitChunkBytes())
				assert.True(t, cfg.Tasks.RecursiveDuplicates)
				assert.Equal(t, 1<<20, cfg.Tasks.SecureDeleteChunk, "unset fields keep defaults")
			},
		},
		{
			name: "s3 publish",
			yaml: `
publish:
  kind: s3
  bucket: backups
  prefix: nightly
  endpoint: http://localhost:9000
  force_path_style: true
`,
			check: func(t *testing.T, cfg Config) {
				target := cfg.PublishTarget()
				assert.Equal(t, publish.KindS3, target.Kind)
				assert.Equal(t, "backups", target.S3.Bucket)
				assert.Equal(t, "nightly", target.S3.Prefix)
				assert.True(t, target.S3.ForcePathStyle)
			},
		},
		{
			name:    "s3 without bucket",
			yaml:    "publish:\n  kind: s3\n",
			wantErr: "Config.Publish.Bucket: failed 'required_if' validation",
		},
		{
			name:    "folder without path",
			yaml:    "publish:\n  kind: folder\n",
			wantErr: "Config.Publish.Folder: failed 'required_if' validation",
		},
		{
			name:    "unknown publish kind",
			yaml:    "publish:\n  kind: ftp\n",
			wantErr: "failed 'oneof' validation (param: s3 folder)",
		},
		{
			name:    "zero split chunk",
			yaml:    "tasks:\n  split_chunk_mib: 0\n",
			wantErr: "Config.Tasks.SplitChunkMiB: failed 'gt' validation (param: 0)",
		},
		{
			name:    "empty program",
			yaml:    "archiver:\n  program: \"\"\n",
			wantErr: "Config.Archiver.Program: failed 'required' validation",
		},
		{
			name:    "malformed yaml",
			yaml:    "archiver: [",
			wantErr: "failed to unmarshal config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/fileman.yaml", []byte(`
archiver:
  program: 7za
tasks:
  secure_delete_chunk: 4096
`), 0644))

	t.Run("file only", func(t *testing.T) {
		cfg, err := Load(fsys, "/etc/fileman.yaml")
		require.NoError(t, err)
		assert.Equal(t, "7za", cfg.Archiver.Program)
		assert.Equal(t, 4096, cfg.Tasks.SecureDeleteChunk)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		t.Setenv("FILEMAN_ARCHIVER_PROGRAM", "7zz")
		t.Setenv("FILEMAN_ARCHIVER_FORCE_BUILTIN", "true")
		t.Setenv("FILEMAN_TASKS_POLL_INTERVAL", "1s")
		t.Setenv("FILEMAN_PUBLISH_KIND", "folder")
		t.Setenv("FILEMAN_PUBLISH_FOLDER", "/srv/archives")

		cfg, err := Load(fsys, "/etc/fileman.yaml")
		require.NoError(t, err)
		assert.Equal(t, "7zz", cfg.Archiver.Program)
		assert.True(t, cfg.Archiver.ForceBuiltin)
		assert.Equal(t, time.Second, cfg.Tasks.PollInterval)
		assert.Equal(t, 4096, cfg.Tasks.SecureDeleteChunk)
		assert.Equal(t, publish.Config{Kind: publish.KindFolder, Folder: "/srv/archives"}, cfg.PublishTarget())
	})

	t.Run("no file", func(t *testing.T) {
		cfg, err := Load(fsys, "")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("comment-only file keeps defaults", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fsys, "/etc/empty.yaml", []byte("# nothing configured yet\n"), 0644))

		cfg, err := Load(fsys, "/etc/empty.yaml")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fsys, "/etc/blank.yaml", nil, 0644))

		cfg, err := Load(fsys, "/etc/blank.yaml")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(fsys, "/nope.yaml")
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("invalid environment", func(t *testing.T) {
		t.Setenv("FILEMAN_TASKS_POLL_INTERVAL", "soon")
		_, err := Load(fsys, "")
		assert.ErrorContains(t, err, "failed to process environment")
	})
}
