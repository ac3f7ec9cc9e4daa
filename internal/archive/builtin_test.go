package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/infracollect/fileman/internal/failure"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeTree creates files (relative path -> content) under root.
func writeTree(t *testing.T, fsys afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0644))
	}
}

func readFile(t *testing.T, fsys afero.Fs, p string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, p)
	require.NoError(t, err)
	return string(data)
}

func listLines(out string) []string {
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

func TestBuiltinStrategy_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "zip", output: "out.zip"},
		{name: "tar", output: "out.tar"},
		{name: "tar.gz", output: "out.tar.gz"},
		{name: "tgz", output: "out.tgz"},
		{name: "tar.zst", output: "out.tar.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewOsFs()
			root := t.TempDir()
			s := NewBuiltinStrategy(fsys, zap.NewNop())

			single := filepath.Join(root, "single.txt")
			require.NoError(t, afero.WriteFile(fsys, single, []byte("single file"), 0644))

			tree := filepath.Join(root, "tree")
			files := map[string]string{
				"a.txt":         "alpha",
				"nested/b.bin":  string([]byte{0, 1, 2, 3, 255}),
				"nested/deep/c": strings.Repeat("c", 70_000),
			}
			writeTree(t, fsys, tree, files)

			output := filepath.Join(root, "archives", tt.output)
			msg, err := s.Create(t.Context(), Request{Destination: output, Sources: []string{single, tree}})
			require.NoError(t, err)
			assert.Equal(t, "Archive created", msg)

			dest := filepath.Join(root, "extracted")
			msg, err = s.Extract(t.Context(), Request{Path: output, Destination: dest})
			require.NoError(t, err)
			assert.Equal(t, "Extraction complete", msg)

			// zip names entries by base name or path relative to the source
			// directory; tar keeps the given path below dest.
			singleOut := filepath.Join(dest, "single.txt")
			treeOut := dest
			if DetectFormat(output).IsTar() {
				singleOut = filepath.Join(dest, sanitizeEntryName(filepath.ToSlash(single)))
				treeOut = filepath.Join(dest, sanitizeEntryName(filepath.ToSlash(tree)))
			}

			assert.Equal(t, "single file", readFile(t, fsys, singleOut))
			for name, content := range files {
				got := readFile(t, fsys, filepath.Join(treeOut, filepath.FromSlash(name)))
				assert.True(t, bytes.Equal([]byte(content), []byte(got)), "file %s differs", name)
			}
		})
	}
}

func TestBuiltinStrategy_ListZipMatchesWrittenEntries(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewBuiltinStrategy(fsys, zap.NewNop())

	writeTree(t, fsys, "/src", map[string]string{
		"one.txt":       "1",
		"dir/two.txt":   "2",
		"dir/x/three.c": "3",
	})
	require.NoError(t, afero.WriteFile(fsys, "/top.md", []byte("top"), 0644))

	_, err := s.Create(t.Context(), Request{Destination: "/out/a.zip", Sources: []string{"/top.md", "/src"}})
	require.NoError(t, err)

	out, err := s.List(t.Context(), "/out/a.zip")
	require.NoError(t, err)

	got := listLines(out)
	want := []string{"top.md", "dir/two.txt", "dir/x/three.c", "one.txt"}
	assert.ElementsMatch(t, want, got)
	assert.Len(t, slices.Compact(slices.Sorted(slices.Values(got))), len(want), "no duplicate entries")
}

func TestBuiltinStrategy_ListTar(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewBuiltinStrategy(fsys, zap.NewNop())
	writeTree(t, fsys, "/data", map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	_, err := s.Create(t.Context(), Request{Destination: "/a.tar.gz", Sources: []string{"/data"}})
	require.NoError(t, err)

	out, err := s.List(t.Context(), "/a.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/", "data/a.txt", "data/sub/", "data/sub/b.txt"}, listLines(out))
}

func TestBuiltinStrategy_ZipSlip(t *testing.T) {
	fsys := afero.NewOsFs()
	root := t.TempDir()
	archivePath := filepath.Join(root, "evil.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"../../escape.txt", "/abs.txt", "ok/inner.txt", `..\..\win.txt`} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0644))

	dest := filepath.Join(root, "a", "b", "dest")
	s := NewBuiltinStrategy(fsys, zap.NewNop())
	_, err := s.Extract(t.Context(), Request{Path: archivePath, Destination: dest})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "escape.txt"))
	assert.NoFileExists(t, filepath.Join(root, "a", "escape.txt"))
	assert.NoFileExists(t, filepath.Join(root, "win.txt"))
	assert.FileExists(t, filepath.Join(dest, "escape.txt"))
	assert.FileExists(t, filepath.Join(dest, "abs.txt"))
	assert.FileExists(t, filepath.Join(dest, "win.txt"))
	assert.FileExists(t, filepath.Join(dest, "ok", "inner.txt"))
}

func TestEntryTarget(t *testing.T) {
	tests := []struct {
		name   string
		entry  string
		want   string
		wantOK bool
	}{
		{name: "plain", entry: "a/b.txt", want: filepath.Join("/dest", "a", "b.txt"), wantOK: true},
		{name: "parent segments", entry: "../../x", want: filepath.Join("/dest", "x"), wantOK: true},
		{name: "mixed parents", entry: "a/../../b", want: filepath.Join("/dest", "a", "b"), wantOK: true},
		{name: "absolute", entry: "/etc/passwd", want: filepath.Join("/dest", "etc", "passwd"), wantOK: true},
		{name: "only dots", entry: "../..", wantOK: false},
		{name: "empty", entry: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := entryTarget("/dest", tt.entry)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBuiltinStrategy_PasswordPolicy(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewBuiltinStrategy(fsys, zap.NewNop())
	require.NoError(t, afero.WriteFile(fsys, "/f.txt", []byte("x"), 0644))

	_, err := s.Create(t.Context(), Request{Destination: "/f.zip", Sources: []string{"/f.txt"}, Password: "pw"})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Unsupported))
	exists, _ := afero.Exists(fsys, "/f.zip")
	assert.False(t, exists, "no archive should be written")

	_, err = s.Create(t.Context(), Request{Destination: "/f.zip", Sources: []string{"/f.txt"}})
	require.NoError(t, err)

	_, err = s.Extract(t.Context(), Request{Path: "/f.zip", Destination: "/out", Password: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "x", readFile(t, fsys, "/out/f.txt"))
}

func TestBuiltinStrategy_EncryptedZipEntry(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewBuiltinStrategy(fsys, zap.NewNop())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "secret.txt", Method: zip.Store, Flags: zipFlagEncrypted})
	require.NoError(t, err)
	_, err = w.Write([]byte("ciphertext"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fsys, "/enc.zip", buf.Bytes(), 0644))

	_, err = s.Extract(t.Context(), Request{Path: "/enc.zip", Destination: "/out"})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Unsupported))
}

func TestBuiltinStrategy_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewBuiltinStrategy(fsys, zap.NewNop())
	require.NoError(t, afero.WriteFile(fsys, "/a.rar", []byte("rar"), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/broken.zip", []byte("not a zip"), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/broken.tar.gz", []byte("not gzip"), 0644))
	require.NoError(t, afero.WriteFile(fsys, "/f.txt", []byte("x"), 0644))

	tests := []struct {
		name string
		run  func() error
		kind failure.Kind
	}{
		{
			name: "list missing",
			run:  func() error { _, err := s.List(t.Context(), "/missing.zip"); return err },
			kind: failure.NotFound,
		},
		{
			name: "list unknown format",
			run:  func() error { _, err := s.List(t.Context(), "/a.rar"); return err },
			kind: failure.Unsupported,
		},
		{
			name: "list malformed zip",
			run:  func() error { _, err := s.List(t.Context(), "/broken.zip"); return err },
			kind: failure.ContainerFormat,
		},
		{
			name: "extract malformed gzip",
			run: func() error {
				_, err := s.Extract(t.Context(), Request{Path: "/broken.tar.gz", Destination: "/out"})
				return err
			},
			kind: failure.ContainerFormat,
		},
		{
			name: "extract unknown format",
			run: func() error {
				_, err := s.Extract(t.Context(), Request{Path: "/a.rar", Destination: "/out"})
				return err
			},
			kind: failure.Unsupported,
		},
		{
			name: "create without sources",
			run: func() error {
				_, err := s.Create(t.Context(), Request{Destination: "/x.zip"})
				return err
			},
			kind: failure.InvalidArgument,
		},
		{
			name: "create unknown output format",
			run: func() error {
				_, err := s.Create(t.Context(), Request{Destination: "/x.rar", Sources: []string{"/f.txt"}})
				return err
			},
			kind: failure.Unsupported,
		},
		{
			name: "create missing source",
			run: func() error {
				_, err := s.Create(t.Context(), Request{Destination: "/x.zip", Sources: []string{"/nope"}})
				return err
			},
			kind: failure.NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Equal(t, tt.kind, failure.KindOf(err), "got %v", err)
		})
	}
}

func TestBuiltinStrategy_CanceledContext(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewBuiltinStrategy(fsys, zap.NewNop())
	require.NoError(t, afero.WriteFile(fsys, "/f.txt", []byte("x"), 0644))
	_, err := s.Create(t.Context(), Request{Destination: "/f.tar", Sources: []string{"/f.txt"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = s.Extract(ctx, Request{Path: "/f.tar", Destination: "/out"})
	require.ErrorIs(t, err, context.Canceled)
	exists, _ := afero.Exists(fsys, "/out/f.txt")
	assert.False(t, exists)
}
