package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]BlobStore {
	fsStore, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return map[string]BlobStore{
		"memory":   NewMemoryStore(),
		"fs":       fsStore,
		"fallback": NewFallback(nil, logrus.New()),
	}
}

func TestBlobStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := s.Exists(ctx, KindAPK, "a.apk")
			require.NoError(t, err)
			assert.False(t, ok)

			n, err := s.Put(ctx, KindAPK, "a.apk", strings.NewReader("package"))
			require.NoError(t, err)
			assert.Equal(t, int64(7), n)

			ok, err = s.Exists(ctx, KindAPK, "a.apk")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.Exists(ctx, KindIcon, "a.apk")
			require.NoError(t, err)
			assert.False(t, ok, "kinds are separate namespaces")

			rc, err := s.Open(ctx, KindAPK, "a.apk")
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, "package", string(data))

			require.NoError(t, s.Delete(ctx, KindAPK, "a.apk"))
			_, err = s.Open(ctx, KindAPK, "a.apk")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, KindAPK, "a.apk"), ErrNotFound)
		})
	}
}

func TestRejectsUnsafeNames(t *testing.T) {
	for name, s := range backends(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, bad := range []string{"", "..", "../x.apk", "a/b.apk", `a\b.apk`} {
				_, err := s.Put(ctx, KindAPK, bad, strings.NewReader("x"))
				assert.ErrorIs(t, err, ErrInvalidName, bad)
			}
			_, err := s.Put(ctx, Kind("other"), "x.apk", strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestFSStoreLayout(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root)
	require.NoError(t, err)
	assert.Equal(t, root, s.Root())

	_, err = s.Put(context.Background(), KindIcon, "i.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "icons", "i.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	entries, err := os.ReadDir(filepath.Join(root, "icons"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestNewFSStoreUnavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewFSStore(file)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

type brokenStore struct{ MemoryStore }

func (b *brokenStore) Put(context.Context, Kind, string, io.Reader) (int64, error) {
	return 0, unavailable("write blob", errors.New("disk full"))
}

func (b *brokenStore) Open(context.Context, Kind, string) (io.ReadCloser, error) {
	return nil, ErrNotFound
}

func (b *brokenStore) Exists(context.Context, Kind, string) (bool, error) {
	return false, unavailable("ftp connect", errors.New("connection refused"))
}

func (b *brokenStore) Delete(context.Context, Kind, string) error {
	return ErrNotFound
}

func TestFallbackDegradesToMemory(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(&brokenStore{}, logrus.New())

	n, err := f.Put(ctx, KindAPK, "x.apk", bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, 1, f.memory.Len(KindAPK))

	ok, err := f.Exists(ctx, KindAPK, "x.apk")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := f.Open(ctx, KindAPK, "x.apk")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "payload", string(data))

	require.NoError(t, f.Delete(ctx, KindAPK, "x.apk"))
}

func TestFallbackNeedsSeeker(t *testing.T) {
	f := NewFallback(&brokenStore{}, logrus.New())
	_, err := f.Put(context.Background(), KindAPK, "x.apk", strings.NewReader("a"))
	require.NoError(t, err, "strings.Reader is seekable")

	_, err = f.Put(context.Background(), KindAPK, "y.apk", io.MultiReader(strings.NewReader("a")))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestIntakeStoreDegradesToMemory(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(&brokenStore{}, logrus.New())
	in := NewIntake(f, 1<<20)

	stored, err := in.Store(ctx, KindAPK, fileHeader(t, testFile{field: "apk", filename: "a.apk", body: []byte("apk-bytes")}))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(9), stored.Size)
	assert.Equal(t, 1, f.memory.Len(KindAPK))

	ok, err := f.Exists(ctx, KindAPK, stored.Name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFSStoreOpenError(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	// a file where the kind directory should be fails with ENOTDIR, not not-exist
	dir := filepath.Join(s.Root(), string(KindAPK))
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o644))

	rc, err := s.Open(context.Background(), KindAPK, "a.apk")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Nil(t, rc)
}
