package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func newLocal(t *testing.T) (ImageStore, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocal(root, "thumbnails")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "thumbnails"), 0o755))
	return s, root
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("photo_1700000000000.png"))
	assert.True(t, ValidName("a..b.png"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("."))
	assert.False(t, ValidName(".."))
	assert.False(t, ValidName("../secret"))
	assert.False(t, ValidName("thumbnails/x.png"))
	assert.False(t, ValidName(`..\x.png`))
}

func TestNewLocal(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)

	root := filepath.Join(t.TempDir(), "a", "b")
	s, err := NewLocal(root)
	require.NoError(t, err)
	assert.DirExists(t, root)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestLocal_PutGetStat(t *testing.T) {
	s, root := newLocal(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "cat.png", strings.NewReader("meow"), 4)
	require.NoError(t, err)
	assert.Equal(t, "cat.png", info.Name)
	assert.Equal(t, int64(4), info.Size)
	assert.False(t, info.ModTime.IsZero())
	assert.FileExists(t, filepath.Join(root, "cat.png"))

	rc, got, err := s.Get(ctx, "cat.png")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "meow", string(b))
	assert.Equal(t, int64(4), got.Size)

	st, err := s.Stat(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Size)

	// overwrite, last write wins
	_, err = s.Put(ctx, "cat.png", strings.NewReader("purr!"), 5)
	require.NoError(t, err)
	st, err = s.Stat(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)
}

func TestLocal_PutFailureRemovesPartialFile(t *testing.T) {
	s, root := newLocal(t)

	_, err := s.Put(context.Background(), "bad.png", failingReader{}, -1)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "bad.png"))
}

func TestLocal_FailedOverwriteKeepsExistingObject(t *testing.T) {
	s, root := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "keep.png", strings.NewReader("original"), 8)
	require.NoError(t, err)

	_, err = s.Put(ctx, "keep.png", io.MultiReader(strings.NewReader("half-writ"), failingReader{}), -1)
	require.Error(t, err)

	rc, info, err := s.Get(ctx, "keep.png")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
	assert.Equal(t, int64(8), info.Size)

	// no temp file is left behind
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"keep.png", "thumbnails"}, names)
}

func TestLocal_OverwriteReplacesContent(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "x.png", strings.NewReader("first"), 5)
	require.NoError(t, err)
	info, err := s.Put(ctx, "x.png", strings.NewReader("second!"), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)

	rc, _, err := s.Get(ctx, "x.png")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "second!", string(got))
}

func TestLocal_InFlightWritesHidden(t *testing.T) {
	s, root := newLocal(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(root, tempPrefix+"123"), []byte("partial"), 0o600))

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _, err = s.Get(ctx, tempPrefix+"123")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocal_InvalidNames(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "../escape.png", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, _, err = s.Get(ctx, "thumbnails/x.png")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.ErrorIs(t, s.Delete(ctx, ".."), ErrInvalidName)
}

func TestLocal_NotFound(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	_, _, err := s.Get(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Stat(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "missing.png"), ErrNotFound)

	// directories are not objects
	_, err = s.Stat(ctx, "thumbnails")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "thumbnails"), ErrNotFound)
}

func TestLocal_ListExcludesThumbnailsAndDirs(t *testing.T) {
	s, root := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "b.png", strings.NewReader("bb"), 2)
	require.NoError(t, err)
	_, err = s.Put(ctx, "a.jpg", strings.NewReader("a"), 1)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "thumbnails", "b.png"), []byte("t"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "nested"), 0o755))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.jpg", items[0].Name)
	assert.Equal(t, int64(1), items[0].Size)
	assert.Equal(t, "b.png", items[1].Name)
	assert.Equal(t, int64(2), items[1].Size)
}

func TestLocal_ListExcludesNamedRegularFile(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocal(root, ".keep")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".keep"), nil, 0o644))

	items, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLocal_Delete(t *testing.T) {
	s, root := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "gone.gif", strings.NewReader("g"), 1)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "gone.gif"))
	assert.NoFileExists(t, filepath.Join(root, "gone.gif"))
}

func TestLocal_PingMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocal(root)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(root))

	assert.Error(t, s.Ping(context.Background()))
}
