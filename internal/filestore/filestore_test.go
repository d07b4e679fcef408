package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"clip.mp4", KindVideo},
		{"CLIP.MOV", KindVideo},
		{"a.webm", KindVideo},
		{"thumb.JPG", KindThumbnail},
		{"thumb.webp", KindThumbnail},
		{"notes.txt", KindUnknown},
		{"noext", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.name))
		})
	}
}

func TestValidateID(t *testing.T) {
	valid := []string{"1b4e28ba-2fa1-11d2-883f-0016d3cca427.mp4", "x.png"}
	invalid := []string{"", ".", "..", "../etc/passwd", `a\b.mp4`, "dir/file.mp4", ".hidden"}

	for _, id := range valid {
		assert.NoError(t, ValidateID(id), id)
	}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateID(id), ErrInvalidID, id)
	}
}

func TestNewID(t *testing.T) {
	id, err := NewID("My Video.MP4")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, ".mp4"))
	assert.Len(t, id, 36+len(".mp4"))

	_, err = NewID("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestSizeMB(t *testing.T) {
	assert.Equal(t, 1.5, File{SizeBytes: 3 * 512 * 1024}.SizeMB())
	assert.Equal(t, 0.0, File{}.SizeMB())
}

func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	saved, err := store.Save(ctx, "demo.mp4", strings.NewReader("video-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "demo.mp4", saved.OriginalName)
	assert.Equal(t, int64(len("video-bytes")), saved.SizeBytes)
	assert.Equal(t, KindVideo, saved.Kind)

	path, err := store.Path(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, saved.ID), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	files, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, saved.ID, files[0].ID)

	require.NoError(t, store.Delete(ctx, saved.ID))

	_, err = store.Stat(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, saved.ID), ErrNotFound)
}

func TestLocalStoreRejects(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(ctx, "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = store.Path(ctx, "missing.mp4")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Path(ctx, "../secret.mp4")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestLocalStoreListSkipsHidden(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte("x"), 0644))
	_, err = store.Save(ctx, "thumb.png", strings.NewReader("png"))
	require.NoError(t, err)

	files, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, KindThumbnail, files[0].Kind)
}

func TestLocalStoreSaveCancelled(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "demo.mp4", strings.NewReader("video-bytes"))
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
