package posters

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelkeep/reelkeep/internal/apperror"
)

// pngBytes encodes a solid PNG of the given dimensions.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: 30, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), 1024*1024)
	require.NoError(t, err)
	return store
}

func TestSaveAndDelete(t *testing.T) {
	store := newTestStore(t)
	data := pngBytes(t, 8, 8)

	filename, err := store.Save(context.Background(), Upload{
		OriginalName: "poster.png",
		MimeType:     "image/png",
		Size:         int64(len(data)),
		Bytes:        data,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".png"))

	stored, err := os.ReadFile(store.Path(filename))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	store.Delete(filename)
	_, err = os.Stat(store.Path(filename))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op, not an error.
	store.Delete(filename)
}

func TestSaveGeneratesThumbnailForLargeImages(t *testing.T) {
	store := newTestStore(t)
	data := pngBytes(t, 900, 600)

	filename, err := store.Save(context.Background(), Upload{
		OriginalName: "big.png",
		MimeType:     "image/png",
		Size:         int64(len(data)),
		Bytes:        data,
	})
	require.NoError(t, err)

	thumbPath := store.Path(thumbnailName(filename))
	f, err := os.Open(thumbPath)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	// Delete removes the thumbnail together with the poster.
	store.Delete(filename)
	_, err = os.Stat(thumbPath)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveSkipsThumbnailForSmallImages(t *testing.T) {
	store := newTestStore(t)
	data := pngBytes(t, 50, 50)

	filename, err := store.Save(context.Background(), Upload{
		OriginalName: "small.png",
		MimeType:     "image/png",
		Size:         int64(len(data)),
		Bytes:        data,
	})
	require.NoError(t, err)

	_, err = os.Stat(store.Path(thumbnailName(filename)))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveRejectsUnsupportedMime(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(context.Background(), Upload{
		OriginalName: "movie.mp4",
		MimeType:     "video/mp4",
		Size:         10,
		Bytes:        []byte("0123456789"),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)
	assert.Equal(t, "poster", appErr.Field)
}

func TestSaveRejectsSpoofedContentType(t *testing.T) {
	store := newTestStore(t)

	// Declared PNG, but the bytes are not a PNG.
	_, err := store.Save(context.Background(), Upload{
		OriginalName: "fake.png",
		MimeType:     "image/png",
		Size:         12,
		Bytes:        []byte("not an image"),
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)

	entries, readErr := os.ReadDir(store.dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "rejected upload must not leave files behind")
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), 16)
	require.NoError(t, err)

	data := pngBytes(t, 8, 8)
	_, err = store.Save(context.Background(), Upload{
		OriginalName: "big.png",
		MimeType:     "image/png",
		Size:         int64(len(data)),
		Bytes:        data,
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Code)
	assert.Equal(t, "poster", appErr.Field)
}

func TestMagicBytes(t *testing.T) {
	tests := []struct {
		name string
		mime string
		data []byte
		want bool
	}{
		{"valid jpeg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, true},
		{"valid gif", "image/gif", []byte("GIF89a trailer"), true},
		{"valid webp", "image/webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), true},
		{"jpeg header on png mime", "image/png", []byte{0xFF, 0xD8, 0xFF, 0xE0}, false},
		{"truncated", "image/jpeg", []byte{0xFF}, false},
		{"unknown mime", "application/pdf", []byte("%PDF-1.4"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesMagicBytes(tt.data, tt.mime))
		})
	}
}

func TestThumbnailName(t *testing.T) {
	assert.Equal(t, "abc_300.png", thumbnailName("abc.png"))
	assert.Equal(t, "abc_300.jpg", thumbnailName("abc.webp"))
}

func TestNewDiskStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "posters")
	_, err := NewDiskStore(dir, 1024)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
