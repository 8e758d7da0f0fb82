// Package posters manages poster image files on the local filesystem:
// validation, storage under random filenames, thumbnail generation, and
// best-effort deletion. The movie record keeps only the stored filename;
// this package never touches the database.
package posters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	// Register decoder for WebP uploads.
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/reelkeep/reelkeep/internal/apperror"
)

// thumbnailDim is the bounding box for generated thumbnails.
const thumbnailDim = 300

// allowedMimeTypes defines which MIME types are accepted for upload.
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// mimeToExtension maps MIME types to stored file extensions.
var mimeToExtension = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload holds the received file before it is written to disk.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Bytes        []byte
}

// Store is the poster storage contract. The movie service depends on this
// interface so tests can capture stored and deleted files.
type Store interface {
	// Save validates and writes the upload, returning the stored filename.
	Save(ctx context.Context, up Upload) (string, error)

	// Delete removes a stored poster and its thumbnail. Best-effort: failures
	// are logged, never returned, because deletion is always secondary to an
	// operation that already succeeded or failed on its own terms.
	Delete(filename string)

	// Path returns the absolute on-disk path for a stored filename.
	Path(filename string) string
}

// DiskStore implements Store on a local directory.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates the storage directory if needed and returns a store.
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating poster directory: %w", err)
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Save validates the upload and writes it under a random UUID filename.
// A 300px thumbnail is generated alongside when the image is large enough;
// thumbnail failures are logged and skipped, never fatal.
func (s *DiskStore) Save(_ context.Context, up Upload) (string, error) {
	if !allowedMimeTypes[up.MimeType] {
		return "", apperror.NewValidation("poster", "unsupported file type: "+up.MimeType)
	}
	if up.Size > s.maxSize {
		return "", apperror.NewValidation("poster",
			fmt.Sprintf("file too large; maximum size is %d MB", s.maxSize/(1024*1024)))
	}
	if !matchesMagicBytes(up.Bytes, up.MimeType) {
		return "", apperror.NewValidation("poster", "file content does not match declared type")
	}

	ext := mimeToExtension[up.MimeType]
	filename := uuid.NewString() + ext

	if err := os.WriteFile(filepath.Join(s.dir, filename), up.Bytes, 0o644); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("writing poster file: %w", err))
	}

	// GIFs are skipped: resizing drops animation frames.
	if up.MimeType != "image/gif" {
		if err := s.writeThumbnail(up.Bytes, filename, ext); err != nil {
			slog.Warn("thumbnail generation skipped",
				slog.String("filename", filename),
				slog.Any("error", err),
			)
		}
	}

	slog.Info("poster stored",
		slog.String("filename", filename),
		slog.String("mime_type", up.MimeType),
		slog.Int64("size", up.Size),
	)
	return filename, nil
}

// Delete removes the poster and its thumbnail from disk.
func (s *DiskStore) Delete(filename string) {
	if filename == "" {
		return
	}
	for _, name := range []string{filename, thumbnailName(filename)} {
		err := os.Remove(filepath.Join(s.dir, name))
		if err != nil && !os.IsNotExist(err) {
			slog.Warn("deleting poster file failed",
				slog.String("filename", name),
				slog.Any("error", err),
			)
		}
	}
}

// Path returns the absolute path to a stored poster.
func (s *DiskStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// writeThumbnail decodes the image and writes a resized copy next to the
// original as <name>_300<ext>. Images already within the bounding box are
// skipped.
func (s *DiskStore) writeThumbnail(data []byte, filename, ext string) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= thumbnailDim && h <= thumbnailDim {
		return fmt.Errorf("image already within %dpx", thumbnailDim)
	}

	newW, newH := thumbnailDim, thumbnailDim
	if w > h {
		newH = h * thumbnailDim / w
	} else {
		newW = w * thumbnailDim / h
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	f, err := os.Create(filepath.Join(s.dir, thumbnailName(filename)))
	if err != nil {
		return fmt.Errorf("creating thumbnail file: %w", err)
	}
	defer f.Close()

	switch ext {
	case ".png":
		err = png.Encode(f, dst)
	default:
		// JPEG thumbnails for everything else, including WebP sources.
		err = jpeg.Encode(f, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("encoding thumbnail: %w", err)
	}
	return nil
}

// thumbnailName derives the thumbnail filename from the poster filename.
// WebP sources get a .jpg thumbnail because the encoder side of x/image's
// webp package does not exist.
func thumbnailName(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	if ext == ".webp" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s_%d%s", base, thumbnailDim, ext)
}

// matchesMagicBytes checks that the file content's magic bytes match the
// declared MIME type. Prevents uploading arbitrary files with a spoofed
// Content-Type header.
func matchesMagicBytes(data []byte, declaredMIME string) bool {
	switch declaredMIME {
	case "image/jpeg":
		return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return len(data) >= 8 &&
			data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
			data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
	case "image/gif":
		return bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))
	case "image/webp":
		return len(data) >= 12 &&
			bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
	default:
		return false
	}
}
