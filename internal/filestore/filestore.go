// Package filestore keeps operator-uploaded media under opaque ids.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrInvalidID       = errors.New("invalid file id")
	ErrUnsupportedType = errors.New("unsupported file type")
)

type Kind string

const (
	KindVideo     Kind = "video"
	KindThumbnail Kind = "thumbnail"
	KindUnknown   Kind = "unknown"
)

var (
	VideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
)

const copyChunkSize = 1 << 20

type File struct {
	ID           string    `json:"file_id"`
	OriginalName string    `json:"original_name,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created"`
	Kind         Kind      `json:"kind"`
}

// SizeMB is the size rounded to two decimals.
func (f File) SizeMB() float64 {
	return float64(int64(float64(f.SizeBytes)/(1024*1024)*100+0.5)) / 100
}

// Store is implemented by LocalStore and GCSStore. Path always returns a
// local filesystem path, because the browser can only attach local files.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (*File, error)
	Stat(ctx context.Context, id string) (*File, error)
	Path(ctx context.Context, id string) (string, error)
	List(ctx context.Context) ([]File, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Ext returns the lowercased extension of name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

func HasExtension(name string, allowed []string) bool {
	ext := Ext(name)
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func KindOf(name string) Kind {
	switch {
	case HasExtension(name, VideoExtensions):
		return KindVideo
	case HasExtension(name, ImageExtensions):
		return KindThumbnail
	default:
		return KindUnknown
	}
}

// NewID builds a fresh id that keeps the original extension.
func NewID(originalName string) (string, error) {
	if KindOf(originalName) == KindUnknown {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, Ext(originalName))
	}
	return uuid.NewString() + Ext(originalName), nil
}

// ValidateID rejects ids that could escape the store directory.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
