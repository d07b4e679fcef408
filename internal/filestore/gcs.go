package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps uploads in a bucket and materialises them into a local
// cache directory when a path is needed.
type GCSStore struct {
	client   *storage.Client
	bucket   string
	prefix   string
	cacheDir string
}

func NewGCSStore(ctx context.Context, bucket, prefix, cacheDir string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &GCSStore{
		client:   client,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		cacheDir: cacheDir,
	}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectName(id string) string {
	return path.Join(s.prefix, id)
}

func (s *GCSStore) Save(ctx context.Context, originalName string, r io.Reader) (*File, error) {
	id, err := NewID(originalName)
	if err != nil {
		return nil, err
	}

	w := s.client.Bucket(s.bucket).Object(s.objectName(id)).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ChunkSize = copyChunkSize
	w.Metadata = map[string]string{"original_name": originalName}

	if _, err := io.CopyBuffer(w, r, make([]byte, copyChunkSize)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize object: %w", err)
	}

	file := fileFromAttrs(id, w.Attrs())
	file.OriginalName = originalName
	return file, nil
}

func (s *GCSStore) Stat(ctx context.Context, id string) (*File, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	attrs, err := s.client.Bucket(s.bucket).Object(s.objectName(id)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return fileFromAttrs(id, attrs), nil
}

func (s *GCSStore) Path(ctx context.Context, id string) (string, error) {
	file, err := s.Stat(ctx, id)
	if err != nil {
		return "", err
	}

	localPath := filepath.Join(s.cacheDir, id)
	if info, err := os.Stat(localPath); err == nil && info.Size() == file.SizeBytes {
		return localPath, nil
	}

	if err := s.downloadFile(ctx, s.objectName(id), localPath); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", id, err)
	}
	return localPath, nil
}

func (s *GCSStore) List(ctx context.Context) ([]File, error) {
	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}

	var files []File
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		files = append(files, *fileFromAttrs(path.Base(attrs.Name), attrs))
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

func (s *GCSStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	err := s.client.Bucket(s.bucket).Object(s.objectName(id)).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}

	_ = os.Remove(filepath.Join(s.cacheDir, id))
	return nil
}

func (s *GCSStore) downloadFile(ctx context.Context, remotePath, localPath string) error {
	r, err := s.client.Bucket(s.bucket).Object(remotePath).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() { _ = r.Close() }()

	tmp := localPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	if _, err := io.CopyBuffer(f, r, make([]byte, copyChunkSize)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to download file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, localPath)
}

func fileFromAttrs(id string, attrs *storage.ObjectAttrs) *File {
	f := &File{ID: id, Kind: KindOf(id)}
	if attrs != nil {
		f.SizeBytes = attrs.Size
		f.CreatedAt = attrs.Created
		f.OriginalName = attrs.Metadata["original_name"]
	}
	return f
}
