package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (*File, error) {
	id, err := NewID(originalName)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.CopyBuffer(f, contextReader{ctx: ctx, r: r}, make([]byte, copyChunkSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	file, err := s.Stat(ctx, id)
	if err != nil {
		return nil, err
	}
	file.OriginalName = originalName
	file.SizeBytes = n
	return file, nil
}

func (s *LocalStore) Stat(_ context.Context, id string) (*File, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	info, err := os.Stat(filepath.Join(s.dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return fileFromInfo(info), nil
}

func (s *LocalStore) Path(ctx context.Context, id string) (string, error) {
	if _, err := s.Stat(ctx, id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id), nil
}

func (s *LocalStore) List(_ context.Context) ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, *fileFromInfo(info))
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Stat(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, id)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) Close() error { return nil }

func fileFromInfo(info fs.FileInfo) *File {
	return &File{
		ID:        info.Name(),
		SizeBytes: info.Size(),
		CreatedAt: info.ModTime(),
		Kind:      KindOf(info.Name()),
	}
}

// contextReader stops a long copy once the request is gone.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
