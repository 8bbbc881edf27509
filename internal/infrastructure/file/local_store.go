package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps uploaded spreadsheets under a base directory. Stored
// files are written once and never mutated; retries re-read the same path.
type LocalStore struct {
	BaseDir string
}

func NewLocalStore(baseDir string) *LocalStore {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalStore{BaseDir: baseDir}
}

func (s *LocalStore) Store(ctx context.Context, filename string, r io.Reader) (string, error) {
	_ = ctx

	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(s.BaseDir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create stored file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write stored file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close stored file: %w", err)
	}
	return name, nil
}

func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	_ = ctx

	f, err := os.Open(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("open stored file %s: %w", path, err)
	}
	return f, nil
}

func (s *LocalStore) Exists(ctx context.Context, path string) (bool, error) {
	_ = ctx

	_, err := os.Stat(s.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	_ = ctx
	return os.Remove(s.resolve(path))
}

func (s *LocalStore) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.BaseDir, path)
}
