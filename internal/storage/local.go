package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultFileMode = 0o644
	DefaultDirMode  = 0o755
)

type LocalOptions struct {
	Dir string `yaml:"dir"`
}

func NewDefaultLocalOptions() *LocalOptions {
	return &LocalOptions{
		Dir: "static/uploads",
	}
}

var _ Store = &LocalStore{}

type LocalStore struct {
	dir string
}

func NewLocalStore(options *LocalOptions) (*LocalStore, error) {
	if err := os.MkdirAll(options.Dir, DefaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: options.Dir}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, DefaultFileMode); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return path, nil
}
