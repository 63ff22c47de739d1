package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

var ErrInvalidName = errors.New("invalid file name")

// Store persists uploaded images. Save returns the location reported back
// to clients as image_path. Saving an existing name overwrites it.
type Store interface {
	Save(ctx context.Context, name string, content []byte, contentType string) (string, error)
}

type Options struct {
	Backend string        `yaml:"backend"`
	Local   *LocalOptions `yaml:"local"`
	S3      *S3Options    `yaml:"s3"`
}

func DefaultOptions() *Options {
	return &Options{
		Backend: BackendLocal,
		Local:   NewDefaultLocalOptions(),
		S3:      NewDefaultS3Options(),
	}
}

func New(ctx context.Context, opts *Options) (Store, error) {
	switch opts.Backend {
	case "", BackendLocal:
		return NewLocalStore(opts.Local)
	case BackendS3:
		return NewS3Store(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// CleanName strips any directory components from a client supplied name.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." || base == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}
