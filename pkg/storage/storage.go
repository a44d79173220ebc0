// Package storage keeps uploaded files (material PDFs, admission photos) on local disk or in
// Backblaze B2.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/pp-coaching/coaching-api/pkg/config"
)

// ErrInvalidKey is returned for keys that escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore stores files addressed by slash separated keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	URL(key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the configured ObjectStore.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverB2:
		return NewB2Storage(ctx, cfg.B2AccountID, cfg.B2AppKey, cfg.B2Bucket)
	case config.StorageDriverLocal, "":
		signer := NewSignedURLSigner(cfg.SignedURLSecret, cfg.SignedURLTTL)
		return NewLocalStorage(cfg.Dir, cfg.PublicBaseURL, signer)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// NewKey builds a unique key under folder keeping the sanitised original file name.
func NewKey(folder, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		base = "file"
	}
	return path.Join(folder, uuid.NewString()+"_"+base)
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
