// Package storage loads uploaded report files for the manual ingestion route.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"callsync/internal/config"
)

var (
	ErrNotFound    = errors.New("storage: file not found")
	ErrInvalidPath = errors.New("storage: invalid storage path")
	ErrTooLarge    = errors.New("storage: file exceeds size limit")
)

// Store reads whole objects by their slash-separated relative path.
type Store interface {
	Get(ctx context.Context, p string) ([]byte, error)
}

// CleanPath accepts only relative slash paths without ".." segments.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.ContainsAny(p, "\x00\\") {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	clean := path.Clean(p)
	if clean == "." {
		return "", ErrInvalidPath
	}
	return clean, nil
}

// New builds the Store selected by cfg.Backend. maxBytes bounds every read.
func New(ctx context.Context, cfg config.StorageConfig, maxBytes int64) (Store, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(ctx, cfg, maxBytes)
	default:
		return NewLocalStore(cfg.LocalRoot, maxBytes), nil
	}
}
