package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// Package storage holds the ImageStore abstraction over "put bytes under a name", "list names" and
// "delete by name", with a local-disk backend and an S3-compatible (MinIO) backend.

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidName = errors.New("invalid object name")
)

// ObjectInfo contains basic information about a stored object.
// ModTime comes from the backend at read time; it is never persisted separately.
type ObjectInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// ImageStore is a flat namespace of stored files.
// Names are single path segments; implementations reject anything else with ErrInvalidName.
type ImageStore interface {
	// Put writes r under name, replacing any existing object. size may be -1 when unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) (ObjectInfo, error)
	// Get opens the object for reading. The caller must close the reader.
	Get(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns object info without opening the content.
	Stat(ctx context.Context, name string) (ObjectInfo, error)
	// List returns the objects directly inside the store, recomputed on every call.
	List(ctx context.Context) ([]ObjectInfo, error)
	// Delete removes the object. It returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, name string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// ValidName reports whether name is usable as a single flat object name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// ContentType guesses the MIME type of a stored object from its extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
