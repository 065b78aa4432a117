package storage

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

// tempPrefix marks in-flight writes. Such entries are never listed or addressable.
const tempPrefix = ".tmp-"

// localStorage keeps objects as regular files in a single directory.
// Concurrent writers to the same name race with last-write-wins semantics.
type localStorage struct {
	root    string
	exclude map[string]bool
}

// NewLocal creates the directory if needed and returns a store rooted at it.
// Entries named in exclude are never listed; use it for sibling directories such as thumbnails.
func NewLocal(root string, exclude ...string) (ImageStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	ex := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		ex[e] = true
	}
	return &localStorage{root: root, exclude: ex}, nil
}

func (l *localStorage) path(name string) (string, error) {
	if !ValidName(name) || strings.HasPrefix(name, tempPrefix) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(l.root, name), nil
}

// Put writes into a temporary file in the same directory and renames it over name, so readers and a
// failed write never observe a partial object. An existing object survives any write error.
func (l *localStorage) Put(_ context.Context, name string, r io.Reader, _ int64) (ObjectInfo, error) {
	p, err := l.path(name)
	if err != nil {
		return ObjectInfo{}, err
	}

	f, err := os.CreateTemp(l.root, tempPrefix+"*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("close %s: %w", name, err)
	}
	// CreateTemp uses 0600; stored images are served and read by other tools.
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("commit %s: %w", name, err)
	}

	return l.stat(name, p)
}

func (l *localStorage) Get(_ context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	info, err := l.stat(name, p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, ObjectInfo{}, mapNotExist(name, err)
	}
	return f, info, nil
}

func (l *localStorage) Stat(_ context.Context, name string) (ObjectInfo, error) {
	p, err := l.path(name)
	if err != nil {
		return ObjectInfo{}, err
	}
	return l.stat(name, p)
}

func (l *localStorage) stat(name, p string) (ObjectInfo, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return ObjectInfo{}, mapNotExist(name, err)
	}
	if !fi.Mode().IsRegular() {
		return ObjectInfo{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return ObjectInfo{Name: name, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// List is non-recursive: only regular files directly under root are returned, sorted by name.
func (l *localStorage) List(_ context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", l.root, err)
	}

	items := make([]ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if l.exclude[e.Name()] || !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		items = append(items, ObjectInfo{Name: e.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (l *localStorage) Delete(_ context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if _, err := l.stat(name, p); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return mapNotExist(name, err)
	}
	return nil
}

func (l *localStorage) Ping(_ context.Context) error {
	fi, err := os.Stat(l.root)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", l.root)
	}
	return nil
}

func mapNotExist(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return err
}
