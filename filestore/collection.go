package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// collection is a JSON array on disk mirrored in memory. The cached copy is
// reused until the file's modification time or size changes.
type collection[T any] struct {
	path string
	// initial supplies the content written when the file does not exist yet.
	initial func() ([]T, error)

	mu      sync.RWMutex
	items   []T
	loaded  bool
	modTime time.Time
	size    int64

	// write serializes mutations so read-modify-write cycles never interleave.
	write sync.Mutex
}

func newCollection[T any](path string, initial func() ([]T, error)) *collection[T] {
	if initial == nil {
		initial = func() ([]T, error) { return []T{}, nil }
	}
	return &collection[T]{path: path, initial: initial}
}

func (c *collection[T]) fresh(fi fs.FileInfo) bool {
	return c.loaded && fi.ModTime().Equal(c.modTime) && fi.Size() == c.size
}

// snapshot returns a copy of the current items, reloading from disk if the
// file changed since the last load.
func (c *collection[T]) snapshot() ([]T, error) {
	fi, err := os.Stat(c.path)
	c.mu.RLock()
	if err == nil && c.fresh(fi) {
		items := slices.Clone(c.items)
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refresh(); err != nil {
		return nil, err
	}
	return slices.Clone(c.items), nil
}

// refresh reloads the file when stale. Caller holds mu.
func (c *collection[T]) refresh() error {
	fi, err := os.Stat(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		items, err := c.initial()
		if err != nil {
			return fmt.Errorf("initialise %s: %w", filepath.Base(c.path), err)
		}
		return c.persist(items)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(c.path), err)
	}
	if c.fresh(fi) {
		return nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(c.path), err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(c.path), err)
	}
	if items == nil {
		items = []T{}
	}
	c.items = items
	c.loaded = true
	c.modTime = fi.ModTime()
	c.size = fi.Size()
	return nil
}

// mutate runs fn over a fresh copy of the items and persists the result.
// fn returns the new item list; returning an error aborts without writing.
func (c *collection[T]) mutate(fn func(items []T) ([]T, error)) error {
	c.write.Lock()
	defer c.write.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refresh(); err != nil {
		return err
	}
	next, err := fn(slices.Clone(c.items))
	if err != nil {
		return err
	}
	return c.persist(next)
}

// persist atomically rewrites the file and records its new stat. Caller holds mu.
func (c *collection[T]) persist(items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(c.path), err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod %s: %w", filepath.Base(c.path), err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(c.path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", filepath.Base(c.path), err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", filepath.Base(c.path), err)
	}

	fi, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", filepath.Base(c.path), err)
	}
	c.items = items
	c.loaded = true
	c.modTime = fi.ModTime()
	c.size = fi.Size()
	return nil
}
