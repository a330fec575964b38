package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// UploadsPrefix is the URL path local uploads are served under.
const UploadsPrefix = "/uploads/"

// Local writes files below a directory served at UploadsPrefix.
type Local struct {
	dir string
}

// NewLocal returns a backend rooted at dir, normally <static>/uploads.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Name() string { return "local" }

// Dir returns the root directory.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	rel, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return UploadsPrefix + rel, nil
}

// Owns reports whether url is a site-relative upload path.
func (l *Local) Owns(url string) bool {
	return strings.HasPrefix(url, UploadsPrefix)
}

// Remove deletes the file behind an /uploads/ URL. Missing files are not an error.
func (l *Local) Remove(_ context.Context, url string) error {
	if !l.Owns(url) {
		return ErrNotOwned
	}
	rel, err := cleanKey(strings.TrimPrefix(url, UploadsPrefix))
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.dir, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// cleanKey rejects keys that would escape the root directory.
func cleanKey(key string) (string, error) {
	rel := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return rel, nil
}
