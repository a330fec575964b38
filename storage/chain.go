// Package storage persists processed images through an ordered chain of
// backends, ending in an inline data URI when every backend fails.
package storage

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// InlineTier labels images that were embedded as data URIs.
const InlineTier = "inline"

// ErrNotOwned is returned by Remover implementations for URLs they did not produce.
var ErrNotOwned = errors.New("storage: url not owned by backend")

var storedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "promptgallery_image_store_total",
	Help: "Images stored, labelled by the backend that accepted them.",
}, []string{"backend"})

// Backend stores a blob under key and returns the URL it can be fetched from.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Remover is implemented by backends that can delete what they stored.
type Remover interface {
	Owns(url string) bool
	Remove(ctx context.Context, url string) error
}

// Stored is the outcome of Chain.Store.
type Stored struct {
	URL     string
	Backend string
}

// Chain tries backends in order.
type Chain struct {
	backends []Backend
	log      *zap.Logger
}

// NewChain returns a chain over the given backends. Nil backends are skipped.
func NewChain(log *zap.Logger, backends ...Backend) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Chain{log: log}
	for _, b := range backends {
		if b != nil {
			c.backends = append(c.backends, b)
		}
	}
	return c
}

// Backends returns the names of the configured backends in order.
func (c *Chain) Backends() []string {
	names := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		names = append(names, b.Name())
	}
	return names
}

// Store writes data to the first backend that accepts it. Backend failures
// are logged and the next backend is tried; if all fail the image is returned
// inline as a data URI. The returned URL is never empty.
func (c *Chain) Store(ctx context.Context, key string, data []byte, contentType string) Stored {
	for _, b := range c.backends {
		url, err := b.Put(ctx, key, data, contentType)
		if err == nil && url != "" {
			storedTotal.WithLabelValues(b.Name()).Inc()
			return Stored{URL: url, Backend: b.Name()}
		}
		if err == nil {
			err = errors.New("empty url")
		}
		c.log.Warn("image backend failed, falling back",
			zap.String("backend", b.Name()),
			zap.String("key", key),
			zap.Error(err),
		)
	}
	storedTotal.WithLabelValues(InlineTier).Inc()
	return Stored{URL: DataURI(contentType, data), Backend: InlineTier}
}

// Discard removes url from the backend that owns it. Failures are logged only.
func (c *Chain) Discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	for _, b := range c.backends {
		r, ok := b.(Remover)
		if !ok || !r.Owns(url) {
			continue
		}
		if err := r.Remove(ctx, url); err != nil {
			c.log.Warn("discard image", zap.String("backend", b.Name()), zap.String("url", url), zap.Error(err))
		}
		return
	}
}

// DataURI encodes data as a base64 data URI.
func DataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
