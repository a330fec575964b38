// Package filestore implements the catalog store on JSON documents in a local
// directory. It is meant for small collections and single-process deployments.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eringen/promptgallery/catalog"
)

const (
	PromptsFile       = "gallery-prompts.json"
	BlogFile          = "blog-posts.json"
	LegacyPromptsFile = "custom-prompts.json"
)

// Options configures Open.
type Options struct {
	// Dir holds the collection files. It is created if missing.
	Dir string
	// SeedPrompts are written together with any legacy prompts when the
	// prompt file does not exist yet.
	SeedPrompts []catalog.Prompt
	Logger      *zap.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// Store keeps prompts and blog posts in two JSON files.
type Store struct {
	prompts *collection[catalog.Prompt]
	posts   *collection[catalog.BlogPost]
	log     *zap.Logger
	now     func() time.Time
}

var _ catalog.Store = (*Store)(nil)

// Open prepares the data directory and loads the prompt collection,
// initialising it from legacy and seed data when it does not exist.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, errors.New("filestore: data dir required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{log: opts.Logger, now: opts.Now}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	seed := slices.Clone(opts.SeedPrompts)
	legacyPath := filepath.Join(opts.Dir, LegacyPromptsFile)
	s.prompts = newCollection(filepath.Join(opts.Dir, PromptsFile), func() ([]catalog.Prompt, error) {
		legacy := s.readLegacy(legacyPath)
		return append(legacy, seed...), nil
	})
	s.posts = newCollection[catalog.BlogPost](filepath.Join(opts.Dir, BlogFile), nil)

	if _, err := s.prompts.snapshot(); err != nil {
		return nil, err
	}
	return s, nil
}

// readLegacy returns prompts from an older single-file layout. Problems are
// logged and treated as an empty list.
func (s *Store) readLegacy(path string) []catalog.Prompt {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.log.Warn("read legacy prompts", zap.String("path", path), zap.Error(err))
		return nil
	}
	var legacy []catalog.Prompt
	if err := json.Unmarshal(raw, &legacy); err != nil {
		s.log.Warn("parse legacy prompts", zap.String("path", path), zap.Error(err))
		return nil
	}
	s.log.Info("merged legacy prompts", zap.Int("count", len(legacy)))
	return legacy
}

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }

func newID(prefix string, now time.Time) string {
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

// Prompts

func (s *Store) loadPrompts() ([]catalog.Prompt, error) {
	items, err := s.prompts.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Tags = slices.Clone(items[i].Tags)
		items[i] = items[i].Normalized()
	}
	return items, nil
}

func (s *Store) ListPrompts(_ context.Context, q catalog.Query) (catalog.Page[catalog.Prompt], error) {
	items, err := s.loadPrompts()
	if err != nil {
		return catalog.Page[catalog.Prompt]{}, err
	}
	return catalog.Run(items, q), nil
}

func (s *Store) AllPrompts(_ context.Context) ([]catalog.Prompt, error) {
	items, err := s.loadPrompts()
	if err != nil {
		return nil, err
	}
	catalog.SortRecords(items, catalog.SortNew)
	return items, nil
}

func (s *Store) PromptByID(_ context.Context, id string) (catalog.Prompt, error) {
	return s.findPrompt(func(p catalog.Prompt) bool { return p.ID == id })
}

func (s *Store) PromptBySlug(_ context.Context, slug string) (catalog.Prompt, error) {
	return s.findPrompt(func(p catalog.Prompt) bool { return p.Slug == slug })
}

func (s *Store) findPrompt(match func(catalog.Prompt) bool) (catalog.Prompt, error) {
	items, err := s.loadPrompts()
	if err != nil {
		return catalog.Prompt{}, err
	}
	if i := slices.IndexFunc(items, match); i >= 0 {
		return items[i], nil
	}
	return catalog.Prompt{}, catalog.ErrNotFound
}

func promptSlugs(items []catalog.Prompt, skip int) []string {
	slugs := make([]string, 0, len(items))
	for i, p := range items {
		if i != skip {
			slugs = append(slugs, p.Slug)
		}
	}
	return slugs
}

func (s *Store) InsertPrompt(_ context.Context, in catalog.NewPrompt) (catalog.Prompt, error) {
	var created catalog.Prompt
	err := s.prompts.mutate(func(items []catalog.Prompt) ([]catalog.Prompt, error) {
		now := s.now()
		slug := catalog.UniqueSlug(catalog.Slugify(in.PromptTitle()), promptSlugs(items, -1))
		created = catalog.BuildPrompt(in, newID("prompt", now), slug, now)
		return append([]catalog.Prompt{created}, items...), nil
	})
	if err != nil {
		return catalog.Prompt{}, fmt.Errorf("insert prompt: %w", err)
	}
	return created, nil
}

func (s *Store) UpdatePrompt(_ context.Context, id string, u catalog.PromptUpdate) (catalog.Prompt, error) {
	var updated catalog.Prompt
	err := s.prompts.mutate(func(items []catalog.Prompt) ([]catalog.Prompt, error) {
		i := slices.IndexFunc(items, func(p catalog.Prompt) bool { return p.ID == id })
		if i < 0 {
			return nil, catalog.ErrNotFound
		}
		updated = catalog.ApplyPromptUpdate(items[i].Normalized(), u)
		if u.RegenerateSlug {
			updated.Slug = catalog.UniqueSlug(catalog.Slugify(updated.Title), promptSlugs(items, i))
		}
		items[i] = updated
		return items, nil
	})
	if err != nil {
		return catalog.Prompt{}, err
	}
	return updated, nil
}

func (s *Store) DeletePrompt(_ context.Context, id string) (bool, error) {
	removed := false
	err := s.prompts.mutate(func(items []catalog.Prompt) ([]catalog.Prompt, error) {
		before := len(items)
		items = slices.DeleteFunc(items, func(p catalog.Prompt) bool { return p.ID == id })
		removed = len(items) < before
		return items, nil
	})
	if err != nil {
		return false, fmt.Errorf("delete prompt: %w", err)
	}
	return removed, nil
}

func (s *Store) LikePrompt(_ context.Context, slug string) (catalog.Prompt, error) {
	var liked catalog.Prompt
	err := s.prompts.mutate(func(items []catalog.Prompt) ([]catalog.Prompt, error) {
		i := slices.IndexFunc(items, func(p catalog.Prompt) bool { return p.Slug == slug })
		if i < 0 {
			return nil, catalog.ErrNotFound
		}
		items[i] = items[i].Normalized()
		items[i].Likes++
		liked = items[i]
		return items, nil
	})
	if err != nil {
		return catalog.Prompt{}, err
	}
	return liked, nil
}

func (s *Store) RelatedPrompts(_ context.Context, seed catalog.Prompt, limit int) ([]catalog.Prompt, error) {
	items, err := s.loadPrompts()
	if err != nil {
		return nil, err
	}
	return catalog.Related(seed, items, limit), nil
}

// Blog posts

func (s *Store) loadPosts() ([]catalog.BlogPost, error) {
	items, err := s.posts.snapshot()
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Tags = slices.Clone(items[i].Tags)
		items[i] = items[i].Normalized()
	}
	return items, nil
}

func (s *Store) ListBlogPosts(_ context.Context, q catalog.Query) (catalog.Page[catalog.BlogPost], error) {
	items, err := s.loadPosts()
	if err != nil {
		return catalog.Page[catalog.BlogPost]{}, err
	}
	return catalog.Run(items, q), nil
}

func (s *Store) AllBlogPosts(_ context.Context) ([]catalog.BlogPost, error) {
	items, err := s.loadPosts()
	if err != nil {
		return nil, err
	}
	catalog.SortRecords(items, catalog.SortNew)
	return items, nil
}

func (s *Store) BlogPostByID(_ context.Context, id string) (catalog.BlogPost, error) {
	return s.findPost(func(b catalog.BlogPost) bool { return b.ID == id })
}

func (s *Store) BlogPostBySlug(_ context.Context, slug string) (catalog.BlogPost, error) {
	return s.findPost(func(b catalog.BlogPost) bool { return b.Slug == slug })
}

func (s *Store) findPost(match func(catalog.BlogPost) bool) (catalog.BlogPost, error) {
	items, err := s.loadPosts()
	if err != nil {
		return catalog.BlogPost{}, err
	}
	if i := slices.IndexFunc(items, match); i >= 0 {
		return items[i], nil
	}
	return catalog.BlogPost{}, catalog.ErrNotFound
}

func postSlugs(items []catalog.BlogPost, skip int) []string {
	slugs := make([]string, 0, len(items))
	for i, b := range items {
		if i != skip {
			slugs = append(slugs, b.Slug)
		}
	}
	return slugs
}

func (s *Store) InsertBlogPost(_ context.Context, in catalog.NewBlogPost) (catalog.BlogPost, error) {
	var created catalog.BlogPost
	err := s.posts.mutate(func(items []catalog.BlogPost) ([]catalog.BlogPost, error) {
		now := s.now()
		slug := catalog.UniqueSlug(catalog.SlugifyOr(in.Title, "post"), postSlugs(items, -1))
		created = catalog.BuildBlogPost(in, newID("post", now), slug, now)
		return append([]catalog.BlogPost{created}, items...), nil
	})
	if err != nil {
		return catalog.BlogPost{}, fmt.Errorf("insert blog post: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateBlogPost(_ context.Context, id string, u catalog.BlogPostUpdate) (catalog.BlogPost, error) {
	var updated catalog.BlogPost
	err := s.posts.mutate(func(items []catalog.BlogPost) ([]catalog.BlogPost, error) {
		i := slices.IndexFunc(items, func(b catalog.BlogPost) bool { return b.ID == id })
		if i < 0 {
			return nil, catalog.ErrNotFound
		}
		updated = catalog.ApplyBlogPostUpdate(items[i].Normalized(), u, s.now())
		if u.RegenerateSlug {
			updated.Slug = catalog.UniqueSlug(catalog.SlugifyOr(updated.Title, "post"), postSlugs(items, i))
		}
		items[i] = updated
		return items, nil
	})
	if err != nil {
		return catalog.BlogPost{}, err
	}
	return updated, nil
}

func (s *Store) DeleteBlogPost(_ context.Context, id string) (bool, error) {
	removed := false
	err := s.posts.mutate(func(items []catalog.BlogPost) ([]catalog.BlogPost, error) {
		before := len(items)
		items = slices.DeleteFunc(items, func(b catalog.BlogPost) bool { return b.ID == id })
		removed = len(items) < before
		return items, nil
	})
	if err != nil {
		return false, fmt.Errorf("delete blog post: %w", err)
	}
	return removed, nil
}

func (s *Store) ViewBlogPost(_ context.Context, slug string) (catalog.BlogPost, error) {
	var viewed catalog.BlogPost
	err := s.posts.mutate(func(items []catalog.BlogPost) ([]catalog.BlogPost, error) {
		i := slices.IndexFunc(items, func(b catalog.BlogPost) bool { return b.Slug == slug })
		if i < 0 {
			return nil, catalog.ErrNotFound
		}
		items[i] = items[i].Normalized()
		items[i].Views++
		viewed = items[i]
		return items, nil
	})
	if err != nil {
		return catalog.BlogPost{}, err
	}
	return viewed, nil
}

func (s *Store) RelatedBlogPosts(_ context.Context, seed catalog.BlogPost, limit int, publishedOnly bool) ([]catalog.BlogPost, error) {
	items, err := s.loadPosts()
	if err != nil {
		return nil, err
	}
	if publishedOnly {
		items = slices.DeleteFunc(items, func(b catalog.BlogPost) bool { return !b.Published })
	}
	return catalog.Related(seed, items, limit), nil
}
