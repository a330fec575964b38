package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("catalog: record not found")

// PromptStore persists the prompt collection.
type PromptStore interface {
	// ListPrompts returns one page of prompts matching q.
	ListPrompts(ctx context.Context, q Query) (Page[Prompt], error)

	// AllPrompts returns every prompt, newest first.
	AllPrompts(ctx context.Context) ([]Prompt, error)

	PromptByID(ctx context.Context, id string) (Prompt, error)
	PromptBySlug(ctx context.Context, slug string) (Prompt, error)

	// InsertPrompt assigns id, unique slug and creation time and stores the prompt.
	InsertPrompt(ctx context.Context, in NewPrompt) (Prompt, error)

	// UpdatePrompt merges the provided fields into the prompt with the given id.
	UpdatePrompt(ctx context.Context, id string, u PromptUpdate) (Prompt, error)

	// DeletePrompt reports whether a prompt was removed.
	DeletePrompt(ctx context.Context, id string) (bool, error)

	// LikePrompt increments the like counter of the prompt with the given slug.
	LikePrompt(ctx context.Context, slug string) (Prompt, error)

	// RelatedPrompts returns up to limit prompts ranked by tag overlap with seed.
	RelatedPrompts(ctx context.Context, seed Prompt, limit int) ([]Prompt, error)
}

// BlogStore persists the blog collection.
type BlogStore interface {
	ListBlogPosts(ctx context.Context, q Query) (Page[BlogPost], error)
	AllBlogPosts(ctx context.Context) ([]BlogPost, error)
	BlogPostByID(ctx context.Context, id string) (BlogPost, error)
	BlogPostBySlug(ctx context.Context, slug string) (BlogPost, error)
	InsertBlogPost(ctx context.Context, in NewBlogPost) (BlogPost, error)
	UpdateBlogPost(ctx context.Context, id string, u BlogPostUpdate) (BlogPost, error)
	DeleteBlogPost(ctx context.Context, id string) (bool, error)

	// ViewBlogPost increments the view counter of the post with the given slug.
	ViewBlogPost(ctx context.Context, slug string) (BlogPost, error)

	// RelatedBlogPosts ranks posts sharing tags with seed. With publishedOnly,
	// drafts are removed from the candidates before ranking.
	RelatedBlogPosts(ctx context.Context, seed BlogPost, limit int, publishedOnly bool) ([]BlogPost, error)
}

// Store is a complete storage backend.
type Store interface {
	PromptStore
	BlogStore
	Close() error
}
