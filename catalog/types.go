// Package catalog holds the gallery's record types, the storage contract both
// backends implement, and the pure query, ranking and slug logic they share.
package catalog

import (
	"strings"
	"time"
)

// Canonical values applied when a stored record is missing a field.
const (
	PlaceholderImage = "/images/placeholder.svg"
	DefaultTitle     = "Untitled"
	DefaultHandle    = "anonymous"
	DefaultAuthor    = "Admin"
	DefaultTag       = "general"
)

// Creator is the free-text attribution attached to a prompt.
type Creator struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Prompt is an image-generation prompt with its cover image.
type Prompt struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Creator      Creator   `json:"creator"`
	CoverURL     string    `json:"coverUrl"`
	FullImageURL string    `json:"fullImageUrl,omitempty"`
	Description  string    `json:"description"`
	Prompt       string    `json:"prompt"`
	Tags         []string  `json:"tags"`
	Likes        int       `json:"likes"`
	Premium      bool      `json:"premium"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BlogPost is an HTML article in the blog collection.
type BlogPost struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Excerpt         string    `json:"excerpt"`
	Content         string    `json:"content"`
	CoverImageURL   string    `json:"coverImageUrl"`
	AuthorName      string    `json:"authorName"`
	AuthorAvatarURL string    `json:"authorAvatarUrl,omitempty"`
	Tags            []string  `json:"tags"`
	Published       bool      `json:"published"`
	Views           int       `json:"views"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Record is what the query engine and the ranker need to know about an item.
type Record interface {
	RecordID() string
	SearchText() []string
	TagList() []string
	Popularity() int
	Created() time.Time
	Visible() bool
}

func (p Prompt) RecordID() string     { return p.ID }
func (p Prompt) TagList() []string    { return p.Tags }
func (p Prompt) Popularity() int      { return p.Likes }
func (p Prompt) Created() time.Time   { return p.CreatedAt }
func (p Prompt) Visible() bool        { return true }
func (p Prompt) SearchText() []string { return []string{p.Title, p.Creator.Handle, p.Prompt} }

func (b BlogPost) RecordID() string   { return b.ID }
func (b BlogPost) TagList() []string  { return b.Tags }
func (b BlogPost) Popularity() int    { return b.Views }
func (b BlogPost) Created() time.Time { return b.CreatedAt }
func (b BlogPost) Visible() bool      { return b.Published }
func (b BlogPost) SearchText() []string {
	return []string{b.Title, b.AuthorName, b.Excerpt, b.Content}
}

// Normalized fills empty fields with the canonical defaults.
func (p Prompt) Normalized() Prompt {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Creator.Handle == "" {
		p.Creator.Handle = DefaultHandle
	}
	if p.Creator.ID == "" {
		p.Creator.ID = CreatorID(p.Creator.Handle)
	}
	if p.CoverURL == "" {
		p.CoverURL = PlaceholderImage
	}
	if p.FullImageURL == "" {
		p.FullImageURL = p.CoverURL
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Likes < 0 {
		p.Likes = 0
	}
	return p
}

// Normalized fills empty fields with the canonical defaults.
func (b BlogPost) Normalized() BlogPost {
	if b.Title == "" {
		b.Title = DefaultTitle
	}
	if b.AuthorName == "" {
		b.AuthorName = DefaultAuthor
	}
	if b.CoverImageURL == "" {
		b.CoverImageURL = PlaceholderImage
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	if b.Views < 0 {
		b.Views = 0
	}
	return b
}

// CreatorID derives the creator identifier stored alongside a handle.
func CreatorID(handle string) string {
	if handle == "" {
		handle = DefaultHandle
	}
	return "creator-" + handle
}

// NormalizeTags lower-cases and trims tags, dropping empties and duplicates
// while keeping first-seen order. A tag containing commas is split, since a
// comma is the tag separator in filters and in the SQL encoding.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		for _, t := range strings.Split(raw, ",") {
			t = normalizeTag(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
