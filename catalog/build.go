package catalog

import (
	"strings"
	"time"
)

// NewPrompt is the input for creating a prompt.
type NewPrompt struct {
	Title         string
	Description   string
	Prompt        string
	Tags          []string
	CreatorHandle string
	ImageURL      string
	Premium       bool
}

// PromptUpdate carries the fields to change; nil means unchanged.
type PromptUpdate struct {
	Title          *string
	Description    *string
	Prompt         *string
	Tags           []string
	CreatorHandle  *string
	ImageURL       *string
	Premium        *bool
	RegenerateSlug bool
}

// NewBlogPost is the input for creating a blog post.
type NewBlogPost struct {
	Title           string
	Excerpt         string
	Content         string
	CoverImageURL   string
	AuthorName      string
	AuthorAvatarURL string
	Tags            []string
	Published       bool
}

// BlogPostUpdate carries the fields to change; nil means unchanged.
type BlogPostUpdate struct {
	Title           *string
	Excerpt         *string
	Content         *string
	CoverImageURL   *string
	AuthorName      *string
	AuthorAvatarURL *string
	Tags            []string
	Published       *bool
	RegenerateSlug  bool
}

// PromptTitle is the title a new prompt will be stored under.
func (in NewPrompt) PromptTitle() string {
	if t := strings.TrimSpace(in.Title); t != "" {
		return t
	}
	return strings.TrimSpace(in.Description)
}

// BuildPrompt assembles a new prompt record. The slug must already be unique.
func BuildPrompt(in NewPrompt, id, slug string, now time.Time) Prompt {
	title := in.PromptTitle()
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = title
	}
	handle := strings.TrimSpace(in.CreatorHandle)
	if handle == "" {
		handle = DefaultHandle
	}
	tags := NormalizeTags(in.Tags)
	if len(tags) == 0 {
		tags = []string{DefaultTag}
	}
	image := LocalPath(strings.TrimSpace(in.ImageURL))
	return Prompt{
		ID:           id,
		Slug:         slug,
		Title:        title,
		Creator:      Creator{ID: CreatorID(handle), Handle: handle},
		CoverURL:     image,
		FullImageURL: image,
		Description:  description,
		Prompt:       strings.TrimSpace(in.Prompt),
		Tags:         tags,
		Likes:        0,
		Premium:      in.Premium,
		CreatedAt:    now.UTC(),
	}.Normalized()
}

// ApplyPromptUpdate merges u into p. Blank strings leave fields unchanged.
func ApplyPromptUpdate(p Prompt, u PromptUpdate) Prompt {
	if v := trimmed(u.Title); v != "" {
		p.Title = v
	}
	if v := trimmed(u.Description); v != "" {
		p.Description = v
	}
	if v := trimmed(u.Prompt); v != "" {
		p.Prompt = v
	}
	if v := trimmed(u.CreatorHandle); v != "" {
		p.Creator.Handle = v
		p.Creator.ID = CreatorID(v)
	}
	if tags := NormalizeTags(u.Tags); len(tags) > 0 {
		p.Tags = tags
	}
	if v := trimmed(u.ImageURL); v != "" {
		image := LocalPath(v)
		p.CoverURL = image
		p.FullImageURL = image
	}
	if u.Premium != nil {
		p.Premium = *u.Premium
	}
	return p.Normalized()
}

// BuildBlogPost assembles a new blog post. The slug must already be unique.
func BuildBlogPost(in NewBlogPost, id, slug string, now time.Time) BlogPost {
	now = now.UTC()
	return BlogPost{
		ID:              id,
		Slug:            slug,
		Title:           strings.TrimSpace(in.Title),
		Excerpt:         strings.TrimSpace(in.Excerpt),
		Content:         in.Content,
		CoverImageURL:   strings.TrimSpace(in.CoverImageURL),
		AuthorName:      strings.TrimSpace(in.AuthorName),
		AuthorAvatarURL: strings.TrimSpace(in.AuthorAvatarURL),
		Tags:            NormalizeTags(in.Tags),
		Published:       in.Published,
		Views:           0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}.Normalized()
}

// ApplyBlogPostUpdate merges u into b and stamps UpdatedAt.
func ApplyBlogPostUpdate(b BlogPost, u BlogPostUpdate, now time.Time) BlogPost {
	if v := trimmed(u.Title); v != "" {
		b.Title = v
	}
	if v := trimmed(u.Excerpt); v != "" {
		b.Excerpt = v
	}
	if u.Content != nil && strings.TrimSpace(*u.Content) != "" {
		b.Content = *u.Content
	}
	if v := trimmed(u.CoverImageURL); v != "" {
		b.CoverImageURL = v
	}
	if v := trimmed(u.AuthorName); v != "" {
		b.AuthorName = v
	}
	if u.AuthorAvatarURL != nil {
		b.AuthorAvatarURL = strings.TrimSpace(*u.AuthorAvatarURL)
	}
	if u.Tags != nil {
		b.Tags = NormalizeTags(u.Tags)
	}
	if u.Published != nil {
		b.Published = *u.Published
	}
	b.UpdatedAt = now.UTC()
	return b.Normalized()
}

// LocalPath makes bare relative image paths root-relative and leaves absolute
// URLs, root-relative paths and data URIs alone.
func LocalPath(p string) string {
	switch {
	case p == "",
		strings.HasPrefix(p, "/"),
		strings.HasPrefix(p, "http://"),
		strings.HasPrefix(p, "https://"),
		strings.HasPrefix(p, "data:"):
		return p
	}
	return "/" + p
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
