package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/eringen/promptgallery/catalog"
)

// timeLayout is fixed-width so text comparison matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const promptColumns = `id, slug, title, creator_id, creator_handle, creator_avatar_url, cover_url,
full_image_url, description, prompt, tags, likes, premium, created_at`

const blogColumns = `id, slug, title, excerpt, content, cover_image_url, author_name,
author_avatar_url, tags, published, views, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// promptRow is the storage shape of a prompt.
type promptRow struct {
	ID               string
	Slug             string
	Title            string
	CreatorID        string
	CreatorHandle    string
	CreatorAvatarURL string
	CoverURL         string
	FullImageURL     string
	Description      string
	Prompt           string
	Tags             string
	Likes            int
	Premium          int
	CreatedAt        string
}

func newPromptRow(p catalog.Prompt) promptRow {
	return promptRow{
		ID:               p.ID,
		Slug:             p.Slug,
		Title:            p.Title,
		CreatorID:        p.Creator.ID,
		CreatorHandle:    p.Creator.Handle,
		CreatorAvatarURL: p.Creator.AvatarURL,
		CoverURL:         p.CoverURL,
		FullImageURL:     p.FullImageURL,
		Description:      p.Description,
		Prompt:           p.Prompt,
		Tags:             encodeTags(p.Tags),
		Likes:            p.Likes,
		Premium:          boolInt(p.Premium),
		CreatedAt:        encodeTime(p.CreatedAt),
	}
}

func (r *promptRow) scan(sc scanner) error {
	return sc.Scan(&r.ID, &r.Slug, &r.Title, &r.CreatorID, &r.CreatorHandle, &r.CreatorAvatarURL,
		&r.CoverURL, &r.FullImageURL, &r.Description, &r.Prompt, &r.Tags, &r.Likes, &r.Premium, &r.CreatedAt)
}

// args returns the column values in promptColumns order.
func (r promptRow) args() []any {
	return []any{r.ID, r.Slug, r.Title, r.CreatorID, r.CreatorHandle, r.CreatorAvatarURL,
		r.CoverURL, r.FullImageURL, r.Description, r.Prompt, r.Tags, r.Likes, r.Premium, r.CreatedAt}
}

func (r promptRow) prompt() (catalog.Prompt, error) {
	created, err := decodeTime(r.CreatedAt)
	if err != nil {
		return catalog.Prompt{}, fmt.Errorf("prompt %s: %w", r.ID, err)
	}
	return catalog.Prompt{
		ID:    r.ID,
		Slug:  r.Slug,
		Title: r.Title,
		Creator: catalog.Creator{
			ID:        r.CreatorID,
			Handle:    r.CreatorHandle,
			AvatarURL: r.CreatorAvatarURL,
		},
		CoverURL:     r.CoverURL,
		FullImageURL: r.FullImageURL,
		Description:  r.Description,
		Prompt:       r.Prompt,
		Tags:         decodeTags(r.Tags),
		Likes:        r.Likes,
		Premium:      r.Premium != 0,
		CreatedAt:    created,
	}.Normalized(), nil
}

func scanPrompt(sc scanner) (catalog.Prompt, error) {
	var r promptRow
	if err := r.scan(sc); err != nil {
		return catalog.Prompt{}, err
	}
	return r.prompt()
}

// blogRow is the storage shape of a blog post.
type blogRow struct {
	ID              string
	Slug            string
	Title           string
	Excerpt         string
	Content         string
	CoverImageURL   string
	AuthorName      string
	AuthorAvatarURL string
	Tags            string
	Published       int
	Views           int
	CreatedAt       string
	UpdatedAt       string
}

func newBlogRow(b catalog.BlogPost) blogRow {
	return blogRow{
		ID:              b.ID,
		Slug:            b.Slug,
		Title:           b.Title,
		Excerpt:         b.Excerpt,
		Content:         b.Content,
		CoverImageURL:   b.CoverImageURL,
		AuthorName:      b.AuthorName,
		AuthorAvatarURL: b.AuthorAvatarURL,
		Tags:            encodeTags(b.Tags),
		Published:       boolInt(b.Published),
		Views:           b.Views,
		CreatedAt:       encodeTime(b.CreatedAt),
		UpdatedAt:       encodeTime(b.UpdatedAt),
	}
}

func (r *blogRow) scan(sc scanner) error {
	return sc.Scan(&r.ID, &r.Slug, &r.Title, &r.Excerpt, &r.Content, &r.CoverImageURL, &r.AuthorName,
		&r.AuthorAvatarURL, &r.Tags, &r.Published, &r.Views, &r.CreatedAt, &r.UpdatedAt)
}

func (r blogRow) args() []any {
	return []any{r.ID, r.Slug, r.Title, r.Excerpt, r.Content, r.CoverImageURL, r.AuthorName,
		r.AuthorAvatarURL, r.Tags, r.Published, r.Views, r.CreatedAt, r.UpdatedAt}
}

func (r blogRow) post() (catalog.BlogPost, error) {
	created, err := decodeTime(r.CreatedAt)
	if err != nil {
		return catalog.BlogPost{}, fmt.Errorf("blog post %s: %w", r.ID, err)
	}
	updated, err := decodeTime(r.UpdatedAt)
	if err != nil {
		return catalog.BlogPost{}, fmt.Errorf("blog post %s: %w", r.ID, err)
	}
	return catalog.BlogPost{
		ID:              r.ID,
		Slug:            r.Slug,
		Title:           r.Title,
		Excerpt:         r.Excerpt,
		Content:         r.Content,
		CoverImageURL:   r.CoverImageURL,
		AuthorName:      r.AuthorName,
		AuthorAvatarURL: r.AuthorAvatarURL,
		Tags:            decodeTags(r.Tags),
		Published:       r.Published != 0,
		Views:           r.Views,
		CreatedAt:       created,
		UpdatedAt:       updated,
	}.Normalized(), nil
}

func scanBlogPost(sc scanner) (catalog.BlogPost, error) {
	var r blogRow
	if err := r.scan(sc); err != nil {
		return catalog.BlogPost{}, err
	}
	return r.post()
}

// encodeTags stores tags as ",a,b," so a single tag can be matched with LIKE '%,a,%'.
func encodeTags(tags []string) string {
	tags = catalog.NormalizeTags(tags)
	if len(tags) == 0 {
		return ","
	}
	return "," + strings.Join(tags, ",") + ","
}

func decodeTags(s string) []string {
	s = strings.Trim(s, ",")
	if s == "" {
		return []string{}
	}
	return catalog.NormalizeTags(strings.Split(s, ","))
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
