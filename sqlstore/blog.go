package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eringen/promptgallery/catalog"
)

const postSlugFallback = "post"

func (s *Store) blogFilter(q catalog.Query) *filter {
	f := s.newFilter()
	if q.PublishedOnly {
		f.add("published = 1")
	}
	f.search(q.SearchTerm(), "title", "author_name", "excerpt", "content")
	f.requireTags(q.RequiredTags())
	return f
}

func (s *Store) ListBlogPosts(ctx context.Context, q catalog.Query) (catalog.Page[catalog.BlogPost], error) {
	page := catalog.Page[catalog.BlogPost]{Items: []catalog.BlogPost{}, Page: q.Page, PageSize: q.PageSize}
	f := s.blogFilter(q)

	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM blog_posts`+f.where(), f.args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count blog posts: %w", err)
	}
	offset := q.Offset()
	if offset < 0 || offset >= page.Total {
		return page, nil
	}

	args := append(f.args, q.PageSize, offset)
	items, err := s.selectPosts(ctx, `SELECT `+blogColumns+` FROM blog_posts`+f.where()+
		orderBy(q.Sort, "views")+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return page, err
	}
	page.Items = items
	return page, nil
}

func (s *Store) AllBlogPosts(ctx context.Context) ([]catalog.BlogPost, error) {
	return s.selectPosts(ctx, `SELECT `+blogColumns+` FROM blog_posts ORDER BY created_at DESC, id DESC`)
}

func (s *Store) selectPosts(ctx context.Context, q string, args ...any) ([]catalog.BlogPost, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select blog posts: %w", err)
	}
	defer rows.Close()
	out := []catalog.BlogPost{}
	for rows.Next() {
		b, err := scanBlogPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) BlogPostByID(ctx context.Context, id string) (catalog.BlogPost, error) {
	b, err := scanBlogPost(s.queryRow(ctx, `SELECT `+blogColumns+` FROM blog_posts WHERE id = ?`, id))
	return b, notFound(err)
}

func (s *Store) BlogPostBySlug(ctx context.Context, slug string) (catalog.BlogPost, error) {
	b, err := scanBlogPost(s.queryRow(ctx, `SELECT `+blogColumns+` FROM blog_posts WHERE slug = ?`, slug))
	return b, notFound(err)
}

func (s *Store) InsertBlogPost(ctx context.Context, in catalog.NewBlogPost) (catalog.BlogPost, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	base := catalog.SlugifyOr(in.Title, postSlugFallback)
	taken, err := s.existingSlugs(ctx, "blog_posts", base, "")
	if err != nil {
		return catalog.BlogPost{}, err
	}
	b := catalog.BuildBlogPost(in, uuid.NewString(), catalog.UniqueSlug(base, taken), s.now())
	row := newBlogRow(b)
	if _, err := s.exec(ctx, `INSERT INTO blog_posts (`+blogColumns+`) VALUES (`+placeholders(13)+`)`, row.args()...); err != nil {
		return catalog.BlogPost{}, fmt.Errorf("insert blog post: %w", err)
	}
	return b, nil
}

func (s *Store) UpdateBlogPost(ctx context.Context, id string, u catalog.BlogPostUpdate) (catalog.BlogPost, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	current, err := s.BlogPostByID(ctx, id)
	if err != nil {
		return catalog.BlogPost{}, err
	}
	b := catalog.ApplyBlogPostUpdate(current, u, s.now())
	if u.RegenerateSlug {
		base := catalog.SlugifyOr(b.Title, postSlugFallback)
		taken, err := s.existingSlugs(ctx, "blog_posts", base, id)
		if err != nil {
			return catalog.BlogPost{}, err
		}
		b.Slug = catalog.UniqueSlug(base, taken)
	}

	row := newBlogRow(b)
	res, err := s.exec(ctx, `UPDATE blog_posts SET slug = ?, title = ?, excerpt = ?, content = ?,
cover_image_url = ?, author_name = ?, author_avatar_url = ?, tags = ?, published = ?, updated_at = ?
WHERE id = ?`,
		row.Slug, row.Title, row.Excerpt, row.Content, row.CoverImageURL, row.AuthorName,
		row.AuthorAvatarURL, row.Tags, row.Published, row.UpdatedAt, id)
	if err != nil {
		return catalog.BlogPost{}, fmt.Errorf("update blog post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.BlogPost{}, catalog.ErrNotFound
	}
	return s.BlogPostByID(ctx, id)
}

func (s *Store) DeleteBlogPost(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete blog post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ViewBlogPost increments views in a single statement.
func (s *Store) ViewBlogPost(ctx context.Context, slug string) (catalog.BlogPost, error) {
	b, err := scanBlogPost(s.queryRow(ctx,
		`UPDATE blog_posts SET views = views + 1 WHERE slug = ? RETURNING `+blogColumns, slug))
	if err != nil {
		return catalog.BlogPost{}, notFound(err)
	}
	return b, nil
}

func (s *Store) RelatedBlogPosts(ctx context.Context, seed catalog.BlogPost, limit int, publishedOnly bool) ([]catalog.BlogPost, error) {
	tags := catalog.NormalizeTags(seed.Tags)
	if len(tags) == 0 {
		return []catalog.BlogPost{}, nil
	}
	parts := make([]string, len(tags))
	args := []any{seed.ID}
	for i, t := range tags {
		parts[i] = `tags LIKE ? ESCAPE '\'`
		args = append(args, tagPattern(t))
	}
	args = append(args, relatedSample)
	visible := ""
	if publishedOnly {
		visible = " AND published = 1"
	}
	candidates, err := s.selectPosts(ctx, `SELECT `+blogColumns+` FROM blog_posts WHERE id <> ?`+visible+` AND (`+
		strings.Join(parts, " OR ")+`) ORDER BY views DESC, created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	return catalog.Related(seed, candidates, limit), nil
}
