package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eringen/promptgallery/catalog"
)

func (s *Store) promptFilter(q catalog.Query) *filter {
	f := s.newFilter()
	f.search(q.SearchTerm(), "title", "creator_handle", "prompt")
	f.requireTags(q.RequiredTags())
	return f
}

// ListPrompts runs the query in the database.
func (s *Store) ListPrompts(ctx context.Context, q catalog.Query) (catalog.Page[catalog.Prompt], error) {
	page := catalog.Page[catalog.Prompt]{Items: []catalog.Prompt{}, Page: q.Page, PageSize: q.PageSize}
	f := s.promptFilter(q)

	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM prompts`+f.where(), f.args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count prompts: %w", err)
	}
	offset := q.Offset()
	if offset < 0 || offset >= page.Total {
		return page, nil
	}

	args := append(f.args, q.PageSize, offset)
	rows, err := s.query(ctx, `SELECT `+promptColumns+` FROM prompts`+f.where()+
		orderBy(q.Sort, "likes")+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return page, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, p)
	}
	return page, rows.Err()
}

func (s *Store) AllPrompts(ctx context.Context) ([]catalog.Prompt, error) {
	return s.selectPrompts(ctx, `SELECT `+promptColumns+` FROM prompts ORDER BY created_at DESC, id DESC`)
}

func (s *Store) selectPrompts(ctx context.Context, q string, args ...any) ([]catalog.Prompt, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select prompts: %w", err)
	}
	defer rows.Close()
	out := []catalog.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) PromptByID(ctx context.Context, id string) (catalog.Prompt, error) {
	p, err := scanPrompt(s.queryRow(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id))
	return p, notFound(err)
}

func (s *Store) PromptBySlug(ctx context.Context, slug string) (catalog.Prompt, error) {
	p, err := scanPrompt(s.queryRow(ctx, `SELECT `+promptColumns+` FROM prompts WHERE slug = ?`, slug))
	return p, notFound(err)
}

func (s *Store) InsertPrompt(ctx context.Context, in catalog.NewPrompt) (catalog.Prompt, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	base := catalog.Slugify(in.PromptTitle())
	taken, err := s.existingSlugs(ctx, "prompts", base, "")
	if err != nil {
		return catalog.Prompt{}, err
	}
	p := catalog.BuildPrompt(in, uuid.NewString(), catalog.UniqueSlug(base, taken), s.now())
	row := newPromptRow(p)
	if _, err := s.exec(ctx, `INSERT INTO prompts (`+promptColumns+`) VALUES (`+placeholders(14)+`)`, row.args()...); err != nil {
		return catalog.Prompt{}, fmt.Errorf("insert prompt: %w", err)
	}
	return p, nil
}

func (s *Store) UpdatePrompt(ctx context.Context, id string, u catalog.PromptUpdate) (catalog.Prompt, error) {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	current, err := s.PromptByID(ctx, id)
	if err != nil {
		return catalog.Prompt{}, err
	}
	p := catalog.ApplyPromptUpdate(current, u)
	if u.RegenerateSlug {
		base := catalog.Slugify(p.Title)
		taken, err := s.existingSlugs(ctx, "prompts", base, id)
		if err != nil {
			return catalog.Prompt{}, err
		}
		p.Slug = catalog.UniqueSlug(base, taken)
	}

	row := newPromptRow(p)
	res, err := s.exec(ctx, `UPDATE prompts SET slug = ?, title = ?, creator_id = ?, creator_handle = ?,
creator_avatar_url = ?, cover_url = ?, full_image_url = ?, description = ?, prompt = ?, tags = ?, premium = ?
WHERE id = ?`,
		row.Slug, row.Title, row.CreatorID, row.CreatorHandle, row.CreatorAvatarURL, row.CoverURL,
		row.FullImageURL, row.Description, row.Prompt, row.Tags, row.Premium, id)
	if err != nil {
		return catalog.Prompt{}, fmt.Errorf("update prompt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Prompt{}, catalog.ErrNotFound
	}
	// likes may have moved while the update was prepared
	return s.PromptByID(ctx, id)
}

func (s *Store) DeletePrompt(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete prompt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LikePrompt increments likes in a single statement.
func (s *Store) LikePrompt(ctx context.Context, slug string) (catalog.Prompt, error) {
	p, err := scanPrompt(s.queryRow(ctx,
		`UPDATE prompts SET likes = likes + 1 WHERE slug = ? RETURNING `+promptColumns, slug))
	if err != nil {
		return catalog.Prompt{}, notFound(err)
	}
	return p, nil
}

// RelatedPrompts ranks the most popular prompts sharing at least one tag with seed.
func (s *Store) RelatedPrompts(ctx context.Context, seed catalog.Prompt, limit int) ([]catalog.Prompt, error) {
	tags := catalog.NormalizeTags(seed.Tags)
	if len(tags) == 0 {
		return []catalog.Prompt{}, nil
	}
	parts := make([]string, len(tags))
	args := []any{seed.ID}
	for i, t := range tags {
		parts[i] = `tags LIKE ? ESCAPE '\'`
		args = append(args, tagPattern(t))
	}
	args = append(args, relatedSample)
	candidates, err := s.selectPrompts(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id <> ? AND (`+
		strings.Join(parts, " OR ")+`) ORDER BY likes DESC, created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	return catalog.Related(seed, candidates, limit), nil
}
