package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eringen/promptgallery/catalog"
	"github.com/eringen/promptgallery/filestore"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	s, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "gallery.db"),
		// Each call advances a second so creation order is unambiguous.
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open(context.Background(), Config{Driver: DriverSQLite}); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestRebind(t *testing.T) {
	s := &Store{postgres: true}
	got := s.rebind(`SELECT a FROM t WHERE b = ? AND c LIKE ? LIMIT ?`)
	want := `SELECT a FROM t WHERE b = $1 AND c LIKE $2 LIMIT $3`
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	s.postgres = false
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}

func TestTagEncoding(t *testing.T) {
	if got := encodeTags([]string{"Go", " web ", "go"}); got != ",go,web," {
		t.Errorf("encodeTags = %q", got)
	}
	if got := encodeTags([]string{"a,b"}); got != ",a,b," {
		t.Errorf("encodeTags with comma = %q", got)
	}
	if got := decodeTags(encodeTags([]string{"x,y", "z"})); len(got) != 3 || got[0] != "x" || got[2] != "z" {
		t.Errorf("round trip = %v", got)
	}
	if got := encodeTags(nil); got != "," {
		t.Errorf("encodeTags(nil) = %q", got)
	}
	if got := decodeTags(","); got == nil || len(got) != 0 {
		t.Errorf("decodeTags(\",\") = %v", got)
	}
	if got := tagPattern("c_d"); got != `%,c\_d,%` {
		t.Errorf("tagPattern = %q", got)
	}
}

func TestInsertAndGetPrompt(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p, err := s.InsertPrompt(ctx, catalog.NewPrompt{
		Title:         "Neon City",
		Prompt:        "rainy street",
		Tags:          []string{"Cyberpunk"},
		CreatorHandle: "ada",
		ImageURL:      "https://cdn.example.com/images/neon.jpg",
		Premium:       true,
	})
	if err != nil {
		t.Fatalf("InsertPrompt failed: %v", err)
	}

	got, err := s.PromptBySlug(ctx, "neon-city")
	if err != nil {
		t.Fatalf("PromptBySlug failed: %v", err)
	}
	if got.ID != p.ID || got.Title != "Neon City" || got.Creator.ID != "creator-ada" {
		t.Errorf("prompt = %+v", got)
	}
	if !got.Premium || got.Likes != 0 || got.Description != "Neon City" {
		t.Errorf("prompt flags = %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "cyberpunk" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.FullImageURL != "https://cdn.example.com/images/neon.jpg" {
		t.Errorf("FullImageURL = %q", got.FullImageURL)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, p.CreatedAt)
	}

	byID, err := s.PromptByID(ctx, p.ID)
	if err != nil || byID.Slug != "neon-city" {
		t.Errorf("PromptByID = %+v, %v", byID, err)
	}
	if _, err := s.PromptBySlug(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("missing slug err = %v", err)
	}
}

func TestInsertPromptUniqueSlugs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// A slug sharing the prefix but not the pattern must not confuse the counter.
	if _, err := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Sunset Boulevard", Prompt: "p"}); err != nil {
		t.Fatal(err)
	}
	want := []string{"sunset", "sunset-1", "sunset-2"}
	for _, w := range want {
		p, err := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Sunset", Prompt: "p"})
		if err != nil {
			t.Fatalf("InsertPrompt failed: %v", err)
		}
		if p.Slug != w {
			t.Errorf("slug = %q, want %q", p.Slug, w)
		}
	}
}

func TestListPromptsQuery(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seed := []catalog.NewPrompt{
		{Title: "Sunset", Prompt: "orange", Tags: []string{"a", "b"}},
		{Title: "Harbor", Prompt: "a sunset view", Tags: []string{"a"}},
		{Title: "Fans", Prompt: "crowd", CreatorHandle: "@sunset_fan", Tags: []string{"b", "c"}},
		{Title: "Forest", Prompt: "pines", Tags: []string{"c"}},
	}
	for _, in := range seed {
		if _, err := s.InsertPrompt(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListPrompts(ctx, catalog.Query{Search: " SUNSET ", Sort: catalog.SortNew, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListPrompts failed: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("search total = %d, want 3", page.Total)
	}
	if len(page.Items) != 3 || page.Items[0].Title != "Fans" {
		t.Errorf("search items = %+v", page.Items)
	}

	page, err = s.ListPrompts(ctx, catalog.Query{Tags: []string{"a", "b"}, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Title != "Sunset" {
		t.Errorf("tag AND result = %+v", page.Items)
	}

	page, err = s.ListPrompts(ctx, catalog.Query{Search: "100%", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 {
		t.Errorf("wildcards in search must be literal, total = %d", page.Total)
	}
}

func TestSearchFoldsUnicodeLikeFileStore(t *testing.T) {
	ctx := context.Background()
	sqlStore := setupTestStore(t)
	fileStore, err := filestore.Open(filestore.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	t.Cleanup(func() { fileStore.Close() })

	stores := map[string]catalog.Store{"sql": sqlStore, "file": fileStore}
	for _, st := range stores {
		if _, err := st.InsertPrompt(ctx, catalog.NewPrompt{Title: "ÉTÉ À PARIS", Prompt: "p", CreatorHandle: "Ünal"}); err != nil {
			t.Fatal(err)
		}
		if _, err := st.InsertPrompt(ctx, catalog.NewPrompt{Title: "Winter", Prompt: "ΣΚΙΕΣ in snow"}); err != nil {
			t.Fatal(err)
		}
		if _, err := st.InsertBlogPost(ctx, catalog.NewBlogPost{Title: "ÇA VA", Published: true}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		search string
		want   int
	}{
		{"été", 1},
		{"ÉTÉ", 1},
		{"ünal", 1},
		{"σκιεσ", 1},
		{"paris", 1},
		{"zzz", 0},
	}
	for name, st := range stores {
		for _, tt := range tests {
			page, err := st.ListPrompts(ctx, catalog.Query{Search: tt.search, Page: 1, PageSize: 10})
			if err != nil {
				t.Fatalf("%s: ListPrompts failed: %v", name, err)
			}
			if page.Total != tt.want {
				t.Errorf("%s: search %q total = %d, want %d", name, tt.search, page.Total, tt.want)
			}
		}
		posts, err := st.ListBlogPosts(ctx, catalog.Query{Search: "ça", Page: 1, PageSize: 10})
		if err != nil {
			t.Fatal(err)
		}
		if posts.Total != 1 {
			t.Errorf("%s: blog search total = %d, want 1", name, posts.Total)
		}
	}
}

func TestListPromptsSortAndPaginate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var created []catalog.Prompt
	for i := 0; i < 25; i++ {
		p, err := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Item", Prompt: "p"})
		if err != nil {
			t.Fatal(err)
		}
		created = append(created, p)
	}
	// Two equal like counts: the newer one must come first.
	for _, idx := range []int{3, 7} {
		for k := 0; k < 5; k++ {
			if _, err := s.LikePrompt(ctx, created[idx].Slug); err != nil {
				t.Fatal(err)
			}
		}
	}

	page, err := s.ListPrompts(ctx, catalog.Query{Sort: catalog.SortPopular, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.Items[0].ID != created[7].ID || page.Items[1].ID != created[3].ID {
		t.Errorf("popular order starts with %s, %s", page.Items[0].Slug, page.Items[1].Slug)
	}

	tests := []struct {
		page, want int
	}{
		{1, 10}, {3, 5}, {4, 0}, {0, 0},
	}
	for _, tt := range tests {
		got, err := s.ListPrompts(ctx, catalog.Query{Sort: catalog.SortNew, Page: tt.page, PageSize: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Items) != tt.want || got.Total != 25 {
			t.Errorf("page %d: items=%d total=%d, want %d/25", tt.page, len(got.Items), got.Total, tt.want)
		}
	}

	newest, _ := s.ListPrompts(ctx, catalog.Query{Sort: catalog.SortNew, Page: 1, PageSize: 1})
	if newest.Items[0].ID != created[24].ID {
		t.Errorf("newest = %s, want %s", newest.Items[0].Slug, created[24].Slug)
	}
}

func TestLikePromptConcurrent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p, err := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Popular", Prompt: "p"})
	if err != nil {
		t.Fatal(err)
	}

	const k = 20
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.LikePrompt(ctx, p.Slug); err != nil {
				t.Errorf("LikePrompt failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.PromptByID(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Likes != k {
		t.Fatalf("likes = %d, want %d", got.Likes, k)
	}
	if _, err := s.LikePrompt(ctx, "nope"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("like missing err = %v", err)
	}
}

func TestUpdateAndDeletePrompt(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p, _ := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Draft", Prompt: "p", Tags: []string{"x"}})
	s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Final", Prompt: "p"})

	title := "Final"
	image := "/uploads/images/new.jpg"
	got, err := s.UpdatePrompt(ctx, p.ID, catalog.PromptUpdate{Title: &title, ImageURL: &image, RegenerateSlug: true})
	if err != nil {
		t.Fatalf("UpdatePrompt failed: %v", err)
	}
	if got.Slug != "final-1" || got.Title != "Final" || got.CoverURL != image || got.FullImageURL != image {
		t.Errorf("updated = %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "x" {
		t.Errorf("tags changed: %v", got.Tags)
	}

	if _, err := s.UpdatePrompt(ctx, "missing", catalog.PromptUpdate{}); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}

	removed, err := s.DeletePrompt(ctx, p.ID)
	if err != nil || !removed {
		t.Fatalf("DeletePrompt = %v, %v", removed, err)
	}
	removed, err = s.DeletePrompt(ctx, p.ID)
	if err != nil || removed {
		t.Fatalf("second DeletePrompt = %v, %v", removed, err)
	}
}

func TestRelatedPrompts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seed, _ := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Seed", Prompt: "p", Tags: []string{"x", "y"}})
	one, _ := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "One", Prompt: "p", Tags: []string{"x"}})
	two, _ := s.InsertPrompt(ctx, catalog.NewPrompt{Title: "Two", Prompt: "p", Tags: []string{"x", "y"}})
	s.InsertPrompt(ctx, catalog.NewPrompt{Title: "None", Prompt: "p", Tags: []string{"z"}})
	for i := 0; i < 3; i++ {
		s.LikePrompt(ctx, one.Slug)
	}

	related, err := s.RelatedPrompts(ctx, seed, 6)
	if err != nil {
		t.Fatalf("RelatedPrompts failed: %v", err)
	}
	if len(related) != 2 || related[0].ID != two.ID || related[1].ID != one.ID {
		t.Fatalf("related = %+v", related)
	}
}

func TestRelatedBlogPostsPublishedOnly(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seed, _ := s.InsertBlogPost(ctx, catalog.NewBlogPost{Title: "Seed", Tags: []string{"a", "b"}, Published: true})
	for i := 0; i < 3; i++ {
		if _, err := s.InsertBlogPost(ctx, catalog.NewBlogPost{Title: "Draft", Tags: []string{"a", "b"}}); err != nil {
			t.Fatal(err)
		}
	}
	live, _ := s.InsertBlogPost(ctx, catalog.NewBlogPost{Title: "Live", Tags: []string{"a"}, Published: true})

	related, err := s.RelatedBlogPosts(ctx, seed, 2, true)
	if err != nil {
		t.Fatalf("RelatedBlogPosts failed: %v", err)
	}
	if len(related) != 1 || related[0].ID != live.ID {
		t.Fatalf("related = %+v, want only the published post", related)
	}

	all, _ := s.RelatedBlogPosts(ctx, seed, 2, false)
	if len(all) != 2 || all[0].Published {
		t.Fatalf("unfiltered related = %+v, want two drafts", all)
	}
}

func TestBlogPosts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	live, err := s.InsertBlogPost(ctx, catalog.NewBlogPost{
		Title: "Go Tips", Excerpt: "short", Content: "<p>body</p>", AuthorName: "Ada",
		Tags: []string{"go"}, Published: true,
	})
	if err != nil {
		t.Fatalf("InsertBlogPost failed: %v", err)
	}
	draft, err := s.InsertBlogPost(ctx, catalog.NewBlogPost{Title: "Go Tips", Content: "wip", Tags: []string{"go"}})
	if err != nil {
		t.Fatal(err)
	}
	if draft.Slug != "go-tips-1" || draft.AuthorName != catalog.DefaultAuthor {
		t.Errorf("draft = %+v", draft)
	}

	page, err := s.ListBlogPosts(ctx, catalog.Query{Sort: catalog.SortNew, Page: 1, PageSize: 12, PublishedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].ID != live.ID {
		t.Errorf("published page = %+v", page)
	}

	for i := 0; i < 2; i++ {
		if _, err := s.ViewBlogPost(ctx, live.Slug); err != nil {
			t.Fatal(err)
		}
	}
	viewed, _ := s.BlogPostBySlug(ctx, live.Slug)
	if viewed.Views != 2 {
		t.Errorf("views = %d, want 2", viewed.Views)
	}

	published := true
	updated, err := s.UpdateBlogPost(ctx, draft.ID, catalog.BlogPostUpdate{Published: &published})
	if err != nil {
		t.Fatalf("UpdateBlogPost failed: %v", err)
	}
	if !updated.Published || !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("updated = %+v", updated)
	}

	related, err := s.RelatedBlogPosts(ctx, live, 6, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 1 || related[0].ID != draft.ID {
		t.Errorf("related = %+v", related)
	}

	all, _ := s.AllBlogPosts(ctx)
	if len(all) != 2 || all[0].ID != draft.ID {
		t.Errorf("all = %+v", all)
	}

	removed, err := s.DeleteBlogPost(ctx, live.ID)
	if err != nil || !removed {
		t.Fatalf("DeleteBlogPost = %v, %v", removed, err)
	}
	if _, err := s.ViewBlogPost(ctx, live.Slug); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("view deleted err = %v", err)
	}
}
