package catalog

import (
	"testing"
	"time"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePrompts() []Prompt {
	return []Prompt{
		{ID: "1", Slug: "neon-city", Title: "Neon City", Creator: Creator{Handle: "ada"}, Prompt: "rainy cyberpunk street", Tags: []string{"cyberpunk", "night"}, Likes: 10, CreatedAt: base},
		{ID: "2", Slug: "forest", Title: "Misty Forest", Creator: Creator{Handle: "lin"}, Prompt: "fog between pines", Tags: []string{"nature"}, Likes: 30, CreatedAt: base.Add(time.Hour)},
		{ID: "3", Slug: "alley", Title: "Back Alley", Creator: Creator{Handle: "ada"}, Prompt: "neon signs, wet asphalt", Tags: []string{"cyberpunk", "street"}, Likes: 10, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "4", Slug: "desert", Title: "Dune Sea", Creator: Creator{Handle: "omar"}, Prompt: "golden hour over dunes", Tags: []string{"nature", "night"}, Likes: 0, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(items []Prompt) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunSearch(t *testing.T) {
	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"title", "misty", []string{"2"}},
		{"handle", "ADA", []string{"3", "1"}},
		{"prompt body", "neon", []string{"3", "1"}},
		{"whitespace only", "   ", []string{"2", "3", "1", "4"}},
		{"no match", "underwater", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Run(samplePrompts(), Query{Search: tt.search, Sort: SortPopular, Page: 1, PageSize: 10})
			if got := ids(page.Items); !equalIDs(got, tt.want) {
				t.Errorf("items = %v, want %v", got, tt.want)
			}
			if page.Total != len(tt.want) {
				t.Errorf("total = %d, want %d", page.Total, len(tt.want))
			}
		})
	}
}

func TestRunTagsAreConjunctive(t *testing.T) {
	page := Run(samplePrompts(), Query{Tags: ParseTags("Cyberpunk, night"), Page: 1, PageSize: 10})
	if got := ids(page.Items); !equalIDs(got, []string{"1"}) {
		t.Fatalf("items = %v, want [1]", got)
	}

	page = Run(samplePrompts(), Query{Tags: ParseTags(" , "), Page: 1, PageSize: 10})
	if page.Total != 4 {
		t.Fatalf("empty tag filter total = %d, want 4", page.Total)
	}
}

func TestRunSort(t *testing.T) {
	popular := Run(samplePrompts(), Query{Sort: SortPopular, Page: 1, PageSize: 10})
	if got := ids(popular.Items); !equalIDs(got, []string{"2", "3", "1", "4"}) {
		t.Errorf("popular order = %v", got)
	}

	newest := Run(samplePrompts(), Query{Sort: SortNew, Page: 1, PageSize: 10})
	if got := ids(newest.Items); !equalIDs(got, []string{"4", "3", "2", "1"}) {
		t.Errorf("new order = %v", got)
	}
}

func TestRunPagination(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     []string
	}{
		{"first page", 1, 3, []string{"4", "3", "2"}},
		{"last partial page", 2, 3, []string{"1"}},
		{"beyond last page", 3, 3, []string{}},
		{"zero page", 0, 3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Run(samplePrompts(), Query{Sort: SortNew, Page: tt.page, PageSize: tt.pageSize})
			if got := ids(page.Items); !equalIDs(got, tt.want) {
				t.Errorf("items = %v, want %v", got, tt.want)
			}
			if page.Total != 4 {
				t.Errorf("total = %d, want 4", page.Total)
			}
			if page.Items == nil {
				t.Error("items should never be nil")
			}
		})
	}
}

func TestRunPagesPartitionResult(t *testing.T) {
	all := Run(samplePrompts(), Query{Sort: SortPopular, Page: 1, PageSize: 100})
	var joined []string
	for p := 1; p <= 4; p++ {
		page := Run(samplePrompts(), Query{Sort: SortPopular, Page: p, PageSize: 1})
		joined = append(joined, ids(page.Items)...)
	}
	if !equalIDs(joined, ids(all.Items)) {
		t.Fatalf("concatenated pages %v, want %v", joined, ids(all.Items))
	}
}

func TestRunDoesNotModifyInput(t *testing.T) {
	items := samplePrompts()
	Run(items, Query{Sort: SortNew, Page: 1, PageSize: 10})
	if got := ids(items); !equalIDs(got, []string{"1", "2", "3", "4"}) {
		t.Fatalf("input reordered to %v", got)
	}
}

func TestRunPublishedOnly(t *testing.T) {
	posts := []BlogPost{
		{ID: "a", Title: "Live", Published: true, CreatedAt: base},
		{ID: "b", Title: "Draft", Published: false, CreatedAt: base.Add(time.Hour)},
	}
	page := Run(posts, Query{Sort: SortNew, Page: 1, PageSize: 10, PublishedOnly: true})
	if page.Total != 1 || page.Items[0].ID != "a" {
		t.Fatalf("published only = %+v", page.Items)
	}

	page = Run(posts, Query{Sort: SortNew, Page: 1, PageSize: 10})
	if page.Total != 2 {
		t.Fatalf("total without filter = %d, want 2", page.Total)
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in   string
		want Sort
		ok   bool
	}{
		{"likes", SortPopular, true},
		{"Popular", SortPopular, true},
		{"new", SortNew, true},
		{" newest ", SortNew, true},
		{"oldest", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSort(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSort(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Go ", "go", "", "Web", "  "})
	want := []string{"go", "web"}
	if !equalIDs(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
}

func TestNormalizeTagsSplitsCommas(t *testing.T) {
	got := NormalizeTags([]string{"Art,Neon", "neon", " , "})
	want := []string{"art", "neon"}
	if !equalIDs(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
}
