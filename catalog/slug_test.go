package catalog

import (
	"regexp"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation runs", "Neon -- City!!! at Night", "neon-city-at-night"},
		{"leading and trailing", "  ...Sunset...  ", "sunset"},
		{"digits kept", "Cyberpunk 2077 Alley", "cyberpunk-2077-alley"},
		{"non ascii dropped", "Café Noir", "caf-noir"},
		{"empty", "", "prompt"},
		{"only symbols", "!!! ???", "prompt"},
		{"already slug", "already-a-slug", "already-a-slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlugifyOutputShape(t *testing.T) {
	shape := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	inputs := []string{
		"A", "--a--", "x_y_z", "Ünïcödé only", "  ", "Tab\tand\nnewline", "a   b", "日本語",
	}
	for _, in := range inputs {
		got := Slugify(in)
		if got == "" {
			t.Fatalf("Slugify(%q) returned empty slug", in)
		}
		if !shape.MatchString(got) {
			t.Errorf("Slugify(%q) = %q, not a valid slug", in, got)
		}
	}
}

func TestSlugifyOrFallback(t *testing.T) {
	if got := SlugifyOr("???", "post"); got != "post" {
		t.Errorf("SlugifyOr fallback = %q, want %q", got, "post")
	}
	if got := SlugifyOr("Go Tips", "post"); got != "go-tips" {
		t.Errorf("SlugifyOr = %q, want %q", got, "go-tips")
	}
}

func TestUniqueSlug(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		existing  []string
		want      string
	}{
		{"free", "sunset", []string{"dawn"}, "sunset"},
		{"nil existing", "sunset", nil, "sunset"},
		{"taken once", "sunset", []string{"sunset"}, "sunset-1"},
		{"taken with suffixes", "sunset", []string{"sunset", "sunset-1", "sunset-2"}, "sunset-3"},
		{"gap is reused", "sunset", []string{"sunset", "sunset-2"}, "sunset-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UniqueSlug(tt.candidate, tt.existing)
			if got != tt.want {
				t.Fatalf("UniqueSlug(%q, %v) = %q, want %q", tt.candidate, tt.existing, got, tt.want)
			}
			for _, e := range tt.existing {
				if got == e {
					t.Fatalf("UniqueSlug returned taken slug %q", got)
				}
			}
		})
	}
}
