package promptgallery

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eringen/promptgallery/catalog"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// AbsoluteURL resolves a site-relative image path against base. Absolute
// URLs pass through; data URIs and empty values yield "".
func AbsoluteURL(base, ref string) string {
	switch {
	case ref == "", strings.HasPrefix(ref, "data:"):
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// PathEscape escapes a string for use in a URL path.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

func marshalJsonLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	return marshalJsonLD(map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
		"potentialAction": map[string]string{
			"@type":       "SearchAction",
			"target":      BuildURL(cfg.URL) + "?search={search_term_string}",
			"query-input": "required name=search_term_string",
		},
	})
}

// PromptJsonLD returns a JSON-LD string describing a prompt's image.
func PromptJsonLD(p catalog.Prompt, cfg SiteConfig) string {
	pageURL := BuildURL(cfg.URL, "images", p.Slug)
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "ImageObject",
		"name":        p.Title,
		"description": p.Description,
		"url":         pageURL,
		"dateCreated": p.CreatedAt.UTC().Format(time.RFC3339),
		"creator":     map[string]string{"@type": "Person", "name": p.Creator.Handle},
		"interactionStatistic": map[string]any{
			"@type":                "InteractionCounter",
			"interactionType":      "https://schema.org/LikeAction",
			"userInteractionCount": p.Likes,
		},
	}
	if img := AbsoluteURL(cfg.URL, p.FullImageURL); img != "" {
		data["contentUrl"] = img
	}
	if len(p.Tags) > 0 {
		data["keywords"] = JoinTags(p.Tags)
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post catalog.BlogPost, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Excerpt,
		"datePublished": post.CreatedAt.UTC().Format(time.RFC3339),
		"dateModified":  post.UpdatedAt.UTC().Format(time.RFC3339),
		"url":           postURL,
		"author": map[string]string{
			"@type": "Person",
			"name":  post.AuthorName,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	if img := AbsoluteURL(cfg.URL, post.CoverImageURL); img != "" {
		data["image"] = img
	}
	if len(post.Tags) > 0 {
		data["keywords"] = JoinTags(post.Tags)
	}
	return marshalJsonLD(data)
}
