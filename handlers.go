package promptgallery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/promptgallery/catalog"
	"github.com/eringen/promptgallery/imaging"
)

// Listing defaults and bounds.
const (
	defaultPromptPageSize = 24
	defaultBlogPageSize   = 12
	maxPageSize           = 100
	maxRelatedLimit       = 24
)

// parseQuery reads search, tags, sort, page and pageSize from the query string.
func parseQuery(c echo.Context, pageSize int, sort catalog.Sort) (catalog.Query, error) {
	q := catalog.Query{
		Search:   c.QueryParam("search"),
		Tags:     catalog.ParseTags(c.QueryParam("tags")),
		Sort:     sort,
		Page:     1,
		PageSize: pageSize,
	}
	if s, ok := catalog.ParseSort(c.QueryParam("sort")); ok {
		q.Sort = s
	}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer.")
		}
		q.Page = n
	}
	if v := c.QueryParam("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return q, echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("pageSize must be between 1 and %d.", maxPageSize))
		}
		q.PageSize = n
	}
	return q, nil
}

func parseLimit(c echo.Context) (int, error) {
	v := c.QueryParam("limit")
	if v == "" {
		return catalog.DefaultRelatedLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxRelatedLimit {
		return 0, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("limit must be between 1 and %d.", maxRelatedLimit))
	}
	return n, nil
}

func blogQuery(c echo.Context) (catalog.Query, error) {
	q, err := parseQuery(c, defaultBlogPageSize, catalog.SortNew)
	q.PublishedOnly = true
	return q, err
}

func (a *App) handleListPrompts(c echo.Context) error {
	q, err := parseQuery(c, defaultPromptPageSize, catalog.SortPopular)
	if err != nil {
		return err
	}
	page, err := a.Store.ListPrompts(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleGetPrompt(c echo.Context) error {
	p, err := a.Store.PromptBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return promptNotFound(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleRelatedPrompts(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	seed, err := a.Store.PromptBySlug(ctx, c.Param("slug"))
	if err != nil {
		return promptNotFound(err)
	}
	items, err := a.Store.RelatedPrompts(ctx, seed, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (a *App) handleLikePrompt(c echo.Context) error {
	if !a.likeLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Try again later.")
	}
	p, err := a.Store.LikePrompt(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return promptNotFound(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"likes": p.Likes})
}

func (a *App) handleListBlog(c echo.Context) error {
	q, err := blogQuery(c)
	if err != nil {
		return err
	}
	page, err := a.Store.ListBlogPosts(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// publishedPost loads a post by slug, treating drafts as missing.
func (a *App) publishedPost(ctx context.Context, slug string) (catalog.BlogPost, error) {
	b, err := a.Store.BlogPostBySlug(ctx, slug)
	if err != nil {
		return b, postNotFound(err)
	}
	if !b.Published {
		return b, echo.NewHTTPError(http.StatusNotFound, "Post not found.")
	}
	return b, nil
}

func (a *App) handleGetBlogPost(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := a.publishedPost(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	b, err = a.Store.ViewBlogPost(ctx, b.Slug)
	if err != nil {
		return postNotFound(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"post": b})
}

func (a *App) handleRelatedBlogPosts(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	seed, err := a.publishedPost(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	items, err := a.relatedPublished(ctx, seed, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// relatedPublished ranks related posts among published ones only. The ranker
// itself does not filter by visibility.
func (a *App) relatedPublished(ctx context.Context, seed catalog.BlogPost, limit int) ([]catalog.BlogPost, error) {
	return a.Store.RelatedBlogPosts(ctx, seed, limit, true)
}

func (a *App) handleHealth(c echo.Context) error {
	if p, ok := a.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(c.Request().Context()); err != nil {
			a.Log.Error("health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handlePlaceholder(c echo.Context) error {
	path := filepath.Join(a.staticDir, "images", "placeholder.svg")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	return c.Blob(http.StatusOK, "image/svg+xml", placeholderSVG)
}

func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	body := "User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/admin/\n\nSitemap: " +
		strings.TrimSuffix(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	prompts, err := a.Store.AllPrompts(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Store.AllBlogPosts(ctx)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, prompts, publishedOnly(posts))
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Store.AllBlogPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, publishedOnly(posts))
}

func publishedOnly(posts []catalog.BlogPost) []catalog.BlogPost {
	out := make([]catalog.BlogPost, 0, len(posts))
	for _, b := range posts {
		if b.Published {
			out = append(out, b)
		}
	}
	return out
}

// Pages

func (a *App) handleHome(c echo.Context) error {
	q, err := parseQuery(c, defaultPromptPageSize, catalog.SortPopular)
	if err != nil {
		return err
	}
	page, err := a.Store.ListPrompts(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(page, q, a.Config.URL))
}

func (a *App) handlePromptPage(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := a.Store.PromptBySlug(ctx, c.Param("slug"))
	if err != nil {
		return promptNotFound(err)
	}
	related, err := a.Store.RelatedPrompts(ctx, p, catalog.DefaultRelatedLimit)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Prompt(p, related, a.Config.URL))
}

func (a *App) handleBlogPage(c echo.Context) error {
	q, err := blogQuery(c)
	if err != nil {
		return err
	}
	page, err := a.Store.ListBlogPosts(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Blog(page, q, a.Config.URL))
}

func (a *App) handleBlogPostPage(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := a.publishedPost(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	if b, err = a.Store.ViewBlogPost(ctx, b.Slug); err != nil {
		return postNotFound(err)
	}
	related, err := a.relatedPublished(ctx, b, catalog.DefaultRelatedLimit)
	if err != nil {
		return err
	}
	return Render(c, a.Views.BlogPost(b, related, a.Config.URL))
}

func promptNotFound(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Prompt not found.")
	}
	return err
}

func postNotFound(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found.")
	}
	return err
}

// errorStatus maps an error to an HTTP status and a client-safe message.
func errorStatus(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		return he.Code, msg
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "Not found."
	case errors.Is(err, imaging.ErrDecode):
		return http.StatusBadRequest, "Invalid image file."
	}
	return http.StatusInternalServerError, "Internal server error."
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := errorStatus(err)
	if code >= 500 {
		a.Log.Error("server error",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path))
	}

	if wantsHTML(c) {
		switch {
		case code == http.StatusNotFound && a.Views.NotFound != nil:
			_ = RenderStatus(c, code, a.Views.NotFound())
			return
		case code >= 500 && a.Views.ServerError != nil:
			_ = RenderStatus(c, code, a.Views.ServerError())
			return
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"message": msg})
}

func wantsHTML(c echo.Context) bool {
	req := c.Request()
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return false
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
