package promptgallery

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/promptgallery/catalog"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		if a.Views.AdminLogin == nil {
			return c.JSON(http.StatusOK, map[string]any{"authenticated": false, "csrfToken": CsrfToken(c)})
		}
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	if a.Views.AdminDashboard == nil {
		return c.JSON(http.StatusOK, map[string]any{"authenticated": true, "csrfToken": CsrfToken(c)})
	}
	ctx := c.Request().Context()
	prompts, err := a.Store.AllPrompts(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Store.AllBlogPosts(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(prompts, posts, CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	user := c.FormValue("username")
	if user == "" {
		user = a.Config.AdminUsername
	}
	if a.checkCredentials(user, c.FormValue("password")) {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	if a.Views.AdminLogin == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials.")
	}
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// Prompts

func (a *App) handleAdminListPrompts(c echo.Context) error {
	prompts, err := a.Store.AllPrompts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"prompts": prompts})
}

func (a *App) handleAdminCreatePrompt(c echo.Context) error {
	if err := requireForm(c, "title", "prompt", "tags", "creatorHandle"); err != nil {
		return err
	}
	ctx := c.Request().Context()
	imageURL, err := a.requireUpload(c, "image", promptImagePrefix)
	if err != nil {
		return err
	}
	p, err := a.Store.InsertPrompt(ctx, catalog.NewPrompt{
		Title:         c.FormValue("title"),
		Description:   firstNonEmpty(c.FormValue("description"), c.FormValue("projectTitle")),
		Prompt:        c.FormValue("prompt"),
		Tags:          catalog.ParseTags(c.FormValue("tags")),
		CreatorHandle: c.FormValue("creatorHandle"),
		ImageURL:      imageURL,
		Premium:       formBool(c, "premium"),
	})
	if err != nil {
		a.Images.Discard(ctx, imageURL)
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"prompt": p})
}

func (a *App) handleAdminUpdatePrompt(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	current, err := a.Store.PromptByID(ctx, id)
	if err != nil {
		return promptNotFound(err)
	}

	u := catalog.PromptUpdate{
		Title:          formPtr(c, "title"),
		Description:    formPtr(c, "description"),
		Prompt:         formPtr(c, "prompt"),
		CreatorHandle:  formPtr(c, "creatorHandle"),
		RegenerateSlug: formBool(c, "regenerateSlug"),
	}
	if u.Description == nil {
		u.Description = formPtr(c, "projectTitle")
	}
	if v := strings.TrimSpace(c.FormValue("tags")); v != "" {
		u.Tags = catalog.ParseTags(v)
	}
	if strings.TrimSpace(c.FormValue("premium")) != "" {
		premium := formBool(c, "premium")
		u.Premium = &premium
	}

	imageURL, replaced, err := a.storeUpload(c, "image", promptImagePrefix)
	if err != nil {
		return err
	}
	if replaced {
		u.ImageURL = &imageURL
	}

	p, err := a.Store.UpdatePrompt(ctx, id, u)
	if err != nil {
		if replaced {
			a.Images.Discard(ctx, imageURL)
		}
		return promptNotFound(err)
	}
	if replaced {
		a.discardPromptImages(ctx, current, p)
	}
	return c.JSON(http.StatusOK, map[string]any{"prompt": p})
}

func (a *App) handleAdminDeletePrompt(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	current, err := a.Store.PromptByID(ctx, id)
	if err != nil {
		return promptNotFound(err)
	}
	ok, err := a.Store.DeletePrompt(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Prompt not found.")
	}
	a.discardPromptImages(ctx, current, catalog.Prompt{})
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// discardPromptImages removes old's images that next no longer references.
func (a *App) discardPromptImages(ctx context.Context, old, next catalog.Prompt) {
	seen := map[string]bool{"": true, next.CoverURL: true, next.FullImageURL: true}
	for _, u := range []string{old.CoverURL, old.FullImageURL} {
		if seen[u] {
			continue
		}
		seen[u] = true
		a.Images.Discard(ctx, u)
	}
}

// Blog

func (a *App) handleAdminListBlog(c echo.Context) error {
	posts, err := a.Store.AllBlogPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"posts": posts})
}

var blogFormFields = []string{"title", "excerpt", "content", "tags", "authorName"}

func (a *App) handleAdminCreateBlogPost(c echo.Context) error {
	if err := requireForm(c, blogFormFields...); err != nil {
		return err
	}
	ctx := c.Request().Context()
	coverURL, err := a.requireUpload(c, "coverImage", blogImagePrefix)
	if err != nil {
		return err
	}
	b, err := a.Store.InsertBlogPost(ctx, catalog.NewBlogPost{
		Title:           c.FormValue("title"),
		Excerpt:         c.FormValue("excerpt"),
		Content:         c.FormValue("content"),
		CoverImageURL:   coverURL,
		AuthorName:      c.FormValue("authorName"),
		AuthorAvatarURL: strings.TrimSpace(c.FormValue("authorAvatarUrl")),
		Tags:            catalog.ParseTags(c.FormValue("tags")),
		Published:       formBool(c, "published"),
	})
	if err != nil {
		a.Images.Discard(ctx, coverURL)
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"post": b})
}

func (a *App) handleAdminUpdateBlogPost(c echo.Context) error {
	if err := requireForm(c, blogFormFields...); err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	current, err := a.Store.BlogPostByID(ctx, id)
	if err != nil {
		return postNotFound(err)
	}

	avatar := strings.TrimSpace(c.FormValue("authorAvatarUrl"))
	published := formBool(c, "published")
	u := catalog.BlogPostUpdate{
		Title:           formPtr(c, "title"),
		Excerpt:         formPtr(c, "excerpt"),
		Content:         formPtr(c, "content"),
		AuthorName:      formPtr(c, "authorName"),
		AuthorAvatarURL: &avatar,
		Tags:            catalog.ParseTags(c.FormValue("tags")),
		Published:       &published,
		RegenerateSlug:  formBool(c, "regenerateSlug"),
	}

	coverURL, replaced, err := a.storeUpload(c, "coverImage", blogImagePrefix)
	if err != nil {
		return err
	}
	if replaced {
		u.CoverImageURL = &coverURL
	}

	b, err := a.Store.UpdateBlogPost(ctx, id, u)
	if err != nil {
		if replaced {
			a.Images.Discard(ctx, coverURL)
		}
		return postNotFound(err)
	}
	if replaced && current.CoverImageURL != b.CoverImageURL {
		a.Images.Discard(ctx, current.CoverImageURL)
	}
	return c.JSON(http.StatusOK, map[string]any{"post": b})
}

func (a *App) handleAdminDeleteBlogPost(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	current, err := a.Store.BlogPostByID(ctx, id)
	if err != nil {
		return postNotFound(err)
	}
	ok, err := a.Store.DeleteBlogPost(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found.")
	}
	a.Images.Discard(ctx, current.CoverImageURL)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// handleAdminUploadImage stores an inline image for blog content.
func (a *App) handleAdminUploadImage(c echo.Context) error {
	imageURL, err := a.requireUpload(c, "image", blogImagePrefix)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": imageURL})
}

// formPtr returns the trimmed form value, or nil when it is blank.
func formPtr(c echo.Context, key string) *string {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

// formBool reads checkbox-style booleans ("on", "true", "1").
func formBool(c echo.Context, key string) bool {
	v := strings.ToLower(strings.TrimSpace(c.FormValue(key)))
	if v == "on" || v == "yes" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
