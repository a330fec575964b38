package promptgallery

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/promptgallery/catalog"
)

type importPromptRequest struct {
	Title         string  `json:"title" validate:"required"`
	Description   string  `json:"description"`
	Prompt        string  `json:"prompt" validate:"required"`
	ImageURL      string  `json:"imageUrl" validate:"required,http_url"`
	Tags          TagList `json:"tags"`
	CreatorHandle string  `json:"creatorHandle"`
	Premium       bool    `json:"premium"`
}

func (r *importPromptRequest) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.ImageURL = strings.TrimSpace(r.ImageURL)
	r.CreatorHandle = strings.TrimSpace(r.CreatorHandle)
}

type importBlogRequest struct {
	Title           string  `json:"title" validate:"required"`
	Excerpt         string  `json:"excerpt" validate:"required"`
	Content         string  `json:"content" validate:"required"`
	CoverImageURL   string  `json:"coverImageUrl" validate:"required,http_url"`
	Tags            TagList `json:"tags"`
	AuthorName      string  `json:"authorName"`
	AuthorAvatarURL string  `json:"authorAvatarUrl"`
	Published       *bool   `json:"published"`
}

func (r *importBlogRequest) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Excerpt = strings.TrimSpace(r.Excerpt)
	r.Content = strings.TrimSpace(r.Content)
	r.CoverImageURL = strings.TrimSpace(r.CoverImageURL)
	r.AuthorName = strings.TrimSpace(r.AuthorName)
	r.AuthorAvatarURL = strings.TrimSpace(r.AuthorAvatarURL)
}

type importedRecord struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

func bindJSON(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body.")
	}
	return nil
}

// handleImportPrompt creates a prompt from JSON, downloading its image.
func (a *App) handleImportPrompt(c echo.Context) error {
	var req importPromptRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	imageURL, err := a.importImage(ctx, req.ImageURL, "imported", promptImagePrefix)
	if err != nil {
		return err
	}
	p, err := a.Store.InsertPrompt(ctx, catalog.NewPrompt{
		Title:         req.Title,
		Description:   req.Description,
		Prompt:        req.Prompt,
		Tags:          req.Tags,
		CreatorHandle: req.CreatorHandle,
		ImageURL:      imageURL,
		Premium:       req.Premium,
	})
	if err != nil {
		a.Images.Discard(ctx, imageURL)
		return err
	}
	a.Log.Info("prompt imported", zap.String("id", p.ID), zap.String("slug", p.Slug))
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Prompt imported successfully",
		"prompt":  importedRecord{ID: p.ID, Slug: p.Slug, Title: p.Title},
	})
}

// handleImportBlogPost creates a blog post from JSON, downloading its cover.
// Posts are published unless the body says otherwise.
func (a *App) handleImportBlogPost(c echo.Context) error {
	var req importBlogRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.trim()
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	coverURL, err := a.importImage(ctx, req.CoverImageURL, "blog", blogImagePrefix)
	if err != nil {
		return err
	}
	published := req.Published == nil || *req.Published
	b, err := a.Store.InsertBlogPost(ctx, catalog.NewBlogPost{
		Title:           req.Title,
		Excerpt:         req.Excerpt,
		Content:         req.Content,
		CoverImageURL:   coverURL,
		AuthorName:      req.AuthorName,
		AuthorAvatarURL: req.AuthorAvatarURL,
		Tags:            req.Tags,
		Published:       published,
	})
	if err != nil {
		a.Images.Discard(ctx, coverURL)
		return err
	}
	a.Log.Info("blog post imported", zap.String("id", b.ID), zap.String("slug", b.Slug))
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Blog post imported successfully",
		"post":    importedRecord{ID: b.ID, Slug: b.Slug, Title: b.Title},
	})
}
