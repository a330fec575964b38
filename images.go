package promptgallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/promptgallery/imaging"
)

// Storage key prefixes.
const (
	promptImagePrefix = "images/"
	blogImagePrefix   = "blog/"
)

var errNoUpload = echo.NewHTTPError(http.StatusBadRequest, "Image upload is required.")

// ingest normalizes an image and stores it through the fallback chain.
// It only fails when the bytes are not a decodable image.
func (a *App) ingest(ctx context.Context, r io.Reader, name, prefix string) (string, error) {
	res, err := imaging.Ingest(r, name)
	if err != nil {
		return "", err
	}
	stored := a.Images.Store(ctx, prefix+res.Filename, res.Data, res.ContentType)
	a.Log.Debug("image stored",
		zap.String("backend", stored.Backend),
		zap.String("file", res.Filename),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))
	return stored.URL, nil
}

// storeUpload ingests the multipart file in field. ok is false when the
// field is absent or empty.
func (a *App) storeUpload(c echo.Context, field, prefix string) (imageURL string, ok bool, err error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", false, nil
		}
		return "", false, echo.NewHTTPError(http.StatusBadRequest, "Invalid multipart form.")
	}
	if fh.Size == 0 {
		return "", false, nil
	}
	if fh.Size > a.Config.MaxUploadBytes {
		return "", false, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Image exceeds the %d MB limit.", a.Config.MaxUploadBytes>>20))
	}
	src, err := fh.Open()
	if err != nil {
		return "", false, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	imageURL, err = a.ingest(c.Request().Context(), src, fh.Filename, prefix)
	if err != nil {
		return "", false, err
	}
	return imageURL, true, nil
}

// requireUpload is storeUpload for create operations where the image is mandatory.
func (a *App) requireUpload(c echo.Context, field, prefix string) (string, error) {
	imageURL, ok, err := a.storeUpload(c, field, prefix)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errNoUpload
	}
	return imageURL, nil
}

// download fetches a remote image with the configured timeout and size cap.
func (a *App) download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Image URL must be an http(s) URL.")
	}

	ctx, cancel := context.WithTimeout(ctx, a.Config.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.Log.Warn("image download failed", zap.String("url", rawURL), zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusBadGateway, "Failed to download image.")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.Log.Warn("image download failed", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
		return nil, echo.NewHTTPError(http.StatusBadGateway,
			fmt.Sprintf("Failed to download image: upstream returned %d.", resp.StatusCode))
	}

	limit := a.Config.MaxDownloadBytes
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadGateway, "Failed to download image.")
	}
	if int64(len(data)) > limit {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Image exceeds the %d MB limit.", limit>>20))
	}
	return data, nil
}

// importImage downloads rawURL and runs it through the ingestion pipeline.
func (a *App) importImage(ctx context.Context, rawURL, name, prefix string) (string, error) {
	data, err := a.download(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return a.ingest(ctx, bytes.NewReader(data), name, prefix)
}
