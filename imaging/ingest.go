// Package imaging normalizes uploaded images into bounded JPEGs ready for storage.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	dimg "github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds both output width and height.
	MaxDimension = 1600
	// Quality is the JPEG encoder quality.
	Quality = 82
	// ContentType is the MIME type of every ingested image.
	ContentType = "image/jpeg"
	// MaxInputPixels bounds width x height of a source image. It is checked
	// against the header before any pixels are decoded.
	MaxInputPixels = 50_000_000

	fallbackBase = "upload"
)

// ErrDecode is returned when the input is not a decodable image.
var ErrDecode = errors.New("imaging: cannot decode image")

// ErrTooLarge is returned for images whose header declares more than
// MaxInputPixels. It wraps ErrDecode.
var ErrTooLarge = fmt.Errorf("%w: too many pixels", ErrDecode)

// now is replaced in tests.
var now = time.Now

// Result is an encoded image and the filename it should be stored under.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
	Width       int
	Height      int
}

// Ingest decodes r, applies EXIF orientation, scales the image to fit inside
// MaxDimension x MaxDimension without upscaling and re-encodes it as JPEG.
func Ingest(r io.Reader, originalName string) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxInputPixels {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, err := dimg.Decode(bytes.NewReader(data), dimg.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := src.Bounds()
	w, h := Fit(bounds.Dx(), bounds.Dy(), MaxDimension)
	if w == 0 || h == 0 {
		return Result{}, fmt.Errorf("%w: empty image", ErrDecode)
	}

	// JPEG has no alpha channel, so transparent areas become white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return Result{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Result{
		Data:        buf.Bytes(),
		Filename:    Filename(originalName),
		ContentType: ContentType,
		Width:       w,
		Height:      h,
	}, nil
}

// Fit scales w x h down to fit inside limit x limit, keeping the aspect ratio.
// Dimensions already inside the box are returned unchanged.
func Fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		nh := int(float64(h)*float64(limit)/float64(w) + 0.5)
		return limit, max(nh, 1)
	}
	nw := int(float64(w)*float64(limit)/float64(h) + 0.5)
	return max(nw, 1), limit
}

// Filename derives the stored name: a sanitized lower-case base, a millisecond
// timestamp and the .jpg extension.
func Filename(originalName string) string {
	return SanitizeBase(originalName) + "-" + strconv.FormatInt(now().UnixMilli(), 10) + ".jpg"
}

// SanitizeBase strips the extension and reduces the rest to [a-z0-9-].
func SanitizeBase(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ToLower(name)

	var b strings.Builder
	replaced := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			replaced = false
		case !replaced:
			b.WriteByte('-')
			replaced = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fallbackBase
	}
	return out
}
