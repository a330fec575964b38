package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"
)

func encodePNG(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestIngestDownscalesLargeImages(t *testing.T) {
	data := encodePNG(t, 4000, 3000, color.NRGBA{R: 200, A: 255})

	res, err := Ingest(bytes.NewReader(data), "Big Photo.png")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.Width != 1600 || res.Height != 1200 {
		t.Fatalf("size = %dx%d, want 1600x1200", res.Width, res.Height)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if cfg.Width != 1600 || cfg.Height != 1200 {
		t.Errorf("encoded size = %dx%d", cfg.Width, cfg.Height)
	}
	if res.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q", res.ContentType)
	}
}

func TestIngestNeverUpscales(t *testing.T) {
	data := encodePNG(t, 300, 200, color.NRGBA{G: 200, A: 255})

	res, err := Ingest(bytes.NewReader(data), "small.png")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.Width != 300 || res.Height != 200 {
		t.Fatalf("size = %dx%d, want 300x200", res.Width, res.Height)
	}
}

func TestIngestFlattensTransparencyOntoWhite(t *testing.T) {
	data := encodePNG(t, 8, 8, color.NRGBA{})

	res, err := Ingest(bytes.NewReader(data), "clear.png")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	out, err := jpeg.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, _ := out.At(4, 4).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("pixel = %d,%d,%d, want white", r>>8, g>>8, b>>8)
	}
}

func TestIngestRejectsGarbage(t *testing.T) {
	_, err := Ingest(strings.NewReader("definitely not an image"), "x.png")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

// pngHeader returns a PNG that declares w x h grayscale pixels but carries no
// image data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 17)
	copy(ihdr, "IHDR")
	binary.BigEndian.PutUint32(ihdr[4:], w)
	binary.BigEndian.PutUint32(ihdr[8:], h)
	ihdr[12] = 8 // bit depth; color type, compression, filter, interlace stay 0
	binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(ihdr)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr))
	return buf.Bytes()
}

func TestIngestRejectsHugeDeclaredDimensions(t *testing.T) {
	_, err := Ingest(bytes.NewReader(pngHeader(17000, 16000)), "bomb.png")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want it to wrap ErrDecode", err)
	}
}

func TestIngestPixelLimitBoundary(t *testing.T) {
	tests := []struct {
		w, h    uint32
		tooMany bool
	}{
		{10000, 5000, false},
		{10000, 5001, true},
		{1, MaxInputPixels + 1, true},
	}
	for _, tt := range tests {
		_, err := Ingest(bytes.NewReader(pngHeader(tt.w, tt.h)), "x.png")
		if got := errors.Is(err, ErrTooLarge); got != tt.tooMany {
			t.Errorf("%dx%d: ErrTooLarge = %v, want %v (err %v)", tt.w, tt.h, got, tt.tooMany, err)
		}
		if !errors.Is(err, ErrDecode) {
			t.Errorf("%dx%d: err = %v, want ErrDecode", tt.w, tt.h, err)
		}
	}
}

func TestIngestFilename(t *testing.T) {
	freezeClock(t, time.UnixMilli(1700000000123))
	data := encodePNG(t, 10, 10, color.NRGBA{B: 255, A: 255})

	res, err := Ingest(bytes.NewReader(data), "My Holiday Pic.PNG")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if want := "my-holiday-pic-1700000000123.jpg"; res.Filename != want {
		t.Errorf("Filename = %q, want %q", res.Filename, want)
	}
}

func TestSanitizeBase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.jpg", "photo"},
		{"Summer_Trip (1).jpeg", "summer-trip-1"},
		{"already-ok.png", "already-ok"},
		{"C:\\Users\\me\\cat.webp", "cat"},
		{"../../etc/passwd", "passwd"},
		{"???.png", "upload"},
		{"", "upload"},
	}
	for _, tt := range tests {
		if got := SanitizeBase(tt.in); got != tt.want {
			t.Errorf("SanitizeBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{4000, 3000, 1600, 1200},
		{3000, 4000, 1200, 1600},
		{1600, 1600, 1600, 1600},
		{2000, 2000, 1600, 1600},
		{10, 9000, 2, 1600},
		{800, 600, 800, 600},
	}
	for _, tt := range tests {
		w, h := Fit(tt.w, tt.h, MaxDimension)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("Fit(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
		if w > tt.w || h > tt.h {
			t.Errorf("Fit(%d, %d) upscaled to %dx%d", tt.w, tt.h, w, h)
		}
	}
}
