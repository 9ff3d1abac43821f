package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
)

func pngOfSize(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, G: 40, B: 90, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestOptimizeImageDownscales(t *testing.T) {
	out, err := optimizeImage(pngOfSize(t, 3200, 800), 1600, 80)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not webp: %v", err)
	}
	if cfg.Width != 1600 || cfg.Height != 400 {
		t.Fatalf("size = %dx%d, want 1600x400", cfg.Width, cfg.Height)
	}
}

func TestOptimizeImageKeepsSmallImages(t *testing.T) {
	out, err := optimizeImage(pngOfSize(t, 300, 200), 1600, 80)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not webp: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 200 {
		t.Fatalf("size = %dx%d, want 300x200", cfg.Width, cfg.Height)
	}
}

func TestOptimizeImageRejectsGarbage(t *testing.T) {
	if _, err := optimizeImage([]byte("not an image"), 1600, 80); err == nil {
		t.Fatal("expected an error")
	}
}

func TestObjectNameRoundTrip(t *testing.T) {
	svc := &MinIOService{publicURL: "https://cdn.teensha.app/submissions"}
	url := svc.PublicURL("teen-1/task-1/a.webp")
	name, ok := svc.ObjectName(url)
	if !ok || name != "teen-1/task-1/a.webp" {
		t.Fatalf("ObjectName(%q) = %q, %v", url, name, ok)
	}
	if _, ok := svc.ObjectName("https://elsewhere.example/x.png"); ok {
		t.Fatal("foreign url accepted")
	}
}
