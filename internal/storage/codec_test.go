package storage

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestEncodeDecodeRoundTripKeepsPixels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 5, 4))
	src.Set(2, 1, color.NRGBA{R: 255, A: 255})

	data, err := EncodePNGBytes(src)
	if err != nil {
		t.Fatalf("Unexpected encode error: %v", err)
	}

	cfg, format, err := DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Unexpected header error: %v", err)
	}
	if format != "png" || cfg.Width != 5 || cfg.Height != 4 {
		t.Errorf("Expected png 5x4, got %s %dx%d", format, cfg.Width, cfg.Height)
	}

	decoded, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	r, g, b, _ := decoded.At(2, 1).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("Expected red pixel at (2,1), got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestDecodeImage_ExtraFormats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 7, 3))
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		t.Fatalf("Failed to encode bmp: %v", err)
	}

	img, err := DecodeImage(&buf)
	if err != nil {
		t.Fatalf("Expected bmp to decode, got %v", err)
	}
	if img.Bounds().Dx() != 7 || img.Bounds().Dy() != 3 {
		t.Errorf("Expected 7x3, got %v", img.Bounds())
	}
}

func TestDecodeImage_Garbage(t *testing.T) {
	if _, err := DecodeImage(bytes.NewReader([]byte("GIF89a?"))); err == nil {
		t.Error("Expected an error for a truncated image")
	}
	if _, _, err := DecodeConfig(bytes.NewReader(nil)); err == nil {
		t.Error("Expected an error for an empty header")
	}
}

func TestSaveAndLoadImageFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diff.png")

	src := image.NewGray(image.Rect(0, 0, 6, 6))
	src.Pix[7] = 200
	if err := SaveImageFile(path, src); err != nil {
		t.Fatalf("Unexpected save error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected file to exist: %v", err)
	}

	loaded, err := LoadImageFile(path)
	if err != nil {
		t.Fatalf("Unexpected load error: %v", err)
	}
	if y := color.GrayModel.Convert(loaded.At(1, 1)).(color.Gray).Y; y != 200 {
		t.Errorf("Expected gray 200 at (1,1), got %d", y)
	}

	if _, err := LoadImageFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected an error for a missing file")
	}
	if err := SaveImageFile(filepath.Join(dir, "out.unknown"), src); err == nil {
		t.Error("Expected an error for an unsupported extension")
	}
}
