package spooler

import (
	"errors"
	"image"
	"image/color"
	"runtime"
	"testing"
)

func TestToBGRA(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0})

	dib := toBGRA(img)

	if dib.Width != 2 || dib.Height != 1 {
		t.Fatalf("Expected 2x1 bitmap, got %dx%d", dib.Width, dib.Height)
	}

	expected := []byte{
		30, 20, 10, 0,    // opaque pixel, channels swapped
		255, 255, 255, 0, // transparent pixel flattened onto white
	}
	for i := range expected {
		if dib.Pix[i] != expected[i] {
			t.Errorf("Expected byte %d to be %d, got %d", i, expected[i], dib.Pix[i])
		}
	}
}

func TestToBGRAOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 8, 9))
	dib := toBGRA(img)

	if len(dib.Pix) != 3*4*4 {
		t.Errorf("Expected %d bytes, got %d", 3*4*4, len(dib.Pix))
	}
}

func TestNewServiceUnsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("spooler is available on Windows")
	}

	_, err := NewService(Options{})
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}
