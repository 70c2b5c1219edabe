// Package spooler prints through the native Windows print spooler and GDI.
// On other platforms every entry point reports errors.ErrUnsupported.
package spooler

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Options configures the spooler service.
type Options struct {
	Logger *zap.Logger
}

// bgra is a top-down 32-bit device independent bitmap.
type bgra struct {
	Width  int
	Height int
	Pix    []byte
}

// toBGRA flattens img onto white and reorders it into the byte layout GDI
// expects for a 32 bpp BI_RGB bitmap.
func toBGRA(img image.Image) bgra {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	flat := imaging.Overlay(imaging.New(width, height, color.White), img, image.Pt(0, 0), 1.0)

	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = flat.Pix[i+2]
		pix[i+1] = flat.Pix[i+1]
		pix[i+2] = flat.Pix[i]
		pix[i+3] = 0
	}

	return bgra{Width: width, Height: height, Pix: pix}
}
