// Package raster provides the in-memory page used by backends that render
// jobs themselves instead of handing them to an OS spooler.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/alde/printimg/pkg/geometry"
)

// Page is a white canvas in device units.
type Page struct {
	ctx *gg.Context
}

// NewPage allocates a white page of width x height dots.
func NewPage(width, height int) (*Page, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %dx%d", width, height)
	}

	ctx := gg.NewContext(width, height)
	ctx.SetColor(color.White)
	ctx.Clear()

	return &Page{ctx: ctx}, nil
}

// Draw stretches img into rect with a single resample. Parts of rect that
// fall outside the page are clipped.
func (p *Page) Draw(img image.Image, rect geometry.Rect) error {
	if rect.Empty() {
		return fmt.Errorf("empty target rectangle %dx%d", rect.Width, rect.Height)
	}

	scaled := img
	if b := img.Bounds(); b.Dx() != rect.Width || b.Dy() != rect.Height {
		scaled = imaging.Resize(img, rect.Width, rect.Height, imaging.Lanczos)
	}

	// Flatten transparency onto the white page.
	p.ctx.DrawImage(scaled, rect.X, rect.Y)
	return nil
}

// Image returns the page contents.
func (p *Page) Image() image.Image {
	return p.ctx.Image()
}

// Bounds returns the page rectangle.
func (p *Page) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.ctx.Width(), p.ctx.Height())
}
