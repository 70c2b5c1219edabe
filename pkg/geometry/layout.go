package geometry

import (
	"fmt"

	"github.com/alde/printimg/pkg/printerr"
)

// Params holds everything needed to place an image on the page.
type Params struct {
	PaperWidthMM  float64
	PaperHeightMM float64
	MarginXMM     float64
	MarginYMM     float64
	OffsetXMM     float64
	OffsetYMM     float64

	// PrintWidthMM is the requested image width. Zero or negative means
	// paper width minus both horizontal margins and the horizontal offset.
	PrintWidthMM float64

	// Scale is a percentage applied after the width fit (100 = no scale).
	Scale float64

	// ImageWidth and ImageHeight are the pixel dimensions of the (rotated) image.
	ImageWidth  int
	ImageHeight int

	// ImageDPIX and ImageDPIY are the densities embedded in the image file,
	// zero when unknown. When known, pixels are converted to device units
	// through them before fitting.
	ImageDPIX float64
	ImageDPIY float64

	Resolution Resolution

	// MaxWidth is the widest printable area in device units; 0 disables the clamp.
	MaxWidth int
}

// Placement is the computed target rectangle plus the intermediate values
// it was derived from.
type Placement struct {
	Rect

	// PrintWidthMM is the resolved print width (after auto derivation).
	PrintWidthMM float64

	// FitWidth and FitHeight are the dimensions after the width fit, before
	// scale and clamp.
	FitWidth  int
	FitHeight int

	// Clamped is set when the result was shrunk to MaxWidth.
	Clamped bool
}

// ResolvePrintWidth returns the requested print width, or the automatic
// width when none was requested.
func ResolvePrintWidth(p Params) float64 {
	if p.PrintWidthMM > 0 {
		return p.PrintWidthMM
	}
	return p.PaperWidthMM - 2*p.MarginXMM - p.OffsetXMM
}

// Compute converts the millimeter based parameters into a placement
// rectangle in device units.
//
// Negative margins and offsets are accepted and move the rectangle off the
// nominal origin; whether it still intersects the printable area is up to
// the caller.
func Compute(p Params) (Placement, error) {
	if p.ImageWidth <= 0 || p.ImageHeight <= 0 {
		return Placement{}, &printerr.InvalidImageError{
			Reason: fmt.Sprintf("zero dimension (%dx%d)", p.ImageWidth, p.ImageHeight),
		}
	}
	if !p.Resolution.Valid() {
		return Placement{}, fmt.Errorf("invalid device resolution %gx%g", p.Resolution.X, p.Resolution.Y)
	}
	if p.Scale <= 0 {
		return Placement{}, fmt.Errorf("scale must be positive, got %g", p.Scale)
	}

	printWidthMM := ResolvePrintWidth(p)
	printWidth := p.Resolution.MMToX(printWidthMM)
	if printWidth <= 0 {
		return Placement{}, fmt.Errorf("print width resolves to %.2fmm, nothing to print", printWidthMM)
	}

	imgWidth := toDeviceUnits(p.ImageWidth, p.ImageDPIX, p.Resolution.X)
	imgHeight := toDeviceUnits(p.ImageHeight, p.ImageDPIY, p.Resolution.Y)

	// Fit to width, keep the aspect ratio.
	ratio := float64(printWidth) / imgWidth
	height := int(imgHeight * ratio)

	placement := Placement{
		PrintWidthMM: printWidthMM,
		FitWidth:     printWidth,
		FitHeight:    height,
	}

	width := int(float64(printWidth) * p.Scale / 100)
	height = int(float64(height) * p.Scale / 100)

	if p.MaxWidth > 0 && width > p.MaxWidth {
		height = int(float64(height) * float64(p.MaxWidth) / float64(width))
		width = p.MaxWidth
		placement.Clamped = true
	}

	placement.Rect = Rect{
		X:      p.Resolution.MMToX(p.MarginXMM) + p.Resolution.MMToX(p.OffsetXMM),
		Y:      p.Resolution.MMToY(p.MarginYMM) + p.Resolution.MMToY(p.OffsetYMM),
		Width:  width,
		Height: height,
	}

	return placement, nil
}

func toDeviceUnits(px int, imageDPI, deviceDPI float64) float64 {
	if imageDPI <= 0 {
		return float64(px)
	}
	return float64(px) / imageDPI * deviceDPI
}
