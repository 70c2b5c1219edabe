// Package geometry converts millimeter based print settings into device units
// and computes where an image lands on the page.
package geometry

import (
	"image"
)

const (
	// MMPerInch is the number of millimeters in one inch.
	MMPerInch = 25.4

	// TwipsPerInch is the fixed fractional-inch unit used by some printing
	// APIs (1 mm is roughly 56.7 twips).
	TwipsPerInch = 1440
)

// Resolution is the number of device units per inch along each axis.
type Resolution struct {
	X float64
	Y float64
}

// Twips is the resolution of a device addressed in twips.
var Twips = Resolution{X: TwipsPerInch, Y: TwipsPerInch}

// DPI returns a resolution with the same density on both axes.
func DPI(dpi float64) Resolution {
	return Resolution{X: dpi, Y: dpi}
}

// Valid reports whether both axes have a positive density.
func (r Resolution) Valid() bool {
	return r.X > 0 && r.Y > 0
}

// MMToX converts a horizontal distance in millimeters to device units.
func (r Resolution) MMToX(mm float64) int {
	return MMToUnits(mm, r.X)
}

// MMToY converts a vertical distance in millimeters to device units.
func (r Resolution) MMToY(mm float64) int {
	return MMToUnits(mm, r.Y)
}

// MMToUnits converts millimeters to device units at perInch units per inch.
// The result is truncated toward zero.
func MMToUnits(mm, perInch float64) int {
	return int(mm / MMPerInch * perInch)
}

// UnitsToMM converts device units back to millimeters.
func UnitsToMM(units int, perInch float64) float64 {
	if perInch <= 0 {
		return 0
	}
	return float64(units) / perInch * MMPerInch
}

// Rect is an axis-aligned rectangle in device units.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Bounds returns the rectangle as an image.Rectangle.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}
