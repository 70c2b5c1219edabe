package imageio

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/alde/printimg/pkg/printerr"
)

// Rotation is a right-angle rotation in degrees, counter-clockwise.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// ParseRotation validates a rotation given in degrees.
func ParseRotation(degrees int) (Rotation, error) {
	switch Rotation(degrees) {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return Rotation(degrees), nil
	default:
		return 0, &printerr.UnsupportedRotationError{Degrees: degrees}
	}
}

// SwapsAxes reports whether the rotation exchanges width and height.
func (r Rotation) SwapsAxes() bool {
	return r == Rotate90 || r == Rotate270
}

// Rotate turns img counter-clockwise by r. The output bounds grow to fit the
// rotated content, so 90 and 270 degrees swap width and height. Rotate0
// returns img untouched.
func Rotate(img image.Image, r Rotation) image.Image {
	switch r {
	case Rotate90:
		return imaging.Rotate90(img)
	case Rotate180:
		return imaging.Rotate180(img)
	case Rotate270:
		return imaging.Rotate270(img)
	default:
		return img
	}
}
