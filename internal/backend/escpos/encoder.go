// Package escpos prints through raw ESC/POS receipt printers reachable over
// USB, serial lines, TCP or a device node.
package escpos

import (
	"bytes"
	"image"
	"image/color"
)

// ESC/POS commands
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// DefaultThreshold is the luminance below which a pixel prints black.
const DefaultThreshold = 128

// maxBandHeight bounds the rows sent in one GS v 0 command; many printers
// have small receive buffers.
const maxBandHeight = 256

// Encoder generates ESC/POS commands.
type Encoder struct {
	buffer    *bytes.Buffer
	threshold uint8
}

// NewEncoder creates a new ESC/POS encoder
func NewEncoder(threshold uint8) *Encoder {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Encoder{
		buffer:    new(bytes.Buffer),
		threshold: threshold,
	}
}

// Initialize resets the printer (ESC @).
func (e *Encoder) Initialize() {
	e.buffer.Write([]byte{ESC, '@'})
}

// Raster appends img as GS v 0 raster bit image bands.
func (e *Encoder) Raster(img image.Image) {
	bitmap, bytesPerLine := Pack(img, e.threshold)
	height := img.Bounds().Dy()

	for y := 0; y < height; y += maxBandHeight {
		rows := maxBandHeight
		if rows > height-y {
			rows = height - y
		}

		e.buffer.Write([]byte{
			GS, 'v', '0', 0, // normal density
			byte(bytesPerLine), byte(bytesPerLine >> 8),
			byte(rows), byte(rows >> 8),
		})
		e.buffer.Write(bitmap[y*bytesPerLine : (y+rows)*bytesPerLine])
	}
}

// Feed sends multiple line feeds
func (e *Encoder) Feed(lines int) {
	for i := 0; i < lines; i++ {
		e.buffer.WriteByte(LF)
	}
}

// Cut sends a full paper cut.
func (e *Encoder) Cut() {
	e.buffer.Write([]byte{GS, 'V', 0})
}

// Bytes returns the generated ESC/POS commands
func (e *Encoder) Bytes() []byte {
	return e.buffer.Bytes()
}

// Len returns the number of buffered bytes.
func (e *Encoder) Len() int {
	return e.buffer.Len()
}

// Reset clears the buffer
func (e *Encoder) Reset() {
	e.buffer.Reset()
}

// Pack converts img to a 1-bit bitmap, most significant bit first, one set
// bit per black dot. Rows are padded to whole bytes.
func Pack(img image.Image, threshold uint8) ([]byte, int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	bytesPerLine := (width + 7) / 8
	bitmap := make([]byte, bytesPerLine*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if gray.Y < threshold {
				bitmap[y*bytesPerLine+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	return bitmap, bytesPerLine
}
