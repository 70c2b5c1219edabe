package imageio

import (
	"bytes"
	"encoding/binary"
)

const (
	inchesPerMeter = 39.3700787
	cmPerInch      = 2.54
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Density returns the horizontal and vertical resolution embedded in an
// encoded image, in dots per inch. Only PNG pHYs chunks and JPEG JFIF
// headers are understood; anything else yields zeros.
func Density(format string, data []byte) (float64, float64) {
	switch format {
	case "png":
		return pngDensity(data)
	case "jpeg":
		return jfifDensity(data)
	default:
		return 0, 0
	}
}

func pngDensity(data []byte) (float64, float64) {
	if !bytes.HasPrefix(data, pngSignature) {
		return 0, 0
	}

	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos:]))
		kind := string(data[pos+4 : pos+8])
		body := pos + 8
		if length < 0 || body+length > len(data) {
			return 0, 0
		}

		switch kind {
		case "pHYs":
			if length < 9 {
				return 0, 0
			}
			x := binary.BigEndian.Uint32(data[body:])
			y := binary.BigEndian.Uint32(data[body+4:])
			// Unit 1 is the metre; unit 0 only gives an aspect ratio.
			if data[body+8] != 1 {
				return 0, 0
			}
			return float64(x) / inchesPerMeter, float64(y) / inchesPerMeter
		case "IDAT", "IEND":
			// pHYs must precede the image data.
			return 0, 0
		}

		pos = body + length + 4 // skip CRC
	}

	return 0, 0
}

func jfifDensity(data []byte) (float64, float64) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return 0, 0
		}
		marker := data[pos+1]
		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		body := pos + 4
		end := pos + 2 + length
		if length < 2 || end > len(data) {
			return 0, 0
		}

		switch {
		case marker == 0xE0 && length >= 16 && bytes.Equal(data[body:body+5], []byte("JFIF\x00")):
			units := data[body+7]
			x := float64(binary.BigEndian.Uint16(data[body+8:]))
			y := float64(binary.BigEndian.Uint16(data[body+10:]))
			switch units {
			case 1:
				return x, y
			case 2:
				return x * cmPerInch, y * cmPerInch
			default:
				return 0, 0
			}
		case marker == 0xDA:
			// Start of scan, no more headers.
			return 0, 0
		}

		pos = end
	}

	return 0, 0
}

// exifSwapsAxes reports whether the EXIF orientation of a JPEG is one of
// the transposing values 5 to 8, which auto orientation turns by 90 degrees.
func exifSwapsAxes(format string, data []byte) bool {
	if format != "jpeg" {
		return false
	}
	orientation := exifOrientation(data)
	return orientation >= 5 && orientation <= 8
}

// exifOrientation returns the orientation tag from a JPEG APP1 segment, 0
// when absent.
func exifOrientation(data []byte) int {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return 0
		}
		marker := data[pos+1]
		length := int(binary.BigEndian.Uint16(data[pos+2:]))
		body := pos + 4
		end := pos + 2 + length
		if length < 2 || end > len(data) {
			return 0
		}

		switch {
		case marker == 0xE1 && length >= 8 && bytes.Equal(data[body:body+6], []byte("Exif\x00\x00")):
			return tiffOrientation(data[body+6 : end])
		case marker == 0xDA:
			return 0
		}

		pos = end
	}

	return 0
}

func tiffOrientation(tiff []byte) int {
	if len(tiff) < 8 {
		return 0
	}

	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "MM":
		order = binary.BigEndian
	case "II":
		order = binary.LittleEndian
	default:
		return 0
	}

	ifd := int(order.Uint32(tiff[4:]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return 0
	}
	count := int(order.Uint16(tiff[ifd:]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(tiff) {
			return 0
		}
		if order.Uint16(tiff[entry:]) == 0x0112 {
			value := int(order.Uint16(tiff[entry+8:]))
			if value < 1 || value > 8 {
				return 0
			}
			return value
		}
	}

	return 0
}
