// Package imageio loads images for printing and normalizes their orientation.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/alde/printimg/pkg/printerr"
)

// Info describes a decoded image.
type Info struct {
	Width  int
	Height int
	Format string

	// DPIX and DPIY are the densities stored in the file, 0 when absent.
	DPIX float64
	DPIY float64

	// Size is the file size in bytes.
	Size int64
}

// Load reads and decodes the image at path. EXIF orientation is applied so
// the pixels match what an image viewer shows. Every failure is reported as
// a *printerr.InvalidImageError.
func Load(path string) (image.Image, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := "cannot read file"
		if errors.Is(err, fs.ErrNotExist) {
			reason = "file does not exist"
		}
		return nil, Info{}, &printerr.InvalidImageError{Path: path, Reason: reason, Err: err}
	}

	return Decode(path, data)
}

// Decode decodes an in-memory image. name is only used in error messages.
func Decode(name string, data []byte) (image.Image, Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, Info{}, &printerr.InvalidImageError{Path: name, Reason: "unrecognized image format", Err: err}
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, Info{}, &printerr.InvalidImageError{
			Path:   name,
			Reason: fmt.Sprintf("zero dimension (%dx%d)", cfg.Width, cfg.Height),
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Info{}, &printerr.InvalidImageError{Path: name, Reason: "decode failed", Err: err}
	}

	bounds := img.Bounds()
	info := Info{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Size:   int64(len(data)),
	}
	info.DPIX, info.DPIY = Density(format, data)

	// Auto orientation may have swapped the axes.
	if exifSwapsAxes(format, data) {
		info.DPIX, info.DPIY = info.DPIY, info.DPIX
	}

	return img, info, nil
}
