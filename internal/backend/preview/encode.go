// Package preview "prints" pages into image files so a layout can be checked
// without wasting labels.
package preview

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is an output file format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// FormatFromPath selects the output format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported preview format %q (use .png, .jpg or .webp)", filepath.Ext(path))
	}
}

// copyPath returns the output path for the given copy. The first copy uses
// path unchanged; later copies get a -N suffix before the extension.
func copyPath(path string, copyNum int) string {
	if copyNum <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), copyNum, ext)
}

// saveImage writes img to outputPath and returns the number of bytes written.
func saveImage(img image.Image, outputPath string, format Format, quality int, grayscale bool) (int64, error) {
	if grayscale {
		img = imaging.Grayscale(img)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	switch format {
	case FormatWebP:
		// Preview pages are mostly flat white; lossless keeps edges crisp.
		err = webp.Encode(outFile, img, &webp.Options{Lossless: true, Quality: float32(quality)})
	case FormatJPEG:
		err = jpeg.Encode(outFile, img, &jpeg.Options{Quality: quality})
	default:
		encoder := &png.Encoder{CompressionLevel: png.BestCompression}
		err = encoder.Encode(outFile, img)
	}
	if closeErr := outFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s preview: %w", format, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
