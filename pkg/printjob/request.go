package printjob

import (
	"fmt"

	"github.com/alde/printimg/pkg/imageio"
)

// Request is a single print invocation.
type Request struct {
	ImagePath string

	// Printer is the target printer; empty selects the service default.
	Printer string

	// Rotation in degrees counter-clockwise: 0, 90, 180 or 270.
	Rotation int

	PaperWidthMM  float64
	PaperHeightMM float64

	// PrintWidthMM of zero or less derives the width from paper and margins.
	PrintWidthMM float64

	// Scale is a percentage, 100 prints at the fitted size.
	Scale float64

	MarginXMM float64
	MarginYMM float64
	OffsetXMM float64
	OffsetYMM float64

	Copies int

	// DocumentName is the spooler job title; copies get a "#n" suffix.
	DocumentName string
}

// Validate checks the request invariants without touching any device.
func (r Request) Validate() (imageio.Rotation, error) {
	rotation, err := imageio.ParseRotation(r.Rotation)
	if err != nil {
		return 0, err
	}
	if r.ImagePath == "" {
		return 0, fmt.Errorf("image path is required")
	}
	if r.Copies < 1 {
		return 0, fmt.Errorf("copies must be at least 1, got %d", r.Copies)
	}
	if r.Scale <= 0 {
		return 0, fmt.Errorf("scale must be positive, got %g", r.Scale)
	}
	if r.PaperWidthMM <= 0 || r.PaperHeightMM <= 0 {
		return 0, fmt.Errorf("paper size must be positive, got %gx%gmm", r.PaperWidthMM, r.PaperHeightMM)
	}
	return rotation, nil
}

func (r Request) documentName(copyNum int) string {
	name := r.DocumentName
	if name == "" {
		name = "Print job"
	}
	return fmt.Sprintf("%s #%d", name, copyNum)
}
