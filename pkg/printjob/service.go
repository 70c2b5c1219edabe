// Package printjob drives a print job through a printer service: it
// validates the request, resolves the printer, loads and rotates the image,
// computes the placement and submits one document per copy.
package printjob

import (
	"context"
	"image"

	"github.com/alde/printimg/pkg/geometry"
)

// Service is the printing capability the driver depends on. Backends for the
// native spooler, raw ESC/POS printers and file previews implement it.
type Service interface {
	// DefaultPrinter returns the configured default printer, or "" when
	// there is none.
	DefaultPrinter(ctx context.Context) (string, error)

	// Printers lists the printers the service can reach.
	Printers(ctx context.Context) ([]PrinterInfo, error)

	// Open acquires a device context bound to the named printer.
	Open(ctx context.Context, name string) (DeviceContext, error)
}

// Resolver is implemented by services whose printer names are addresses
// rather than entries in a fixed list. Resolve returns the canonical name,
// or a *printerr.PrinterNotFoundError.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// PrinterInfo describes an installed or discovered printer.
type PrinterInfo struct {
	Name        string
	Description string
	Default     bool
}

// Caps are the device characteristics the layout depends on.
type Caps struct {
	Resolution geometry.Resolution

	// MaxWidth is the printable width in device units, 0 when unlimited.
	MaxWidth int
}

// Orientation of the paper as configured on the device.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// OrientationFor returns landscape when the paper is wider than tall.
func OrientationFor(widthMM, heightMM float64) Orientation {
	if widthMM > heightMM {
		return Landscape
	}
	return Portrait
}

// PageSetup is applied to a device context before the first document.
type PageSetup struct {
	PaperWidthMM  float64
	PaperHeightMM float64
	Orientation   Orientation

	// Copies is the total number of documents the driver will submit. The
	// driver submits each copy as its own document, so backends must not
	// multiply it at the device level.
	Copies int
}

// DeviceContext is a drawable surface bound to one printer. Calls are made
// from a single goroutine in document/page order.
type DeviceContext interface {
	Caps() Caps
	Configure(setup PageSetup) error

	StartDoc(name string) error
	StartPage() error
	// DrawImage stretches img into rect in one operation.
	DrawImage(img image.Image, rect geometry.Rect) error
	EndPage() error
	EndDoc() error
	// AbortDoc discards a document that was started but not ended.
	AbortDoc() error

	// Close releases the context and every buffer it holds.
	Close() error
}

// SpoolReporter is implemented by device contexts that know how many bytes
// they handed to the printer.
type SpoolReporter interface {
	BytesSpooled() uint64
}
