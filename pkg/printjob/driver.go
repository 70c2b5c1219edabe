package printjob

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alde/printimg/pkg/geometry"
	"github.com/alde/printimg/pkg/imageio"
	"github.com/alde/printimg/pkg/printerr"
)

// Options configures a Driver.
type Options struct {
	Service Service
	Logger  *zap.Logger

	// Progress, when set, is called after each submitted copy.
	Progress func(done, total int)
}

// Driver runs print requests against a Service.
type Driver struct {
	service  Service
	logger   *zap.Logger
	progress func(done, total int)
}

// Result summarizes a completed print job.
type Result struct {
	Printer      string
	Copies       int
	Image        imageio.Info
	Placement    geometry.Placement
	Resolution   geometry.Resolution
	BytesSpooled uint64
	Elapsed      time.Duration
}

// PlacementMM returns the printed size in millimeters.
func (r *Result) PlacementMM() (float64, float64) {
	return geometry.UnitsToMM(r.Placement.Width, r.Resolution.X),
		geometry.UnitsToMM(r.Placement.Height, r.Resolution.Y)
}

// New creates a driver.
func New(opts Options) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		service:  opts.Service,
		logger:   logger,
		progress: opts.Progress,
	}
}

// Print runs one request to completion. Requests are validated before any
// device call, the printer is resolved before the image is read, and the
// device context is released on every return path.
func (d *Driver) Print(ctx context.Context, req Request) (result *Result, err error) {
	start := time.Now()

	rotation, err := req.Validate()
	if err != nil {
		return nil, err
	}

	printer, err := d.resolvePrinter(ctx, req.Printer)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("resolved printer", zap.String("printer", printer))

	img, info, err := imageio.Load(req.ImagePath)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("loaded image",
		zap.String("path", req.ImagePath),
		zap.String("format", info.Format),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("dpi_x", info.DPIX),
		zap.Float64("dpi_y", info.DPIY),
	)

	img = imageio.Rotate(img, rotation)
	dpiX, dpiY := info.DPIX, info.DPIY
	if rotation.SwapsAxes() {
		dpiX, dpiY = dpiY, dpiX
	}

	dc, err := d.service.Open(ctx, printer)
	if err != nil {
		return nil, fmt.Errorf("failed to open printer %s: %w", printer, err)
	}
	defer func() {
		if closeErr := dc.Close(); closeErr != nil {
			d.logger.Warn("failed to release device context", zap.String("printer", printer), zap.Error(closeErr))
			if err == nil {
				err = fmt.Errorf("failed to release device context: %w", closeErr)
			}
		}
	}()

	setup := PageSetup{
		PaperWidthMM:  req.PaperWidthMM,
		PaperHeightMM: req.PaperHeightMM,
		Orientation:   OrientationFor(req.PaperWidthMM, req.PaperHeightMM),
		Copies:        req.Copies,
	}
	if err := dc.Configure(setup); err != nil {
		return nil, &printerr.PrintSubmissionError{Stage: printerr.StageConfigure, Err: err}
	}

	// Resolution and printable width depend on the configured paper.
	caps := dc.Caps()
	bounds := img.Bounds()
	placement, err := geometry.Compute(geometry.Params{
		PaperWidthMM:  req.PaperWidthMM,
		PaperHeightMM: req.PaperHeightMM,
		MarginXMM:     req.MarginXMM,
		MarginYMM:     req.MarginYMM,
		OffsetXMM:     req.OffsetXMM,
		OffsetYMM:     req.OffsetYMM,
		PrintWidthMM:  req.PrintWidthMM,
		Scale:         req.Scale,
		ImageWidth:    bounds.Dx(),
		ImageHeight:   bounds.Dy(),
		ImageDPIX:     dpiX,
		ImageDPIY:     dpiY,
		Resolution:    caps.Resolution,
		MaxWidth:      caps.MaxWidth,
	})
	if err != nil {
		var invalid *printerr.InvalidImageError
		if errors.As(err, &invalid) && invalid.Path == "" {
			invalid.Path = req.ImagePath
		}
		return nil, err
	}
	d.logger.Debug("computed placement",
		zap.Int("x", placement.X),
		zap.Int("y", placement.Y),
		zap.Int("width", placement.Width),
		zap.Int("height", placement.Height),
		zap.Bool("clamped", placement.Clamped),
	)

	for copyNum := 1; copyNum <= req.Copies; copyNum++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("print cancelled before copy %d: %w", copyNum, err)
		}

		if err := d.submit(dc, req.documentName(copyNum), img, placement.Rect); err != nil {
			err.Copy = copyNum
			d.logger.Debug("copy failed", zap.Int("copy", copyNum), zap.String("stage", string(err.Stage)), zap.Error(err.Err))
			return nil, err
		}

		if d.progress != nil {
			d.progress(copyNum, req.Copies)
		}
	}

	result = &Result{
		Printer:    printer,
		Copies:     req.Copies,
		Image:      info,
		Placement:  placement,
		Resolution: caps.Resolution,
		Elapsed:    time.Since(start),
	}
	if reporter, ok := dc.(SpoolReporter); ok {
		result.BytesSpooled = reporter.BytesSpooled()
	}

	return result, nil
}

// resolvePrinter maps the requested name to an installed printer, falling
// back to the service default when no name is given.
func (d *Driver) resolvePrinter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		def, err := d.service.DefaultPrinter(ctx)
		if err != nil || def == "" {
			return "", &printerr.PrinterNotFoundError{Err: err}
		}
		return def, nil
	}

	if resolver, ok := d.service.(Resolver); ok {
		return resolver.Resolve(ctx, name)
	}

	printers, err := d.service.Printers(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list printers: %w", err)
	}
	for _, p := range printers {
		if strings.EqualFold(p.Name, name) {
			return p.Name, nil
		}
	}

	return "", &printerr.PrinterNotFoundError{Name: name}
}

// submit prints one copy as its own document.
func (d *Driver) submit(dc DeviceContext, docName string, img image.Image, rect geometry.Rect) *printerr.PrintSubmissionError {
	if err := dc.StartDoc(docName); err != nil {
		return &printerr.PrintSubmissionError{Stage: printerr.StageStartDoc, Err: err}
	}

	fail := func(stage printerr.Stage, err error) *printerr.PrintSubmissionError {
		if abortErr := dc.AbortDoc(); abortErr != nil {
			d.logger.Warn("failed to abort document", zap.String("document", docName), zap.Error(abortErr))
		}
		return &printerr.PrintSubmissionError{Stage: stage, Err: err}
	}

	if err := dc.StartPage(); err != nil {
		return fail(printerr.StageStartPage, err)
	}
	if err := dc.DrawImage(img, rect); err != nil {
		return fail(printerr.StageDraw, err)
	}
	if err := dc.EndPage(); err != nil {
		return fail(printerr.StageEndPage, err)
	}
	if err := dc.EndDoc(); err != nil {
		return fail(printerr.StageEndDoc, err)
	}

	d.logger.Debug("submitted document", zap.String("document", docName))
	return nil
}
