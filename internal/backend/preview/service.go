package preview

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/alde/printimg/internal/backend/raster"
	"github.com/alde/printimg/pkg/geometry"
	"github.com/alde/printimg/pkg/paper"
	"github.com/alde/printimg/pkg/printerr"
	"github.com/alde/printimg/pkg/printjob"
)

// DefaultQuality is used for lossy formats when none is set.
const DefaultQuality = 90

// Options configures the preview service.
type Options struct {
	// Profile supplies the simulated printer resolution and head width.
	Profile paper.Profile
	// Quality applies to JPEG and WebP output (1-100).
	Quality int
	// Grayscale renders pages the way a thermal printer would tone them.
	Grayscale bool
	Logger    *zap.Logger
}

// Service implements printjob.Service by writing pages to files. The printer
// name is the output path.
type Service struct {
	opts   Options
	logger *zap.Logger
}

// NewService creates a preview service.
func NewService(opts Options) *Service {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{opts: opts, logger: logger}
}

// DefaultPrinter always reports no default; an output path must be given.
func (s *Service) DefaultPrinter(ctx context.Context) (string, error) {
	return "", nil
}

func (s *Service) Printers(ctx context.Context) ([]printjob.PrinterInfo, error) {
	return nil, nil
}

// Resolve accepts any path with a supported image extension.
func (s *Service) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if _, err := FormatFromPath(name); err != nil {
		return "", &printerr.PrinterNotFoundError{Name: name, Err: err}
	}
	return filepath.Clean(name), nil
}

func (s *Service) Open(ctx context.Context, name string) (printjob.DeviceContext, error) {
	format, err := FormatFromPath(name)
	if err != nil {
		return nil, &printerr.PrinterNotFoundError{Name: name, Err: err}
	}
	if err := s.opts.Profile.Validate(); err != nil {
		return nil, err
	}

	return &deviceContext{
		path:    name,
		format:  format,
		opts:    s.opts,
		logger:  s.logger,
		profile: s.opts.Profile,
	}, nil
}

type deviceContext struct {
	path    string
	format  Format
	opts    Options
	profile paper.Profile
	logger  *zap.Logger

	setup      printjob.PageSetup
	configured bool

	copyNum int
	inDoc   bool
	page    *raster.Page
	last    image.Image
	written []string
	spooled uint64
}

func (d *deviceContext) Caps() printjob.Caps {
	return printjob.Caps{
		Resolution: geometry.DPI(float64(d.profile.DPI)),
		MaxWidth:   d.profile.MaxPrintableWidth(),
	}
}

func (d *deviceContext) Configure(setup printjob.PageSetup) error {
	if setup.PaperWidthMM <= 0 || setup.PaperHeightMM <= 0 {
		return fmt.Errorf("paper size must be positive, got %gx%gmm", setup.PaperWidthMM, setup.PaperHeightMM)
	}
	d.setup = setup
	d.configured = true
	return nil
}

func (d *deviceContext) StartDoc(name string) error {
	if d.inDoc {
		return fmt.Errorf("document already started")
	}
	d.inDoc = true
	d.copyNum++
	d.last = nil
	return nil
}

func (d *deviceContext) StartPage() error {
	if !d.inDoc {
		return fmt.Errorf("no document started")
	}

	widthMM, heightMM := d.profile.WidthMM, d.profile.HeightMM
	if d.configured {
		widthMM, heightMM = d.setup.PaperWidthMM, d.setup.PaperHeightMM
	}
	res := geometry.DPI(float64(d.profile.DPI))

	page, err := raster.NewPage(res.MMToX(widthMM), res.MMToY(heightMM))
	if err != nil {
		return err
	}
	d.page = page
	return nil
}

func (d *deviceContext) DrawImage(img image.Image, rect geometry.Rect) error {
	if d.page == nil {
		return fmt.Errorf("no page started")
	}
	return d.page.Draw(img, rect)
}

func (d *deviceContext) EndPage() error {
	if d.page == nil {
		return fmt.Errorf("no page started")
	}
	// A preview file holds one page; later pages replace earlier ones.
	d.last = d.page.Image()
	d.page = nil
	return nil
}

func (d *deviceContext) EndDoc() error {
	if !d.inDoc {
		return fmt.Errorf("no document started")
	}
	if d.last == nil {
		return fmt.Errorf("document has no pages")
	}

	path := copyPath(d.path, d.copyNum)
	size, err := saveImage(d.last, path, d.format, d.opts.Quality, d.opts.Grayscale)
	if err != nil {
		return err
	}

	d.logger.Debug("wrote preview", zap.String("path", path), zap.Int64("bytes", size))
	d.written = append(d.written, path)
	d.spooled += uint64(size)
	d.inDoc = false
	d.last = nil
	return nil
}

func (d *deviceContext) AbortDoc() error {
	d.inDoc = false
	d.page = nil
	d.last = nil
	return nil
}

func (d *deviceContext) Close() error {
	d.page = nil
	d.last = nil
	return nil
}

func (d *deviceContext) BytesSpooled() uint64 {
	return d.spooled
}
