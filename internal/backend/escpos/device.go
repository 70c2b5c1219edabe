package escpos

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/alde/printimg/internal/backend/raster"
	"github.com/alde/printimg/pkg/geometry"
	"github.com/alde/printimg/pkg/paper"
	"github.com/alde/printimg/pkg/printjob"
)

// trailingFeed is the number of blank lines fed after a page so the cut
// lands below the printed area.
const trailingFeed = 4

var errClosed = errors.New("device context is closed")

// deviceContext renders each page on a raster canvas and sends the whole
// document to the printer at EndDoc.
type deviceContext struct {
	ctx     context.Context
	target  Target
	profile paper.Profile
	dial    Dialer
	logger  *zap.Logger

	setup      printjob.PageSetup
	configured bool

	encoder *Encoder
	page    *raster.Page
	inDoc   bool
	docName string
	spooled uint64
	closed  bool
}

func newDeviceContext(ctx context.Context, target Target, profile paper.Profile, threshold uint8, dial Dialer, logger *zap.Logger) *deviceContext {
	return &deviceContext{
		ctx:     ctx,
		target:  target,
		profile: profile,
		dial:    dial,
		logger:  logger,
		encoder: NewEncoder(threshold),
	}
}

func (d *deviceContext) resolution() geometry.Resolution {
	return geometry.DPI(float64(d.profile.DPI))
}

func (d *deviceContext) Caps() printjob.Caps {
	return printjob.Caps{
		Resolution: d.resolution(),
		MaxWidth:   d.profile.MaxPrintableWidth(),
	}
}

func (d *deviceContext) Configure(setup printjob.PageSetup) error {
	if d.closed {
		return errClosed
	}
	if setup.PaperWidthMM <= 0 || setup.PaperHeightMM <= 0 {
		return fmt.Errorf("paper size must be positive, got %gx%gmm", setup.PaperWidthMM, setup.PaperHeightMM)
	}

	d.setup = setup
	d.configured = true
	d.logger.Debug("configured page",
		zap.String("printer", d.target.String()),
		zap.Float64("width_mm", setup.PaperWidthMM),
		zap.Float64("height_mm", setup.PaperHeightMM),
		zap.Stringer("orientation", setup.Orientation))
	return nil
}

// pageSize returns the canvas size in dots, narrowed to the print head.
func (d *deviceContext) pageSize() (int, int) {
	widthMM, heightMM := d.profile.WidthMM, d.profile.HeightMM
	if d.configured {
		widthMM, heightMM = d.setup.PaperWidthMM, d.setup.PaperHeightMM
	}

	res := d.resolution()
	width := res.MMToX(widthMM)
	height := res.MMToY(heightMM)
	if limit := d.profile.MaxPrintableWidth(); limit > 0 && width > limit {
		width = limit
	}
	return width, height
}

func (d *deviceContext) StartDoc(name string) error {
	if d.closed {
		return errClosed
	}
	if d.inDoc {
		return fmt.Errorf("document %q is still open", d.docName)
	}

	d.encoder.Reset()
	d.encoder.Initialize()
	d.inDoc = true
	d.docName = name
	return nil
}

func (d *deviceContext) StartPage() error {
	if !d.inDoc {
		return fmt.Errorf("no document started")
	}
	if d.page != nil {
		return fmt.Errorf("page already started")
	}

	width, height := d.pageSize()
	page, err := raster.NewPage(width, height)
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

	d.encoder.Raster(d.page.Image())
	d.encoder.Feed(trailingFeed)
	d.page = nil
	return nil
}

func (d *deviceContext) EndDoc() error {
	if !d.inDoc {
		return fmt.Errorf("no document started")
	}
	if d.page != nil {
		return fmt.Errorf("page still open")
	}

	d.encoder.Cut()
	data := d.encoder.Bytes()

	conn, err := d.dial(d.ctx, d.target)
	if err != nil {
		return err
	}

	n, writeErr := conn.Write(data)
	closeErr := conn.Close()
	d.spooled += uint64(n)
	if err := errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", d.docName, d.target, err)
	}

	d.logger.Debug("document sent",
		zap.String("document", d.docName),
		zap.String("printer", d.target.String()),
		zap.Int("bytes", n))

	d.encoder.Reset()
	d.inDoc = false
	d.docName = ""
	return nil
}

// AbortDoc drops the buffered document. Nothing has reached the printer yet
// unless EndDoc failed part way through a write.
func (d *deviceContext) AbortDoc() error {
	d.encoder.Reset()
	d.page = nil
	d.inDoc = false
	d.docName = ""
	return nil
}

func (d *deviceContext) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.page = nil
	d.encoder.Reset()
	return nil
}

func (d *deviceContext) BytesSpooled() uint64 {
	return d.spooled
}
