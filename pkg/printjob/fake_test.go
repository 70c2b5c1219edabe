package printjob

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/alde/printimg/pkg/geometry"
)

var errDeviceOffline = errors.New("device offline")

type fakeService struct {
	defaultName string
	defaultErr  error
	printers    []PrinterInfo
	openErr     error
	dc          *fakeDeviceContext

	calls []string
}

func (s *fakeService) DefaultPrinter(ctx context.Context) (string, error) {
	s.calls = append(s.calls, "DefaultPrinter")
	return s.defaultName, s.defaultErr
}

func (s *fakeService) Printers(ctx context.Context) ([]PrinterInfo, error) {
	s.calls = append(s.calls, "Printers")
	return s.printers, nil
}

func (s *fakeService) Open(ctx context.Context, name string) (DeviceContext, error) {
	s.calls = append(s.calls, "Open:"+name)
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.dc, nil
}

type drawCall struct {
	bounds image.Rectangle
	rect   geometry.Rect
}

type fakeDeviceContext struct {
	caps Caps
	// configuredCaps, when set, replaces caps once Configure succeeds.
	configuredCaps *Caps

	// failStage makes the named call fail on copy failCopy.
	failStage string
	failCopy  int
	closeErr  error

	setup   PageSetup
	docs    []string
	draws   []drawCall
	calls   []string
	copyNum int
	closed  bool
	aborted int
	spooled uint64
}

func (dc *fakeDeviceContext) call(name string) error {
	dc.calls = append(dc.calls, name)
	if name == dc.failStage && (dc.failCopy == 0 || dc.failCopy == dc.copyNum) {
		return errDeviceOffline
	}
	return nil
}

func (dc *fakeDeviceContext) Caps() Caps { return dc.caps }

func (dc *fakeDeviceContext) Configure(setup PageSetup) error {
	dc.setup = setup
	if err := dc.call("Configure"); err != nil {
		return err
	}
	if dc.configuredCaps != nil {
		dc.caps = *dc.configuredCaps
	}
	return nil
}

func (dc *fakeDeviceContext) StartDoc(name string) error {
	dc.copyNum++
	dc.docs = append(dc.docs, name)
	return dc.call("StartDoc")
}

func (dc *fakeDeviceContext) StartPage() error { return dc.call("StartPage") }

func (dc *fakeDeviceContext) DrawImage(img image.Image, rect geometry.Rect) error {
	dc.draws = append(dc.draws, drawCall{bounds: img.Bounds(), rect: rect})
	return dc.call("DrawImage")
}

func (dc *fakeDeviceContext) EndPage() error { return dc.call("EndPage") }

func (dc *fakeDeviceContext) EndDoc() error {
	if err := dc.call("EndDoc"); err != nil {
		return err
	}
	dc.spooled += 100
	return nil
}

func (dc *fakeDeviceContext) AbortDoc() error {
	dc.aborted++
	return dc.call("AbortDoc")
}

func (dc *fakeDeviceContext) Close() error {
	dc.closed = true
	dc.calls = append(dc.calls, "Close")
	return dc.closeErr
}

func (dc *fakeDeviceContext) BytesSpooled() uint64 { return dc.spooled }

func (dc *fakeDeviceContext) count(name string) int {
	n := 0
	for _, c := range dc.calls {
		if c == name {
			n++
		}
	}
	return n
}

type resolvingService struct {
	fakeService
	resolved string
}

func (s *resolvingService) Resolve(ctx context.Context, name string) (string, error) {
	s.calls = append(s.calls, "Resolve:"+name)
	return s.resolved, nil
}

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/10+y/10)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	path := filepath.Join(t.TempDir(), "image.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return path
}
