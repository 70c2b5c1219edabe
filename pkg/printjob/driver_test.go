package printjob

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alde/printimg/pkg/geometry"
	"github.com/alde/printimg/pkg/printerr"
)

func labelRequest(path string) Request {
	return Request{
		ImagePath:     path,
		Printer:       "Label Printer",
		Rotation:      0,
		PaperWidthMM:  68,
		PaperHeightMM: 130,
		MarginXMM:     4,
		Scale:         100,
		Copies:        1,
	}
}

func newFakes() (*fakeService, *fakeDeviceContext) {
	dc := &fakeDeviceContext{caps: Caps{Resolution: geometry.DPI(203)}}
	svc := &fakeService{
		defaultName: "Label Printer",
		printers: []PrinterInfo{
			{Name: "Label Printer", Default: true},
			{Name: "Office Laser"},
		},
		dc: dc,
	}
	return svc, dc
}

func TestPrintLabelScenario(t *testing.T) {
	svc, dc := newFakes()
	path := writeTestPNG(t, 800, 1200)

	result, err := New(Options{Service: svc}).Print(context.Background(), labelRequest(path))
	if err != nil {
		t.Fatalf("Print() failed: %v", err)
	}

	expectedWidth := geometry.MMToUnits(60, 203)
	expected := geometry.Rect{
		X:      geometry.MMToUnits(4, 203),
		Y:      0,
		Width:  expectedWidth,
		Height: int(1200 * float64(expectedWidth) / 800),
	}
	if len(dc.draws) != 1 {
		t.Fatalf("Expected 1 draw, got %d", len(dc.draws))
	}
	if dc.draws[0].rect != expected {
		t.Errorf("Expected rect %+v, got %+v", expected, dc.draws[0].rect)
	}

	wantCalls := []string{"Configure", "StartDoc", "StartPage", "DrawImage", "EndPage", "EndDoc", "Close"}
	if strings.Join(dc.calls, ",") != strings.Join(wantCalls, ",") {
		t.Errorf("Unexpected call sequence: %v", dc.calls)
	}

	if dc.setup.Orientation != Portrait || dc.setup.Copies != 1 || dc.setup.PaperWidthMM != 68 {
		t.Errorf("Unexpected page setup: %+v", dc.setup)
	}

	if result.Printer != "Label Printer" || result.Copies != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.BytesSpooled != 100 {
		t.Errorf("Expected 100 spooled bytes, got %d", result.BytesSpooled)
	}
	if result.Image.Width != 800 || result.Image.Height != 1200 {
		t.Errorf("Unexpected image info: %+v", result.Image)
	}

	widthMM, _ := result.PlacementMM()
	if widthMM < 59.8 || widthMM > 60 {
		t.Errorf("Expected printed width close to 60mm, got %g", widthMM)
	}
}

func TestPrintThirdCopyFails(t *testing.T) {
	svc, dc := newFakes()
	dc.failStage = "StartPage"
	dc.failCopy = 3

	req := labelRequest(writeTestPNG(t, 80, 120))
	req.Copies = 3

	var progress []int
	driver := New(Options{
		Service:  svc,
		Progress: func(done, total int) { progress = append(progress, done) },
	})

	_, err := driver.Print(context.Background(), req)

	var submission *printerr.PrintSubmissionError
	if !errors.As(err, &submission) {
		t.Fatalf("Expected PrintSubmissionError, got %v", err)
	}
	if submission.Copy != 3 {
		t.Errorf("Expected failing copy 3, got %d", submission.Copy)
	}
	if submission.Stage != printerr.StageStartPage {
		t.Errorf("Expected stage %q, got %q", printerr.StageStartPage, submission.Stage)
	}
	if !errors.Is(err, errDeviceOffline) {
		t.Error("Expected error to wrap the device error")
	}

	if !dc.closed {
		t.Error("Device context must be released after a failed copy")
	}
	if got := dc.count("EndDoc"); got != 2 {
		t.Errorf("Expected 2 completed documents, got %d", got)
	}
	if dc.aborted != 1 {
		t.Errorf("Expected the failed document to be aborted once, got %d", dc.aborted)
	}
	if len(progress) != 2 {
		t.Errorf("Expected progress for 2 copies, got %v", progress)
	}
	if dc.docs[2] != "Print job #3" {
		t.Errorf("Unexpected document name %q", dc.docs[2])
	}
}

func TestPrintSubmissionStages(t *testing.T) {
	stages := map[string]printerr.Stage{
		"StartDoc":  printerr.StageStartDoc,
		"StartPage": printerr.StageStartPage,
		"DrawImage": printerr.StageDraw,
		"EndPage":   printerr.StageEndPage,
		"EndDoc":    printerr.StageEndDoc,
	}

	path := writeTestPNG(t, 40, 40)
	for call, stage := range stages {
		t.Run(call, func(t *testing.T) {
			svc, dc := newFakes()
			dc.failStage = call

			_, err := New(Options{Service: svc}).Print(context.Background(), labelRequest(path))

			var submission *printerr.PrintSubmissionError
			if !errors.As(err, &submission) {
				t.Fatalf("Expected PrintSubmissionError, got %v", err)
			}
			if submission.Stage != stage || submission.Copy != 1 {
				t.Errorf("Expected copy 1 at %q, got copy %d at %q", stage, submission.Copy, submission.Stage)
			}
			if !dc.closed {
				t.Error("Device context not released")
			}

			// A document that never started has nothing to abort.
			wantAborts := 1
			if call == "StartDoc" {
				wantAborts = 0
			}
			if dc.aborted != wantAborts {
				t.Errorf("Expected %d aborts, got %d", wantAborts, dc.aborted)
			}
		})
	}
}

func TestPrintConfigureFailure(t *testing.T) {
	svc, dc := newFakes()
	dc.failStage = "Configure"

	_, err := New(Options{Service: svc}).Print(context.Background(), labelRequest(writeTestPNG(t, 10, 10)))

	var submission *printerr.PrintSubmissionError
	if !errors.As(err, &submission) {
		t.Fatalf("Expected PrintSubmissionError, got %v", err)
	}
	if submission.Copy != 0 || submission.Stage != printerr.StageConfigure {
		t.Errorf("Unexpected submission error: %+v", submission)
	}
	if dc.count("StartDoc") != 0 {
		t.Error("No document should start after configure fails")
	}
	if !dc.closed {
		t.Error("Device context not released")
	}
}

func TestPrintNoDefaultPrinter(t *testing.T) {
	svc, dc := newFakes()
	svc.defaultName = ""

	req := labelRequest(filepath.Join(t.TempDir(), "does-not-exist.png"))
	req.Printer = ""

	_, err := New(Options{Service: svc}).Print(context.Background(), req)

	// Resolution happens before the image is read, so the missing file is
	// never noticed.
	var notFound *printerr.PrinterNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected PrinterNotFoundError, got %v", err)
	}
	if notFound.Name != "" {
		t.Errorf("Expected empty printer name, got %q", notFound.Name)
	}
	if len(dc.calls) != 0 {
		t.Errorf("Expected no device calls, got %v", dc.calls)
	}
}

func TestPrintDefaultPrinterError(t *testing.T) {
	svc, _ := newFakes()
	svc.defaultErr = errors.New("spooler not running")

	req := labelRequest(writeTestPNG(t, 10, 10))
	req.Printer = ""

	_, err := New(Options{Service: svc}).Print(context.Background(), req)

	var notFound *printerr.PrinterNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected PrinterNotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "spooler not running") {
		t.Errorf("Expected cause in message, got %v", err)
	}
}

func TestPrintUsesDefaultPrinter(t *testing.T) {
	svc, _ := newFakes()
	svc.defaultName = "Office Laser"

	req := labelRequest(writeTestPNG(t, 10, 10))
	req.Printer = ""

	result, err := New(Options{Service: svc}).Print(context.Background(), req)
	if err != nil {
		t.Fatalf("Print() failed: %v", err)
	}
	if result.Printer != "Office Laser" {
		t.Errorf("Expected default printer, got %s", result.Printer)
	}
	if svc.calls[len(svc.calls)-1] != "Open:Office Laser" {
		t.Errorf("Unexpected service calls: %v", svc.calls)
	}
}

func TestPrintUnknownPrinter(t *testing.T) {
	svc, dc := newFakes()

	req := labelRequest(writeTestPNG(t, 10, 10))
	req.Printer = "Kitchen"

	_, err := New(Options{Service: svc}).Print(context.Background(), req)

	var notFound *printerr.PrinterNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected PrinterNotFoundError, got %v", err)
	}
	if notFound.Name != "Kitchen" {
		t.Errorf("Expected name Kitchen, got %q", notFound.Name)
	}
	if len(dc.calls) != 0 {
		t.Errorf("Expected no device calls, got %v", dc.calls)
	}
}

func TestPrintPrinterNameIsCaseInsensitive(t *testing.T) {
	svc, _ := newFakes()

	req := labelRequest(writeTestPNG(t, 10, 10))
	req.Printer = "office laser"

	result, err := New(Options{Service: svc}).Print(context.Background(), req)
	if err != nil {
		t.Fatalf("Print() failed: %v", err)
	}
	if result.Printer != "Office Laser" {
		t.Errorf("Expected canonical name, got %s", result.Printer)
	}
}

func TestPrintUsesResolver(t *testing.T) {
	_, dc := newFakes()
	svc := &resolvingService{resolved: "tcp://10.0.0.5:9100"}
	svc.dc = dc

	req := labelRequest(writeTestPNG(t, 10, 10))
	req.Printer = "tcp://10.0.0.5"

	result, err := New(Options{Service: svc}).Print(context.Background(), req)
	if err != nil {
		t.Fatalf("Print() failed: %v", err)
	}
	if result.Printer != "tcp://10.0.0.5:9100" {
		t.Errorf("Expected resolved name, got %s", result.Printer)
	}
	for _, call := range svc.calls {
		if call == "Printers" {
			t.Error("Printers() should not be called when the service resolves names")
		}
	}
}

func TestPrintUnsupportedRotation(t *testing.T) {
	svc, dc := newFakes()

	req := labelRequest(writeTestPNG(t, 10, 10))
	req.Rotation = 45

	_, err := New(Options{Service: svc}).Print(context.Background(), req)

	var unsupported *printerr.UnsupportedRotationError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedRotationError, got %v", err)
	}
	if len(svc.calls) != 0 || len(dc.calls) != 0 {
		t.Errorf("Expected no service or device calls, got %v / %v", svc.calls, dc.calls)
	}
}

func TestPrintInvalidImage(t *testing.T) {
	svc, _ := newFakes()

	req := labelRequest(filepath.Join(t.TempDir(), "missing.png"))

	_, err := New(Options{Service: svc}).Print(context.Background(), req)

	var invalid *printerr.InvalidImageError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidImageError, got %v", err)
	}
	for _, call := range svc.calls {
		if strings.HasPrefix(call, "Open:") {
			t.Error("No printer handle should be opened for an invalid image")
		}
	}
}

func TestPrintRequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *Request)
	}{
		{name: "zero copies", modify: func(r *Request) { r.Copies = 0 }},
		{name: "negative scale", modify: func(r *Request) { r.Scale = -10 }},
		{name: "zero paper height", modify: func(r *Request) { r.PaperHeightMM = 0 }},
		{name: "missing image path", modify: func(r *Request) { r.ImagePath = "" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			svc, _ := newFakes()
			req := labelRequest("image.png")
			test.modify(&req)

			if _, err := New(Options{Service: svc}).Print(context.Background(), req); err == nil {
				t.Fatal("Expected a validation error")
			}
			if len(svc.calls) != 0 {
				t.Errorf("Expected no service calls, got %v", svc.calls)
			}
		})
	}
}

func TestPrintRotationSwapsAxes(t *testing.T) {
	tests := []struct {
		rotation int
		width    int
		height   int
	}{
		{0, 80, 120},
		{90, 120, 80},
		{180, 80, 120},
		{270, 120, 80},
	}

	path := writeTestPNG(t, 80, 120)
	for _, test := range tests {
		svc, dc := newFakes()
		req := labelRequest(path)
		req.Rotation = test.rotation

		if _, err := New(Options{Service: svc}).Print(context.Background(), req); err != nil {
			t.Fatalf("Print() with rotation %d failed: %v", test.rotation, err)
		}

		b := dc.draws[0].bounds
		if b.Dx() != test.width || b.Dy() != test.height {
			t.Errorf("Rotation %d: drew %dx%d, expected %dx%d", test.rotation, b.Dx(), b.Dy(), test.width, test.height)
		}
	}
}

func TestPrintLandscapePaper(t *testing.T) {
	svc, dc := newFakes()
	req := labelRequest(writeTestPNG(t, 10, 10))
	req.PaperWidthMM = 150
	req.PaperHeightMM = 100
	req.MarginXMM = 0

	if _, err := New(Options{Service: svc}).Print(context.Background(), req); err != nil {
		t.Fatalf("Print() failed: %v", err)
	}
	if dc.setup.Orientation != Landscape {
		t.Errorf("Expected landscape, got %s", dc.setup.Orientation)
	}
}

func TestPrintCancelledContext(t *testing.T) {
	svc, dc := newFakes()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Service: svc}).Print(ctx, labelRequest(writeTestPNG(t, 10, 10)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if dc.count("StartDoc") != 0 {
		t.Error("No document should start after cancellation")
	}
	if !dc.closed {
		t.Error("Device context not released")
	}
}

func TestPrintCloseError(t *testing.T) {
	svc, dc := newFakes()
	dc.closeErr = errors.New("handle leak")

	_, err := New(Options{Service: svc}).Print(context.Background(), labelRequest(writeTestPNG(t, 10, 10)))
	if err == nil || !strings.Contains(err.Error(), "handle leak") {
		t.Fatalf("Expected release error, got %v", err)
	}
}

func TestPrintOpenFailure(t *testing.T) {
	svc, _ := newFakes()
	svc.openErr = errDeviceOffline

	_, err := New(Options{Service: svc}).Print(context.Background(), labelRequest(writeTestPNG(t, 10, 10)))
	if !errors.Is(err, errDeviceOffline) {
		t.Fatalf("Expected open error, got %v", err)
	}
}

func TestPrintClampsToDeviceWidth(t *testing.T) {
	svc, dc := newFakes()
	dc.caps.MaxWidth = 300

	if _, err := New(Options{Service: svc}).Print(context.Background(), labelRequest(writeTestPNG(t, 100, 100))); err != nil {
		t.Fatalf("Print() failed: %v", err)
	}
	rect := dc.draws[0].rect
	if rect.Width != 300 || rect.Height > 300 {
		t.Errorf("Expected clamp to 300 wide, got %+v", rect)
	}
}

func TestPrintReadsCapsAfterConfigure(t *testing.T) {
	svc, dc := newFakes()
	// The unconfigured context reports the driver's default A4 page.
	dc.caps = Caps{Resolution: geometry.DPI(200), MaxWidth: 1654}
	dc.configuredCaps = &Caps{Resolution: geometry.DPI(203), MaxWidth: 300}

	result, err := New(Options{Service: svc}).Print(context.Background(), labelRequest(writeTestPNG(t, 100, 100)))
	if err != nil {
		t.Fatalf("Print() failed: %v", err)
	}

	rect := dc.draws[0].rect
	if rect.Width != 300 {
		t.Errorf("Expected clamp to the configured width 300, got %+v", rect)
	}
	if result.Resolution != geometry.DPI(203) {
		t.Errorf("Expected configured resolution, got %+v", result.Resolution)
	}
	if dc.calls[0] != "Configure" {
		t.Errorf("Expected Configure first, got %v", dc.calls)
	}
}
