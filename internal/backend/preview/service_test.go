package preview

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"

	"github.com/alde/printimg/pkg/paper"
	"github.com/alde/printimg/pkg/printerr"
	"github.com/alde/printimg/pkg/printjob"
)

func writeSource(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}

	path := filepath.Join(dir, "source.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode source: %v", err)
	}
	return path
}

func newService(t *testing.T) *Service {
	t.Helper()
	profile, err := paper.GetProfile(paper.DefaultProfile)
	if err != nil {
		t.Fatalf("Failed to load profile: %v", err)
	}
	return NewService(Options{Profile: profile})
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		wantErr  bool
	}{
		{"out.png", FormatPNG, false},
		{"OUT.JPG", FormatJPEG, false},
		{"label.jpeg", FormatJPEG, false},
		{"label.webp", FormatWebP, false},
		{"label.gif", "", true},
		{"label", "", true},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			format, err := FormatFromPath(test.path)
			if test.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s", test.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if format != test.expected {
				t.Errorf("Expected %s, got %s", test.expected, format)
			}
		})
	}
}

func TestCopyPath(t *testing.T) {
	tests := []struct {
		copyNum  int
		expected string
	}{
		{1, "/tmp/label.png"},
		{2, "/tmp/label-2.png"},
		{10, "/tmp/label-10.png"},
	}

	for _, test := range tests {
		if got := copyPath("/tmp/label.png", test.copyNum); got != test.expected {
			t.Errorf("Copy %d: expected %s, got %s", test.copyNum, test.expected, got)
		}
	}
}

func TestPreviewWritesOneFilePerCopy(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "label.png")

	driver := printjob.New(printjob.Options{Service: newService(t)})
	result, err := driver.Print(context.Background(), printjob.Request{
		ImagePath:     writeSource(t, dir),
		Printer:       output,
		Rotation:      180,
		PaperWidthMM:  72,
		PaperHeightMM: 130,
		PrintWidthMM:  68,
		MarginXMM:     4,
		Scale:         100,
		Copies:        2,
	})
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	var total int64
	for _, path := range []string{output, filepath.Join(dir, "label-2.png")} {
		file, err := os.Open(path)
		if err != nil {
			t.Fatalf("Expected preview %s: %v", path, err)
		}
		cfg, err := png.DecodeConfig(file)
		file.Close()
		if err != nil {
			t.Fatalf("Failed to decode %s: %v", path, err)
		}

		// 72x130mm at 203 dpi.
		if cfg.Width != 575 || cfg.Height != 1039 {
			t.Errorf("Expected 575x1039 page, got %dx%d", cfg.Width, cfg.Height)
		}

		info, _ := os.Stat(path)
		total += info.Size()
	}

	if result.BytesSpooled != uint64(total) {
		t.Errorf("Expected %d bytes spooled, got %d", total, result.BytesSpooled)
	}
}

func TestPreviewDrawsAtPlacement(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "label.png")

	driver := printjob.New(printjob.Options{Service: newService(t)})
	result, err := driver.Print(context.Background(), printjob.Request{
		ImagePath:     writeSource(t, dir),
		Printer:       output,
		Rotation:      0,
		PaperWidthMM:  72,
		PaperHeightMM: 130,
		PrintWidthMM:  68,
		MarginXMM:     4,
		MarginYMM:     10,
		Scale:         100,
		Copies:        1,
	})
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatalf("Failed to open preview: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}

	rect := result.Placement.Rect
	inside := color.RGBAModel.Convert(img.At(rect.X+rect.Width/2, rect.Y+rect.Height/2)).(color.RGBA)
	if inside.R < 150 || inside.G > 60 {
		t.Errorf("Expected image color inside placement, got %+v", inside)
	}
	outside := color.RGBAModel.Convert(img.At(2, 2)).(color.RGBA)
	if outside.R != 255 || outside.G != 255 || outside.B != 255 {
		t.Errorf("Expected white margin, got %+v", outside)
	}
}

func TestPreviewWebP(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "label.webp")

	driver := printjob.New(printjob.Options{Service: newService(t)})
	_, err := driver.Print(context.Background(), printjob.Request{
		ImagePath:     writeSource(t, dir),
		Printer:       output,
		Rotation:      90,
		PaperWidthMM:  72,
		PaperHeightMM: 130,
		PrintWidthMM:  68,
		Scale:         50,
		Copies:        1,
	})
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read preview: %v", err)
	}
	width, height, _, err := webp.GetInfo(data)
	if err != nil {
		t.Fatalf("Failed to read webp header: %v", err)
	}
	if width != 575 || height != 1039 {
		t.Errorf("Expected 575x1039 page, got %dx%d", width, height)
	}
}

func TestPreviewRejectsUnknownFormat(t *testing.T) {
	service := newService(t)

	_, err := service.Resolve(context.Background(), "label.gif")
	var notFound *printerr.PrinterNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected PrinterNotFoundError, got %v", err)
	}

	name, _ := service.DefaultPrinter(context.Background())
	if name != "" {
		t.Errorf("Expected no default printer, got %q", name)
	}
}
