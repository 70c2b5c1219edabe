//go:build windows

package spooler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/alde/printimg/pkg/geometry"
	"github.com/alde/printimg/pkg/printjob"
)

var (
	winspool = windows.NewLazySystemDLL("winspool.drv")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")

	procGetDefaultPrinterW  = winspool.NewProc("GetDefaultPrinterW")
	procEnumPrintersW       = winspool.NewProc("EnumPrintersW")
	procOpenPrinterW        = winspool.NewProc("OpenPrinterW")
	procClosePrinter        = winspool.NewProc("ClosePrinter")
	procDocumentPropertiesW = winspool.NewProc("DocumentPropertiesW")

	procCreateDCW         = gdi32.NewProc("CreateDCW")
	procResetDCW          = gdi32.NewProc("ResetDCW")
	procDeleteDC          = gdi32.NewProc("DeleteDC")
	procGetDeviceCaps     = gdi32.NewProc("GetDeviceCaps")
	procStartDocW         = gdi32.NewProc("StartDocW")
	procStartPage         = gdi32.NewProc("StartPage")
	procEndPage           = gdi32.NewProc("EndPage")
	procEndDoc            = gdi32.NewProc("EndDoc")
	procAbortDoc          = gdi32.NewProc("AbortDoc")
	procStretchDIBits     = gdi32.NewProc("StretchDIBits")
	procSetStretchBltMode = gdi32.NewProc("SetStretchBltMode")
	procSetBrushOrgEx     = gdi32.NewProc("SetBrushOrgEx")
)

const (
	printerEnumLocal       = 0x2
	printerEnumConnections = 0x4

	errorInsufficientBuffer = windows.ERROR_INSUFFICIENT_BUFFER
	errorFileNotFound       = windows.ERROR_FILE_NOT_FOUND

	// GetDeviceCaps indexes
	horzRes    = 8
	logPixelsX = 88
	logPixelsY = 90

	// DocumentProperties modes
	dmOutBuffer = 2
	dmInBuffer  = 8

	// DEVMODE fields
	dmOrientation = 0x00000001
	dmPaperSize   = 0x00000002
	dmPaperLength = 0x00000004
	dmPaperWidth  = 0x00000008
	dmCopies      = 0x00000100

	dmOrientPortrait  = 1
	dmOrientLandscape = 2
	dmPaperUser       = 256

	halftone     = 4
	dibRGBColors = 0
	srcCopy      = 0x00CC0020
	biRGB        = 0
	gdiError     = 0xFFFFFFFF
)

type printerInfo4 struct {
	PrinterName *uint16
	ServerName  *uint16
	Attributes  uint32
}

type docInfo struct {
	Size     int32
	DocName  *uint16
	Output   *uint16
	Datatype *uint16
	Type     uint32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// devMode is the fixed prefix of DEVMODEW up to dmCopies. The full
// structure, including driver private data, lives in a buffer sized by
// DocumentPropertiesW.
type devMode struct {
	DeviceName    [32]uint16
	SpecVersion   uint16
	DriverVersion uint16
	Size          uint16
	DriverExtra   uint16
	Fields        uint32
	Orientation   int16
	PaperSize     int16
	PaperLength   int16
	PaperWidth    int16
	Scale         int16
	Copies        int16
}

// Service implements printjob.Service on top of the Windows spooler.
type Service struct {
	logger *zap.Logger
}

// NewService creates a spooler service.
func NewService(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := winspool.Load(); err != nil {
		return nil, fmt.Errorf("print spooler unavailable: %w", err)
	}
	return &Service{logger: logger}, nil
}

func (s *Service) DefaultPrinter(ctx context.Context) (string, error) {
	var size uint32
	r, _, err := procGetDefaultPrinterW.Call(0, uintptr(unsafe.Pointer(&size)))
	if r == 0 {
		switch {
		case errors.Is(err, errorFileNotFound):
			return "", nil
		case !errors.Is(err, errorInsufficientBuffer):
			return "", fmt.Errorf("GetDefaultPrinter: %w", err)
		}
	}

	if size == 0 {
		return "", nil
	}
	buf := make([]uint16, size)
	r, _, err = procGetDefaultPrinterW.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if r == 0 {
		return "", fmt.Errorf("GetDefaultPrinter: %w", err)
	}
	return windows.UTF16ToString(buf), nil
}

func (s *Service) Printers(ctx context.Context) ([]printjob.PrinterInfo, error) {
	def, err := s.DefaultPrinter(ctx)
	if err != nil {
		s.logger.Debug("no default printer", zap.Error(err))
	}

	flags := uintptr(printerEnumLocal | printerEnumConnections)
	var needed, returned uint32
	r, _, err := procEnumPrintersW.Call(flags, 0, 4, 0, 0,
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if r == 0 && !errors.Is(err, errorInsufficientBuffer) {
		return nil, fmt.Errorf("EnumPrinters: %w", err)
	}
	if needed == 0 {
		return nil, nil
	}

	buf := make([]byte, needed)
	r, _, err = procEnumPrintersW.Call(flags, 0, 4,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(needed),
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if r == 0 {
		return nil, fmt.Errorf("EnumPrinters: %w", err)
	}

	entries := unsafe.Slice((*printerInfo4)(unsafe.Pointer(&buf[0])), returned)
	printers := make([]printjob.PrinterInfo, 0, returned)
	for _, entry := range entries {
		name := windows.UTF16PtrToString(entry.PrinterName)
		info := printjob.PrinterInfo{Name: name, Default: name == def}
		if entry.ServerName != nil {
			info.Description = "on " + windows.UTF16PtrToString(entry.ServerName)
		}
		printers = append(printers, info)
	}
	return printers, nil
}

func (s *Service) Open(ctx context.Context, name string) (printjob.DeviceContext, error) {
	driver, err := windows.UTF16PtrFromString("WINSPOOL")
	if err != nil {
		return nil, err
	}
	device, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}

	hdc, _, callErr := procCreateDCW.Call(uintptr(unsafe.Pointer(driver)), uintptr(unsafe.Pointer(device)), 0, 0)
	if hdc == 0 {
		return nil, fmt.Errorf("CreateDC: %w", callErr)
	}

	s.logger.Debug("created device context", zap.String("printer", name))
	return &deviceContext{name: name, device: device, hdc: hdc, logger: s.logger}, nil
}

type deviceContext struct {
	name   string
	device *uint16
	hdc    uintptr
	logger *zap.Logger
	inDoc  bool
}

func (d *deviceContext) caps(index int) int {
	r, _, _ := procGetDeviceCaps.Call(d.hdc, uintptr(index))
	return int(int32(r))
}

func (d *deviceContext) Caps() printjob.Caps {
	return printjob.Caps{
		Resolution: geometry.Resolution{
			X: float64(d.caps(logPixelsX)),
			Y: float64(d.caps(logPixelsY)),
		},
		MaxWidth: d.caps(horzRes),
	}
}

// Configure applies paper size and orientation through the driver's
// DEVMODE and resets the device context with it. Copies stay at one
// because every copy is submitted as its own document.
func (d *deviceContext) Configure(setup printjob.PageSetup) error {
	var hPrinter windows.Handle
	r, _, err := procOpenPrinterW.Call(uintptr(unsafe.Pointer(d.device)), uintptr(unsafe.Pointer(&hPrinter)), 0)
	if r == 0 {
		return fmt.Errorf("OpenPrinter: %w", err)
	}
	defer procClosePrinter.Call(uintptr(hPrinter))

	size, _, err := procDocumentPropertiesW.Call(0, uintptr(hPrinter), uintptr(unsafe.Pointer(d.device)), 0, 0, 0)
	if int32(size) <= 0 {
		return fmt.Errorf("DocumentProperties: %w", err)
	}

	buf := make([]byte, size)
	mode := (*devMode)(unsafe.Pointer(&buf[0]))
	r, _, err = procDocumentPropertiesW.Call(0, uintptr(hPrinter), uintptr(unsafe.Pointer(d.device)),
		uintptr(unsafe.Pointer(&buf[0])), 0, dmOutBuffer)
	if int32(r) < 0 {
		return fmt.Errorf("DocumentProperties: %w", err)
	}

	mode.Fields |= dmOrientation | dmPaperSize | dmPaperLength | dmPaperWidth | dmCopies
	mode.Orientation = dmOrientPortrait
	if setup.Orientation == printjob.Landscape {
		mode.Orientation = dmOrientLandscape
	}
	mode.PaperSize = dmPaperUser
	// DEVMODE paper dimensions are in tenths of a millimeter.
	mode.PaperWidth = tenthsMM(setup.PaperWidthMM)
	mode.PaperLength = tenthsMM(setup.PaperHeightMM)
	mode.Copies = 1

	r, _, err = procDocumentPropertiesW.Call(0, uintptr(hPrinter), uintptr(unsafe.Pointer(d.device)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&buf[0])), dmInBuffer|dmOutBuffer)
	if int32(r) < 0 {
		return fmt.Errorf("DocumentProperties: %w", err)
	}

	r, _, err = procResetDCW.Call(d.hdc, uintptr(unsafe.Pointer(&buf[0])))
	if r == 0 {
		return fmt.Errorf("ResetDC: %w", err)
	}

	d.logger.Debug("applied page setup",
		zap.String("printer", d.name),
		zap.Int16("paper_width", mode.PaperWidth),
		zap.Int16("paper_length", mode.PaperLength),
		zap.Stringer("orientation", setup.Orientation))
	return nil
}

func tenthsMM(mm float64) int16 {
	v := math.Round(mm * 10)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

func (d *deviceContext) StartDoc(name string) error {
	docName, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	info := docInfo{DocName: docName}
	info.Size = int32(unsafe.Sizeof(info))

	r, _, callErr := procStartDocW.Call(d.hdc, uintptr(unsafe.Pointer(&info)))
	if int32(r) <= 0 {
		return fmt.Errorf("StartDoc: %w", callErr)
	}
	d.inDoc = true
	return nil
}

func (d *deviceContext) StartPage() error {
	if r, _, err := procStartPage.Call(d.hdc); int32(r) <= 0 {
		return fmt.Errorf("StartPage: %w", err)
	}
	return nil
}

func (d *deviceContext) DrawImage(img image.Image, rect geometry.Rect) error {
	dib := toBGRA(img)
	if dib.Width == 0 || dib.Height == 0 {
		return fmt.Errorf("empty image")
	}

	header := bitmapInfoHeader{
		Width:       int32(dib.Width),
		Height:      -int32(dib.Height), // top-down
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}
	header.Size = uint32(unsafe.Sizeof(header))

	procSetStretchBltMode.Call(d.hdc, halftone)
	procSetBrushOrgEx.Call(d.hdc, 0, 0, 0)

	r, _, err := procStretchDIBits.Call(d.hdc,
		uintptr(rect.X), uintptr(rect.Y), uintptr(rect.Width), uintptr(rect.Height),
		0, 0, uintptr(dib.Width), uintptr(dib.Height),
		uintptr(unsafe.Pointer(&dib.Pix[0])),
		uintptr(unsafe.Pointer(&header)),
		dibRGBColors, srcCopy)
	if r == 0 || uint32(r) == gdiError {
		return fmt.Errorf("StretchDIBits: %w", err)
	}
	return nil
}

func (d *deviceContext) EndPage() error {
	if r, _, err := procEndPage.Call(d.hdc); int32(r) <= 0 {
		return fmt.Errorf("EndPage: %w", err)
	}
	return nil
}

func (d *deviceContext) EndDoc() error {
	if r, _, err := procEndDoc.Call(d.hdc); int32(r) <= 0 {
		return fmt.Errorf("EndDoc: %w", err)
	}
	d.inDoc = false
	return nil
}

func (d *deviceContext) AbortDoc() error {
	if !d.inDoc {
		return nil
	}
	d.inDoc = false
	if r, _, err := procAbortDoc.Call(d.hdc); int32(r) <= 0 {
		return fmt.Errorf("AbortDoc: %w", err)
	}
	return nil
}

func (d *deviceContext) Close() error {
	if d.hdc == 0 {
		return nil
	}
	r, _, err := procDeleteDC.Call(d.hdc)
	d.hdc = 0
	if r == 0 {
		return fmt.Errorf("DeleteDC: %w", err)
	}
	return nil
}
