package escpos

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tarm/serial"
)

const (
	dialTimeout  = 5 * time.Second
	probeTimeout = 2 * time.Second
)

// Dialer opens a byte pipe to a printer.
type Dialer func(ctx context.Context, target Target) (io.WriteCloser, error)

// Dial opens the transport selected by the target's scheme.
func Dial(ctx context.Context, target Target) (io.WriteCloser, error) {
	switch target.Scheme {
	case SchemeUSB:
		conn, err := openUSB(target.VendorID, target.ProductID)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case SchemeSerial:
		return openSerial(target.Address, target.Baud)
	case SchemeTCP:
		return dialTCP(ctx, target.Address)
	case SchemeFile:
		return openFile(target.Address)
	default:
		return nil, fmt.Errorf("unsupported transport: %s", target.Scheme)
	}
}

func openSerial(device string, baud int) (io.WriteCloser, error) {
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}

	return port, nil
}

func dialTCP(ctx context.Context, address string) (io.WriteCloser, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to network printer %s: %w", address, err)
	}
	return conn, nil
}

func openFile(path string) (io.WriteCloser, error) {
	flags := os.O_WRONLY | os.O_APPEND
	// Device nodes must exist; plain files are created for capture.
	if !isDevicePath(path) {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open printer device %s: %w", path, err)
	}
	return file, nil
}

func isDevicePath(path string) bool {
	clean := filepath.Clean(path)
	return clean == "/dev" || strings.HasPrefix(clean, "/dev/")
}

// checkPresent reports an error when the device behind target is not
// attached. TCP targets are not probed.
func checkPresent(target Target) error {
	switch target.Scheme {
	case SchemeUSB:
		return usbPresent(target.VendorID, target.ProductID)
	case SchemeSerial:
		if runtime.GOOS == "windows" {
			return openAndCloseSerial(target.Address)
		}
		if _, err := os.Stat(target.Address); err != nil {
			return fmt.Errorf("serial port %s: %w", target.Address, err)
		}
		return nil
	case SchemeFile:
		path := target.Address
		if !isDevicePath(path) {
			path = filepath.Dir(path)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("printer device %s: %w", target.Address, err)
		}
		return nil
	default:
		return nil
	}
}
