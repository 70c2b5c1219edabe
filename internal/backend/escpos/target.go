package escpos

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Scheme selects the transport for a printer address.
type Scheme string

const (
	SchemeUSB    Scheme = "usb"
	SchemeSerial Scheme = "serial"
	SchemeTCP    Scheme = "tcp"
	SchemeFile   Scheme = "file"
)

const (
	// DefaultTCPPort is the raw printing port used by network receipt printers.
	DefaultTCPPort = 9100
	// DefaultBaud is the line speed most serial thermal printers ship with.
	DefaultBaud = 9600
)

// Target is a parsed printer address such as usb://0416:5011,
// serial:///dev/ttyUSB0?baud=19200, tcp://10.0.0.5:9100 or file:///dev/usb/lp0.
type Target struct {
	Scheme    Scheme
	Address   string // host:port for tcp, device path for serial and file
	VendorID  uint16
	ProductID uint16
	Baud      int
}

// ParseTarget parses a printer address. A bare path is treated as a file target.
func ParseTarget(name string) (Target, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Target{}, fmt.Errorf("empty printer address")
	}

	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, ".") {
		return Target{Scheme: SchemeFile, Address: name}, nil
	}

	// VID:PID in hex is not a valid URL port, so usb addresses skip url.Parse.
	if len(name) > len("usb://") && strings.EqualFold(name[:len("usb://")], "usb://") {
		return parseUSB(name[len("usb://"):])
	}

	u, err := url.Parse(name)
	if err != nil {
		return Target{}, fmt.Errorf("invalid printer address %q: %w", name, err)
	}

	switch Scheme(strings.ToLower(u.Scheme)) {
	case SchemeSerial:
		return parseSerial(u)
	case SchemeTCP:
		return parseTCP(u)
	case SchemeFile:
		path := u.Host + u.Path
		if path == "" {
			return Target{}, fmt.Errorf("file printer address %q has no path", name)
		}
		return Target{Scheme: SchemeFile, Address: path}, nil
	default:
		return Target{}, fmt.Errorf("unsupported printer address %q (expected usb://, serial://, tcp:// or file://)", name)
	}
}

func parseUSB(ids string) (Target, error) {
	parts := strings.Split(strings.TrimSuffix(ids, "/"), ":")
	if len(parts) != 2 {
		return Target{}, fmt.Errorf("usb printer address must be usb://VID:PID, got %q", "usb://"+ids)
	}

	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return Target{}, fmt.Errorf("invalid USB vendor id %q: %w", parts[0], err)
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return Target{}, fmt.Errorf("invalid USB product id %q: %w", parts[1], err)
	}

	return Target{Scheme: SchemeUSB, VendorID: uint16(vid), ProductID: uint16(pid)}, nil
}

func parseSerial(u *url.URL) (Target, error) {
	device := u.Host + u.Path
	if device == "" {
		return Target{}, fmt.Errorf("serial printer address %q has no device", u.String())
	}

	baud := DefaultBaud
	if raw := u.Query().Get("baud"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return Target{}, fmt.Errorf("invalid baud rate %q", raw)
		}
		baud = value
	}

	return Target{Scheme: SchemeSerial, Address: device, Baud: baud}, nil
}

func parseTCP(u *url.URL) (Target, error) {
	host := u.Hostname()
	if host == "" {
		return Target{}, fmt.Errorf("tcp printer address %q has no host", u.String())
	}

	port := DefaultTCPPort
	if raw := u.Port(); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 || value > 65535 {
			return Target{}, fmt.Errorf("invalid port %q", raw)
		}
		port = value
	}

	return Target{Scheme: SchemeTCP, Address: net.JoinHostPort(host, strconv.Itoa(port))}, nil
}

// String returns the canonical address.
func (t Target) String() string {
	switch t.Scheme {
	case SchemeUSB:
		return fmt.Sprintf("usb://%04x:%04x", t.VendorID, t.ProductID)
	case SchemeSerial:
		baud := t.Baud
		if baud == 0 {
			baud = DefaultBaud
		}
		return fmt.Sprintf("serial://%s?baud=%d", t.Address, baud)
	case SchemeTCP:
		return "tcp://" + t.Address
	default:
		return "file://" + t.Address
	}
}
