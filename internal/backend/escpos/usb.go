package escpos

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"
)

// usbConnection writes to the bulk OUT endpoint of a USB printer.
type usbConnection struct {
	ctx      *gousb.Context
	device   *gousb.Device
	done     func()
	endpoint *gousb.OutEndpoint
	mu       sync.Mutex
}

// openUSB claims the first interface with a bulk OUT endpoint. Requires libusb.
func openUSB(vid, pid uint16) (*usbConnection, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to open USB device %04x:%04x: %w", vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("USB device %04x:%04x not found", vid, pid)
	}

	// The kernel usblp driver usually owns the interface.
	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to detach kernel driver: %w", err)
	}

	iface, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("failed to claim USB interface: %w", err)
	}

	for _, desc := range iface.Setting.Endpoints {
		if desc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		ep, err := iface.OutEndpoint(desc.Number)
		if err != nil {
			continue
		}
		return &usbConnection{
			ctx:      ctx,
			device:   dev,
			done:     done,
			endpoint: ep,
		}, nil
	}

	done()
	dev.Close()
	ctx.Close()
	return nil, fmt.Errorf("USB device %04x:%04x has no OUT endpoint", vid, pid)
}

// usbPresent opens and releases the device to confirm it is attached.
func usbPresent(vid, pid uint16) error {
	ctx := gousb.NewContext()
	defer ctx.Close()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return fmt.Errorf("failed to open USB device %04x:%04x: %w", vid, pid, err)
	}
	if dev == nil {
		return fmt.Errorf("USB device %04x:%04x not found", vid, pid)
	}
	return dev.Close()
}

func (c *usbConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.endpoint.Write(data)
}

func (c *usbConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done()
	return errors.Join(c.device.Close(), c.ctx.Close())
}

// isPrinterClass reports whether the device or any of its interfaces is a
// USB printer class device.
func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

// detectUSB lists USB printer class devices.
func detectUSB() ([]Detected, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(isPrinterClass)
	// OpenDevices returns the devices it managed to open along with the
	// first error, so both are handled.
	var detected []Detected
	for _, dev := range devices {
		desc := dev.Desc
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		dev.Close()

		description := fmt.Sprintf("USB printer %04x:%04x", uint16(desc.Vendor), uint16(desc.Product))
		if manufacturer != "" || product != "" {
			description = fmt.Sprintf("USB: %s %s", manufacturer, product)
		}

		detected = append(detected, Detected{
			Target:      Target{Scheme: SchemeUSB, VendorID: uint16(desc.Vendor), ProductID: uint16(desc.Product)},
			Description: description,
		})
	}

	if err != nil && len(detected) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	return detected, nil
}
