package escpos

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/alde/printimg/internal/worker"
)

// Detected is a printer found during discovery.
type Detected struct {
	Target      Target
	Description string
}

// Name returns the address used to select the printer.
func (d Detected) Name() string {
	return d.Target.String()
}

// Discoverer probes local ports and configured network hosts for printers.
type Discoverer struct {
	// Network lists host or host:port addresses probed for a raw print port.
	Network []string
	// Workers bounds the number of concurrent probes. Zero uses the CPU count.
	Workers int
	Logger  *zap.Logger

	// Overridable for tests.
	usb         func() ([]Detected, error)
	serialPorts func() []string
	lineDevices func() []Detected
	probeSerial func(port string) error
	probeTCP    func(ctx context.Context, address string) error
}

// collector gathers probe results from concurrent jobs.
type collector struct {
	mu       sync.Mutex
	detected []Detected
}

func (c *collector) add(found ...Detected) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detected = append(c.detected, found...)
}

type probeJob struct {
	id    string
	probe func(ctx context.Context) ([]Detected, error)
	out   *collector
}

func (j *probeJob) Process(ctx context.Context) error {
	found, err := j.probe(ctx)
	if err != nil {
		return err
	}
	j.out.add(found...)
	return nil
}

func (j *probeJob) ID() string {
	return j.id
}

// Discover runs every probe concurrently and returns the printers that
// answered, sorted by address. Probe failures are logged at debug level.
func (d *Discoverer) Discover(ctx context.Context) []Detected {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	out := &collector{}
	var jobs []worker.Job

	jobs = append(jobs, &probeJob{
		id:  "usb",
		out: out,
		probe: func(context.Context) ([]Detected, error) {
			return d.usbProbe()()
		},
	})

	for _, port := range d.serialCandidates() {
		jobs = append(jobs, &probeJob{
			id:    "serial:" + port,
			out:   out,
			probe: d.serialJob(port),
		})
	}

	jobs = append(jobs, &probeJob{
		id:  "usblp",
		out: out,
		probe: func(context.Context) ([]Detected, error) {
			return d.lineCandidates(), nil
		},
	})

	for _, host := range d.Network {
		jobs = append(jobs, &probeJob{
			id:    "tcp:" + host,
			out:   out,
			probe: d.networkJob(host),
		})
	}

	results := worker.NewPool(ctx, d.Workers).Run(jobs)
	for _, result := range results {
		if result.Error != nil {
			logger.Debug("probe failed", zap.String("probe", result.JobID), zap.Error(result.Error))
		}
	}

	detected := out.detected
	sort.Slice(detected, func(i, j int) bool {
		return detected[i].Name() < detected[j].Name()
	})
	logger.Debug("discovery finished",
		zap.Int("probes", len(jobs)),
		zap.Int("printers", len(detected)))

	return detected
}

func (d *Discoverer) usbProbe() func() ([]Detected, error) {
	if d.usb != nil {
		return d.usb
	}
	return detectUSB
}

func (d *Discoverer) serialJob(port string) func(ctx context.Context) ([]Detected, error) {
	probe := d.probeSerial
	if probe == nil {
		probe = openAndCloseSerial
	}
	return func(context.Context) ([]Detected, error) {
		if err := probe(port); err != nil {
			return nil, err
		}
		return []Detected{{
			Target:      Target{Scheme: SchemeSerial, Address: port, Baud: DefaultBaud},
			Description: "Serial printer on " + port,
		}}, nil
	}
}

func (d *Discoverer) networkJob(host string) func(ctx context.Context) ([]Detected, error) {
	probe := d.probeTCP
	if probe == nil {
		probe = dialAndClose
	}
	return func(ctx context.Context) ([]Detected, error) {
		target, err := ParseTarget("tcp://" + strings.TrimPrefix(host, "tcp://"))
		if err != nil {
			return nil, err
		}
		if err := probe(ctx, target.Address); err != nil {
			return nil, err
		}
		return []Detected{{
			Target:      target,
			Description: "Network printer at " + target.Address,
		}}, nil
	}
}

func (d *Discoverer) serialCandidates() []string {
	if d.serialPorts != nil {
		return d.serialPorts()
	}
	return serialPorts()
}

func (d *Discoverer) lineCandidates() []Detected {
	if d.lineDevices != nil {
		return d.lineDevices()
	}
	return lineDevices()
}

// serialPorts lists serial device names worth probing on this platform.
// Legacy /dev/ttyS* ports open without hardware attached, so they are skipped.
func serialPorts() []string {
	var ports []string

	switch runtime.GOOS {
	case "darwin":
		skipPatterns := []string{"Bluetooth", "Modem", "SPP", "DialIn", "Callout", "KeySerial", "debug-console"}

		cuPorts, _ := filepath.Glob("/dev/cu.*")
		for _, port := range cuPorts {
			skip := false
			for _, pattern := range skipPatterns {
				if strings.Contains(port, pattern) {
					skip = true
					break
				}
			}
			if !skip {
				ports = append(ports, port)
			}
		}

	case "linux":
		usbPorts, _ := filepath.Glob("/dev/ttyUSB*")
		acmPorts, _ := filepath.Glob("/dev/ttyACM*")
		ports = append(ports, usbPorts...)
		ports = append(ports, acmPorts...)

	case "windows":
		for i := 1; i <= 256; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
	}

	return ports
}

func openAndCloseSerial(port string) error {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: DefaultBaud})
	if err != nil {
		return err
	}
	return p.Close()
}

func dialAndClose(ctx context.Context, address string) error {
	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// describeDeviceID returns "manufacturer model" from an IEEE 1284 device ID
// such as "MFG:EPSON;CMD:ESC/POS;MDL:TM-T20;".
func describeDeviceID(id string) string {
	fields := make(map[string]string)
	for _, pair := range strings.Split(id, ";") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		fields[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	manufacturer := fields["MFG"]
	if manufacturer == "" {
		manufacturer = fields["MANUFACTURER"]
	}
	model := fields["MDL"]
	if model == "" {
		model = fields["MODEL"]
	}
	return strings.TrimSpace(manufacturer + " " + model)
}
