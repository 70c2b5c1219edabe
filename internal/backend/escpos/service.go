package escpos

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/alde/printimg/pkg/paper"
	"github.com/alde/printimg/pkg/printerr"
	"github.com/alde/printimg/pkg/printjob"
)

// Options configures the ESC/POS service.
type Options struct {
	// Profile supplies the head resolution and printable width.
	Profile paper.Profile
	// Network lists hosts probed during discovery.
	Network []string
	// Threshold is the luminance cut-off for black dots, 0 for the default.
	Threshold uint8
	Logger    *zap.Logger
	// Dialer opens the printer connection. Defaults to Dial.
	Dialer Dialer
}

// Service implements printjob.Service for raw ESC/POS printers. Printer
// names are addresses; the first discovered printer is the default.
type Service struct {
	profile    paper.Profile
	threshold  uint8
	logger     *zap.Logger
	dial       Dialer
	discoverer *Discoverer
	present    func(Target) error

	once     sync.Once
	detected []Detected
}

// NewService creates an ESC/POS service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dial := opts.Dialer
	if dial == nil {
		dial = Dial
	}

	return &Service{
		profile:   opts.Profile,
		threshold: opts.Threshold,
		logger:    logger,
		dial:      dial,
		present:   checkPresent,
		discoverer: &Discoverer{
			Network: opts.Network,
			Logger:  logger,
		},
	}
}

// discover probes once per service and caches the answer.
func (s *Service) discover(ctx context.Context) []Detected {
	s.once.Do(func() {
		s.detected = s.discoverer.Discover(ctx)
	})
	return s.detected
}

func (s *Service) DefaultPrinter(ctx context.Context) (string, error) {
	detected := s.discover(ctx)
	if len(detected) == 0 {
		return "", nil
	}
	return detected[0].Name(), nil
}

func (s *Service) Printers(ctx context.Context) ([]printjob.PrinterInfo, error) {
	detected := s.discover(ctx)

	printers := make([]printjob.PrinterInfo, 0, len(detected))
	for i, d := range detected {
		printers = append(printers, printjob.PrinterInfo{
			Name:        d.Name(),
			Description: d.Description,
			Default:     i == 0,
		})
	}
	return printers, nil
}

// Resolve canonicalizes a printer address and checks that the device is
// attached. Network printers are only contacted when a document ends.
func (s *Service) Resolve(ctx context.Context, name string) (string, error) {
	target, err := s.locate(name)
	if err != nil {
		return "", err
	}
	return target.String(), nil
}

// Open returns a device context for the address. The connection itself is
// made when a document ends.
func (s *Service) Open(ctx context.Context, name string) (printjob.DeviceContext, error) {
	target, err := s.locate(name)
	if err != nil {
		return nil, err
	}
	if err := s.profile.Validate(); err != nil {
		return nil, err
	}

	s.logger.Debug("opened printer", zap.String("printer", target.String()))
	return newDeviceContext(ctx, target, s.profile, s.threshold, s.dial, s.logger), nil
}

func (s *Service) locate(name string) (Target, error) {
	target, err := ParseTarget(name)
	if err != nil {
		return Target{}, &printerr.PrinterNotFoundError{Name: name, Err: err}
	}
	if err := s.present(target); err != nil {
		return Target{}, &printerr.PrinterNotFoundError{Name: name, Err: err}
	}
	return target, nil
}
