//go:build !windows

package spooler

import (
	"context"
	"errors"
	"fmt"

	"github.com/alde/printimg/pkg/printjob"
)

var errUnsupported = fmt.Errorf("the spooler backend requires Windows: %w", errors.ErrUnsupported)

// Service is unavailable outside Windows.
type Service struct{}

// NewService always fails on this platform.
func NewService(opts Options) (*Service, error) {
	return nil, errUnsupported
}

func (s *Service) DefaultPrinter(ctx context.Context) (string, error) {
	return "", errUnsupported
}

func (s *Service) Printers(ctx context.Context) ([]printjob.PrinterInfo, error) {
	return nil, errUnsupported
}

func (s *Service) Open(ctx context.Context, name string) (printjob.DeviceContext, error) {
	return nil, errUnsupported
}
