package cmd

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alde/printimg/internal/backend/escpos"
	"github.com/alde/printimg/internal/backend/preview"
	"github.com/alde/printimg/internal/backend/spooler"
	"github.com/alde/printimg/pkg/paper"
	"github.com/alde/printimg/pkg/printjob"
)

const (
	backendSpooler = "spooler"
	backendESCPOS  = "escpos"
	backendPreview = "preview"
)

// backendConfig collects what the backends need besides the logger.
type backendConfig struct {
	Profile   paper.Profile
	Network   []string
	Threshold uint8
	Quality   int
	Grayscale bool
}

// newService builds the printer service for the named backend.
func newService(name string, cfg backendConfig, logger *zap.Logger) (printjob.Service, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case backendSpooler:
		service, err := spooler.NewService(spooler.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
		return service, nil

	case backendESCPOS:
		return escpos.NewService(escpos.Options{
			Profile:   cfg.Profile,
			Network:   cfg.Network,
			Threshold: cfg.Threshold,
			Logger:    logger,
		}), nil

	case backendPreview:
		return preview.NewService(preview.Options{
			Profile:   cfg.Profile,
			Quality:   cfg.Quality,
			Grayscale: cfg.Grayscale,
			Logger:    logger,
		}), nil

	default:
		return nil, fmt.Errorf("unknown backend: %s (valid options: %s, %s, %s)", name, backendSpooler, backendESCPOS, backendPreview)
	}
}
