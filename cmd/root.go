package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alde/printimg/internal/logging"
)

var (
	verbose     bool
	backendName string
)

var rootCmd = &cobra.Command{
	Use:   "printimg",
	Short: "Print images on receipt and label printers",
	Long: `Printimg prints an image file on a receipt or label printer with
millimeter-accurate placement: paper size, margins, offsets, print width,
scale and rotation are all given in millimeters and converted using the
printer's own resolution.

Backends:
- spooler: the Windows print spooler (default on Windows)
- escpos:  raw ESC/POS printers over USB, serial, TCP or a device node
- preview: writes each page to an image file instead of printing`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", defaultBackend(), "Printer backend (spooler, escpos, preview)")
}

func defaultBackend() string {
	if runtime.GOOS == "windows" {
		return backendSpooler
	}
	return backendESCPOS
}

func newLogger() *zap.Logger {
	return logging.New(logging.ForVerbosity(verbose))
}
