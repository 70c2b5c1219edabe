package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alde/printimg/internal/backend/preview"
)

var (
	previewOpts      printOptions
	previewOutput    string
	previewQuality   int
	previewGrayscale bool
)

var previewCmd = &cobra.Command{
	Use:   "preview [image]",
	Short: "Render the printed page to an image file",
	Long: `Render exactly what would be printed into a PNG, JPEG or WebP file,
using the same layout flags as the print command. With --copies N, the
second and later copies are written as name-2.png, name-3.png and so on.

Examples:
  printimg preview label.png -o page.png
  printimg preview label.png -o page.webp --paper 58mm --grayscale`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	addPrintFlags(previewCmd, &previewOpts)
	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "", "Output image path (.png, .jpg or .webp) (required)")
	previewCmd.Flags().IntVar(&previewQuality, "quality", preview.DefaultQuality, "JPEG/WebP quality (1-100)")
	previewCmd.Flags().BoolVar(&previewGrayscale, "grayscale", false, "Render in grayscale like a thermal printer")

	previewCmd.MarkFlagRequired("output")
}

func runPreview(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	if _, err := preview.FormatFromPath(previewOutput); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}

	profile, err := resolvePaper(cmd, &previewOpts)
	if err != nil {
		return err
	}

	service, err := newService(backendPreview, backendConfig{
		Profile:   profile,
		Quality:   previewQuality,
		Grayscale: previewGrayscale,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	previewOpts.printer = previewOutput
	return runJob(ctx, service, buildRequest(args[0], &previewOpts), logger)
}
