package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alde/printimg/pkg/paper"
	"github.com/alde/printimg/pkg/printerr"
	"github.com/alde/printimg/pkg/printjob"
	"github.com/alde/printimg/pkg/progress"
)

// printOptions holds the flags shared by the print and preview commands.
type printOptions struct {
	printer       string
	rotate        int
	paperName     string
	paperWidth    float64
	paperHeight   float64
	copies        int
	scale         float64
	margin        float64
	marginX       float64
	marginY       float64
	offsetX       float64
	offsetY       float64
	printWidth    float64
	threshold     uint8
	network       []string
	listPrinters  bool
	documentTitle string
}

var printOpts printOptions

var printCmd = &cobra.Command{
	Use:   "print [image]",
	Short: "Print an image",
	Long: `Print an image file on a receipt or label printer.

All distances are in millimeters. The image is rotated counter-clockwise by
--rotate, fitted to --print-width while keeping its aspect ratio, scaled by
--scale percent and placed at the margin plus offset from the top-left corner.
A --print-width of 0 uses the paper width minus both margins and the
horizontal offset.

Examples:
  printimg print label.png
  printimg print label.png -p "Label Printer" -n 3
  printimg print receipt.png --backend escpos -p usb://0416:5011 --paper 58mm -r 0
  printimg print label.png --margin-x 2 --offset-y -1.5 --scale 90
  printimg print --list-printers`,
	Args: func(cmd *cobra.Command, args []string) error {
		if printOpts.listPrinters {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runPrint,
}

func init() {
	rootCmd.AddCommand(printCmd)

	addPrintFlags(printCmd, &printOpts)
	printCmd.Flags().StringVarP(&printOpts.printer, "printer", "p", "", "Printer name or address (default: system default printer)")
	printCmd.Flags().BoolVar(&printOpts.listPrinters, "list-printers", false, "List available printers and exit")
	printCmd.Flags().StringSliceVar(&printOpts.network, "network", nil, "Network printers to probe when looking for a default (host[:port])")
}

// addPrintFlags registers the layout flags. The defaults match a 72x130mm
// label with a 68mm print area, printed upside down.
func addPrintFlags(cmd *cobra.Command, opts *printOptions) {
	flags := cmd.Flags()
	flags.IntVarP(&opts.rotate, "rotate", "r", 180, "Rotation in degrees counter-clockwise (0, 90, 180, 270)")
	flags.StringVar(&opts.paperName, "paper", "", fmt.Sprintf("Paper profile (%s)", strings.Join(paper.ListProfiles(), ", ")))
	flags.Float64Var(&opts.paperWidth, "paper-width", 72, "Paper width in mm")
	flags.Float64Var(&opts.paperHeight, "paper-height", 130, "Paper height in mm")
	flags.IntVarP(&opts.copies, "copies", "n", 1, "Number of copies to print")
	flags.Float64Var(&opts.scale, "scale", 100, "Scale percentage (100 = no scale)")
	flags.Float64Var(&opts.margin, "margin", 0, "Sets both margins in mm unless --margin-x or --margin-y is given")
	flags.Float64Var(&opts.marginX, "margin-x", 4, "Horizontal margin in mm")
	flags.Float64Var(&opts.marginY, "margin-y", 0, "Vertical margin in mm")
	flags.Float64Var(&opts.offsetX, "offset-x", 0, "Horizontal offset in mm")
	flags.Float64Var(&opts.offsetY, "offset-y", 0, "Vertical offset in mm")
	flags.Float64Var(&opts.printWidth, "print-width", 68, "Print width in mm; 0 means auto")
	flags.Uint8Var(&opts.threshold, "threshold", 128, "Luminance below which a dot prints black (escpos)")
	flags.StringVar(&opts.documentTitle, "title", "", "Print job title (default: image file name)")

	flags.SetNormalizeFunc(legacyFlagNames)
}

// legacyFlagNames accepts the flag spellings of the older Python tool.
func legacyFlagNames(f *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "printer-name":
		name = "printer"
	case "orientation":
		name = "rotate"
	case "marginx":
		name = "margin-x"
	case "marginy":
		name = "margin-y"
	case "horizontal-offset":
		name = "offset-x"
	case "vertical-offset":
		name = "offset-y"
	}
	return pflag.NormalizedName(name)
}

func runPrint(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	profile, err := resolvePaper(cmd, &printOpts)
	if err != nil {
		return err
	}

	service, err := newService(backendName, backendConfig{
		Profile:   profile,
		Network:   printOpts.network,
		Threshold: printOpts.threshold,
	}, logger)
	if err != nil {
		return fmt.Errorf("backend error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if printOpts.listPrinters {
		return listPrinters(ctx, service)
	}

	return runJob(ctx, service, buildRequest(args[0], &printOpts), logger)
}

// resolvePaper applies the --paper profile to every layout flag the user
// did not set explicitly and folds --margin into the per-axis margins.
func resolvePaper(cmd *cobra.Command, opts *printOptions) (paper.Profile, error) {
	flags := cmd.Flags()

	name := opts.paperName
	if name == "" {
		name = paper.DefaultProfile
	}
	profile, err := paper.GetProfile(name)
	if err != nil {
		return paper.Profile{}, fmt.Errorf("paper profile error: %w", err)
	}

	if opts.paperName != "" {
		if !flags.Changed("paper-width") {
			opts.paperWidth = profile.WidthMM
		}
		if !flags.Changed("paper-height") {
			opts.paperHeight = profile.HeightMM
		}
		if !flags.Changed("margin-x") {
			opts.marginX = profile.MarginXMM
		}
		if !flags.Changed("margin-y") {
			opts.marginY = profile.MarginYMM
		}
		if !flags.Changed("print-width") {
			opts.printWidth = profile.PrintWidthMM
		}
	}

	if flags.Changed("margin") {
		if !flags.Changed("margin-x") {
			opts.marginX = opts.margin
		}
		if !flags.Changed("margin-y") {
			opts.marginY = opts.margin
		}
	}

	if err := validatePrintFlags(opts); err != nil {
		return paper.Profile{}, err
	}

	// The simulated/raw device follows the paper actually requested.
	profile.WidthMM = opts.paperWidth
	profile.HeightMM = opts.paperHeight
	return profile, nil
}

func validatePrintFlags(opts *printOptions) error {
	if opts.copies < 1 {
		return fmt.Errorf("copies must be at least 1, got %d", opts.copies)
	}
	if opts.scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", opts.scale)
	}
	if opts.paperWidth <= 0 || opts.paperHeight <= 0 {
		return fmt.Errorf("paper size must be positive, got %gx%gmm", opts.paperWidth, opts.paperHeight)
	}
	return nil
}

func buildRequest(imagePath string, opts *printOptions) printjob.Request {
	title := opts.documentTitle
	if title == "" {
		title = filepath.Base(imagePath)
	}

	return printjob.Request{
		ImagePath:     imagePath,
		Printer:       opts.printer,
		Rotation:      opts.rotate,
		PaperWidthMM:  opts.paperWidth,
		PaperHeightMM: opts.paperHeight,
		PrintWidthMM:  opts.printWidth,
		Scale:         opts.scale,
		MarginXMM:     opts.marginX,
		MarginYMM:     opts.marginY,
		OffsetXMM:     opts.offsetX,
		OffsetYMM:     opts.offsetY,
		Copies:        opts.copies,
		DocumentName:  title,
	}
}

// runJob prints req and reports the outcome on stdout.
func runJob(ctx context.Context, service printjob.Service, req printjob.Request, logger *zap.Logger) error {
	driverOpts := printjob.Options{
		Service: service,
		Logger:  logger,
	}

	var bar *progress.SimpleProgress
	if verbose && req.Copies > 1 {
		bar = progress.NewSimpleProgress(os.Stdout, req.Copies, "Printing")
		driverOpts.Progress = bar.Callback()
	}

	result, err := printjob.New(driverOpts).Print(ctx, req)
	if err != nil {
		if bar != nil {
			fmt.Println()
		}
		return explainPrintError(err)
	}
	if bar != nil {
		bar.Finish()
	}

	fmt.Println(formatResult(result))
	return nil
}

func explainPrintError(err error) error {
	var submission *printerr.PrintSubmissionError
	if errors.As(err, &submission) && submission.Copy > 1 {
		return fmt.Errorf("%w (%s copy failed, %d already printed)",
			err, humanize.Ordinal(submission.Copy), submission.Copy-1)
	}

	var notFound *printerr.PrinterNotFoundError
	if errors.As(err, &notFound) && notFound.Name != "" {
		return fmt.Errorf("%w (use --list-printers to see available printers)", err)
	}

	return err
}

func formatResult(result *printjob.Result) string {
	widthMM, heightMM := result.PlacementMM()

	copies := "1 copy"
	if result.Copies != 1 {
		copies = humanize.Comma(int64(result.Copies)) + " copies"
	}

	line := fmt.Sprintf("Printed %s on %s: %.1fx%.1fmm at %.0fx%.0f dpi",
		copies, result.Printer, widthMM, heightMM, result.Resolution.X, result.Resolution.Y)
	if result.Placement.Clamped {
		line += " (clamped to printable width)"
	}
	if result.BytesSpooled > 0 {
		line += ", " + humanize.Bytes(result.BytesSpooled) + " sent"
	}
	return line
}
