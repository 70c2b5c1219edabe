package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alde/printimg/pkg/printjob"
)

var printersNetwork []string

var printersCmd = &cobra.Command{
	Use:   "printers",
	Short: "List available printers",
	Long: `List the printers the selected backend can reach. The default printer is
marked with an asterisk.

For the escpos backend this probes USB printer-class devices, serial ports,
usblp device nodes and any --network hosts concurrently.

Examples:
  printimg printers
  printimg printers --backend escpos --network 192.168.1.50 --network shop-printer:9100`,
	Args: cobra.NoArgs,
	RunE: runPrinters,
}

func init() {
	rootCmd.AddCommand(printersCmd)

	printersCmd.Flags().StringSliceVar(&printersNetwork, "network", nil, "Network printers to probe (host[:port])")
}

func runPrinters(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	// Listing never opens a device, so no paper profile is needed.
	service, err := newService(backendName, backendConfig{Network: printersNetwork}, logger)
	if err != nil {
		return fmt.Errorf("backend error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return listPrinters(ctx, service)
}

// listPrinters writes one printer per line, default first marked with "*".
func listPrinters(ctx context.Context, service printjob.Service) error {
	printers, err := service.Printers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list printers: %w", err)
	}

	if len(printers) == 0 {
		fmt.Println("No printers found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, p := range printers {
		marker := " "
		if p.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\n", marker, p.Name, p.Description)
	}
	return w.Flush()
}
