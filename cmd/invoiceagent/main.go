package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errInterrupted is returned by run when a signal stopped the pipeline.
var errInterrupted = errors.New("run interrupted")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errInterrupted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "invoiceagent",
		Short: "Invoice intake agent",
		Long: `Reads invoice images from an input folder, extracts date, vendor, total and
currency with a Gemini model, archives each image under a descriptive name
and appends one row per invoice to a CSV expense ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file loaded before the environment")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(migrateCmd())

	return rootCmd
}
