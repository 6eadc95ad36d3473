package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/invoiceagent/internal/domain"
)

func runCmd() *cobra.Command {
	var input, output, ledger string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every pending invoice once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("input") {
				cfg.InputDir = input
			}
			if cmd.Flags().Changed("output") {
				cfg.OutputDir = output
			}
			if cmd.Flags().Changed("ledger") {
				cfg.LedgerPath = ledger
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := ensureDirs(cfg.InputDir, cfg.OutputDir); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.pipeline.Run(ctx, a.runInput(), newLogReporter(log))
			if summary != nil {
				printSummary(cmd.OutOrStdout(), summary, cfg.LedgerPath)
			}
			if err != nil {
				return err
			}

			if summary.Status == domain.RunStatusInterrupted {
				return errInterrupted
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Folder holding the invoices to process (default $INPUT_DIR)")
	cmd.Flags().StringVar(&output, "output", "", "Folder receiving archived invoices (default $OUTPUT_DIR)")
	cmd.Flags().StringVar(&ledger, "ledger", "", "CSV expense ledger (default $LEDGER_PATH)")

	return cmd
}

// logReporter prints per-file progress through the logger.
type logReporter struct {
	logger zerolog.Logger
}

func newLogReporter(logger zerolog.Logger) *logReporter {
	return &logReporter{logger: logger}
}

func (r *logReporter) FileStarted(_ context.Context, index, total int, file domain.PendingFile) {
	r.logger.Info().
		Str("progress", fmt.Sprintf("%d/%d", index, total)).
		Str("file", file.Name).
		Msg("processing invoice")
}

func (r *logReporter) FileFinished(_ context.Context, result domain.FileResult) {
	switch result.Outcome {
	case domain.OutcomeProcessed:
		values := result.Record.Values()
		r.logger.Info().
			Str("file", result.File).
			Str("destination", result.Record.DestinationFilename).
			Str("vendor", values[domain.ColumnVendor]).
			Str("total", values[domain.ColumnTotal]).
			Str("currency", values[domain.ColumnCurrency]).
			Msg("invoice processed")
	case domain.OutcomeSkipped:
		r.logger.Warn().Err(result.Err).Str("file", result.File).Msg("invoice skipped")
	default:
		r.logger.Error().Err(result.Err).Str("file", result.File).Msg("invoice not archived")
	}
}

func printSummary(w io.Writer, summary *domain.RunSummary, ledgerPath string) {
	if summary.Status == domain.RunStatusNothingToProcess {
		fmt.Fprintln(w, "No invoices to process.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", summary.RunID)
	fmt.Fprintf(tw, "Status\t%s\n", summary.Status)
	fmt.Fprintf(tw, "Processed\t%d/%d\n", summary.Processed, summary.Total)
	fmt.Fprintf(tw, "Skipped\t%d\n", summary.Skipped)
	fmt.Fprintf(tw, "Failed\t%d\n", summary.Failed)
	if summary.Processed > 0 {
		fmt.Fprintf(tw, "Ledger\t%s\n", ledgerPath)
	}
	tw.Flush()

	for _, r := range summary.Results {
		if r.Outcome != domain.OutcomeProcessed {
			fmt.Fprintf(w, "  %s %s: %v\n", r.Outcome, r.File, r.Err)
		}
	}
}
