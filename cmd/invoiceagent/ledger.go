package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iho/invoiceagent/internal/adapter/repository/csvledger"
	"github.com/iho/invoiceagent/internal/domain"
	"github.com/iho/invoiceagent/internal/usecase"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(ledgerTailCmd())
	return cmd
}

func ledgerTailCmd() *cobra.Command {
	var (
		n    int
		path string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the last rows of the expense ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.LedgerPath
			}

			ledgerUC := usecase.NewLedgerUseCase(csvledger.NewLedgerRepository())
			snapshot, err := ledgerUC.Tail(cmd.Context(), path, n)
			if err != nil {
				return err
			}

			printLedger(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "lines", "n", usecase.DefaultTailSize, "Number of rows to print")
	cmd.Flags().StringVar(&path, "ledger", "", "CSV expense ledger (default $LEDGER_PATH)")

	return cmd
}

func printLedger(w io.Writer, snapshot *domain.LedgerSnapshot) {
	if len(snapshot.Rows) == 0 {
		fmt.Fprintln(w, "Ledger is empty.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(snapshot.Columns, "\t"))
	for _, row := range snapshot.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
