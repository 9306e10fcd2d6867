package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/umardraz9/mlmpk-sub009/internal/core/services"

	"github.com/spf13/cobra"
)

var (
	reconcileAccount uint
	reconcileFormat  string
)

// errMismatch makes the process exit non-zero when drift is found
var errMismatch = errors.New("ledger mismatches found")

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare stored balances with the ledger",
	Long: `Recomputes each account's balance from its transactions and its pending
hold from open withdrawals, and reports accounts where either disagrees with
the stored value. Exits non-zero when any mismatch is found.

Examples:
  ledgerctl reconcile
  ledgerctl reconcile --account 42
  ledgerctl reconcile --format json`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().UintVar(&reconcileAccount, "account", 0, "Check a single account")
	reconcileCmd.Flags().StringVar(&reconcileFormat, "format", "table", "Output format (table|json)")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if reconcileFormat != "table" && reconcileFormat != "json" {
		return fmt.Errorf("invalid format %q (must be table or json)", reconcileFormat)
	}

	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	svc := e.services()
	ctx := cmd.Context()

	var results []*services.AccountReconciliation
	if reconcileAccount != 0 {
		result, err := svc.Reconciliation.ReconcileAccount(ctx, reconcileAccount)
		if err != nil {
			return err
		}
		results = append(results, result)
	} else {
		report, err := svc.Reconciliation.ReconcileAll(ctx)
		if err != nil {
			return err
		}
		results = report.Mismatches
		fmt.Fprintf(cmd.OutOrStdout(), "checked %d accounts, %d mismatched\n", report.Checked, len(report.Mismatches))
	}

	if err := printReconciliation(cmd, results); err != nil {
		return err
	}

	for _, r := range results {
		if !r.Consistent() {
			return errMismatch
		}
	}
	return nil
}

func printReconciliation(cmd *cobra.Command, results []*services.AccountReconciliation) error {
	out := cmd.OutOrStdout()

	if reconcileFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tBALANCE\tLEDGER\tPENDING HOLD\tOPEN HOLDS\tSTATUS")
	for _, r := range results {
		status := "ok"
		if !r.Consistent() {
			status = "MISMATCH"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.AccountID,
			r.Balance.StringFixed(2),
			r.LedgerBalance.StringFixed(2),
			r.PendingHold.StringFixed(2),
			r.OpenHolds.StringFixed(2),
			status,
		)
	}
	return w.Flush()
}
