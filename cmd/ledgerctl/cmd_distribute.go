package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	distributeAccount uint
	distributeBasis   string
	distributeBatch   string
)

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Pay referral commission for a purchase",
	Long: `Walks up to five sponsor levels from the purchasing account and credits
each level's commission on the given basis. Every credit is keyed by the batch
id, so re-running an interrupted batch pays only the levels still missing.

Example:
  ledgerctl distribute --account 42 --basis 1000 --batch order-2024-0001`,
	RunE: runDistribute,
}

func init() {
	rootCmd.AddCommand(distributeCmd)

	distributeCmd.Flags().UintVar(&distributeAccount, "account", 0, "Purchasing account ID")
	distributeCmd.Flags().StringVar(&distributeBasis, "basis", "", "Commission basis amount")
	distributeCmd.Flags().StringVar(&distributeBatch, "batch", "", "Batch id of the purchase")
	_ = distributeCmd.MarkFlagRequired("account")
	_ = distributeCmd.MarkFlagRequired("basis")
	_ = distributeCmd.MarkFlagRequired("batch")
}

func runDistribute(cmd *cobra.Command, args []string) error {
	basis, err := decimal.NewFromString(distributeBasis)
	if err != nil {
		return fmt.Errorf("invalid basis %q: %w", distributeBasis, err)
	}

	e, err := bootstrap()
	if err != nil {
		return err
	}
	defer e.close()

	credits, err := e.services().Commission.Distribute(cmd.Context(), distributeAccount, basis, distributeBatch)
	for _, txn := range credits {
		fmt.Fprintf(cmd.OutOrStdout(), "credited account %d %s (%s)\n", txn.AccountID, txn.Amount.StringFixed(2), txn.Reference)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d levels credited\n", distributeBatch, len(credits))
	return nil
}
