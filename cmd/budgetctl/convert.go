package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendpoints/internal/budget"
	"spendpoints/internal/core"
)

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "convert <amount> <from> <to>",
		Short:   "Restate a budget amount in another period",
		Example: "  budgetctl convert 70 weekly daily",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], err)
			}
			from, err := core.ParsePeriod(args[1])
			if err != nil {
				return err
			}
			to, err := core.ParsePeriod(args[2])
			if err != nil {
				return err
			}
			result := budget.Convert(core.SpendingLimit{Amount: amount, Period: from}, to)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s\n",
				core.FormatAmount(amount), from, result.StringFixed(2), to)
			return nil
		},
	}
}
