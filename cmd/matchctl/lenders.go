package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) newLendersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lenders",
		Short: "List the lender catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lenders, err := c.lenders()
			if err != nil {
				return err
			}
			if c.v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), lenders)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tRATE\tAMOUNT\tMIN INCOME\tMIN SCORE\tEMPLOYMENT\tPURPOSE")
			for _, l := range lenders {
				fmt.Fprintf(tw, "%d\t%s\t%.2f%%\t%.0f-%.0f\t%.0f\t%d\t%s\t%s\n",
					l.ID, l.Name, l.InterestRate, l.MinLoanAmount, l.MaxLoanAmount,
					l.MinIncome, l.MinCreditScore, strings.Join(l.EmploymentTypes, ","), l.LoanPurpose)
			}
			return tw.Flush()
		},
	}
}
