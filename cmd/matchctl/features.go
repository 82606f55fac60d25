package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loan-matchmaker/internal/services/matcher"
)

func (c *cli) newFeaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Print the model feature vector for one lender and a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := c.profile()
			if err != nil {
				return err
			}
			lenders, err := c.lenders()
			if err != nil {
				return err
			}

			id := c.v.GetInt64("lender")
			lender, err := matcher.NewEngine(lenders).Lender(id)
			if err != nil {
				return err
			}
			fv := matcher.Features(profile, &lender)

			if c.v.GetBool("json") {
				named := make(map[string]float64, matcher.FeatureCount)
				for i, name := range matcher.FeatureNames {
					named[name] = fv[i]
				}
				return writeJSON(cmd.OutOrStdout(), named)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "lender\t%d %s\n", lender.ID, lender.Name)
			for i, name := range matcher.FeatureNames {
				fmt.Fprintf(tw, "%s\t%.4f\n", name, fv[i])
			}
			return tw.Flush()
		},
	}

	addProfileFlags(cmd)
	cmd.Flags().Int64("lender", 0, "lender id")
	_ = cmd.MarkFlagRequired("lender")
	return cmd
}

