package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/services/params"
)

// addProfileFlags registers the five mandatory profile parameters.
func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("amount", "", `loan amount, e.g. "500000" or "5 lakh"`)
	cmd.Flags().String("income", "", `annual income, e.g. "12,00,000"`)
	cmd.Flags().Int("credit-score", 0, "credit score (300-850)")
	cmd.Flags().String("employment", "", "employment status: salaried, self-employed, freelancer, student, unemployed")
	cmd.Flags().String("purpose", "", "loan purpose: home, vehicle, education, business, startup, eco, emergency, gold-backed, personal")
}

// profile validates the profile flags the same way chat input is validated.
func (c *cli) profile() (models.Profile, error) {
	raw := map[models.ParameterName]any{
		models.ParamLoanAmount:       c.v.GetString("amount"),
		models.ParamAnnualIncome:     c.v.GetString("income"),
		models.ParamCreditScore:      c.v.GetInt("credit-score"),
		models.ParamEmploymentStatus: c.v.GetString("employment"),
		models.ParamLoanPurpose:      c.v.GetString("purpose"),
	}

	var (
		p    models.LoanParameters
		errs []error
	)
	for _, name := range models.MandatoryParameters() {
		value, err := params.Validate(name, raw[name])
		if err == nil {
			err = p.Set(name, value)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return models.Profile{}, err
	}
	return p.Profile()
}

func (c *cli) newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank the catalog for a loan profile",
		Example: `  matchctl match --amount "5 lakh" --income 900000 --credit-score 720 \
    --employment salaried --purpose home`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := c.profile()
			if err != nil {
				return err
			}
			lenders, err := c.lenders()
			if err != nil {
				return err
			}

			opts := []matcher.Option{matcher.WithLogger(c.logger)}
			if path := c.v.GetString("model"); path != "" {
				model, err := matcher.LoadModelFile(path)
				if err != nil {
					return err
				}
				opts = append(opts,
					matcher.WithPredictor(matcher.NewMLPPredictor(model)),
					matcher.WithPredictTimeout(c.v.GetDuration("ml-timeout")))
			}

			res := matcher.NewEngine(lenders, opts...).Match(cmd.Context(), profile)
			matches := res.Matches
			if top := c.v.GetInt("top"); top > 0 && len(matches) > top {
				matches = matches[:top]
			}

			if c.v.GetBool("json") {
				return writeJSON(cmd.OutOrStdout(), matches)
			}
			return printMatches(cmd, res, matches)
		},
	}

	addProfileFlags(cmd)
	cmd.Flags().String("model", "", "path to a model JSON file; enables ML scoring")
	cmd.Flags().Duration("ml-timeout", 2*time.Second, "time budget for ML scoring")
	cmd.Flags().Int("top", 0, "show only the first N matches")
	return cmd
}

func printMatches(cmd *cobra.Command, res *matcher.Result, matches []models.LenderMatch) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d of %d lenders matched (%d excluded, %d waived), scored %s\n",
		len(res.Matches), res.TotalLenders, res.Excluded, res.Waived, res.Method)
	if res.FallbackReason != "" {
		fmt.Fprintf(out, "ML fallback: %s\n", res.FallbackReason)
	}
	if len(matches) == 0 {
		return nil
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLENDER\tSCORE\tRATE\tCONFIDENCE\tREASONS")
	for i, m := range matches {
		name := m.Lender.Name
		if m.WaivedGate != "" {
			name += " (waived " + string(m.WaivedGate) + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.2f%%\t%.2f\t%s\n",
			i+1, name, m.FinalScore, m.Lender.InterestRate, m.Confidence, strings.Join(m.Reasons, "; "))
	}
	return tw.Flush()
}
