package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"loan-matchmaker/internal/catalog"
	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

const envPrefix = "MATCHCTL"

// cli carries per-invocation settings shared by the subcommands.
type cli struct {
	v      *viper.Viper
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "matchctl",
		Short:         "matchctl ranks lenders for a loan profile without the chat front end",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			level := "warn"
			if c.v.GetBool("debug") {
				level = "debug"
			}
			logger, err := utils.NewLogger(level, "console")
			if err != nil {
				return fmt.Errorf("creating a logger: %w", err)
			}
			c.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	cmd.PersistentFlags().String("catalog", "", "lender catalog file, YAML or CSV (default is the built-in catalog)")
	cmd.PersistentFlags().BoolP("json", "j", false, "print JSON instead of a table")

	cmd.AddCommand(
		c.newLendersCmd(),
		c.newMatchCmd(),
		c.newFeaturesCmd(),
		c.newModelCmd(),
	)
	return cmd
}

func (c *cli) lenders() ([]models.Lender, error) {
	lenders, err := catalog.Load(c.v.GetString("catalog"))
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return lenders, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
