package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loan-matchmaker/internal/services/matcher"
	s3service "loan-matchmaker/internal/services/s3"
)

func (c *cli) newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Check and publish scoring model artifacts",
	}
	cmd.AddCommand(c.newModelValidateCmd(), c.newModelPublishCmd())
	return cmd
}

func (c *cli) newModelValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a model file loads and has the expected shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := matcher.LoadModelFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d, %d layers, %d inputs\n",
				args[0], model.Version, len(model.Layers), matcher.FeatureCount)
			return nil
		},
	}
}

func (c *cli) newModelPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish FILE",
		Short: "Validate a model file and upload it to S3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := c.v.GetString("bucket")
			if bucket == "" {
				return fmt.Errorf("--bucket (or %s_BUCKET) is required", envPrefix)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading model: %w", err)
			}

			svc, err := s3service.NewService(cmd.Context(), c.v.GetString("region"), bucket, c.logger)
			if err != nil {
				return err
			}
			key := c.v.GetString("key")
			if !c.v.GetBool("force") {
				exists, err := svc.FileExists(cmd.Context(), key)
				if err != nil {
					return err
				}
				if exists {
					return fmt.Errorf("s3://%s/%s already exists (use --force to replace it)", bucket, key)
				}
			}
			if err := svc.PublishModel(cmd.Context(), key, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published s3://%s/%s\n", bucket, key)
			return nil
		},
	}

	cmd.Flags().String("bucket", "", "target S3 bucket")
	cmd.Flags().String("key", "models/loan_matcher.json", "target object key")
	cmd.Flags().String("region", "ap-south-1", "AWS region")
	cmd.Flags().Bool("force", false, "replace an existing object")
	return cmd
}
