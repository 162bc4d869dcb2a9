package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a problem file without solving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := loadRequest(file)
			if err != nil {
				return err
			}

			problem, err := root.service(root.logger(cmd)).Validate(req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d assets, valid\n", file, len(problem.Assets))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "problem file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
