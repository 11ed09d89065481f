package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/core"
)

func newTemplateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the blank CSV import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeOutput(cmd, out, core.TemplateCSV()); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", core.TemplateFileName, "Output path, - for stdout")
	return cmd
}
