package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/core"
)

type exportOptions struct {
	format string
	out    string
	search string
	status string
	color  string
	staff  string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export leads to CSV or Excel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", core.FormatCSV, "Output format: csv or excel")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output path, - for stdout (default: nissie_leads.<ext>)")
	cmd.Flags().StringVar(&opts.search, "search", "", "Only leads whose name, phone, email, remarks or contact contain this text")
	cmd.Flags().StringVar(&opts.status, "status", "", "Only leads with this status code")
	cmd.Flags().StringVar(&opts.color, "color", "", "Only leads with this color code")
	cmd.Flags().StringVar(&opts.staff, "staff", "", "Only leads assigned to this username")

	return cmd
}

func runExport(cmd *cobra.Command, opts exportOptions) error {
	ctx := cmd.Context()

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	filter := core.LeadFilter{
		Search: opts.search,
		Status: core.Status(opts.status),
		Color:  core.ColorCode(opts.color),
	}
	staff, err := resolveStaff(ctx, app, opts.staff)
	if err != nil {
		return err
	}
	if staff != nil {
		filter.StaffID = staff.ID
	}

	file, err := app.Service.ExportLeads(ctx, filter, opts.format)
	if err != nil {
		return withCode(exitFailure, err)
	}

	out := opts.out
	if out == "" {
		out = file.Name
	}
	if err := writeOutput(cmd, out, file.Data); err != nil {
		return err
	}
	if out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d lead(s) to %s\n", file.Count, out)
	}
	return nil
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return withCode(exitFailure, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}
