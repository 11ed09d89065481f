package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/core"
)

// errorPreviewLimit matches the number of row errors the web UI shows.
const errorPreviewLimit = 5

type importOptions struct {
	as        string
	allErrors bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import leads from a CSV or Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.as, "as", "", "Staff username recorded as creator of the imported leads")
	cmd.Flags().BoolVar(&opts.allErrors, "all-errors", false, "Print every row error instead of the first few")

	return cmd
}

func runImport(cmd *cobra.Command, path string, opts importOptions) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(path)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("read %s: %w", path, err))
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if limit := app.Config.Upload.MaxFileSize; int64(len(data)) > limit {
		return withCode(exitValidation, fmt.Errorf("file too large: %d bytes, limit is %d", len(data), limit))
	}

	actor, err := resolveStaff(ctx, app, opts.as)
	if err != nil {
		return err
	}

	res, err := app.Service.ImportFile(ctx, filepath.Base(path), data, actor)
	if err != nil {
		return withCode(exitFailure, err)
	}

	printImportResult(cmd.OutOrStdout(), res, opts.allErrors)

	if res.Fatal {
		return withCode(exitValidation, errors.New(res.Errors[0]))
	}
	return nil
}

func printImportResult(w io.Writer, res *core.ImportResult, all bool) {
	if res.Inserted > 0 {
		fmt.Fprintf(w, "Successfully imported %d lead(s).\n", res.Inserted)
	}
	if res.Fatal {
		return
	}

	shown := res.Errors
	if !all && len(shown) > errorPreviewLimit {
		shown = shown[:errorPreviewLimit]
	}
	for _, msg := range shown {
		fmt.Fprintln(w, msg)
	}
	if more := len(res.Errors) - len(shown); more > 0 {
		fmt.Fprintf(w, "... and %d more errors.\n", more)
	}
	fmt.Fprintf(w, "import %s: %d row(s), %d imported, %d rejected in %s\n",
		res.ImportID, res.TotalRows, res.Inserted, res.Rejected(), res.Duration.Round(time.Millisecond))
}
