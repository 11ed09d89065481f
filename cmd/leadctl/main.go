// Command leadctl imports, exports and administers leads from the shell,
// against the same store the server uses.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/application"
	"github.com/JonMunkholm/leads/internal/config"
	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/logging"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitValidation = 3
	exitStore      = 4
)

// codedError carries the process exit code for err.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitFailure
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", errorText(err))
	}
	os.Exit(exitCode(err))
}

// errorText prefers the mapped user message. Errors with no mapping are shown
// as is, since the shell user has no server log to look them up in.
func errorText(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "leadctl",
		Short:         "Import, export and manage leads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Overload(envFile); err != nil {
					return withCode(exitUsage, fmt.Errorf("load %s: %w", envFile, err))
				}
				return nil
			}
			// .env is optional for the CLI
			_ = godotenv.Load()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env")

	root.AddCommand(
		newImportCmd(),
		newExportCmd(),
		newTemplateCmd(),
		newStaffCmd(),
	)
	return root
}

// openApp loads configuration and opens the store. Logs go to stderr.
func openApp(ctx context.Context) (*application.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	app, err := application.New(ctx, cfg)
	if err != nil {
		return nil, withCode(exitStore, err)
	}
	return app, nil
}

// resolveStaff looks up username, returning nil for "".
func resolveStaff(ctx context.Context, app *application.App, username string) (*core.Staff, error) {
	if username == "" {
		return nil, nil
	}
	st, err := app.Store.FindByUsername(ctx, username)
	if errors.Is(err, core.ErrStaffNotFound) {
		return nil, withCode(exitUsage, err)
	}
	if err != nil {
		return nil, withCode(exitStore, err)
	}
	return st, nil
}
