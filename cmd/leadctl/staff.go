package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leads/internal/admin"
	"github.com/JonMunkholm/leads/internal/store"
)

func newStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage the staff directory",
	}
	cmd.AddCommand(newStaffAddCmd(), newStaffListCmd())
	return cmd
}

func newStaffAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <username>",
		Short: "Add a staff member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			st, err := (&admin.Staff{Store: app.Store}).Add(ctx, args[0])
			switch {
			case errors.Is(err, admin.ErrInvalidUsername), errors.Is(err, store.ErrStaffExists):
				return withCode(exitValidation, err)
			case err != nil:
				return withCode(exitStore, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %s (id %d)\n", st.Username, st.ID)
			return nil
		},
	}
}

func newStaffListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staff members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			staff, err := (&admin.Staff{Store: app.Store}).List(ctx)
			if err != nil {
				return withCode(exitStore, err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME")
			for _, st := range staff {
				fmt.Fprintf(tw, "%d\t%s\n", st.ID, st.Username)
			}
			return tw.Flush()
		},
	}
}
