package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <flow-id>",
		Short: "Cancel a running or paused flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := app.CommandContext(cmd, "cli.cancel")
			if err := app.Engine.CancelFlow(ctx, args[0]); err != nil {
				return fmt.Errorf("cancel flow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled flow %s\n", args[0])
			return nil
		},
	}
}
