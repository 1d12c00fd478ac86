package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPauseCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <flow-id>",
		Short: "Pause a running flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := app.CommandContext(cmd, "cli.pause")
			if err := app.Engine.PauseFlow(ctx, args[0]); err != nil {
				return fmt.Errorf("pause flow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paused flow %s\n", args[0])
			return nil
		},
	}
}
