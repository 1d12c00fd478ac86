package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <flow-id>",
		Short: "Show a flow's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := app.CommandContext(cmd, "cli.status")
			state, err := app.Engine.GetFlowStatus(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get flow status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flow %s: status=%s current_step=%s version=%d\n",
				state.FlowID, state.Status, state.CurrentStep, state.Version)
			return nil
		},
	}
}
