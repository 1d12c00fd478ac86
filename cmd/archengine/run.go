package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/infrastructure/logging"
	"github.com/archflow/archengine/internal/tui/eventfeed"
)

func newRunCmd(app *AppContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <flow.yaml>",
		Short: "Start a flow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, logger := app.CommandContext(cmd, "cli.run")

			f, err := app.ConfigLoader.LoadFlow(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load flow: %w", err)
			}

			state, err := app.Engine.StartFlow(ctx, f, map[string]flow.Value{})
			if err != nil {
				return fmt.Errorf("start flow: %w", err)
			}

			if logger != nil {
				logger.Info(ctx, "flow started", "flow_id", state.FlowID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started flow %s (status=%s)\n", state.FlowID, state.Status)

			if watch {
				// The TUI owns the terminal for the duration of the watch;
				// writes through app.Logger (and loggers later derived from
				// it) go into a buffer and are replayed once the program
				// exits. The components built in main keep the loggers
				// they were given there and still write to stdout.
				buffer := logging.NewEventBuffer(0)
				previous := app.Logger
				app.Logger = logging.NewBufferedLogger(buffer)
				defer func() {
					app.Logger = previous
					buffer.Flush(previous)
				}()
				return eventfeed.Run(ctx, app.Events)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "attach a live event-feed TUI after starting the flow")
	return cmd
}
