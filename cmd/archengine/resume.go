package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archflow/archengine/internal/domain/flow"
)

func newResumeCmd(app *AppContext) *cobra.Command {
	var token string
	var formJSON string

	cmd := &cobra.Command{
		Use:   "resume <flow-id>",
		Short: "Resume a paused or suspended flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := app.CommandContext(cmd, "cli.resume")

			if token != "" {
				var formData map[string]flow.Value
				if formJSON != "" {
					if err := json.Unmarshal([]byte(formJSON), &formData); err != nil {
						return fmt.Errorf("parse form data: %w", err)
					}
				}
				conv, err := app.Conversation.Resume(ctx, token, formData)
				if err != nil {
					return fmt.Errorf("resume conversation: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "conversation %s resumed for flow %s\n", conv.ConversationID, conv.FlowID)
			}

			state, err := app.Engine.ResumeFlow(ctx, args[0])
			if err != nil {
				return fmt.Errorf("resume flow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resumed flow %s (status=%s)\n", state.FlowID, state.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "resume token for a suspended conversation")
	cmd.Flags().StringVar(&formJSON, "form", "", "JSON-encoded form data submitted with the resume token")
	return cmd
}
