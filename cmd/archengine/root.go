package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archengine",
		Short: "Run and control AI workflow executions",
		Long:  "archengine loads flow definitions, drives their execution, and streams the resulting event feed.",
	}

	cmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newStatusCmd(app),
		newPauseCmd(app),
		newResumeCmd(app),
		newCancelCmd(app),
	)

	return cmd
}
