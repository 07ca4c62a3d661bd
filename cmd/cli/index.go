package cli

import "github.com/spf13/cobra"

// RegisterRoutes attaches every ledgersync command group to the
// provided root command, built against the shared App. Each subcommand
// is its own constructor function, one per route group.
func RegisterRoutes(root *cobra.Command, app *App) {
	root.AddCommand(
		NewCloneCommand(app),
		NewPullCommand(app),
		NewPushCommand(app),
		NewDiffCommand(app),
		NewRuleCommand(app),
		NewDetectTransfersCommand(app),
	)
}
