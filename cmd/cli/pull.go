package cli

import (
	"time"

	"github.com/spf13/cobra"

	"ledgersync/core/orchestrator"
)

// NewPullCommand builds the "pull" command: resolve remote changes
// since the last watermark (or the given window/id) against the local
// archive using pull-direction strategies.
func NewPullCommand(app *App) *cobra.Command {
	var w windowFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "reconcile remote changes into the local archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			win, id, err := w.resolve(time.Now())
			if err != nil {
				return exitErr(cmd, err)
			}
			report, err := app.Orchestrator.Pull(cmd.Context(), orchestrator.PullOptions{Window: win, ID: id, DryRun: dryRun})
			if err != nil {
				return exitErr(cmd, err)
			}
			printReport(cmd.OutOrStdout(), "pull", report)
			return nil
		},
	}
	addWindowFlags(cmd, &w)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report intended mutations without applying them")
	return cmd
}
