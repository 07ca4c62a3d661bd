package cli

import (
	"time"

	"github.com/spf13/cobra"

	"ledgersync/core/orchestrator"
)

// NewPushCommand builds the "push" command: resolve local changes
// against the remote using push-direction strategies, mutating only
// the remote ledger service.
func NewPushCommand(app *App) *cobra.Command {
	var w windowFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "reconcile local archive changes onto the remote ledger service",
		RunE: func(cmd *cobra.Command, args []string) error {
			win, id, err := w.resolve(time.Now())
			if err != nil {
				return exitErr(cmd, err)
			}
			report, err := app.Orchestrator.Push(cmd.Context(), orchestrator.PushOptions{Window: win, ID: id, DryRun: dryRun})
			if err != nil {
				return exitErr(cmd, err)
			}
			printReport(cmd.OutOrStdout(), "push", report)
			return nil
		},
	}
	addWindowFlags(cmd, &w)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report intended mutations without applying them")
	return cmd
}
