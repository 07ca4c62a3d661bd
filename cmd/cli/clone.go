package cli

import (
	"time"

	"github.com/spf13/cobra"

	"ledgersync/core/orchestrator"
)

// NewCloneCommand builds the "clone" command: materialize the entire
// local archive from the remote for the given window.
func NewCloneCommand(app *App) *cobra.Command {
	var w windowFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clone",
		Short: "materialize the local archive from the remote ledger service",
		RunE: func(cmd *cobra.Command, args []string) error {
			win, _, err := w.resolve(time.Now())
			if err != nil {
				return exitErr(cmd, err)
			}
			report, err := app.Orchestrator.Clone(cmd.Context(), orchestrator.CloneOptions{Window: win, DryRun: dryRun})
			if err != nil {
				return exitErr(cmd, err)
			}
			printReport(cmd.OutOrStdout(), "clone", report)
			return nil
		},
	}
	addWindowFlags(cmd, &w)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report intended writes without touching the archive")
	return cmd
}
