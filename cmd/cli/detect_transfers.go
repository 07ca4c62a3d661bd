package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledgersync/core/localstore"
	"ledgersync/core/model"
	"ledgersync/core/transfer"
	"ledgersync/pkg/errkind"
)

// NewDetectTransfersCommand builds "detect-transfers": scan the local
// archive's transactions for inter-account transfer pairs and annotate
// confirmed and suspected matches.
func NewDetectTransfersCommand(app *App) *cobra.Command {
	var w windowFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "detect-transfers",
		Short: "detect and annotate transfer pairs in the local archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			win, _, err := w.resolve(time.Now())
			if err != nil {
				return exitErr(cmd, err)
			}

			accts, err := app.Orchestrator.Store.ListAccounts()
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Local, err, "list accounts"))
			}
			accountsByID := make(map[int64]model.Account, len(accts))
			for _, a := range accts {
				accountsByID[a.ID] = a
			}

			cats, err := app.Orchestrator.Store.ListCategories()
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Local, err, "list categories"))
			}
			forest, err := model.NewCategoryForest(cats)
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Local, err, "build category forest"))
			}

			cfg := transfer.DefaultConfig(app.Config.Sync.TransferCategory)
			cfg.DConfirmedDays = app.Config.Sync.DConfirmedDays
			cfg.DSuspectedDays = app.Config.Sync.DSuspectedDays
			cfg.PFXPercent = app.Config.Sync.PFXPercent
			cfg.BucketThreshold = app.Config.Sync.BucketThreshold

			detector, err := transfer.NewDetector(cfg, accountsByID)
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Local, err, "build transfer detector"))
			}

			txns, err := app.Orchestrator.Store.ListTransactions(localstore.ListOptions{Window: localstore.Window{From: win.From, To: win.To}})
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Local, err, "list transactions"))
			}

			pairs, notifications := detector.Detect(txns)
			confirmed, suspected := 0, 0
			for _, p := range pairs {
				a, b, err := detector.Apply(p, forest)
				if err != nil {
					return exitErr(cmd, errkind.Wrap(errkind.Validation, err, "apply transfer pair"))
				}
				if p.Confirmed {
					confirmed++
				} else {
					suspected++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d <-> #%d confirmed=%v reasons=%v\n", a.ID, b.ID, p.Confirmed, p.Reasons)
				if dryRun {
					continue
				}
				a.Touch(time.Now())
				b.Touch(time.Now())
				if err := app.Orchestrator.Store.SaveTransaction(a); err != nil {
					return exitErr(cmd, errkind.Wrap(errkind.Local, err, "save transaction"))
				}
				if err := app.Orchestrator.Store.SaveTransaction(b); err != nil {
					return exitErr(cmd, errkind.Wrap(errkind.Local, err, "save transaction"))
				}
			}
			for _, n := range notifications {
				fmt.Fprintf(cmd.OutOrStdout(), "pattern: %d suspected pair(s) share reason %q\n", n.Count, n.Reason)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d confirmed, %d suspected\n", confirmed, suspected)
			return nil
		},
	}
	addWindowFlags(cmd, &w)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report detected pairs without saving annotations")
	return cmd
}
