package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledgersync/core/localstore"
	"ledgersync/core/model"
	"ledgersync/core/rules"
	"ledgersync/pkg/errkind"
	"ledgersync/pkg/idset"
)

// NewRuleCommand builds the "rule" command group: list, lookup, and
// apply operate on the rule files under the configured rules directory.
func NewRuleCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "rule",
		Short: "inspect and apply local categorization rules",
	}
	root.AddCommand(newRuleListCommand(app))
	root.AddCommand(newRuleLookupCommand(app))
	root.AddCommand(newRuleApplyCommand(app))
	return root
}

func newRuleListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every loaded rule, including disabled ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := rules.LoadDir(app.RulesPath())
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Validation, err, "load rules"))
			}
			for _, r := range rules.List(loaded) {
				status := "enabled"
				if r.Disabled {
					status = "disabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d [%s] %d transform(s) (%s)\n", r.ID, status, len(r.Then), r.SourceFile)
			}
			return nil
		},
	}
}

func newRuleLookupCommand(app *App) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "show every enabled rule that matches a transaction, without applying any",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return exitErr(cmd, errkind.New(errkind.UserInput, "--id is required"))
			}
			loaded, err := rules.LoadDir(app.RulesPath())
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Validation, err, "load rules"))
			}
			accountsByID, forest, err := loadRuleContext(app)
			if err != nil {
				return exitErr(cmd, err)
			}
			txns, err := app.Orchestrator.Store.ListTransactions(localstore.ListOptions{ID: &id})
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Local, err, "list transactions"))
			}
			if len(txns) == 0 {
				return exitErr(cmd, errkind.New(errkind.UserInput, fmt.Sprintf("transaction %d not found", id)))
			}
			for _, r := range rules.Lookup(loaded, txns[0], accountsByID, forest) {
				fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "transaction id to test rules against")
	return cmd
}

func newRuleApplyCommand(app *App) *cobra.Command {
	var w windowFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "apply the first matching rule to every transaction in scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			win, id, err := w.resolve(time.Now())
			if err != nil {
				return exitErr(cmd, err)
			}
			loaded, err := rules.LoadDir(app.RulesPath())
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Validation, err, "load rules"))
			}
			accountsByID, forest, err := loadRuleContext(app)
			if err != nil {
				return exitErr(cmd, err)
			}

			txns, err := app.Orchestrator.Store.ListTransactions(localstore.ListOptions{Window: localstore.Window{From: win.From, To: win.To}, ID: id})
			if err != nil {
				return exitErr(cmd, errkind.Wrap(errkind.Local, err, "list transactions"))
			}

			applied := 0
			for _, t := range txns {
				before := t.Clone()
				matched, ok, err := rules.Set(loaded, &t, accountsByID, forest)
				if err != nil {
					return exitErr(cmd, errkind.Wrap(errkind.Validation, err, "apply rule"))
				}
				if !ok {
					continue
				}
				applied++
				fmt.Fprintf(cmd.OutOrStdout(), "#%d matched rule %d\n", t.ID, matched.ID)
				if dryRun {
					continue
				}
				t.Touch(time.Now())
				if err := app.Orchestrator.Store.SaveTransaction(t); err != nil {
					return exitErr(cmd, errkind.Wrap(errkind.Local, err, "save transaction"))
				}
				if err := appendApplyEntries(app, before, t, matched.ID); err != nil {
					return exitErr(cmd, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d rule match(es)\n", applied)
			return nil
		},
	}
	addWindowFlags(cmd, &w)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show which rules would match without saving changes")
	return cmd
}

// loadRuleContext builds the account-by-id map and category forest that
// rule preconditions need to scope account/category regex matches.
func loadRuleContext(app *App) (map[int64]model.Account, *model.CategoryForest, error) {
	accts, err := app.Orchestrator.Store.ListAccounts()
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Local, err, "list accounts")
	}
	accountsByID := make(map[int64]model.Account, len(accts))
	for _, a := range accts {
		accountsByID[a.ID] = a
	}
	cats, err := app.Orchestrator.Store.ListCategories()
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Local, err, "list categories")
	}
	forest, err := model.NewCategoryForest(cats)
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.Local, err, "build category forest")
	}
	return accountsByID, forest, nil
}

// appendApplyEntries diffs before/after on the fields a rule transform
// can touch and writes one APPLY entry per changed field.
func appendApplyEntries(app *App, before, after model.Transaction, ruleID int64) error {
	if !samePtr(before.CategoryID, after.CategoryID) {
		if err := app.Sink.AppendApply(after.ID, ruleID, "category_id", displayPtr(before.CategoryID), displayPtr(after.CategoryID), "ok"); err != nil {
			return err
		}
	}
	if before.Narration != after.Narration {
		if err := app.Sink.AppendApply(after.ID, ruleID, "narration", before.Narration, after.Narration, "ok"); err != nil {
			return err
		}
	}
	if !idset.Equal(before.Labels, after.Labels) {
		oldLabels := fmt.Sprintf("%v", idset.SortedStrings(before.Labels))
		newLabels := fmt.Sprintf("%v", idset.SortedStrings(after.Labels))
		if err := app.Sink.AppendApply(after.ID, ruleID, "labels", oldLabels, newLabels, "ok"); err != nil {
			return err
		}
	}
	return nil
}

func samePtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func displayPtr(p *int64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}
