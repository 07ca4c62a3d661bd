package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"ledgersync/core/changelog"
	"ledgersync/core/compare"
	"ledgersync/core/orchestrator"
	"ledgersync/core/resolver"
	"ledgersync/pkg/errkind"
)

// NewDiffCommand builds the "diff" command: run the same fetch/compare
// pipeline as pull/push but apply nothing, rendering the result in one
// of four presentation modes.
func NewDiffCommand(app *App) *cobra.Command {
	var w windowFlags
	var direction string
	var format string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "show differences between the local archive and the remote without applying them",
		RunE: func(cmd *cobra.Command, args []string) error {
			win, id, err := w.resolve(time.Now())
			if err != nil {
				return exitErr(cmd, err)
			}
			dir, err := parseDirection(direction)
			if err != nil {
				return exitErr(cmd, err)
			}
			result, err := app.Orchestrator.Diff(cmd.Context(), orchestrator.DiffOptions{Window: win, ID: id, Direction: dir})
			if err != nil {
				return exitErr(cmd, err)
			}
			if err := renderDiff(cmd.OutOrStdout(), format, result); err != nil {
				return exitErr(cmd, err)
			}
			return nil
		},
	}
	addWindowFlags(cmd, &w)
	cmd.Flags().StringVar(&direction, "direction", "pull", "strategy direction to resolve against: pull or push")
	cmd.Flags().StringVar(&format, "format", "summary", "output format: summary, ids, changelog, or diff")
	return cmd
}

func parseDirection(s string) (resolver.Direction, error) {
	switch s {
	case "pull":
		return resolver.Pull, nil
	case "push":
		return resolver.Push, nil
	default:
		return 0, errkind.New(errkind.UserInput, fmt.Sprintf("invalid --direction %q, expected pull or push", s))
	}
}

func renderDiff(w io.Writer, format string, result compare.Result) error {
	switch format {
	case "summary":
		fmt.Fprintf(w, "%d identical, %d differ, %d local-only, %d remote-only\n",
			result.Summary.Identical, result.Summary.Differs, result.Summary.OnlyLocal, result.Summary.OnlyRemote)
	case "ids":
		for _, c := range result.Comparisons {
			if c.Status != compare.Identical {
				fmt.Fprintf(w, "%d %s\n", c.ID, c.Status)
			}
		}
	case "changelog":
		now := time.Now()
		for _, c := range result.Comparisons {
			for _, fd := range c.FieldDiffs {
				if fd.Resolution.Local != nil {
					fmt.Fprintln(w, changelog.FormatUpdate(now, c.ID, fd.Field, fd.Resolution.Local.Old, fd.Resolution.Local.New))
				}
				if fd.Resolution.Remote != nil {
					fmt.Fprintln(w, changelog.FormatUpdate(now, c.ID, fd.Field, fd.Resolution.Remote.Old, fd.Resolution.Remote.New))
				}
			}
		}
	case "diff":
		now := time.Now()
		for _, c := range result.Comparisons {
			if c.Status != compare.Differs {
				continue
			}
			for _, fd := range c.FieldDiffs {
				local, remote := "", ""
				if fd.Resolution.Local != nil {
					local = fd.Resolution.Local.Old
				} else if fd.Resolution.Remote != nil {
					local = fd.Resolution.Remote.Old
				}
				if fd.Resolution.Remote != nil {
					remote = fd.Resolution.Remote.New
				} else if fd.Resolution.Local != nil {
					remote = fd.Resolution.Local.New
				}
				fmt.Fprintln(w, changelog.FormatDiff(now, c.ID, fd.Field, local, remote))
			}
		}
	default:
		return errkind.New(errkind.UserInput, fmt.Sprintf("invalid --format %q, expected summary, ids, changelog, or diff", format))
	}
	return nil
}
