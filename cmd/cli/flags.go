package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledgersync/core/orchestrator"
	"ledgersync/pkg/errkind"
)

// windowFlags holds the raw flag values backing a workflow's date
// window, before they are resolved into an orchestrator.Window.
type windowFlags struct {
	from      string
	to        string
	thisMonth bool
	lastMonth bool
	thisYear  bool
	lastYear  bool
	id        int64
}

func addWindowFlags(cmd *cobra.Command, w *windowFlags) {
	cmd.Flags().StringVar(&w.from, "from", "", "window start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&w.to, "to", "", "window end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&w.thisMonth, "this-month", false, "scope to the current calendar month")
	cmd.Flags().BoolVar(&w.lastMonth, "last-month", false, "scope to the previous calendar month")
	cmd.Flags().BoolVar(&w.thisYear, "this-year", false, "scope to the current calendar year")
	cmd.Flags().BoolVar(&w.lastYear, "last-year", false, "scope to the previous calendar year")
	cmd.Flags().Int64Var(&w.id, "id", 0, "restrict to a single transaction id")
}

// resolve turns the raw flag values into an orchestrator.Window and an
// optional transaction id pointer, rejecting conflicting combinations
// of the mutually exclusive convenience flags.
func (w windowFlags) resolve(now time.Time) (orchestrator.Window, *int64, error) {
	set := 0
	for _, b := range []bool{w.thisMonth, w.lastMonth, w.thisYear, w.lastYear} {
		if b {
			set++
		}
	}
	if set > 1 {
		return orchestrator.Window{}, nil, errkind.New(errkind.UserInput, "--this-month, --last-month, --this-year, and --last-year are mutually exclusive")
	}
	if set == 1 && (w.from != "" || w.to != "") {
		return orchestrator.Window{}, nil, errkind.New(errkind.UserInput, "--from/--to cannot be combined with a convenience window flag")
	}

	var win orchestrator.Window
	switch {
	case w.thisMonth:
		win = monthWindow(now.Year(), int(now.Month()))
	case w.lastMonth:
		y, m := now.Year(), int(now.Month())-1
		if m == 0 {
			m, y = 12, y-1
		}
		win = monthWindow(y, m)
	case w.thisYear:
		win = yearWindow(now.Year())
	case w.lastYear:
		win = yearWindow(now.Year() - 1)
	default:
		if w.from != "" {
			d, err := parseDate(w.from)
			if err != nil {
				return orchestrator.Window{}, nil, err
			}
			win.From = d
		}
		if w.to != "" {
			d, err := parseDate(w.to)
			if err != nil {
				return orchestrator.Window{}, nil, err
			}
			win.To = d
		}
	}

	var id *int64
	if w.id != 0 {
		id = &w.id
	}
	return win, id, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errkind.Wrap(errkind.UserInput, err, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return d, nil
}

func monthWindow(year, month int) orchestrator.Window {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return orchestrator.Window{From: from, To: to}
}

func yearWindow(year int) orchestrator.Window {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return orchestrator.Window{From: from, To: to}
}

// exitErr converts err's errkind.Kind into the corresponding process
// exit code and prints it to the command's error stream, the way every
// ledgersync subcommand reports failure.
func exitErr(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	fmt.Fprintln(cmd.ErrOrStderr(), "ledgersync:", err)
	return &exitCodeError{code: errkind.KindOf(err).ExitCode(), cause: err}
}

// exitCodeError carries the exit code main() should use for a command
// failure, without forcing cobra to reprint the message itself.
type exitCodeError struct {
	code  int
	cause error
}

func (e *exitCodeError) Error() string { return e.cause.Error() }

// ExitCode extracts the intended process exit code from err, defaulting
// to 1 for errors not produced by exitErr.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if e, ok := err.(*exitCodeError); ok {
		ec = e
		return ec.code
	}
	return 1
}
