package cli

import (
	"fmt"
	"io"

	"ledgersync/core/orchestrator"
)

// printReport renders a workflow Report the same way for clone/pull/push:
// a one-line summary followed by one line per mutation when non-empty.
func printReport(w io.Writer, verb string, r *orchestrator.Report) {
	mode := ""
	if r.DryRun {
		mode = " (dry-run)"
	}
	fmt.Fprintf(w, "%s%s: %d identical, %d differ, %d local-only, %d remote-only, %d mutation(s)\n",
		verb, mode, r.Identical, r.Differs, r.OnlyLocal, r.OnlyRemote, len(r.Mutations))
	for _, m := range r.Mutations {
		fmt.Fprintf(w, "  #%d %s[%s]: %q -> %q\n", m.TxnID, m.Field, m.Side, m.Old, m.New)
	}
}
