package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/GurkeX/hil-host-core/internal/result"
)

// HistoryCmd lists or reprints past run results from the local history
// store (supplemented feature; not part of the uniform Result protocol
// itself, so it writes its listing directly rather than through
// recordAndEmit; only a store error is reported as a Result).
type HistoryCmd struct {
	Limit int        `default:"20" help:"number of recent runs to list"`
	Show  ShowRunCmd `cmd:"" help:"reprint a stored run's Result document verbatim"`
}

func (c *HistoryCmd) Run(rc *Context) error {
	runs, err := rc.History.List(rc.Context, c.Limit)
	if err != nil {
		r := result.FromError("history", time.Now(), err)
		recordAndEmit(rc, r)
		os.Exit(r.ExitCode())
	}

	if rc.JSON {
		for _, run := range runs {
			fmt.Fprintln(os.Stdout, run.Document)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTOOL\tSTATUS\tRECORDED AT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", run.ID, run.Tool, run.Status, run.Recorded.Format("2006-01-02T15:04:05Z"))
	}
	w.Flush()
	return nil
}

// ShowRunCmd reprints one stored run's Result document verbatim.
type ShowRunCmd struct {
	RunID string `arg:"" help:"run ID to show"`
}

func (c *ShowRunCmd) Run(rc *Context) error {
	run, err := rc.History.Show(rc.Context, c.RunID)
	if err != nil {
		r := result.FromError("history show", time.Now(), err)
		recordAndEmit(rc, r)
		os.Exit(r.ExitCode())
	}
	fmt.Fprintln(os.Stdout, run.Document)
	return nil
}
