// Package headless runs one association without the TUI.
package headless

import (
	"context"
	"fmt"
	"io"

	"github.com/jeanpaul/loci/internal/associate"
	"github.com/jeanpaul/loci/internal/session"
)

// Run creates one association. Progress goes to stderr and the stored
// content to stdout, so stdout can be piped. Collaborator failures are
// reported but do not fail the run.
func Run(ctx context.Context, wf *associate.Workflow, sid session.ID, in associate.Input, stdout, stderr io.Writer) error {
	in.Progress = func(ev associate.Event) {
		switch ev.Kind {
		case associate.EventBullets:
			fmt.Fprintf(stderr, "[bullets ready: %d items to picture]\n", ev.Total)
		case associate.EventImagery:
			fmt.Fprintf(stderr, "[imagery %d/%d: %s]\n", ev.Done, ev.Total, ev.Item)
		case associate.EventFailed:
			if ev.Item == "" {
				fmt.Fprintf(stderr, "[error: %v]\n", ev.Err)
			} else {
				fmt.Fprintf(stderr, "[error for %s: %v]\n", ev.Item, ev.Err)
			}
		case associate.EventSaved:
			fmt.Fprintln(stderr, "[saved]")
		}
	}

	out, err := wf.Associate(ctx, sid, in)
	if err != nil {
		return err
	}

	if out.PalaceCreated {
		fmt.Fprintf(stderr, "created palace %q\n", in.Palace)
	}
	if out.CategoryCreated {
		fmt.Fprintf(stderr, "created category %q\n", in.Category)
	}
	if n := len(out.Errors); n > 0 {
		fmt.Fprintf(stderr, "%d generation step(s) fell back to placeholders\n", n)
	}
	_, err = fmt.Fprintln(stdout, out.Association.Content)
	return err
}
