package exchange

import (
	"context"
	"fmt"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage"
)

// Verify imports doc into a fresh session of scratch, exports it again and
// returns a unified diff of the two JSON renderings. An empty diff means the
// document survives a round trip unchanged.
func Verify(ctx context.Context, doc *Document, scratch storage.Repository) (string, error) {
	want, err := Encode(doc, FormatJSON)
	if err != nil {
		return "", err
	}

	sid := session.New()
	if _, err := Import(ctx, scratch, sid, doc); err != nil {
		return "", fmt.Errorf("verify: import: %w", err)
	}
	back, err := Export(ctx, scratch, sid)
	if err != nil {
		return "", fmt.Errorf("verify: export: %w", err)
	}
	got, err := Encode(back, FormatJSON)
	if err != nil {
		return "", err
	}

	if string(want) == string(got) {
		return "", nil
	}
	edits := myers.ComputeEdits(span.URIFromPath("document.json"), string(want), string(got))
	return fmt.Sprint(gotextdiff.ToUnified("document.json", "round-trip.json", string(want), edits)), nil
}
