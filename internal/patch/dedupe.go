package patch

import (
	"strings"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// Deduplicate drops proposals that repeat an earlier one. Two proposals are
// duplicates when they share a type and their values are equal ignoring case,
// or when one non-empty value contains the other ignoring case, whatever the
// types. The earliest proposal of a duplicate set survives and order is kept.
// Overlap across types may drop a marginal proposal; near-identical options
// are never shown to a reviewer.
func Deduplicate(proposals []types.Proposal) []types.Proposal {
	out := make([]types.Proposal, 0, len(proposals))
	for _, p := range proposals {
		dup := false
		for _, kept := range out {
			if duplicates(kept, p) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

func duplicates(a, b types.Proposal) bool {
	va := strings.ToLower(strings.TrimSpace(a.Value))
	vb := strings.ToLower(strings.TrimSpace(b.Value))

	if a.Type == b.Type && va == vb {
		return true
	}
	if va == "" || vb == "" {
		return false
	}
	return strings.Contains(va, vb) || strings.Contains(vb, va)
}
