package harness

import (
	"fmt"
	"slices"
)

// checkFinal compares the end-of-run state with the scenario's expect block
// and returns one message per mismatch.
func checkFinal(e *FinalExpect, r *Result) []string {
	var errs []string
	if e.Pending != nil && *e.Pending != len(r.Pending) {
		errs = append(errs, fmt.Sprintf("expected %d pending writes, got %d", *e.Pending, len(r.Pending)))
	}
	if e.PendingKeys != nil {
		keys := make([]string, 0, len(r.Pending))
		for _, p := range r.Pending {
			keys = append(keys, p.BusinessKey)
		}
		if !slices.Equal(e.PendingKeys, keys) {
			errs = append(errs, fmt.Sprintf("expected pending keys %v, got %v", e.PendingKeys, keys))
		}
	}
	if e.Synced != nil && *e.Synced != r.Synced {
		errs = append(errs, fmt.Sprintf("expected %d synced in total, got %d", *e.Synced, r.Synced))
	}
	if e.Failed != nil && *e.Failed != r.Failed {
		errs = append(errs, fmt.Sprintf("expected %d failed in total, got %d", *e.Failed, r.Failed))
	}
	if e.Delivered != nil && !slices.Equal(e.Delivered, r.Delivered) {
		errs = append(errs, fmt.Sprintf("expected delivered %q, got %q", e.Delivered, r.Delivered))
	}
	return errs
}
