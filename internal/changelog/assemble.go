package changelog

import (
	"sort"

	"amendtrail/internal/types"
)

// Options configures a display list build
type Options struct {
	// ExcludedFields overrides DefaultExcludedFields when non-nil
	ExcludedFields map[string]struct{}

	// Locale selects the date display layout
	Locale string
}

// BuildDisplayList produces the display-ready change history for a set of
// amendment records: most recent first (stable for equal timestamps), each
// record reduced to its genuine changes, and records whose every change was
// cosmetic dropped entirely. The input slice is not modified.
func BuildDisplayList(records []*types.AmendmentRecord, opts Options) []types.DisplayEntry {
	presenter := NewPresenter(opts.Locale)

	// Nil records (JSON nulls in the stored array) are dropped before the
	// sort ever touches AmendedAt
	sorted := make([]*types.AmendmentRecord, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		sorted = append(sorted, record)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AmendedAt.After(sorted[j].AmendedAt)
	})

	entries := make([]types.DisplayEntry, 0, len(sorted))
	for _, record := range sorted {
		changes := FilterRealChanges(record.Changes, opts.ExcludedFields)
		if len(changes) == 0 {
			continue
		}

		presented := make([]types.PresentedChange, 0, len(changes))
		for _, c := range changes {
			presented = append(presented, presenter.Present(c))
		}

		entries = append(entries, types.DisplayEntry{
			Record:  record,
			Changes: presented,
		})
	}
	return entries
}
