package changelog

import (
	"strings"

	"amendtrail/internal/types"
)

// Separator joins the before and after values inside a change descriptor
const Separator = " → "

// DefaultExcludedFields are bookkeeping fields never shown to users
var DefaultExcludedFields = map[string]struct{}{
	"createdAt":   {},
	"updatedAt":   {},
	"_id":         {},
	"IsAmendment": {},
}

// Change is one field change that survived filtering
type Change struct {
	FieldName string
	RawFrom   string
	RawTo     string
}

// FilterRealChanges extracts the genuine changes from a change set, in input
// order. Excluded fields are skipped outright. Descriptors without the
// separator are malformed and silently dropped; the rest of the set still
// renders. An entry survives only if its normalized before and after values
// differ.
func FilterRealChanges(changes types.ChangeSet, excluded map[string]struct{}) []Change {
	if excluded == nil {
		excluded = DefaultExcludedFields
	}

	var result []Change
	for _, pair := range changes {
		if _, skip := excluded[pair.Field]; skip {
			continue
		}

		from, to, ok := splitDescriptor(pair.Descriptor)
		if !ok {
			continue
		}

		if NormalizeValue(from, pair.Field) == NormalizeValue(to, pair.Field) {
			continue
		}

		result = append(result, Change{
			FieldName: pair.Field,
			RawFrom:   from,
			RawTo:     to,
		})
	}
	return result
}

// splitDescriptor splits "<from> → <to>" into its two sides. Descriptors
// with more than one separator keep everything after the first one as the
// "to" side.
func splitDescriptor(descriptor string) (from, to string, ok bool) {
	idx := strings.Index(descriptor, Separator)
	if idx < 0 {
		return "", "", false
	}
	return descriptor[:idx], descriptor[idx+len(Separator):], true
}
