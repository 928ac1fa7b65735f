package changelog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amendtrail/internal/types"
)

func testRecord(id string, amendedAt string, changes types.ChangeSet) *types.AmendmentRecord {
	at, _ := time.Parse("2006-01-02", amendedAt)
	return &types.AmendmentRecord{
		ID:          id,
		EntityID:    "entity-" + id,
		EntityType:  types.EntityRawMaterial,
		EntityLabel: "Arnica Montana",
		Changes:     changes,
		AmendedBy:   "dr.sharma",
		AmendedAt:   at,
	}
}

// TestBuildDisplayList tests end-to-end display list assembly
func TestBuildDisplayList(t *testing.T) {
	cosmetic := testRecord("a", "2024-01-15", types.ChangeSet{
		{Field: "expiryDate", Descriptor: "2024-08-10T00:00:00Z → 2024-08-10"},
	})
	genuine := testRecord("b", "2024-01-10", types.ChangeSet{
		{Field: "quantity", Descriptor: "10 → 15"},
	})

	entries := BuildDisplayList([]*types.AmendmentRecord{cosmetic, genuine}, Options{})

	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Record.ID)
	require.Len(t, entries[0].Changes, 1)
	assert.Equal(t, "quantity", entries[0].Changes[0].FieldName)
	assert.Equal(t, "10", entries[0].Changes[0].DisplayFrom)
	assert.Equal(t, "15", entries[0].Changes[0].DisplayTo)
}

// TestBuildDisplayListOrder tests descending sort by amendment time
func TestBuildDisplayListOrder(t *testing.T) {
	changes := types.ChangeSet{{Field: "quantity", Descriptor: "1 → 2"}}
	records := []*types.AmendmentRecord{
		testRecord("jan", "2024-01-01", changes),
		testRecord("mar", "2024-03-01", changes),
		testRecord("feb", "2024-02-01", changes),
	}

	entries := BuildDisplayList(records, Options{})

	require.Len(t, entries, 3)
	assert.Equal(t, "mar", entries[0].Record.ID)
	assert.Equal(t, "feb", entries[1].Record.ID)
	assert.Equal(t, "jan", entries[2].Record.ID)
}

// TestBuildDisplayListStableTieBreak tests that equal timestamps keep input order
func TestBuildDisplayListStableTieBreak(t *testing.T) {
	changes := types.ChangeSet{{Field: "quantity", Descriptor: "1 → 2"}}
	records := []*types.AmendmentRecord{
		testRecord("first", "2024-01-01", changes),
		testRecord("second", "2024-01-01", changes),
	}

	entries := BuildDisplayList(records, Options{})

	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Record.ID)
	assert.Equal(t, "second", entries[1].Record.ID)
}

// TestBuildDisplayListEmptyInputs tests degenerate inputs
func TestBuildDisplayListEmptyInputs(t *testing.T) {
	assert.Empty(t, BuildDisplayList(nil, Options{}))
	assert.Empty(t, BuildDisplayList([]*types.AmendmentRecord{nil}, Options{}))
	assert.Empty(t, BuildDisplayList([]*types.AmendmentRecord{nil, nil}, Options{}))

	// All records cosmetic
	records := []*types.AmendmentRecord{
		testRecord("a", "2024-01-01", types.ChangeSet{
			{Field: "updatedAt", Descriptor: "x → y"},
		}),
	}
	assert.Empty(t, BuildDisplayList(records, Options{}))
}

// TestBuildDisplayListNilRecords tests nil records mixed with real ones.
// A JSON array like [null, {...}] decodes into exactly this slice shape.
func TestBuildDisplayListNilRecords(t *testing.T) {
	changes := types.ChangeSet{{Field: "quantity", Descriptor: "1 → 2"}}
	records := []*types.AmendmentRecord{
		nil,
		testRecord("old", "2024-01-01", changes),
		nil,
		testRecord("new", "2024-03-01", changes),
		nil,
	}

	entries := BuildDisplayList(records, Options{})

	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].Record.ID)
	assert.Equal(t, "old", entries[1].Record.ID)
}

// TestBuildDisplayListLocale tests locale option propagation
func TestBuildDisplayListLocale(t *testing.T) {
	records := []*types.AmendmentRecord{
		testRecord("a", "2024-01-01", types.ChangeSet{
			{Field: "expiryDate", Descriptor: "2024-08-10 → 2024-09-10"},
		}),
	}

	entries := BuildDisplayList(records, Options{Locale: "en-US"})
	require.Len(t, entries, 1)
	assert.Equal(t, "Aug 10, 2024", entries[0].Changes[0].DisplayFrom)
	assert.Equal(t, "Sep 10, 2024", entries[0].Changes[0].DisplayTo)
}

// TestBuildDisplayListDoesNotMutateInput tests the input slice is untouched
func TestBuildDisplayListDoesNotMutateInput(t *testing.T) {
	changes := types.ChangeSet{{Field: "quantity", Descriptor: "1 → 2"}}
	records := []*types.AmendmentRecord{
		testRecord("old", "2024-01-01", changes),
		testRecord("new", "2024-03-01", changes),
	}

	BuildDisplayList(records, Options{})

	assert.Equal(t, "old", records[0].ID)
	assert.Equal(t, "new", records[1].ID)
}
