package changelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPresenterPresent tests change presentation
func TestPresenterPresent(t *testing.T) {
	p := NewPresenter(DefaultLocale)

	testCases := []struct {
		name     string
		change   Change
		expected [2]string
	}{
		{
			name:     "non-temporal values verbatim",
			change:   Change{FieldName: "quantity", RawFrom: "10", RawTo: "15"},
			expected: [2]string{"10", "15"},
		},
		{
			name:     "temporal values formatted",
			change:   Change{FieldName: "expiryDate", RawFrom: "2024-08-10", RawTo: "2024-09-10T00:00:00Z"},
			expected: [2]string{"10 Aug 2024", "10 Sep 2024"},
		},
		{
			name:     "sides formatted independently",
			change:   Change{FieldName: "expiryDate", RawFrom: "not-a-date", RawTo: "2024-08-10"},
			expected: [2]string{"not-a-date", "10 Aug 2024"},
		},
		{
			name:     "whitespace not trimmed on non-temporal values",
			change:   Change{FieldName: "vendorName", RawFrom: " Acme ", RawTo: "Apex"},
			expected: [2]string{" Acme ", "Apex"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := p.Present(tc.change)
			assert.Equal(t, tc.change.FieldName, out.FieldName)
			assert.Equal(t, tc.expected[0], out.DisplayFrom)
			assert.Equal(t, tc.expected[1], out.DisplayTo)
		})
	}
}

// TestLayoutFor tests locale resolution
func TestLayoutFor(t *testing.T) {
	testCases := []struct {
		locale   string
		expected string
	}{
		{locale: "en-IN", expected: "02 Jan 2006"},
		{locale: "en-GB", expected: "02 Jan 2006"},
		{locale: "en-US", expected: "Jan 02, 2006"},
		{locale: "", expected: "02 Jan 2006"},
		{locale: "not a locale!", expected: "02 Jan 2006"},
		{locale: "fr-FR", expected: "02 Jan 2006"},
	}

	for _, tc := range testCases {
		t.Run(tc.locale, func(t *testing.T) {
			assert.Equal(t, tc.expected, layoutFor(tc.locale))
		})
	}
}
