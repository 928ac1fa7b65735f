package changelog

import (
	"golang.org/x/text/language"

	"amendtrail/internal/types"
)

// DefaultLocale is the display locale used when none is configured
const DefaultLocale = "en-IN"

// supportedLocales lists locales with a known short date layout. The first
// entry is the fallback for unknown or unparseable locale tags.
var supportedLocales = []language.Tag{
	language.MustParse("en-IN"),
	language.MustParse("en-GB"),
	language.MustParse("en-US"),
}

// localeLayouts maps supportedLocales indexes to short date layouts
var localeLayouts = []string{
	"02 Jan 2006",
	"02 Jan 2006",
	"Jan 02, 2006",
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Presenter formats filtered changes for display
type Presenter struct {
	layout string
}

// NewPresenter creates a presenter for the given locale tag. Unknown tags
// fall back to the default locale's layout.
func NewPresenter(locale string) *Presenter {
	return &Presenter{layout: layoutFor(locale)}
}

// layoutFor resolves a locale tag to a short date layout
func layoutFor(locale string) string {
	if locale == "" {
		return localeLayouts[0]
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return localeLayouts[0]
	}

	_, idx, _ := localeMatcher.Match(tag)
	return localeLayouts[idx]
}

// Present formats one surviving change for display. Temporal sides are
// formatted independently: a side that fails to parse falls back to its raw
// value without affecting the other side. Non-temporal values pass through
// verbatim.
func (p *Presenter) Present(c Change) types.PresentedChange {
	out := types.PresentedChange{
		FieldName:   c.FieldName,
		DisplayFrom: c.RawFrom,
		DisplayTo:   c.RawTo,
	}

	if !IsTemporalField(c.FieldName) {
		return out
	}

	if t, ok := parseDate(c.RawFrom); ok {
		out.DisplayFrom = t.UTC().Format(p.layout)
	}
	if t, ok := parseDate(c.RawTo); ok {
		out.DisplayTo = t.UTC().Format(p.layout)
	}
	return out
}
