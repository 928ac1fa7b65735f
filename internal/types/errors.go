package types

import "errors"

var (
	// ErrAmendmentNotFound indicates the amendment does not exist
	ErrAmendmentNotFound = errors.New("amendment not found")

	// ErrSearchDisabled indicates the search backend is not configured
	ErrSearchDisabled = errors.New("search is not enabled")
)
