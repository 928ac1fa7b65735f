package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDisplayKey tests cache key building
func TestDisplayKey(t *testing.T) {
	assert.Equal(t, "amendtrail:display:mat-1:en-IN", DisplayKey("mat-1", "en-IN"))
	assert.Equal(t, "amendtrail:display:mat-1:default", DisplayKey("mat-1", ""))
}

// TestNewRejectsEmptyConfig tests constructor validation
func TestNewRejectsEmptyConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	_, err = New(&Config{}, nil)
	assert.Error(t, err)
}
