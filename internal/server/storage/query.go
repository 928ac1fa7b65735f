package storage

import (
	"fmt"
	"strings"
	"time"

	"amendtrail/internal/types"
)

// QueryOptions defines query options
type QueryOptions struct {
	Timeout time.Duration `json:"timeout,omitempty"`
}

// AmendmentQuery represents a query for amendment records
type AmendmentQuery struct {
	EntityIDs  []string         `json:"entity_ids,omitempty"`
	EntityType types.EntityType `json:"entity_type,omitempty"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	Limit      int              `json:"limit,omitempty"`
}

// QueryBuilder builds SQL clause suffixes appended to a base query
type QueryBuilder struct {
	sql      strings.Builder
	args     []any
	argIndex int
	dollar   bool
}

// Reset clears the builder
func (qb *QueryBuilder) Reset() {
	qb.sql.Reset()
	qb.args = qb.args[:0]
	qb.argIndex = 0
}

// Dollar switches the builder to $N placeholders starting after n existing args
func (qb *QueryBuilder) Dollar(n int) *QueryBuilder {
	qb.dollar = true
	qb.argIndex = n
	return qb
}

// String returns the built clause string
func (qb *QueryBuilder) String() string {
	return qb.sql.String()
}

// Args returns query arguments
func (qb *QueryBuilder) Args() []any {
	return qb.args
}

// Where appends an AND condition. In dollar mode each ? placeholder is
// rewritten to the next $N.
func (qb *QueryBuilder) Where(cond string, args ...any) *QueryBuilder {
	qb.sql.WriteString(" AND ")

	if qb.dollar && strings.Contains(cond, "?") {
		for range args {
			qb.argIndex++
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", qb.argIndex), 1)
		}
	}

	qb.sql.WriteString(cond)
	qb.args = append(qb.args, args...)
	return qb
}

// OrderBy adds ORDER BY
func (qb *QueryBuilder) OrderBy(col string, order string) *QueryBuilder {
	qb.sql.WriteString(" ORDER BY ")
	qb.sql.WriteString(col)
	if order != "" {
		qb.sql.WriteString(" " + order)
	}
	return qb
}

// Limit adds LIMIT
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	qb.sql.WriteString(fmt.Sprintf(" LIMIT %d", n))
	return qb
}
