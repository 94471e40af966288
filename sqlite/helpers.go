package sqlite

import (
	"fmt"
	"strings"
	"time"
)

// formatTime encodes t the way timestamps are stored: RFC3339 in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseRFC3339 decodes a stored timestamp. fieldName names the column in
// the error.
func parseRFC3339(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// appendPagination adds LIMIT and OFFSET clauses for positive values.
// SQLite requires a LIMIT before an OFFSET, so an offset alone gets an
// unbounded limit.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	switch {
	case limit > 0:
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	case offset > 0:
		query.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}
