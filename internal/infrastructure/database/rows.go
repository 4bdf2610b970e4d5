package database

import (
	"database/sql"
	"strconv"
)

// Row is one result row keyed by column name.
//
// Text columns that the driver returns as []byte are converted to string,
// so callers can type-assert string for VARCHAR/TEXT data on both drivers.
type Row map[string]any

// String returns the column value as a string, or "" when it is absent or
// not a string.
func (r Row) String(column string) string {
	s, _ := r[column].(string)
	return s
}

// Int64 returns the column value as an int64. Integer, float, and numeric
// string values are accepted; anything else yields 0 and false.
func (r Row) Int64(column string) (int64, bool) {
	switch v := r[column].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true //nolint:gosec // counters stay well below MaxInt64
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// scanRows reads every remaining row into a slice of Row.
// The returned slice is never nil.
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
