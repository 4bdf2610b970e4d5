package database

import "errors"

// Sentinel errors for the database package.
// Use errors.Is() to check for these errors in calling code.
//
// Driver errors (syntax errors, constraint violations, lost connections)
// are not listed here: they are returned to the caller unmodified.
var (
	// ErrUnsupportedDriver is returned by Open for drivers other than mysql and sqlite3.
	ErrUnsupportedDriver = errors.New("database: unsupported driver")

	// ErrInvalidConfig is returned by Open when required settings are missing.
	ErrInvalidConfig = errors.New("database: invalid configuration")

	// ErrInvalidIdentifier is returned when a table, field, or sort column
	// is not a plain SQL identifier.
	ErrInvalidIdentifier = errors.New("database: invalid identifier")

	// ErrNoValues is returned by Insert and Update when no values are given.
	ErrNoValues = errors.New("database: no values to write")

	// ErrNoConditions is returned by Delete when no filter is given.
	// Unconditional deletes are not a supported call shape.
	ErrNoConditions = errors.New("database: delete requires at least one condition")

	// ErrInvalidLimit is returned when a query limit is negative.
	ErrInvalidLimit = errors.New("database: limit must not be negative")
)
