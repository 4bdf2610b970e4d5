// Package database provides the relational database access layer for WriterBot.
//
// This package manages:
//   - The single process-wide connection (MySQL or SQLite)
//   - CRUD helpers built from field/value pairs (Get, GetAll, Insert, Update, Delete)
//   - Raw parameterised queries (GetSQL, GetAllSQL, Execute)
//   - The install routine that applies *.sql schema files in one transaction
//
// Query Construction:
//
// Conditions are equality-only and joined with AND. Values are always bound
// as placeholders, never interpolated. Table, field, and sort names cannot
// be bound, so they are checked against a strict identifier pattern and
// rejected with ErrInvalidIdentifier otherwise.
//
//	row, err := db.Get(ctx, database.Query{
//	    Table: "users",
//	    Where: database.Params{database.P("id", 3)},
//	})
//	// SELECT * FROM users WHERE id = ? LIMIT 1   [3]
//
//	n, err := db.Insert(ctx, "users", database.Params{
//	    database.P("name", "a"),
//	    database.P("age", 5),
//	})
//	// INSERT INTO users (name,age) VALUES (?,?)  [a 5]
//
// Results:
//
// Rows are returned as Row (map of column name to value). A Get with no
// match returns a nil Row and a nil error. GetAll returns an empty slice.
// Driver errors are returned unchanged.
//
// Concurrency:
//
// The pool is capped at one connection and every call holds a mutex until
// its results are read, so callers are serialised. Writes auto-commit.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Driver: database.DriverMySQL, ...})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Install(ctx, install.Files); err != nil {
//	    return err
//	}
package database
