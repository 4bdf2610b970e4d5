package database

import (
	"context"
	"database/sql"
)

// Every method in this file holds db.mu for the whole call, including
// reading the result set. Errors from the driver are returned as-is so
// callers can inspect them with errors.As.

// Get returns the first row matching q, or nil when nothing matches.
// Any Limit on q is replaced by LIMIT 1.
func (db *DB) Get(ctx context.Context, q Query) (Row, error) {
	q.Limit = 1
	stmt, err := BuildSelect(q)
	if err != nil {
		return nil, err
	}
	return db.GetSQL(ctx, stmt.SQL, stmt.Args...)
}

// GetAll returns every row matching q. The slice is empty, not nil, when
// nothing matches.
func (db *DB) GetAll(ctx context.Context, q Query) ([]Row, error) {
	stmt, err := BuildSelect(q)
	if err != nil {
		return nil, err
	}
	return db.GetAllSQL(ctx, stmt.SQL, stmt.Args...)
}

// GetSQL runs a caller-written query and returns its first row, or nil.
func (db *DB) GetSQL(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := db.GetAllSQL(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetAllSQL runs a caller-written query and returns all rows.
func (db *DB) GetAllSQL(ctx context.Context, query string, args ...any) ([]Row, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// Insert adds one row and returns the number of rows affected.
func (db *DB) Insert(ctx context.Context, table string, values Params) (int64, error) {
	stmt, err := BuildInsert(table, values)
	if err != nil {
		return 0, err
	}
	return db.execAffected(ctx, stmt)
}

// Update sets values on every row matching where and returns the number
// of rows affected. An empty where updates the whole table.
func (db *DB) Update(ctx context.Context, table string, values, where Params) (int64, error) {
	stmt, err := BuildUpdate(table, values, where)
	if err != nil {
		return 0, err
	}
	return db.execAffected(ctx, stmt)
}

// Delete removes every row matching where and returns the number of rows
// affected. An empty where is rejected with ErrNoConditions.
func (db *DB) Delete(ctx context.Context, table string, where Params) (int64, error) {
	stmt, err := BuildDelete(table, where)
	if err != nil {
		return 0, err
	}
	return db.execAffected(ctx, stmt)
}

// Execute runs a caller-written statement.
func (db *DB) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.DB.ExecContext(ctx, query, args...)
}

func (db *DB) execAffected(ctx context.Context, stmt Statement) (int64, error) {
	res, err := db.Execute(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
