package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// InstallRecord represents a row in the install_history table.
type InstallRecord struct {
	File        string
	InstalledAt time.Time
}

// Install executes every pending *.sql file at the root of source and
// returns the names of the files it applied, in order.
//
// # Atomicity
//
// All pending files run inside a single transaction. If file N fails,
// the transaction is rolled back and nothing from files 1..N is kept.
// The returned error names the file and wraps the driver error.
//
// SQLite executes DDL transactionally, so a failed install leaves the
// schema untouched. MySQL commits implicitly on DDL: on that driver only
// data statements and install_history rows are rolled back.
//
// Files already recorded in install_history are skipped, so calling
// Install on every startup is safe.
func (db *DB) Install(ctx context.Context, source fs.FS) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.createInstallTable(ctx); err != nil {
		return nil, fmt.Errorf("creating install_history table: %w", err)
	}

	pending, err := db.pendingInstallFiles(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning install transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, name := range pending {
		content, err := fs.ReadFile(source, name)
		if err != nil {
			return nil, fmt.Errorf("reading install file %s: %w", name, err)
		}

		if strings.TrimSpace(string(content)) != "" {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return nil, fmt.Errorf("installing %s: %w", name, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO install_history (file, installed_at) VALUES (?, ?)",
			name,
			time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return nil, fmt.Errorf("recording install of %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing install: %w", err)
	}
	return pending, nil
}

// InstallStatus reports which files from source have been installed and
// which are still pending.
func (db *DB) InstallStatus(ctx context.Context, source fs.FS) (installed []InstallRecord, pending []string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.createInstallTable(ctx); err != nil {
		return nil, nil, fmt.Errorf("creating install_history table: %w", err)
	}

	installed, err = db.installedRecords(ctx)
	if err != nil {
		return nil, nil, err
	}

	pending, err = db.pendingInstallFiles(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	return installed, pending, nil
}

// createInstallTable creates install_history if it doesn't exist.
// The column types are valid on both MySQL and SQLite.
func (db *DB) createInstallTable(ctx context.Context) error {
	_, err := db.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS install_history (
			file VARCHAR(255) PRIMARY KEY,
			installed_at VARCHAR(32) NOT NULL
		)
	`)
	return err
}

// installedRecords returns every install_history row ordered by file name.
func (db *DB) installedRecords(ctx context.Context) ([]InstallRecord, error) {
	rows, err := db.DB.QueryContext(ctx,
		"SELECT file, installed_at FROM install_history ORDER BY file",
	)
	if err != nil {
		return nil, fmt.Errorf("querying install history: %w", err)
	}
	defer rows.Close()

	var records []InstallRecord
	for rows.Next() {
		var r InstallRecord
		var installedAt string
		if err := rows.Scan(&r.File, &installedAt); err != nil {
			return nil, fmt.Errorf("scanning install row: %w", err)
		}
		// Parse timestamp - ignore error as format is controlled by us
		r.InstalledAt, _ = time.Parse(time.RFC3339, installedAt) //nolint:errcheck // Format is controlled
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating install history: %w", err)
	}
	return records, nil
}

// pendingInstallFiles lists *.sql files in source that are not yet recorded.
func (db *DB) pendingInstallFiles(ctx context.Context, source fs.FS) ([]string, error) {
	files, err := listInstallFiles(source)
	if err != nil {
		return nil, err
	}

	installed, err := db.installedRecords(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(installed))
	for _, r := range installed {
		done[r.File] = true
	}

	var pending []string
	for _, name := range files {
		if !done[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// listInstallFiles returns the regular *.sql files at the root of source,
// sorted by name. Subdirectories are not descended into.
func listInstallFiles(source fs.FS) ([]string, error) {
	if source == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, fmt.Errorf("listing install files: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if path.Ext(entry.Name()) != ".sql" {
			continue
		}
		files = append(files, entry.Name())
	}

	slices.Sort(files)
	return files, nil
}
