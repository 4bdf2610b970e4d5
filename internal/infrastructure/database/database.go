package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported driver names, as registered with database/sql.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the SQLite database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the SQLite database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// defaultConnectTimeout applies when Config.ConnectTimeout is zero.
	defaultConnectTimeout = 5 * time.Second

	// defaultMySQLPort applies when Config.Port is zero.
	defaultMySQLPort = 3306
)

// DB owns the single database connection used by the whole process.
//
// The pool is capped at one open connection and every access-layer call
// (Get, Insert, Install, ...) holds mu until its results are fully read,
// so concurrent command handlers never observe each other's result sets.
type DB struct {
	*sql.DB
	driver string
	name   string

	mu sync.Mutex
}

// Config contains database configuration options.
// These map to the db_* fields and the database section of the settings file.
type Config struct {
	// Driver is DriverMySQL or DriverSQLite.
	Driver string

	// MySQL connection parameters.
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// WALMode enables Write-Ahead Logging (SQLite only).
	WALMode bool

	// BusyTimeout is the maximum time to wait for a SQLite lock (seconds).
	BusyTimeout int

	// ConnectTimeout bounds dialling and the initial ping.
	ConnectTimeout time.Duration
}

// Open creates the process-wide database connection.
//
// It performs the following setup:
//  1. Builds the driver-specific DSN
//  2. Opens the handle and caps it to a single connection
//  3. Verifies the connection with a ping
//
// A failure here is a connection error: the caller is expected to treat it
// as fatal. There is no retry.
//
// Parameters:
//   - ctx: Bounds the initial ping
//   - cfg: Driver and connection settings
//
// Returns:
//   - *DB: Open handle; Close must be called on every exit path
//   - error: ErrUnsupportedDriver, or the open/ping failure
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dsn, name, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection for the lifetime of the process
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	db := &DB{
		DB:     sqlDB,
		driver: cfg.Driver,
		name:   name,
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may not exist until first write
	}

	return db, nil
}

// dataSourceName builds the DSN for the configured driver. The second
// return value is a printable name for logs (never contains credentials).
func dataSourceName(cfg Config) (dsn string, name string, err error) {
	switch cfg.Driver {
	case DriverMySQL:
		return mysqlDSN(cfg), cfg.Name, nil

	case DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("%w: sqlite3 requires a path", ErrInvalidConfig)
		}
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
				return "", "", fmt.Errorf("creating database directory: %w", err)
			}
		}
		// See: https://github.com/mattn/go-sqlite3#connection-string
		dsn = fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
			cfg.Path,
			cfg.BusyTimeout*msPerSecond,
		)
		if cfg.WALMode {
			dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
		}
		return dsn, cfg.Path, nil

	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// mysqlDSN formats a go-sql-driver DSN.
//
// MultiStatements is required because install files hold several
// statements each. ClientFoundRows makes an UPDATE report matched rows
// like SQLite does, even when the stored value is unchanged.
func mysqlDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.MultiStatements = true
	mc.ClientFoundRows = true
	mc.Timeout = cfg.ConnectTimeout
	if mc.Timeout <= 0 {
		mc.Timeout = defaultConnectTimeout
	}
	mc.Params = map[string]string{"charset": "utf8mb4"}

	return mc.FormatDSN()
}

// Close closes the database connection.
// It must be called on every exit path once Open has succeeded.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Driver returns the driver name the connection was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Name returns the database name (MySQL) or file path (SQLite).
func (db *DB) Name() string {
	return db.name
}

// HealthCheck verifies the database is accessible and functioning.
func (db *DB) HealthCheck(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var result int
	if err := db.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns connection statistics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}
