package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// maxPrefixLength bounds the command prefix, both the configured default
// and per-guild overrides.
const maxPrefixLength = 10

// Config is the root configuration structure for WriterBot.
//
// The connection and credential fields sit at the top level so that the
// historical flat settings.json layout keeps working; everything else is
// grouped into sections.
type Config struct {
	Token  string `yaml:"token"`
	Prefix string `yaml:"prefix"`
	Status string `yaml:"status"`

	DBHost string `yaml:"db_host"`
	DBUser string `yaml:"db_user"`
	DBPass string `yaml:"db_pass"`
	DBName string `yaml:"db_name"`

	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	API      APIConfig      `yaml:"api"`
}

// DatabaseConfig contains driver selection and driver-specific settings.
type DatabaseConfig struct {
	// Driver is "mysql" or "sqlite3".
	Driver string `yaml:"driver"`

	// Port is the MySQL server port.
	Port int `yaml:"port"`

	// Path is the SQLite database file (sqlite3 only).
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// ConnectTimeout is the dial/ping timeout in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// InstallDir overrides the embedded install files with a directory on disk.
	InstallDir string `yaml:"install_dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the status HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// Load reads configuration from a settings file and applies environment
// variable overrides.
//
// The settings file may be YAML or JSON (JSON is parsed as YAML).
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. Settings file values (override defaults)
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to the settings file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Prefix: "!",
		Status: "Booting up...",
		Database: DatabaseConfig{
			Driver:         DriverMySQL,
			Port:           3306,
			Path:           "./data/writerbot.db",
			WALMode:        true,
			BusyTimeout:    5,
			ConnectTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "writerbot",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WRITERBOT_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WRITERBOT_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("WRITERBOT_PREFIX"); v != "" {
		cfg.Prefix = v
	}

	// Database
	if v := os.Getenv("WRITERBOT_DB_HOST"); v != "" {
		cfg.DBHost = v
	}
	if v := os.Getenv("WRITERBOT_DB_USER"); v != "" {
		cfg.DBUser = v
	}
	if v := os.Getenv("WRITERBOT_DB_PASS"); v != "" {
		cfg.DBPass = v
	}
	if v := os.Getenv("WRITERBOT_DB_NAME"); v != "" {
		cfg.DBName = v
	}
	if v := os.Getenv("WRITERBOT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("WRITERBOT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}

	// InfluxDB
	if v := os.Getenv("WRITERBOT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Every problem is collected so a broken settings file can be fixed in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Token == "" {
		errs = append(errs, "token is required (set WRITERBOT_TOKEN environment variable)")
	}

	if err := ValidatePrefix(c.Prefix); err != nil {
		errs = append(errs, "prefix: "+err.Error())
	}

	switch c.Database.Driver {
	case DriverMySQL:
		if c.DBHost == "" {
			errs = append(errs, "db_host is required for the mysql driver")
		}
		if c.DBUser == "" {
			errs = append(errs, "db_user is required for the mysql driver")
		}
		if c.DBName == "" {
			errs = append(errs, "db_name is required for the mysql driver")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errs = append(errs, "database.port must be between 1 and 65535")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite3 driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (use mysql or sqlite3)", c.Database.Driver))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ValidatePrefix reports whether p can be used as a command prefix.
// It is shared by settings validation and the prefix command.
func ValidatePrefix(p string) error {
	if p == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidPrefix)
	}
	if utf8.RuneCountInString(p) > maxPrefixLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidPrefix, maxPrefixLength)
	}
	if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: must not contain whitespace", ErrInvalidPrefix)
	}
	return nil
}

// ConnectTimeout returns the database connect timeout as a Duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Database.ConnectTimeout) * time.Second
}

// ReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
