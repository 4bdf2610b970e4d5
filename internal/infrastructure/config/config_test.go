package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSettings(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test settings: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeSettings(t, "settings.yaml", `
token: "test-token"
prefix: "?"
db_host: "db.internal"
db_user: "writer"
db_pass: "secret"
db_name: "writerbot"
database:
  driver: mysql
  port: 3307
mqtt:
  qos: 1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Token != "test-token" {
		t.Errorf("Token = %q, want %q", cfg.Token, "test-token")
	}
	if cfg.Prefix != "?" {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, "?")
	}
	if cfg.DBHost != "db.internal" {
		t.Errorf("DBHost = %q, want %q", cfg.DBHost, "db.internal")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want 3307", cfg.Database.Port)
	}
	// Untouched sections keep their defaults
	if cfg.Status != "Booting up..." {
		t.Errorf("Status = %q, want default", cfg.Status)
	}
}

func TestLoad_FlatJSONSettings(t *testing.T) {
	path := writeSettings(t, "settings.json", `{
  "token": "json-token",
  "db_host": "localhost",
  "db_user": "root",
  "db_pass": "pw",
  "db_name": "writer"
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Token != "json-token" {
		t.Errorf("Token = %q, want %q", cfg.Token, "json-token")
	}
	if cfg.DBName != "writer" {
		t.Errorf("DBName = %q, want %q", cfg.DBName, "writer")
	}
	if cfg.Database.Driver != DriverMySQL {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverMySQL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/settings.json")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeSettings(t, "settings.yaml", "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeSettings(t, "settings.yaml", `
db_host: "localhost"
db_user: "writer"
db_name: "writerbot"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error for missing token, got nil")
	}
	if !strings.Contains(err.Error(), "token is required") {
		t.Errorf("error = %v, want mention of token", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	mysqlConfig := func() *Config {
		cfg := defaultConfig()
		cfg.Token = "token"
		cfg.DBHost = "localhost"
		cfg.DBUser = "writer"
		cfg.DBName = "writerbot"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid mysql config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "valid sqlite config without mysql fields",
			mutate: func(c *Config) {
				c.Database.Driver = DriverSQLite
				c.DBHost, c.DBUser, c.DBName = "", "", ""
			},
			wantErr: false,
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Token = "" },
			wantErr: true,
		},
		{
			name:    "missing db host",
			mutate:  func(c *Config) { c.DBHost = "" },
			wantErr: true,
		},
		{
			name:    "missing db name",
			mutate:  func(c *Config) { c.DBName = "" },
			wantErr: true,
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Database.Driver = DriverSQLite
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: true,
		},
		{
			name:    "empty prefix",
			mutate:  func(c *Config) { c.Prefix = "" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "api enabled with invalid port",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.API.Port = 70000
			},
			wantErr: true,
		},
		{
			name:    "api disabled ignores port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := mysqlConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"!", false},
		{"wb.", false},
		{"", true},
		{"two words", true},
		{"tab\t", true},
		{"abcdefghijk", true},
		{"✍✍✍", false},
		{"éééééééééé", false},
		{"ééééééééééé", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			err := ValidatePrefix(tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{ConnectTimeout: 7},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.ConnectTimeout().Seconds(); got != 7 {
		t.Errorf("ConnectTimeout() = %v, want 7", got)
	}
	if got := cfg.API.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("API.ReadTimeout() = %v, want 30", got)
	}
	if got := cfg.API.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("API.WriteTimeout() = %v, want 45", got)
	}
	if got := cfg.API.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("API.IdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("WRITERBOT_TOKEN", "env-token")
	t.Setenv("WRITERBOT_PREFIX", "$")
	t.Setenv("WRITERBOT_DB_HOST", "mysql.example.com")
	t.Setenv("WRITERBOT_DB_USER", "envuser")
	t.Setenv("WRITERBOT_DB_PASS", "envpass")
	t.Setenv("WRITERBOT_DB_NAME", "envdb")
	t.Setenv("WRITERBOT_DATABASE_PATH", "/custom/path.db")
	t.Setenv("WRITERBOT_MQTT_HOST", "mqtt.example.com")
	t.Setenv("WRITERBOT_INFLUXDB_TOKEN", "influx-token")

	applyEnvOverrides(cfg)

	checks := []struct {
		field, got, want string
	}{
		{"Token", cfg.Token, "env-token"},
		{"Prefix", cfg.Prefix, "$"},
		{"DBHost", cfg.DBHost, "mysql.example.com"},
		{"DBUser", cfg.DBUser, "envuser"},
		{"DBPass", cfg.DBPass, "envpass"},
		{"DBName", cfg.DBName, "envdb"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "influx-token"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Prefix != "!" {
		t.Errorf("defaultConfig Prefix = %q, want %q", cfg.Prefix, "!")
	}
	if cfg.Database.Driver != DriverMySQL {
		t.Errorf("defaultConfig Database.Driver = %q, want %q", cfg.Database.Driver, DriverMySQL)
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("defaultConfig Database.Port = %d, want 3306", cfg.Database.Port)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}
