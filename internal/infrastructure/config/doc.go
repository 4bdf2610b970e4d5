// Package config handles loading and validating WriterBot configuration.
//
// This package manages:
//   - Loading the settings file (YAML, or JSON which YAML accepts)
//   - Overriding with WRITERBOT_* environment variables
//   - Validation of required fields per database driver
//   - Default value handling
//
// Security Considerations:
//   - The bot token and database password should be set via environment variables
//   - The settings file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("settings.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Prefix)
package config
