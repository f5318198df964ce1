package config

import (
	"os"
	"path/filepath"
)

// Accepted values for enumerated settings.
const (
	ClassComputer = "computer"
	ClassMobile   = "mobile"

	PolicyAppend = "append"
	PolicyExact  = "exact"

	GranularityBulk     = "bulk"
	GranularityGranular = "granular"
)

// DefaultConfig returns a Config populated with defaults. The instance
// URL and username have no sensible defaults and must come from the
// file, environment, or flags.
func DefaultConfig() *Config {
	return &Config{
		DeviceClass: ClassComputer,
		Run: RunConfig{
			Policy:      PolicyAppend,
			Granularity: GranularityBulk,
		},
		Logging: LoggingConfig{
			LogLevel: "info",
		},
	}
}

// DefaultConfigPath returns the default config file location:
// $XDG_CONFIG_HOME/prestage-go/config.toml, falling back to
// ~/.config/prestage-go/config.toml.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}

		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, "prestage-go", "config.toml")
}
