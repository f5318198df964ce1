package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "PRESTAGE_GO_CONFIG"
	EnvURL      = "PRESTAGE_GO_URL"
	EnvUsername = "PRESTAGE_GO_USERNAME"

	// EnvPassword is read at the CLI boundary, never stored in config.
	EnvPassword = "PRESTAGE_GO_PASSWORD"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // PRESTAGE_GO_CONFIG: override config file path
	URL        string // PRESTAGE_GO_URL: instance URL
	Username   string // PRESTAGE_GO_USERNAME: login username
}

// ReadEnvOverrides reads environment variables and returns any
// overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		URL:        os.Getenv(EnvURL),
		Username:   os.Getenv(EnvUsername),
	}
}
