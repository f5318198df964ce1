// Package config implements TOML configuration loading, validation, and
// the override chain (defaults -> config file -> environment -> CLI
// flags) for prestage-go. The password is never read from the config
// file; it comes from the environment or an interactive prompt.
package config

// Config is the top-level structure parsed from the TOML config file.
type Config struct {
	// URL is the Jamf Pro instance URL, e.g.
	// "https://yourinstance.jamfcloud.com". Trailing slashes are
	// stripped during validation.
	URL string `toml:"url"`

	// Username for the token endpoint. The account needs permission to
	// read prestages and modify their scope.
	Username string `toml:"username"`

	// DeviceClass selects computer or mobile-device prestages.
	DeviceClass string `toml:"device_class"`

	Run     RunConfig     `toml:"run"`
	Logging LoggingConfig `toml:"logging"`
}

// RunConfig holds defaults for the move command that flags can override.
type RunConfig struct {
	// Policy is "append" or "exact".
	Policy string `toml:"policy"`

	// Granularity is "bulk" or "granular".
	Granularity string `toml:"granularity"`

	// DefaultID and DefaultName preselect the exact-mode default
	// prestage, sparing the flag on every invocation.
	DefaultID   string `toml:"default_id"`
	DefaultName string `toml:"default_name"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `toml:"log_level"`
}

// CLIOverrides holds values from CLI flags that override config file
// and environment settings. Pointer fields distinguish "not specified"
// (nil) from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath  string // --config flag (empty = use default)
	URL         *string
	Username    *string
	DeviceClass *string
	Policy      *string
	Granularity *string
}

// Resolved is the effective configuration after the full override
// chain, validated and ready for use.
type Resolved struct {
	URL         string
	Username    string
	DeviceClass string
	Run         RunConfig
	LogLevel    string
}
