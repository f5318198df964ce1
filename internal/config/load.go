package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns
// the resulting Config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise
// returns a Config populated with all default values. Users can run
// entirely from flags and environment without creating a file.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The precedence order ensures CLI flags always win, matching user
// expectations for one-off overrides without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		URL:         cfg.URL,
		Username:    cfg.Username,
		DeviceClass: cfg.DeviceClass,
		Run:         cfg.Run,
		LogLevel:    cfg.Logging.LogLevel,
	}

	// 3. Apply env overrides
	if env.URL != "" {
		resolved.URL = env.URL
	}

	if env.Username != "" {
		resolved.Username = env.Username
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified)
	if cli.URL != nil {
		resolved.URL = *cli.URL
	}

	if cli.Username != nil {
		resolved.Username = *cli.Username
	}

	if cli.DeviceClass != nil {
		resolved.DeviceClass = *cli.DeviceClass
	}

	if cli.Policy != nil {
		resolved.Run.Policy = *cli.Policy
	}

	if cli.Granularity != nil {
		resolved.Run.Granularity = *cli.Granularity
	}

	// 5. Validate the final resolved configuration
	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}
