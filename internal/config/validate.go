package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks a parsed config file. Zero values for url and
// username are allowed here because the environment or flags may still
// supply them; ValidateResolved enforces their presence.
func Validate(cfg *Config) error {
	if cfg.URL != "" {
		if err := validateURL(cfg.URL); err != nil {
			return err
		}
	}

	if err := validateEnums(cfg.DeviceClass, cfg.Run.Policy, cfg.Run.Granularity); err != nil {
		return err
	}

	return nil
}

// ValidateResolved checks the fully resolved configuration. Absence of
// a required field is an error here, not a runtime prompt.
func ValidateResolved(r *Resolved) error {
	if r.URL == "" {
		return fmt.Errorf("instance url is required (set url in the config file, %s, or --url)", EnvURL)
	}

	if err := validateURL(r.URL); err != nil {
		return err
	}

	// Normalize: the API paths are joined with a bare instance URL.
	r.URL = strings.TrimRight(r.URL, "/ ")

	if r.Username == "" {
		return fmt.Errorf("username is required (set username in the config file, %s, or --username)", EnvUsername)
	}

	return validateEnums(r.DeviceClass, r.Run.Policy, r.Run.Granularity)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid instance url %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("instance url %q must use http or https", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("instance url %q has no host", raw)
	}

	return nil
}

func validateEnums(class, policy, granularity string) error {
	switch class {
	case ClassComputer, ClassMobile:
	default:
		return fmt.Errorf("device_class must be %q or %q, got %q", ClassComputer, ClassMobile, class)
	}

	switch policy {
	case PolicyAppend, PolicyExact:
	default:
		return fmt.Errorf("policy must be %q or %q, got %q", PolicyAppend, PolicyExact, policy)
	}

	switch granularity {
	case GranularityBulk, GranularityGranular:
	default:
		return fmt.Errorf("granularity must be %q or %q, got %q", GranularityBulk, GranularityGranular, granularity)
	}

	return nil
}
