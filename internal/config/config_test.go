package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a TOML config file into a temp dir and returns its
// path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
url = "https://example.jamfcloud.com"
username = "svc-dep"
device_class = "mobile"

[run]
policy = "exact"
granularity = "granular"
default_id = "1"

[logging]
log_level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.jamfcloud.com", cfg.URL)
	assert.Equal(t, "svc-dep", cfg.Username)
	assert.Equal(t, ClassMobile, cfg.DeviceClass)
	assert.Equal(t, PolicyExact, cfg.Run.Policy)
	assert.Equal(t, GranularityGranular, cfg.Run.Granularity)
	assert.Equal(t, "1", cfg.Run.DefaultID)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `url = "https://example.jamfcloud.com"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ClassComputer, cfg.DeviceClass)
	assert.Equal(t, PolicyAppend, cfg.Run.Policy)
	assert.Equal(t, GranularityBulk, cfg.Run.Granularity)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, `url = [broken`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_InvalidEnum(t *testing.T) {
	path := writeConfig(t, `device_class = "tablet"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device_class")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_FileOnly(t *testing.T) {
	path := writeConfig(t, `
url = "https://example.jamfcloud.com/"
username = "svc-dep"
`)

	r, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, "https://example.jamfcloud.com", r.URL, "trailing slash is stripped")
	assert.Equal(t, "svc-dep", r.Username)
	assert.Equal(t, ClassComputer, r.DeviceClass)
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
url = "https://file.jamfcloud.com"
username = "file-user"
`)

	r, err := Resolve(EnvOverrides{
		URL:      "https://env.jamfcloud.com",
		Username: "env-user",
	}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, "https://env.jamfcloud.com", r.URL)
	assert.Equal(t, "env-user", r.Username)
}

func TestResolve_FlagsOverrideEnv(t *testing.T) {
	path := writeConfig(t, `
url = "https://file.jamfcloud.com"
username = "file-user"
`)

	flagURL := "https://flag.jamfcloud.com"
	flagClass := ClassMobile
	flagPolicy := PolicyExact

	r, err := Resolve(EnvOverrides{
		URL: "https://env.jamfcloud.com",
	}, CLIOverrides{
		ConfigPath:  path,
		URL:         &flagURL,
		DeviceClass: &flagClass,
		Policy:      &flagPolicy,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.jamfcloud.com", r.URL)
	assert.Equal(t, ClassMobile, r.DeviceClass)
	assert.Equal(t, PolicyExact, r.Run.Policy)
	assert.Equal(t, GranularityBulk, r.Run.Granularity, "untouched settings keep defaults")
}

func TestResolve_EnvConfigPath(t *testing.T) {
	path := writeConfig(t, `
url = "https://env-path.jamfcloud.com"
username = "svc-dep"
`)

	r, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://env-path.jamfcloud.com", r.URL)
}

func TestResolve_MissingURL(t *testing.T) {
	path := writeConfig(t, `username = "svc-dep"`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance url is required")
}

func TestResolve_MissingUsername(t *testing.T) {
	path := writeConfig(t, `url = "https://example.jamfcloud.com"`)

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
}

func TestValidateResolved_BadURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"no scheme", "example.jamfcloud.com"},
		{"bad scheme", "ftp://example.jamfcloud.com"},
		{"no host", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolved{
				URL:         tt.url,
				Username:    "svc-dep",
				DeviceClass: ClassComputer,
				Run:         RunConfig{Policy: PolicyAppend, Granularity: GranularityBulk},
			}
			assert.Error(t, ValidateResolved(r))
		})
	}
}

func TestValidateResolved_BadEnums(t *testing.T) {
	base := func() *Resolved {
		return &Resolved{
			URL:         "https://example.jamfcloud.com",
			Username:    "svc-dep",
			DeviceClass: ClassComputer,
			Run:         RunConfig{Policy: PolicyAppend, Granularity: GranularityBulk},
		}
	}

	r := base()
	r.DeviceClass = "tablet"
	assert.ErrorContains(t, ValidateResolved(r), "device_class")

	r = base()
	r.Run.Policy = "merge"
	assert.ErrorContains(t, ValidateResolved(r), "policy")

	r = base()
	r.Run.Granularity = "chunked"
	assert.ErrorContains(t, ValidateResolved(r), "granularity")
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/alt.toml")
	t.Setenv(EnvURL, "https://env.jamfcloud.com")
	t.Setenv(EnvUsername, "env-user")

	env := ReadEnvOverrides()
	assert.Equal(t, "/tmp/alt.toml", env.ConfigPath)
	assert.Equal(t, "https://env.jamfcloud.com", env.URL)
	assert.Equal(t, "env-user", env.Username)
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	assert.Equal(t, filepath.Join("/tmp/xdg", "prestage-go", "config.toml"), DefaultConfigPath())
}
