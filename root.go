package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdmtools/prestage-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagURL        string
	flagUsername   string
	flagComputer   bool
	flagMobile     bool
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by
// PersistentPreRunE. It is available to all subcommands after the root
// pre-run phase completes.
var resolvedCfg *config.Resolved

// httpClientTimeout is the default timeout for HTTP requests.
// Prevents hung connections from blocking the run indefinitely.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with
// all subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prestage-go",
		Short:   "Jamf prestage device reassignment",
		Long:    "Reassign devices between Jamf Pro prestage enrollments from a CSV of serial numbers.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagURL, "url", "", "Jamf Pro instance URL, e.g. https://yourinstance.jamfcloud.com")
	cmd.PersistentFlags().StringVar(&flagUsername, "username", "", "Jamf Pro login username")
	cmd.PersistentFlags().BoolVar(&flagComputer, "computer", false, "use computer prestages")
	cmd.PersistentFlags().BoolVar(&flagMobile, "mobile", false, "use mobile device prestages")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newMoveCmd())
	cmd.AddCommand(newPrestagesCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override
// chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	if flagComputer && flagMobile {
		return fmt.Errorf("--computer and --mobile are mutually exclusive")
	}

	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Only pass flags to the resolver if the user explicitly set them.
	if cmd.Flags().Changed("url") {
		cli.URL = &flagURL
	}

	if cmd.Flags().Changed("username") {
		cli.Username = &flagUsername
	}

	if flagComputer {
		class := config.ClassComputer
		cli.DeviceClass = &class
	}

	if flagMobile {
		class := config.ClassMobile
		cli.DeviceClass = &class
	}

	env := config.ReadEnvOverrides()

	resolved, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config
// and CLI flags. Config-file log level provides the baseline; --verbose
// and --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
