package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mdmtools/prestage-go/internal/config"
	"github.com/mdmtools/prestage-go/internal/reconcile"
)

// errPartialFailure signals that the run completed but some devices
// could not be moved. main() maps it to exit code 1 without the error
// banner — the report already told the user everything.
var errPartialFailure = errors.New("some devices could not be moved")

func newMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move devices from a CSV into a target prestage",
		Long: `Move devices from a headerless CSV of serial numbers into a target
prestage.

Append mode adds the listed devices to the target and leaves everything
else alone. Exact mode additionally moves devices that are in the target
but not in the CSV out to a default prestage (or unassigns them).

Target and default prestages are selected by --target-id/--default-id or
by name (name wins). Use id "0" or leave it blank for the prestage the
server flags as default, and "-1" to leave devices unassigned.`,
		Args: cobra.NoArgs,
		RunE: runMove,
	}

	cmd.Flags().String("file", "", "headerless CSV of device serials (required)")
	cmd.Flags().String("target-id", "", `target prestage id ("0" = server default, "-1" = unassign)`)
	cmd.Flags().String("target-name", "", "target prestage name (overrides --target-id)")
	cmd.Flags().String("default-id", "", `exact mode: prestage id for extra devices ("-1" = unassign)`)
	cmd.Flags().String("default-name", "", "exact mode: prestage name for extra devices (overrides --default-id)")
	cmd.Flags().Bool("append", false, "append devices to the target prestage")
	cmd.Flags().Bool("exact", false, "make the CSV the target prestage's exact membership")
	cmd.Flags().Bool("bulk", false, "move devices in bulk groups per source prestage")
	cmd.Flags().Bool("granular", false, "move devices one at a time")

	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsMutuallyExclusive("append", "exact")
	cmd.MarkFlagsMutuallyExclusive("bulk", "granular")

	return cmd
}

func runMove(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	file, _ := cmd.Flags().GetString("file")

	serials, err := readSerialList(file)
	if err != nil {
		return err
	}

	runCfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	ctx := shutdownContext(cmd.Context(), logger)

	api, err := newAPISession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer api.Invalidate()

	result, runErr := reconcile.Run(ctx, api.Client, *runCfg, serials, logger)
	if result != nil {
		printReport(os.Stdout, result, flagJSON)
	}

	if runErr != nil {
		return runErr
	}

	if result.Failed > 0 {
		return errPartialFailure
	}

	return nil
}

// buildRunConfig merges move flags with the resolved config defaults
// into a validated engine configuration.
func buildRunConfig(cmd *cobra.Command) (*reconcile.RunConfig, error) {
	policy := reconcile.PolicyAppend
	if resolvedCfg.Run.Policy == config.PolicyExact {
		policy = reconcile.PolicyExact
	}

	if ok, _ := cmd.Flags().GetBool("append"); ok {
		policy = reconcile.PolicyAppend
	}

	if ok, _ := cmd.Flags().GetBool("exact"); ok {
		policy = reconcile.PolicyExact
	}

	granularity := reconcile.Bulk
	if resolvedCfg.Run.Granularity == config.GranularityGranular {
		granularity = reconcile.Granular
	}

	if ok, _ := cmd.Flags().GetBool("bulk"); ok {
		granularity = reconcile.Bulk
	}

	if ok, _ := cmd.Flags().GetBool("granular"); ok {
		granularity = reconcile.Granular
	}

	targetID, _ := cmd.Flags().GetString("target-id")
	targetName, _ := cmd.Flags().GetString("target-name")

	defaultID, _ := cmd.Flags().GetString("default-id")
	defaultName, _ := cmd.Flags().GetString("default-name")

	// Exact-mode default falls back to the config file when no flag
	// names one.
	if defaultID == "" && defaultName == "" {
		defaultID = resolvedCfg.Run.DefaultID
		defaultName = resolvedCfg.Run.DefaultName
	}

	runCfg := &reconcile.RunConfig{
		Class:       deviceClass(resolvedCfg),
		Target:      parseSelector(targetName, targetID),
		Policy:      policy,
		Granularity: granularity,
	}

	if policy == reconcile.PolicyExact {
		runCfg.Default = parseSelector(defaultName, defaultID)

		if runCfg.Target == runCfg.Default {
			return nil, fmt.Errorf("target and default prestages must differ in exact mode")
		}
	}

	return runCfg, nil
}
