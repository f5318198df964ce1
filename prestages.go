package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mdmtools/prestage-go/internal/reconcile"
)

func newPrestagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prestages",
		Short: "List prestages and their ids",
		Args:  cobra.NoArgs,
		RunE:  runPrestages,
	}
}

func runPrestages(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	ctx := shutdownContext(cmd.Context(), logger)

	api, err := newAPISession(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer api.Invalidate()

	prestages, err := api.Client.Prestages(ctx, deviceClass(resolvedCfg))
	if err != nil {
		return err
	}

	if flagJSON {
		type entry struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
			Default     bool   `json:"default"`
		}

		out := make([]entry, 0, len(prestages))
		for _, p := range prestages {
			out = append(out, entry{ID: p.ID, DisplayName: p.DisplayName, Default: p.Default})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	catalog := reconcile.NewCatalog(prestages)

	rows := make([][]string, 0, len(prestages))
	for _, p := range prestages {
		def := ""
		if p.ID == catalog.DefaultID() {
			def = "*"
		}

		rows = append(rows, []string{p.ID, p.DisplayName, def})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "DEFAULT"}, rows)

	return nil
}
