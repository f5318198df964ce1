package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mdmtools/prestage-go/internal/reconcile"
)

// reportJSON is the machine-readable shape of the end-of-run report.
type reportJSON struct {
	Target         string      `json:"target,omitempty"`
	Moved          int         `json:"moved"`
	AlreadyCorrect int         `json:"alreadyCorrect"`
	Failed         int         `json:"failed"`
	Errors         []errorJSON `json:"errors,omitempty"`
}

type errorJSON struct {
	Serial      string `json:"serial"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// printReport writes the end-of-run report: final counts plus every
// ledger record. The engine never prints; this is the only place the
// outcome reaches the user.
func printReport(w io.Writer, result *reconcile.Result, asJSON bool) {
	if asJSON {
		rep := reportJSON{
			Target:         result.TargetName,
			Moved:          result.Moved,
			AlreadyCorrect: result.AlreadyCorrect,
			Failed:         result.Failed,
		}

		for _, rec := range result.Errors {
			rep.Errors = append(rep.Errors, errorJSON{
				Serial:      rec.Serial,
				Code:        rec.Code,
				Description: rec.Description,
			})
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)

		return
	}

	if result.TargetID == "" {
		fmt.Fprintf(w, "Unassigned %d devices", result.Moved)
	} else {
		fmt.Fprintf(w, "Moved %d devices to %s", result.Moved, result.TargetName)
	}

	fmt.Fprintf(w, " (%d already correct, %d failed)\n", result.AlreadyCorrect, result.Failed)

	if len(result.Errors) == 0 {
		return
	}

	fmt.Fprintln(w)

	rows := make([][]string, 0, len(result.Errors))
	for _, rec := range result.Errors {
		rows = append(rows, []string{rec.Serial, rec.Code, rec.Description})
	}

	printTable(w, []string{"SERIAL", "CODE", "DETAIL"}, rows)
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}
