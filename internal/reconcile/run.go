package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mdmtools/prestage-go/internal/jamf"
)

// RunConfig is the validated configuration for one reconciliation run.
// Construction-time validation replaces the original's interactive
// prompt fallbacks: a missing required field is an error here, never a
// runtime prompt.
type RunConfig struct {
	Class       jamf.DeviceClass
	Target      Selector
	Default     Selector // exact mode only
	Policy      Policy
	Granularity Granularity
}

// Result is the outcome handed to the reporting boundary.
type Result struct {
	// TargetID is "" when the run unassigned devices.
	TargetID   string
	TargetName string

	Planned        int
	Moved          int
	AlreadyCorrect int
	Failed         int

	Errors []Record
}

// Run executes one reconciliation batch end to end: fetch catalog and
// assignments, resolve selectors, plan, execute. Operations stop as
// soon as ctx is canceled; the caller is responsible for invalidating
// the credential session on every exit path.
func Run(ctx context.Context, client *jamf.Client, cfg RunConfig, rawSerials []string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Identical selectors in exact mode cannot resolve to different
	// prestages; fail before touching the network at all.
	if cfg.Policy == PolicyExact && cfg.Target == cfg.Default {
		return nil, ErrSameTargetDefault
	}

	// An empty desired set is legal: in exact mode it empties the
	// target prestage into the default.
	desired := NormalizeSerials(rawSerials)

	prestages, err := client.Prestages(ctx, cfg.Class)
	if err != nil {
		return nil, fmt.Errorf("reconcile: fetching prestage catalog: %w", err)
	}

	catalog := NewCatalog(prestages)

	targetID, err := catalog.Resolve(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("reconcile: resolving target prestage: %w", err)
	}

	var defaultID string

	if cfg.Policy == PolicyExact {
		defaultID, err = catalog.Resolve(cfg.Default)
		if err != nil {
			return nil, fmt.Errorf("reconcile: resolving default prestage: %w", err)
		}

		if targetID == defaultID {
			return nil, ErrSameTargetDefault
		}
	}

	assignments, err := client.Assignments(ctx, cfg.Class)
	if err != nil {
		return nil, fmt.Errorf("reconcile: fetching scope assignments: %w", err)
	}

	plan, err := Build(PlanInput{
		Desired:     desired,
		Assignments: assignments,
		TargetID:    targetID,
		DefaultID:   defaultID,
		Policy:      cfg.Policy,
		Granularity: cfg.Granularity,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("reconciliation planned",
		slog.String("policy", cfg.Policy.String()),
		slog.String("granularity", cfg.Granularity.String()),
		slog.String("target", catalog.Name(targetID)),
		slog.Int("desired", len(desired)),
		slog.Int("already_correct", plan.AlreadyCorrect),
		slog.Int("to_move", plan.ToMove),
		slog.Int("operations", len(plan.Ops)),
	)

	ledger := NewLedger()
	exec := NewExecutor(client, cfg.Class, ledger, logger)

	result := &Result{
		TargetID:       targetID,
		TargetName:     catalog.Name(targetID),
		Planned:        plan.ToMove,
		AlreadyCorrect: plan.AlreadyCorrect,
	}

	for _, op := range plan.Ops {
		if ctx.Err() != nil {
			result.Failed = ledger.Len()
			result.Errors = ledger.Records()

			return result, fmt.Errorf("reconcile: run canceled: %w", ctx.Err())
		}

		logOperation(logger, catalog, op)

		moved, err := exec.Execute(ctx, op)
		if err != nil {
			result.Failed = ledger.Len()
			result.Errors = ledger.Records()

			return result, err
		}

		result.Moved += len(moved)
	}

	result.Failed = ledger.Len()
	result.Errors = ledger.Records()

	logger.Info("reconciliation complete",
		slog.Int("moved", result.Moved),
		slog.Int("already_correct", result.AlreadyCorrect),
		slog.Int("failed", result.Failed),
	)

	return result, nil
}

// logOperation announces an operation the way the original announced
// each move, with display names resolved from the catalog.
func logOperation(logger *slog.Logger, catalog *Catalog, op Operation) {
	switch {
	case op.From == "":
		logger.Info("assigning unscoped devices",
			slog.Int("devices", len(op.Serials)),
			slog.String("to", catalog.Name(op.To)),
		)
	case op.To == "":
		logger.Info("unassigning devices",
			slog.Int("devices", len(op.Serials)),
			slog.String("from", catalog.Name(op.From)),
		)
	default:
		logger.Info("moving devices",
			slog.Int("devices", len(op.Serials)),
			slog.String("from", catalog.Name(op.From)),
			slog.String("to", catalog.Name(op.To)),
		)
	}
}
