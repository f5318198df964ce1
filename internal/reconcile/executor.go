package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mdmtools/prestage-go/internal/jamf"
)

// writeAttempts is the total number of tries for one scope write.
// Credential refreshes do not consume an attempt, but are bounded
// separately so a token the server keeps rejecting cannot livelock the
// loop.
const writeAttempts = 3

// transferFailedCode is the ledger code for devices abandoned after the
// retry ceiling with no recognizable failure shape.
const transferFailedCode = "TRANSFER_FAILED"

// Executor performs transfer operations against the API. A fresh
// version lock is fetched for every write, including retries, because
// each write to a prestage invalidates the lock observed before it.
type Executor struct {
	client *jamf.Client
	class  jamf.DeviceClass
	ledger *Ledger
	logger *slog.Logger
}

// NewExecutor wires an executor to a client, device class, and ledger.
func NewExecutor(client *jamf.Client, class jamf.DeviceClass, ledger *Ledger, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		client: client,
		class:  class,
		ledger: ledger,
		logger: logger,
	}
}

// Execute performs one transfer operation: a removal write against the
// source prestage, then an addition write against the destination.
// Returns the serials that made it through every phase — the devices
// actually moved. Per-device failures are recorded in the ledger and do
// not produce an error; only unrecoverable conditions (context
// cancellation, lock or credential exhaustion) do.
func (e *Executor) Execute(ctx context.Context, op Operation) ([]string, error) {
	serials := slices.Clone(op.Serials)

	if op.From != "" {
		var err error

		serials, err = e.write(ctx, op.From, serials, true)
		if err != nil {
			return nil, err
		}
	}

	if op.To != "" && len(serials) > 0 {
		var err error

		serials, err = e.write(ctx, op.To, serials, false)
		if err != nil {
			return nil, err
		}
	}

	return serials, nil
}

// write issues one version-locked scope write with a bounded retry
// loop. Attempt count and the shrinking serial list are loop state, not
// call-stack state. Returns the serials the server accepted; serials it
// rejected are stripped and recorded. A nil error with an empty result
// means the write was abandoned non-fatally.
func (e *Executor) write(ctx context.Context, prestageID string, serials []string, remove bool) ([]string, error) {
	attempt := 0
	refreshes := 0

	for len(serials) > 0 {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("reconcile: transfer canceled: %w", ctx.Err())
		}

		// The lock is single-use and consumed by our own previous write
		// to this prestage, so it must be refetched on every attempt.
		lock, err := e.client.Lock(ctx, e.class, prestageID)
		if err != nil {
			return nil, err
		}

		if remove {
			err = e.client.RemoveFromScope(ctx, e.class, prestageID, serials, lock)
		} else {
			err = e.client.AddToScope(ctx, e.class, prestageID, serials, lock)
		}

		if err == nil {
			return serials, nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("reconcile: transfer canceled: %w", ctx.Err())
		}

		// A rejected credential is re-acquired and the same attempt is
		// retried; failure to re-acquire is fatal for the whole run.
		if jamf.IsInvalidToken(err) && refreshes < writeAttempts {
			refreshes++

			e.logger.Warn("scope write rejected token, refreshing session",
				slog.String("prestage_id", prestageID),
			)

			if refreshErr := e.client.RefreshToken(ctx); refreshErr != nil {
				return nil, refreshErr
			}

			continue
		}

		if bad := jamf.InvalidSerials(err); len(bad) > 0 {
			serials = e.stripRejected(serials, bad)

			if len(serials) == 0 {
				// Every serial was rejected; nothing left to write.
				return nil, nil
			}

			e.logger.Info("removed rejected serials, retrying write",
				slog.String("prestage_id", prestageID),
				slog.Int("rejected", len(bad)),
				slog.Int("remaining", len(serials)),
			)
		} else {
			e.logger.Warn("scope write failed",
				slog.String("prestage_id", prestageID),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
		}

		attempt++
		if attempt >= writeAttempts {
			e.abandon(prestageID, serials, err)
			return nil, nil
		}
	}

	return serials, nil
}

// stripRejected drops the serials the server rejected and records each
// one in the ledger.
func (e *Executor) stripRejected(serials []string, rejected []jamf.FieldError) []string {
	for _, fe := range rejected {
		e.ledger.Append(Record{
			Serial:      fe.Description,
			Code:        fe.Code,
			Description: fmt.Sprintf("serial rejected by server validation (field %s)", fe.Field),
		})

		serials = slices.DeleteFunc(serials, func(s string) bool {
			return s == fe.Description
		})
	}

	return serials
}

// abandon records every remaining serial after the retry ceiling and
// lets the run continue. Reported, non-fatal.
func (e *Executor) abandon(prestageID string, serials []string, err error) {
	e.logger.Error("abandoning scope write after retries",
		slog.String("prestage_id", prestageID),
		slog.Int("devices", len(serials)),
		slog.String("error", err.Error()),
	)

	for _, serial := range serials {
		e.ledger.Append(Record{
			Serial:      serial,
			Code:        transferFailedCode,
			Description: err.Error(),
		})
	}
}
