package jamf

import (
	"context"
	"fmt"
	"log/slog"
)

// DeviceClass selects which prestage family a run operates on. The two
// families expose identical scope endpoints under different paths.
type DeviceClass string

const (
	ClassComputer     DeviceClass = "computer-prestages"
	ClassMobileDevice DeviceClass = "mobile-device-prestages"
)

// apiPath returns the versioned base path for this device class.
func (dc DeviceClass) apiPath() string {
	return "/api/v2/" + string(dc)
}

// catalogPageSize is the server-imposed page-size cap for the prestage
// list endpoint.
const catalogPageSize = 200

// lockAttempts is the total number of version-lock fetches before
// giving up. Exhausting them is fatal — no write can proceed without a
// fresh lock.
const lockAttempts = 3

// Prestage is one enrollment group from the catalog.
type Prestage struct {
	ID          string
	DisplayName string
	Default     bool
}

// prestageResponse mirrors one entry of the prestage list JSON response.
// Unexported — callers get Prestage via toPrestage() normalization.
type prestageResponse struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	DefaultPrestage bool   `json:"defaultPrestage"`
}

func (p *prestageResponse) toPrestage() Prestage {
	return Prestage{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Default:     p.DefaultPrestage,
	}
}

// prestageListResponse wraps the results array from the prestage list
// endpoint.
type prestageListResponse struct {
	TotalCount int                `json:"totalCount"`
	Results    []prestageResponse `json:"results"`
}

// assignmentsResponse mirrors the all-scopes JSON response.
type assignmentsResponse struct {
	SerialsByPrestageID map[string]string `json:"serialsByPrestageId"`
}

// scopeResponse mirrors a single prestage's scope JSON response. Only
// the version lock matters here; the assignment list is redundant with
// the all-scopes endpoint.
type scopeResponse struct {
	PrestageID  string `json:"prestageId"`
	VersionLock int64  `json:"versionLock"`
}

// scopeRequest is the write payload for both the add and the
// bulk-remove scope endpoints.
type scopeRequest struct {
	SerialNumbers []string `json:"serialNumbers"`
	VersionLock   int64    `json:"versionLock"`
}

// Assignments returns the current serial → prestage-id mapping for the
// whole device class. A single call; a malformed response is an error
// the caller must treat as fatal, since every planning decision depends
// on this snapshot.
func (c *Client) Assignments(ctx context.Context, class DeviceClass) (map[string]string, error) {
	c.logger.Info("fetching scope assignments",
		slog.String("class", string(class)),
	)

	var ar assignmentsResponse
	if err := c.getJSON(ctx, class.apiPath()+"/scope", &ar); err != nil {
		return nil, err
	}

	if ar.SerialsByPrestageID == nil {
		return nil, fmt.Errorf("jamf: scope response missing serialsByPrestageId")
	}

	c.logger.Info("fetched scope assignments",
		slog.Int("scoped_devices", len(ar.SerialsByPrestageID)),
	)

	return ar.SerialsByPrestageID, nil
}

// Prestages returns the prestage catalog for the device class, sorted
// by display name server-side. The page-size cap of 200 is a hard
// server limit.
func (c *Client) Prestages(ctx context.Context, class DeviceClass) ([]Prestage, error) {
	c.logger.Info("fetching prestage catalog",
		slog.String("class", string(class)),
	)

	path := fmt.Sprintf("%s?page-size=%d&sort=displayName%%3Aasc", class.apiPath(), catalogPageSize)

	var lr prestageListResponse
	if err := c.getJSON(ctx, path, &lr); err != nil {
		return nil, err
	}

	prestages := make([]Prestage, 0, len(lr.Results))
	for i := range lr.Results {
		prestages = append(prestages, lr.Results[i].toPrestage())
	}

	c.logger.Info("fetched prestage catalog",
		slog.Int("count", len(prestages)),
	)

	return prestages, nil
}

// Lock fetches the version lock for one prestage's membership list.
// The lock is single-use: it must be fetched immediately before each
// write, because any intervening write to the same prestage (including
// our own) invalidates it. Invalid-token failures trigger a session
// refresh; other failures are retried up to lockAttempts total.
func (c *Client) Lock(ctx context.Context, class DeviceClass, prestageID string) (int64, error) {
	var lastErr error

	for attempt := 0; attempt < lockAttempts; attempt++ {
		var sr scopeResponse

		err := c.getJSON(ctx, fmt.Sprintf("%s/%s/scope", class.apiPath(), prestageID), &sr)
		if err == nil {
			return sr.VersionLock, nil
		}

		if ctx.Err() != nil {
			return 0, err
		}

		lastErr = err

		if IsInvalidToken(err) {
			c.logger.Warn("version lock fetch rejected token, refreshing session",
				slog.String("prestage_id", prestageID),
			)

			if refreshErr := c.token.Refresh(ctx); refreshErr != nil {
				return 0, fmt.Errorf("jamf: refreshing token for lock fetch: %w", refreshErr)
			}

			continue
		}

		c.logger.Warn("version lock fetch failed, retrying",
			slog.String("prestage_id", prestageID),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	return 0, fmt.Errorf("jamf: fetching version lock for prestage %s after %d attempts: %w",
		prestageID, lockAttempts, lastErr)
}

// AddToScope assigns serials to the prestage. The version lock must
// have been fetched after the last write to this prestage.
func (c *Client) AddToScope(ctx context.Context, class DeviceClass, prestageID string, serials []string, lock int64) error {
	c.logger.Debug("adding devices to prestage scope",
		slog.String("prestage_id", prestageID),
		slog.Int("count", len(serials)),
	)

	path := fmt.Sprintf("%s/%s/scope", class.apiPath(), prestageID)

	return c.postJSON(ctx, path, scopeRequest{
		SerialNumbers: serials,
		VersionLock:   lock,
	})
}

// RemoveFromScope unassigns serials from the prestage. Same version
// lock contract as AddToScope.
func (c *Client) RemoveFromScope(ctx context.Context, class DeviceClass, prestageID string, serials []string, lock int64) error {
	c.logger.Debug("removing devices from prestage scope",
		slog.String("prestage_id", prestageID),
		slog.Int("count", len(serials)),
	)

	path := fmt.Sprintf("%s/%s/scope/delete-multiple", class.apiPath(), prestageID)

	return c.postJSON(ctx, path, scopeRequest{
		SerialNumbers: serials,
		VersionLock:   lock,
	})
}
