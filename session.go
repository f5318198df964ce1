package main

import (
	"context"
	"log/slog"

	"github.com/mdmtools/prestage-go/internal/config"
	"github.com/mdmtools/prestage-go/internal/jamf"
	"github.com/mdmtools/prestage-go/internal/reconcile"
)

// APISession bundles the credential session and the API client for one
// authenticated run.
type APISession struct {
	Session *jamf.Session
	Client  *jamf.Client
}

// newAPISession collects the password, acquires a token, and returns a
// ready client. Acquisition failure is fatal — the caller propagates it.
// The caller must invalidate the session on every exit path.
func newAPISession(ctx context.Context, resolved *config.Resolved, logger *slog.Logger) (*APISession, error) {
	password, err := lookupPassword(resolved)
	if err != nil {
		return nil, err
	}

	session := jamf.NewSession(resolved.URL, resolved.Username, password, defaultHTTPClient(), logger)

	if err := session.Acquire(ctx); err != nil {
		return nil, err
	}

	client := jamf.NewClient(resolved.URL, defaultHTTPClient(), session, logger)

	return &APISession{
		Session: session,
		Client:  client,
	}, nil
}

// Invalidate revokes the token, best-effort. Uses a fresh context so
// revocation still goes out after the run context was canceled by an
// interrupt.
func (a *APISession) Invalidate() {
	a.Session.Invalidate(context.Background())
}

// deviceClass maps the config enum to the API path segment.
func deviceClass(resolved *config.Resolved) jamf.DeviceClass {
	if resolved.DeviceClass == config.ClassMobile {
		return jamf.ClassMobileDevice
	}

	return jamf.ClassComputer
}

// parseSelector maps the target/default flag pair to a selector.
// A name always wins over an id; "-1" is the unassign sentinel; "0" or
// blank means the server's configured default prestage.
func parseSelector(name, id string) reconcile.Selector {
	if name != "" {
		return reconcile.SelectByName(name)
	}

	switch id {
	case "-1":
		return reconcile.SelectUnassign()
	case "", "0":
		return reconcile.SelectServiceDefault()
	default:
		return reconcile.SelectByID(id)
	}
}
