// Package reconcile implements the prestage reassignment engine: it
// normalizes the desired device list, diffs it against the live scope
// assignments, and executes the resulting transfer operations with
// version-locked writes and bounded retry.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/mdmtools/prestage-go/internal/jamf"
)

// Policy selects how the desired set is applied to the target prestage.
type Policy int

const (
	// PolicyAppend adds desired devices to the target prestage and
	// leaves everything else alone.
	PolicyAppend Policy = iota

	// PolicyExact makes the target prestage's membership equal to the
	// desired set, moving extra devices to the default prestage.
	PolicyExact
)

func (p Policy) String() string {
	switch p {
	case PolicyAppend:
		return "append"
	case PolicyExact:
		return "exact"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Granularity selects how transfer operations are batched.
type Granularity int

const (
	// Bulk merges devices sharing a source prestage into one
	// multi-device operation per source, minimizing write calls.
	Bulk Granularity = iota

	// Granular keeps one operation per device, so a failing device
	// cannot block any other.
	Granular
)

func (g Granularity) String() string {
	switch g {
	case Bulk:
		return "bulk"
	case Granular:
		return "granular"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// NormalizeSerial uppercases a raw serial and strips every
// non-alphanumeric character. Scrubs the junk that laser scanners and
// spreadsheet exports introduce. Returns "" when nothing survives.
func NormalizeSerial(raw string) string {
	var b strings.Builder

	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// NormalizeSerials normalizes a raw identifier list, dropping empties
// and collapsing duplicates while preserving first-occurrence order.
func NormalizeSerials(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))

	for _, r := range raw {
		serial := NormalizeSerial(r)
		if serial == "" || seen[serial] {
			continue
		}

		seen[serial] = true

		out = append(out, serial)
	}

	return out
}

// selectorKind tags the Selector variants.
type selectorKind int

const (
	selectorID selectorKind = iota
	selectorName
	selectorUnassign
	selectorServiceDefault
)

// Selector identifies a prestage by explicit id, by display name, as
// "leave unassigned", or as "whatever the server flags as default".
// Replaces the original string sentinels ("-1", "0", blank).
type Selector struct {
	kind  selectorKind
	value string
}

// SelectByID selects a prestage by its server id.
func SelectByID(id string) Selector {
	return Selector{kind: selectorID, value: id}
}

// SelectByName selects a prestage by display name, matched
// case-insensitively against the catalog.
func SelectByName(name string) Selector {
	return Selector{kind: selectorName, value: name}
}

// SelectUnassign selects no prestage: devices are removed from their
// current prestage and left unassigned.
func SelectUnassign() Selector {
	return Selector{kind: selectorUnassign}
}

// SelectServiceDefault selects the prestage the server flags as its
// default. Resolution fails if the server has none.
func SelectServiceDefault() Selector {
	return Selector{kind: selectorServiceDefault}
}

// IsUnassign reports whether the selector is the unassign sentinel.
func (s Selector) IsUnassign() bool {
	return s.kind == selectorUnassign
}

func (s Selector) String() string {
	switch s.kind {
	case selectorID:
		return "id " + s.value
	case selectorName:
		return fmt.Sprintf("name %q", s.value)
	case selectorUnassign:
		return "unassign"
	case selectorServiceDefault:
		return "service default"
	default:
		return "invalid selector"
	}
}

// Catalog is the prestage catalog read once per run, indexed for
// selector resolution. Treated as immutable for the run's duration.
type Catalog struct {
	prestages []jamf.Prestage
	names     map[string]string
	defaultID string
}

// NewCatalog indexes the prestage list returned by the API.
func NewCatalog(prestages []jamf.Prestage) *Catalog {
	c := &Catalog{
		prestages: prestages,
		names:     make(map[string]string, len(prestages)),
	}

	for _, p := range prestages {
		c.names[p.ID] = p.DisplayName
		if p.Default {
			c.defaultID = p.ID
		}
	}

	return c
}

// Prestages returns the catalog entries in server (display name) order.
func (c *Catalog) Prestages() []jamf.Prestage {
	out := make([]jamf.Prestage, len(c.prestages))
	copy(out, c.prestages)

	return out
}

// Contains reports whether id is a known prestage id.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.names[id]
	return ok
}

// Name returns the display name for a prestage id, or the id itself
// when unknown (keeps log lines usable for stale snapshots).
func (c *Catalog) Name(id string) string {
	if name, ok := c.names[id]; ok {
		return name
	}

	return id
}

// DefaultID returns the id of the server-flagged default prestage, or
// "" when none is flagged.
func (c *Catalog) DefaultID() string {
	return c.defaultID
}

// Resolve maps a selector to a prestage id. The unassign sentinel
// resolves to "", which planner and executor treat as "no prestage".
func (c *Catalog) Resolve(sel Selector) (string, error) {
	switch sel.kind {
	case selectorUnassign:
		return "", nil
	case selectorID:
		if !c.Contains(sel.value) {
			return "", fmt.Errorf("reconcile: no prestage with id %s", sel.value)
		}

		return sel.value, nil
	case selectorName:
		for _, p := range c.prestages {
			if strings.EqualFold(p.DisplayName, sel.value) {
				return p.ID, nil
			}
		}

		return "", fmt.Errorf("reconcile: no prestage named %q", sel.value)
	case selectorServiceDefault:
		if c.defaultID == "" {
			return "", fmt.Errorf("reconcile: server has no default prestage flagged")
		}

		return c.defaultID, nil
	default:
		return "", fmt.Errorf("reconcile: invalid selector")
	}
}
