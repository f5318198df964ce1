package reconcile

import (
	"errors"
	"sort"
	"strconv"
)

// ErrSameTargetDefault is returned when exact mode is configured with
// the same target and default prestage. Reported before any write.
var ErrSameTargetDefault = errors.New("reconcile: target and default prestages must differ in exact mode")

// Operation is one transfer: remove Serials from the From prestage,
// then add them to the To prestage. An empty From means the devices are
// currently unassigned; an empty To means unassign them. Operations are
// the unit of execution and of retry.
type Operation struct {
	From    string
	To      string
	Serials []string
}

// PlanInput carries everything the planner needs. Desired must already
// be normalized (NormalizeSerials); TargetID and DefaultID must be ""
// or ids present in the catalog.
type PlanInput struct {
	Desired     []string
	Assignments map[string]string
	TargetID    string
	DefaultID   string
	Policy      Policy
	Granularity Granularity
}

// Plan is the ordered operation list plus the counts the planner
// settled without emitting operations.
type Plan struct {
	Ops []Operation

	// ToMove is the number of distinct devices the operations touch.
	ToMove int

	// AlreadyCorrect is the number of desired devices already placed as
	// requested (in the target prestage, or unassigned when the target
	// is the unassign sentinel).
	AlreadyCorrect int
}

// Build partitions the desired set against the assignment snapshot and
// emits the minimal operation list. Removals always precede additions
// for any device, so a device never transiently belongs to two
// prestages. Running Build twice against an unchanged snapshot after a
// successful run yields an empty operation list.
func Build(in PlanInput) (*Plan, error) {
	if in.Policy == PolicyExact && in.TargetID == in.DefaultID {
		return nil, ErrSameTargetDefault
	}

	plan := &Plan{}

	// Partition desired devices by their current source prestage. The
	// empty key collects currently unassigned devices.
	bySource := make(map[string][]string)

	for _, serial := range in.Desired {
		current, scoped := in.Assignments[serial]

		switch {
		case !scoped && in.TargetID == "":
			// Unassign requested, already unassigned.
			plan.AlreadyCorrect++
		case !scoped:
			bySource[""] = append(bySource[""], serial)
		case current == in.TargetID:
			plan.AlreadyCorrect++
		default:
			bySource[current] = append(bySource[current], serial)
		}
	}

	for _, source := range sourceOrder(bySource) {
		serials := bySource[source]

		// Unassigned devices with an unassign target never reach here;
		// they were counted as already correct above.
		plan.appendOps(in.Granularity, Operation{
			From:    source,
			To:      in.TargetID,
			Serials: serials,
		})
	}

	// Exact mode: every device currently in the target but absent from
	// the desired set moves to the default prestage. Desired membership
	// is authoritative — a desired device is never emitted here, by
	// construction (it was already partitioned above).
	if in.Policy == PolicyExact && in.TargetID != "" {
		desired := make(map[string]bool, len(in.Desired))
		for _, serial := range in.Desired {
			desired[serial] = true
		}

		var extras []string

		for serial, current := range in.Assignments {
			if current == in.TargetID && !desired[serial] {
				extras = append(extras, serial)
			}
		}

		sort.Strings(extras)

		if len(extras) > 0 {
			plan.appendOps(in.Granularity, Operation{
				From:    in.TargetID,
				To:      in.DefaultID,
				Serials: extras,
			})
		}
	}

	return plan, nil
}

// appendOps adds the operation to the plan, splitting it per device in
// granular mode so one bad device cannot block the rest.
func (p *Plan) appendOps(g Granularity, op Operation) {
	p.ToMove += len(op.Serials)

	if g == Bulk {
		p.Ops = append(p.Ops, op)
		return
	}

	for _, serial := range op.Serials {
		p.Ops = append(p.Ops, Operation{
			From:    op.From,
			To:      op.To,
			Serials: []string{serial},
		})
	}
}

// sourceOrder returns the source prestage ids in deterministic order:
// the unassigned bucket first, then ids sorted numerically where
// possible.
func sourceOrder(bySource map[string][]string) []string {
	keys := make([]string, 0, len(bySource))
	for k := range bySource {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "" || keys[j] == "" {
			return keys[i] == ""
		}

		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])

		if errI == nil && errJ == nil {
			return ni < nj
		}

		return keys[i] < keys[j]
	})

	return keys
}
