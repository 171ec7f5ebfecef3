// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"time"

	"github.com/juju/errors"
)

// Record is the state of a migration attempt as persisted by the caller
// between invocations of the orchestrator. The zero value is a new
// attempt.
type Record struct {
	Phase Phase `yaml:"phase"`

	// PowerOffRequested is when the orchestrator first asked the source
	// machine to power off.
	PowerOffRequested time.Time `yaml:"power-off-requested,omitempty"`

	// PowerOffAttempts counts the power off requests issued.
	PowerOffAttempts int `yaml:"power-off-attempts,omitempty"`

	// IP, NIC and VM hold the cloud resources created so far. They are
	// kept after a failure so an operator can clean them up.
	IP  *ResourceRef `yaml:"ip,omitempty"`
	NIC *ResourceRef `yaml:"nic,omitempty"`
	VM  *ResourceRef `yaml:"vm,omitempty"`

	// Reason is set when the attempt has failed.
	Reason string `yaml:"reason,omitempty"`

	Updated time.Time `yaml:"updated,omitempty"`
}

// Current returns the phase of the record, treating the zero value as
// INIT.
func (r Record) Current() Phase {
	if r.Phase == UNKNOWN {
		return INIT
	}
	return r.Phase
}

// Advance returns a copy of the record moved to the given phase, or an
// error if the transition is not valid.
func (r Record) Advance(to Phase, now time.Time) (Record, error) {
	from := r.Current()
	if !from.CanTransitionTo(to) {
		return r, errors.Errorf("cannot transition migration from %s to %s", from, to)
	}
	r.Phase = to
	r.Updated = now
	return r, nil
}

// Outcome returns the outcome a terminal record represents.
func (r Record) Outcome() (Outcome, bool) {
	switch r.Current() {
	case COMPLETED:
		if r.VM == nil {
			return Failed("completed migration has no machine recorded"), true
		}
		return Completed(r.VM.ID), true
	case FAILED:
		return Failed(r.Reason), true
	}
	return Outcome{}, false
}

// Resources returns the cloud resources recorded so far, in creation
// order.
func (r Record) Resources() []ResourceRef {
	var refs []ResourceRef
	for _, ref := range []*ResourceRef{r.IP, r.NIC, r.VM} {
		if ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs
}
