// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"github.com/juju/errors"
)

// Phase values specify the steps of a machine migration.
type Phase int

// Enumerate all possible migration phases.
const (
	UNKNOWN Phase = iota
	INIT
	AWAIT_POWEROFF
	CONVERTING
	PROVISIONING_IP
	PROVISIONING_NIC
	PROVISIONING_VM
	COMPLETED
	FAILED
)

var phaseNames = []string{
	"unknown",
	"init",
	"await-poweroff",
	"converting",
	"provisioning-ip",
	"provisioning-nic",
	"provisioning-vm",
	"completed",
	"failed",
}

// String returns the name of a migration phase constant.
func (p Phase) String() string {
	i := int(p)
	if i >= 0 && i < len(phaseNames) {
		return phaseNames[i]
	}
	return "unknown"
}

// CanTransitionTo returns true if the given phase is a valid next
// migration phase.
func (p Phase) CanTransitionTo(targetPhase Phase) bool {
	nextPhases, exists := validTransitions[p]
	if !exists {
		return false
	}
	for _, nextPhase := range nextPhases {
		if nextPhase == targetPhase {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the phase is one which signifies the end
// of a migration attempt.
func (p Phase) IsTerminal() bool {
	for _, t := range terminalPhases {
		if p == t {
			return true
		}
	}
	return false
}

// MarshalText is part of the encoding.TextMarshaler interface.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText is part of the encoding.TextUnmarshaler interface.
func (p *Phase) UnmarshalText(text []byte) error {
	phase, ok := ParsePhase(string(text))
	if !ok {
		return errors.NotValidf("migration phase %q", string(text))
	}
	*p = phase
	return nil
}

// Using a map for validTransitions rather than a switch makes the
// valid transitions easy to enumerate in tests.
var validTransitions = map[Phase][]Phase{
	INIT:             {AWAIT_POWEROFF, FAILED},
	AWAIT_POWEROFF:   {CONVERTING, FAILED},
	CONVERTING:       {PROVISIONING_IP, FAILED},
	PROVISIONING_IP:  {PROVISIONING_NIC, FAILED},
	PROVISIONING_NIC: {PROVISIONING_VM, FAILED},
	PROVISIONING_VM:  {COMPLETED, FAILED},
}

var terminalPhases []Phase

func init() {
	// Compute the terminal phases.
	for p := 0; p < len(phaseNames); p++ {
		phase := Phase(p)
		if phase == UNKNOWN {
			continue
		}
		if _, exists := validTransitions[phase]; !exists {
			terminalPhases = append(terminalPhases, phase)
		}
	}
}

// ParsePhase converts a string migration phase name to its constant
// value.
func ParsePhase(target string) (Phase, bool) {
	for p, name := range phaseNames {
		if target == name {
			return Phase(p), true
		}
	}
	return UNKNOWN, false
}
