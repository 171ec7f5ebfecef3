// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"fmt"
	"time"
)

// OutcomeStatus tells the caller of the orchestrator what to do next.
type OutcomeStatus string

const (
	// OutcomeCompleted means the machine exists in the target cloud.
	OutcomeCompleted OutcomeStatus = "completed"

	// OutcomeFailed means the attempt has stopped and must not be
	// re-invoked.
	OutcomeFailed OutcomeStatus = "failed"

	// OutcomePending means the orchestrator should be invoked again
	// after RetryAfter has elapsed.
	OutcomePending OutcomeStatus = "pending"
)

// Outcome is the result of a single invocation of the orchestrator.
type Outcome struct {
	Status     OutcomeStatus `yaml:"status" json:"status"`
	VMID       string        `yaml:"vm-id,omitempty" json:"vm-id,omitempty"`
	Reason     string        `yaml:"reason,omitempty" json:"reason,omitempty"`
	RetryAfter time.Duration `yaml:"retry-after,omitempty" json:"retry-after,omitempty"`
}

// Completed returns an outcome for a finished migration.
func Completed(vmID string) Outcome {
	return Outcome{Status: OutcomeCompleted, VMID: vmID}
}

// Failed returns an outcome for an attempt that stopped with the given
// reason.
func Failed(reason string) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: reason}
}

// Pending returns an outcome asking to be invoked again after the given
// delay.
func Pending(retryAfter time.Duration) Outcome {
	return Outcome{Status: OutcomePending, RetryAfter: retryAfter}
}

// String is part of the fmt.Stringer interface.
func (o Outcome) String() string {
	switch o.Status {
	case OutcomeCompleted:
		return fmt.Sprintf("completed (%s)", o.VMID)
	case OutcomeFailed:
		return fmt.Sprintf("failed: %s", o.Reason)
	case OutcomePending:
		return fmt.Sprintf("pending, retry after %s", o.RetryAfter)
	}
	return string(o.Status)
}
