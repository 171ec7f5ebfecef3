// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/mutex/v2"
)

const (
	// defaultLockTimeout is how long a migration waits for another
	// process migrating the same machine.
	defaultLockTimeout = 2 * time.Second

	lockDelay = 100 * time.Millisecond
)

// machineLockName returns the name of the host wide mutex held while a
// machine is being migrated. Mutex names are restricted to lower case
// letters, digits, dots and dashes.
func machineLockName(vmName string) string {
	sum := sha256.Sum256([]byte(vmName))
	return "vmmigrate-" + hex.EncodeToString(sum[:8])
}

// acquireMachineLock stops two processes on the host from driving the
// same migration at once.
func acquireMachineLock(vmName string, clk clock.Clock, timeout time.Duration) (mutex.Releaser, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    machineLockName(vmName),
		Clock:   clk,
		Delay:   lockDelay,
		Timeout: timeout,
	})
	if errors.Is(err, mutex.ErrTimeout) {
		return nil, errors.Errorf("another migration of %q is in progress", vmName)
	} else if err != nil {
		return nil, errors.Annotatef(err, "acquiring lock for %q", vmName)
	}
	return releaser, nil
}
