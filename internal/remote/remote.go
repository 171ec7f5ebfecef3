// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package remote runs conversion scripts on a remote Windows host and
// captures their output.
package remote

import (
	"context"
	"net"
	"strconv"

	"github.com/juju/errors"

	"github.com/juju/vmmigrate/core/migration"
)

// Logger represents the logging methods called.
type Logger interface {
	Debugf(message string, args ...any)
	Infof(message string, args ...any)
	Warningf(message string, args ...any)
}

func portOf(host migration.ConversionHost, defaultPort int) int {
	if host.Port == 0 {
		return defaultPort
	}
	return host.Port
}

// hostPort returns the dial address of the conversion host.
func hostPort(host migration.ConversionHost, defaultPort int) string {
	return net.JoinHostPort(host.Address, strconv.Itoa(portOf(host, defaultPort)))
}

// transportError tags err as a failure to reach or authenticate with the
// conversion host. Cancellation is passed through untagged.
func transportError(err error, host string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Annotatef(err, "running script on %s", host)
	}
	return migration.WithKind(errors.Annotatef(err, "running script on %s", host), migration.TransportError)
}
