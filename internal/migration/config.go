// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	coremigration "github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/provider/azure"
)

const (
	// DefaultPowerOffRetryInterval is how long the caller is asked to
	// wait before checking again whether the source machine is off.
	DefaultPowerOffRetryInterval = 30 * time.Second

	// DefaultPowerOffTimeout bounds the power off wait, measured from
	// the first power off request.
	DefaultPowerOffTimeout = 15 * time.Minute
)

// Logger represents the logging methods called.
type Logger interface {
	Debugf(message string, args ...any)
	Infof(message string, args ...any)
	Warningf(message string, args ...any)
	Errorf(message string, args ...any)
}

// SourceMachine controls the power state of machines on the source
// hypervisor.
type SourceMachine interface {
	// PowerState returns the current power state of the named machine.
	PowerState(ctx context.Context, name string) (coremigration.PowerState, error)

	// PowerOff asks the named machine to power off. Repeating the
	// request while the machine is shutting down is a no-op.
	PowerOff(ctx context.Context, name string) error

	// Refresh asks the source hypervisor to re-read the state of the
	// named machine.
	Refresh(ctx context.Context, name string) error
}

// ScriptBuilder renders the conversion script for a request.
type ScriptBuilder interface {
	Build(req coremigration.Request) (string, error)
}

// ScriptRunner runs a script on the conversion host.
type ScriptRunner interface {
	Run(ctx context.Context, host coremigration.ConversionHost, script string) (coremigration.ConversionResult, error)
}

// Provisioner creates the cloud resources of a migrated machine.
type Provisioner interface {
	CreatePublicIP(ctx context.Context, params azure.PublicIPParams) (coremigration.ResourceRef, error)
	CreateNetworkInterface(ctx context.Context, params azure.NetworkInterfaceParams) (coremigration.ResourceRef, error)
	CreateVirtualMachine(ctx context.Context, params azure.VirtualMachineParams) (coremigration.ResourceRef, error)
}

// Config holds the collaborators and policy of a Migrator.
type Config struct {
	Source      SourceMachine
	Builder     ScriptBuilder
	Runner      ScriptRunner
	Provisioner Provisioner
	Clock       clock.Clock
	Logger      Logger

	// PowerOffRetryInterval is the delay returned with a pending
	// outcome while the source machine is still running.
	PowerOffRetryInterval time.Duration

	// PowerOffTimeout is how long the source machine is given to power
	// off before the attempt fails.
	PowerOffTimeout time.Duration
}

// Validate returns an error if the config cannot drive a Migrator.
func (config Config) Validate() error {
	if config.Source == nil {
		return errors.NotValidf("nil Source")
	}
	if config.Builder == nil {
		return errors.NotValidf("nil Builder")
	}
	if config.Runner == nil {
		return errors.NotValidf("nil Runner")
	}
	if config.Provisioner == nil {
		return errors.NotValidf("nil Provisioner")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.PowerOffRetryInterval <= 0 {
		return errors.NotValidf("non-positive PowerOffRetryInterval")
	}
	if config.PowerOffTimeout <= 0 {
		return errors.NotValidf("non-positive PowerOffTimeout")
	}
	return nil
}

func (config Config) withDefaults() Config {
	if config.PowerOffRetryInterval == 0 {
		config.PowerOffRetryInterval = DefaultPowerOffRetryInterval
	}
	if config.PowerOffTimeout == 0 {
		config.PowerOffTimeout = DefaultPowerOffTimeout
	}
	return config
}
