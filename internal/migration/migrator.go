// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package migration drives a single machine migration from a running
// source machine to a machine in Azure. Each call to Run advances the
// recorded state as far as it can and tells the caller whether to stop
// or to call again later.
package migration

import (
	"context"
	"strings"

	"github.com/im7mortal/kmutex"
	"github.com/juju/errors"

	coremigration "github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/provider/azure"
)

// Migrator is the migration state machine.
type Migrator struct {
	config Config
	locks  *kmutex.Kmutex
}

// NewMigrator returns a Migrator using the given config.
func NewMigrator(config Config) (*Migrator, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Migrator{
		config: config,
		locks:  kmutex.New(),
	}, nil
}

// Run advances the migration of req from the given record. It returns
// the outcome of this invocation and the record the caller must persist
// and pass to the next invocation.
//
// Invocations for the same machine are serialised. A terminal record
// is returned unchanged.
func (m *Migrator) Run(ctx context.Context, req coremigration.Request, record coremigration.Record) (coremigration.Outcome, coremigration.Record) {
	if outcome, ok := record.Outcome(); ok {
		return outcome, record
	}

	m.locks.Lock(req.VMName)
	defer m.locks.Unlock(req.VMName)

	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return m.fail(req, record, errors.Annotate(err, "invalid migration request"))
	}

	for !record.Current().IsTerminal() {
		phase := record.Current()
		if ctx.Err() != nil {
			return m.interrupted(req, record)
		}

		next, pending, err := m.step(ctx, req, record)
		if err != nil {
			// Every phase but the conversion is safe to repeat, so
			// a cancelled call leaves the record resumable.
			if ctx.Err() != nil && phase != coremigration.CONVERTING {
				return m.interrupted(req, next)
			}
			return m.fail(req, next, err)
		}
		record = next
		if pending != nil {
			return *pending, record
		}
		if record.Current() != phase {
			m.config.Logger.Debugf("migration of %q moved from %s to %s", req.VMName, phase, record.Current())
		}
	}

	outcome, _ := record.Outcome()
	m.config.Logger.Infof("migration of %q %s", req.VMName, outcome)
	return outcome, record
}

// step runs the current phase. A non-nil outcome stops the invocation
// without a transition.
func (m *Migrator) step(
	ctx context.Context, req coremigration.Request, record coremigration.Record,
) (coremigration.Record, *coremigration.Outcome, error) {
	switch phase := record.Current(); phase {
	case coremigration.INIT:
		next, err := m.advance(record, coremigration.AWAIT_POWEROFF)
		return next, nil, err
	case coremigration.AWAIT_POWEROFF:
		return m.awaitPowerOff(ctx, req, record)
	case coremigration.CONVERTING:
		next, err := m.convert(ctx, req, record)
		return next, nil, err
	case coremigration.PROVISIONING_IP:
		next, err := m.provisionIP(ctx, req, record)
		return next, nil, err
	case coremigration.PROVISIONING_NIC:
		next, err := m.provisionNIC(ctx, req, record)
		return next, nil, err
	case coremigration.PROVISIONING_VM:
		next, err := m.provisionVM(ctx, req, record)
		return next, nil, err
	default:
		return record, nil, errors.Errorf("unexpected migration phase %s", phase)
	}
}

func (m *Migrator) awaitPowerOff(
	ctx context.Context, req coremigration.Request, record coremigration.Record,
) (coremigration.Record, *coremigration.Outcome, error) {
	state, err := m.config.Source.PowerState(ctx, req.VMName)
	if err != nil {
		return record, nil, sourceError(err, "reading power state of %q", req.VMName)
	}
	if state == coremigration.PowerStateOff {
		m.config.Logger.Infof("%q is powered off", req.VMName)
		next, err := m.advance(record, coremigration.CONVERTING)
		return next, nil, err
	}

	now := m.config.Clock.Now()
	if record.PowerOffRequested.IsZero() {
		record.PowerOffRequested = now
	} else if waited := now.Sub(record.PowerOffRequested); waited >= m.config.PowerOffTimeout {
		return record, nil, coremigration.WithKind(
			errors.Errorf("%q still %s after %v and %d power off requests",
				req.VMName, state, m.config.PowerOffTimeout, record.PowerOffAttempts),
			coremigration.PowerOffTimeout,
		)
	}

	m.config.Logger.Infof("%q is %s, requesting power off", req.VMName, state)
	if err := m.config.Source.PowerOff(ctx, req.VMName); err != nil {
		return record, nil, sourceError(err, "powering off %q", req.VMName)
	}
	record.PowerOffAttempts++
	if err := m.config.Source.Refresh(ctx, req.VMName); err != nil {
		return record, nil, sourceError(err, "refreshing %q", req.VMName)
	}
	record.Updated = now

	pending := coremigration.Pending(m.config.PowerOffRetryInterval)
	return record, &pending, nil
}

func (m *Migrator) convert(
	ctx context.Context, req coremigration.Request, record coremigration.Record,
) (coremigration.Record, error) {
	script, err := m.config.Builder.Build(req)
	if err != nil {
		return record, errors.Annotate(err, "building conversion script")
	}

	m.config.Logger.Infof("converting %q on %s", req.VMName, req.ConversionHost.Address)
	result, err := m.config.Runner.Run(ctx, req.ConversionHost, script)
	if err != nil {
		return record, errors.Trace(err)
	}
	if result.Stdout != "" {
		m.config.Logger.Debugf("conversion of %q output:\n%s", req.VMName, result.Stdout)
	}
	if !result.Succeeded() {
		reason := strings.TrimSpace(result.Stderr)
		if reason == "" {
			reason = "conversion wrote to its error stream"
		}
		return record, coremigration.WithKind(errors.New(reason), coremigration.ConversionError)
	}
	if result.ExitCode != 0 {
		m.config.Logger.Warningf("conversion of %q exited with code %d and no error output", req.VMName, result.ExitCode)
	}
	return m.advance(record, coremigration.PROVISIONING_IP)
}

func (m *Migrator) provisionIP(
	ctx context.Context, req coremigration.Request, record coremigration.Record,
) (coremigration.Record, error) {
	ref, err := m.config.Provisioner.CreatePublicIP(ctx, azure.PublicIPParams{
		Location:      req.Location,
		VMName:        req.VMName,
		ResourceGroup: req.ResourceGroup,
		Name:          req.IPName,
	})
	if err != nil {
		return record, errors.Trace(err)
	}
	m.config.Logger.Infof("created public IP %s", ref)
	record.IP = &ref
	return m.advance(record, coremigration.PROVISIONING_NIC)
}

func (m *Migrator) provisionNIC(
	ctx context.Context, req coremigration.Request, record coremigration.Record,
) (coremigration.Record, error) {
	ref, err := m.config.Provisioner.CreateNetworkInterface(ctx, azure.NetworkInterfaceParams{
		Name:          req.NICName,
		Location:      req.Location,
		SubnetID:      req.Subnet,
		PublicIP:      refOrZero(record.IP),
		ResourceGroup: req.ResourceGroup,
	})
	if err != nil {
		return record, errors.Trace(err)
	}
	m.config.Logger.Infof("created network interface %s", ref)
	record.NIC = &ref
	return m.advance(record, coremigration.PROVISIONING_VM)
}

func (m *Migrator) provisionVM(
	ctx context.Context, req coremigration.Request, record coremigration.Record,
) (coremigration.Record, error) {
	ref, err := m.config.Provisioner.CreateVirtualMachine(ctx, azure.VirtualMachineParams{
		StorageAccount:   req.StorageAccount,
		StorageContainer: req.StorageContainer,
		VMName:           req.VMName,
		Location:         req.Location,
		Size:             req.VMSize,
		AdminPassword:    req.AdminPassword,
		OSType:           req.OSType,
		NetworkInterface: refOrZero(record.NIC),
		ResourceGroup:    req.ResourceGroup,
	})
	if err != nil {
		return record, errors.Trace(err)
	}
	m.config.Logger.Infof("created virtual machine %s", ref)
	record.VM = &ref
	return m.advance(record, coremigration.COMPLETED)
}

func (m *Migrator) advance(record coremigration.Record, to coremigration.Phase) (coremigration.Record, error) {
	next, err := record.Advance(to, m.config.Clock.Now())
	return next, errors.Trace(err)
}

// fail moves the record to FAILED, keeping any resources recorded so
// far.
func (m *Migrator) fail(req coremigration.Request, record coremigration.Record, err error) (coremigration.Outcome, coremigration.Record) {
	from := record.Current()
	reason := err.Error()
	m.config.Logger.Errorf("migration of %q failed in %s: %s", req.VMName, from, reason)
	for _, ref := range record.Resources() {
		m.config.Logger.Warningf("%s was created before the failure and must be removed by hand", ref)
	}

	record.Reason = reason
	// FAILED is reachable from every non-terminal phase.
	next, _ := record.Advance(coremigration.FAILED, m.config.Clock.Now())
	return coremigration.Failed(reason), next
}

func (m *Migrator) interrupted(req coremigration.Request, record coremigration.Record) (coremigration.Outcome, coremigration.Record) {
	m.config.Logger.Infof("migration of %q interrupted in %s", req.VMName, record.Current())
	return coremigration.Pending(0), record
}

// sourceError tags a failure to talk to the source hypervisor.
func sourceError(err error, format string, args ...any) error {
	err = errors.Annotatef(err, format, args...)
	if coremigration.KindOf(err) != "" {
		return err
	}
	return coremigration.WithKind(err, coremigration.TransportError)
}

func refOrZero(ref *coremigration.ResourceRef) coremigration.ResourceRef {
	if ref == nil {
		return coremigration.ResourceRef{}
	}
	return *ref
}
