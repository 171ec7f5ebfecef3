// Copyright 2015-2017 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package vsphere reads and controls the power state of source machines
// managed by a vCenter server.
package vsphere

import (
	"context"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/juju/vmmigrate/core/migration"
)

// Logger represents the logging methods called.
type Logger interface {
	Debugf(message string, args ...any)
	Infof(message string, args ...any)
	Warningf(message string, args ...any)
}

// MachineInfo is the read-only metadata of a source machine.
type MachineInfo struct {
	Name       string               `yaml:"name" json:"name"`
	Host       string               `yaml:"host" json:"host"`
	PowerState migration.PowerState `yaml:"power-state" json:"power-state"`
	GuestOS    string               `yaml:"guest-os,omitempty" json:"guest-os,omitempty"`
	DiskBytes  uint64               `yaml:"disk-bytes" json:"disk-bytes"`
	Disk       string               `yaml:"disk" json:"disk"`
}

// Client encapsulates a vSphere client, exposing the subset of
// functionality that a migration requires.
type Client struct {
	client     *govmomi.Client
	datacenter string
	logger     Logger
}

// Dial dials a new vSphere client connection using the given URL,
// scoped to the specified datacenter. The resulting Client's Close
// method must be called in order to release resources allocated by
// Dial.
func Dial(
	ctx context.Context,
	u *url.URL,
	datacenter string,
	logger Logger,
) (*Client, error) {
	client, err := govmomi.NewClient(ctx, u, true)
	if err != nil {
		return nil, migration.WithKind(
			errors.Annotatef(err, "connecting to vCenter %s", u.Host),
			migration.TransportError,
		)
	}
	return &Client{
		client:     client,
		datacenter: datacenter,
		logger:     logger,
	}, nil
}

// Close logs out and closes the client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Logout(ctx)
}

func (c *Client) finder(ctx context.Context) (*find.Finder, *object.Datacenter, error) {
	finder := find.NewFinder(c.client.Client, true)
	datacenter, err := finder.Datacenter(ctx, c.datacenter)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	finder.SetDatacenter(datacenter)
	return finder, datacenter, nil
}

// lookup returns the machine with the given name anywhere below the
// datacenter VM folder, together with the requested properties.
func (c *Client) lookup(ctx context.Context, name string, props ...string) (*object.VirtualMachine, *mo.VirtualMachine, error) {
	_, datacenter, err := c.finder(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	folders, err := datacenter.Folders(ctx)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	manager := view.NewManager(c.client.Client)
	containerView, err := manager.CreateContainerView(ctx, folders.VmFolder.Reference(), []string{"VirtualMachine"}, true)
	if err != nil {
		return nil, nil, errors.Annotate(err, "creating VM view")
	}
	defer func() { _ = containerView.Destroy(ctx) }()

	var all []mo.VirtualMachine
	if err := containerView.Retrieve(ctx, []string{"VirtualMachine"}, []string{"name"}, &all); err != nil {
		return nil, nil, errors.Annotate(err, "listing VMs")
	}
	for _, candidate := range all {
		if candidate.Name != name {
			continue
		}
		vm := object.NewVirtualMachine(c.client.Client, candidate.Reference())
		var details mo.VirtualMachine
		if err := c.client.RetrieveOne(ctx, vm.Reference(), append([]string{"name"}, props...), &details); err != nil {
			return nil, nil, errors.Annotatef(err, "retrieving VM %q", name)
		}
		return vm, &details, nil
	}
	return nil, nil, errors.NotFoundf("virtual machine %q", name)
}

// PowerState returns the power state of the named machine.
func (c *Client) PowerState(ctx context.Context, name string) (migration.PowerState, error) {
	_, vm, err := c.lookup(ctx, name, "runtime.powerState")
	if err != nil {
		return migration.PowerStateUnknown, errors.Trace(err)
	}
	return powerState(vm.Runtime.PowerState), nil
}

func powerState(state types.VirtualMachinePowerState) migration.PowerState {
	switch state {
	case types.VirtualMachinePowerStatePoweredOn:
		return migration.PowerStateRunning
	case types.VirtualMachinePowerStatePoweredOff:
		return migration.PowerStateOff
	}
	return migration.PowerStateUnknown
}

// PowerOff asks the guest of the named machine to shut down, falling
// back to a hard power off when the guest tools are not running or
// refuse. Powering off a machine that is already off, or that is
// already shutting down, is a no-op.
func (c *Client) PowerOff(ctx context.Context, name string) error {
	vm, details, err := c.lookup(ctx, name, "runtime.powerState", "guest.toolsRunningStatus")
	if err != nil {
		return errors.Trace(err)
	}
	if details.Runtime.PowerState == types.VirtualMachinePowerStatePoweredOff {
		c.logger.Debugf("%q is already powered off", name)
		return nil
	}

	if details.Runtime.PowerState == types.VirtualMachinePowerStatePoweredOn && toolsRunning(details) {
		c.logger.Infof("shutting down guest of %q", name)
		err := vm.ShutdownGuest(ctx)
		if err == nil || isInvalidPowerState(err) {
			return nil
		}
		c.logger.Warningf("guest shutdown of %q failed, powering off: %v", name, err)
	}

	c.logger.Infof("powering off %q", name)
	task, err := vm.PowerOff(ctx)
	if err == nil {
		_, err = task.WaitForResult(ctx)
	}
	if err != nil && !isInvalidPowerState(err) {
		return errors.Annotatef(err, "powering off %q", name)
	}
	return nil
}

// Refresh re-reads the runtime state of the named machine.
func (c *Client) Refresh(ctx context.Context, name string) error {
	_, vm, err := c.lookup(ctx, name, "runtime")
	if err != nil {
		return errors.Trace(err)
	}
	c.logger.Debugf("%q is %s", name, vm.Runtime.PowerState)
	return nil
}

// Machine returns the metadata of the named machine.
func (c *Client) Machine(ctx context.Context, name string) (MachineInfo, error) {
	_, vm, err := c.lookup(ctx, name, "runtime", "config.hardware.device", "config.guestFullName")
	if err != nil {
		return MachineInfo{}, errors.Trace(err)
	}
	info := MachineInfo{
		Name:       vm.Name,
		PowerState: powerState(vm.Runtime.PowerState),
	}
	if vm.Config != nil {
		info.GuestOS = vm.Config.GuestFullName
		for _, device := range vm.Config.Hardware.Device {
			disk, ok := device.(*types.VirtualDisk)
			if !ok {
				continue
			}
			if disk.CapacityInBytes > 0 {
				info.DiskBytes += uint64(disk.CapacityInBytes)
			} else {
				info.DiskBytes += uint64(disk.CapacityInKB) * 1024
			}
		}
	}
	info.Disk = humanize.IBytes(info.DiskBytes)

	if host := vm.Runtime.Host; host != nil {
		var hs mo.HostSystem
		if err := c.client.RetrieveOne(ctx, *host, []string{"name"}, &hs); err != nil {
			return MachineInfo{}, errors.Annotatef(err, "retrieving host of %q", name)
		}
		info.Host = hs.Name
	}
	return info, nil
}

func toolsRunning(vm *mo.VirtualMachine) bool {
	return vm.Guest != nil && vm.Guest.ToolsRunningStatus == string(types.VirtualMachineToolsRunningStatusGuestToolsRunning)
}

func isInvalidPowerState(err error) bool {
	if err == nil {
		return false
	}
	if f, ok := err.(types.HasFault); ok {
		if _, ok := f.Fault().(*types.InvalidPowerState); ok {
			return true
		}
	}
	if soap.IsSoapFault(err) {
		switch soap.ToSoapFault(err).VimFault().(type) {
		case types.InvalidPowerState:
			return true
		}
	}
	return false
}
