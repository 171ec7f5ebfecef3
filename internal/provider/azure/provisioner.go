// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package azure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/juju/errors"
	"github.com/juju/retry"

	"github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/provider/azure/internal/errorutils"
)

const (
	// AdminUsername is the administrator account created on migrated
	// machines.
	AdminUsername = "clouduser"

	// publicIPIdleTimeout is the TCP idle timeout of public IPs, in
	// minutes.
	publicIPIdleTimeout = 4

	maxResolveDelay = 30 * time.Second
)

// PublicIPParams describes the public IP address of a migrated machine.
type PublicIPParams struct {
	Location      string
	VMName        string
	ResourceGroup string
	Name          string
}

// NetworkInterfaceParams describes the network interface of a migrated
// machine.
type NetworkInterfaceParams struct {
	Name          string
	Location      string
	SubnetID      string
	PublicIP      migration.ResourceRef
	ResourceGroup string
}

// VirtualMachineParams describes a machine created from an uploaded
// disk image.
type VirtualMachineParams struct {
	StorageAccount   string
	StorageContainer string
	VMName           string
	Location         string
	Size             string
	AdminPassword    string
	OSType           string
	NetworkInterface migration.ResourceRef
	ResourceGroup    string
}

// Provisioner creates the Azure resources that make up a migrated
// machine. Every create is an upsert keyed by resource group and name.
type Provisioner struct {
	config ProvisionerConfig

	publicIPs     *armnetwork.PublicIPAddressesClient
	interfaces    *armnetwork.InterfacesClient
	networks      *armnetwork.VirtualNetworksClient
	machines      *armcompute.VirtualMachinesClient
	groups        *armresources.ResourceGroupsClient
	subscriptions *armsubscriptions.Client
}

// NewProvisioner returns a Provisioner for the configured subscription.
// No requests are made until a method is called.
func NewProvisioner(config ProvisionerConfig) (*Provisioner, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	config = config.withDefaults()

	p := &Provisioner{config: config}
	var err error
	sub, cred, opts := config.SubscriptionID, config.Credential, config.ClientOptions
	if p.publicIPs, err = armnetwork.NewPublicIPAddressesClient(sub, cred, opts); err != nil {
		return nil, errors.Trace(err)
	}
	if p.interfaces, err = armnetwork.NewInterfacesClient(sub, cred, opts); err != nil {
		return nil, errors.Trace(err)
	}
	if p.networks, err = armnetwork.NewVirtualNetworksClient(sub, cred, opts); err != nil {
		return nil, errors.Trace(err)
	}
	if p.machines, err = armcompute.NewVirtualMachinesClient(sub, cred, opts); err != nil {
		return nil, errors.Trace(err)
	}
	if p.groups, err = armresources.NewResourceGroupsClient(sub, cred, opts); err != nil {
		return nil, errors.Trace(err)
	}
	if p.subscriptions, err = armsubscriptions.NewClient(cred, opts); err != nil {
		return nil, errors.Trace(err)
	}
	return p, nil
}

// CreatePublicIP creates or updates a dynamic IPv4 address whose DNS
// label is the machine name, and returns its reference.
func (p *Provisioner) CreatePublicIP(ctx context.Context, params PublicIPParams) (migration.ResourceRef, error) {
	if err := checkResourceName("public IP", params.Name); err != nil {
		return migration.ResourceRef{}, migration.WithKind(err, migration.ProvisioningError)
	}
	location := canonicalLocation(params.Location)
	label := dnsLabel(params.VMName)
	if label == "" {
		return migration.ResourceRef{}, migration.WithKind(
			errors.NotValidf("DNS label for machine name %q", params.VMName),
			migration.ProvisioningError,
		)
	}
	ip := armnetwork.PublicIPAddress{
		Location: to.Ptr(location),
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAddressVersion:   to.Ptr(armnetwork.IPVersionIPv4),
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodDynamic),
			IdleTimeoutInMinutes:     to.Ptr(int32(publicIPIdleTimeout)),
			DNSSettings: &armnetwork.PublicIPAddressDNSSettings{
				DomainNameLabel: to.Ptr(label),
				Fqdn:            to.Ptr(fmt.Sprintf("%s.%s.cloudapp.azure.com", label, location)),
			},
		},
	}

	p.config.Logger.Infof("creating public IP %q in resource group %q", params.Name, params.ResourceGroup)
	poller, err := p.publicIPs.BeginCreateOrUpdate(ctx, params.ResourceGroup, params.Name, ip, nil)
	if err == nil {
		_, err = poller.PollUntilDone(ctx, p.pollOptions())
	}
	if err != nil {
		return migration.ResourceRef{}, errorutils.Classify(err, fmt.Sprintf("creating public IP %q", params.Name))
	}
	return p.resolve(ctx, migration.ResourceKindIP, params.ResourceGroup, params.Name, func(ctx context.Context) (string, error) {
		resp, err := p.publicIPs.Get(ctx, params.ResourceGroup, params.Name, nil)
		return toValue(resp.ID), err
	})
}

// CreateNetworkInterface creates or updates a network interface with a
// single IP configuration attaching the subnet and the public IP.
func (p *Provisioner) CreateNetworkInterface(ctx context.Context, params NetworkInterfaceParams) (migration.ResourceRef, error) {
	if !params.PublicIP.Resolved(migration.ResourceKindIP) {
		return migration.ResourceRef{}, migration.WithKind(
			errors.Errorf("creating network interface %q: public IP %s not resolved", params.Name, params.PublicIP),
			migration.DependencyError,
		)
	}
	if params.SubnetID == "" {
		return migration.ResourceRef{}, migration.WithKind(
			errors.Errorf("creating network interface %q: no subnet", params.Name),
			migration.DependencyError,
		)
	}
	if err := checkResourceName("network interface", params.Name); err != nil {
		return migration.ResourceRef{}, migration.WithKind(err, migration.ProvisioningError)
	}

	nic := armnetwork.Interface{
		Location: to.Ptr(canonicalLocation(params.Location)),
		Properties: &armnetwork.InterfacePropertiesFormat{
			IPConfigurations: []*armnetwork.InterfaceIPConfiguration{{
				Name: to.Ptr(params.Name),
				Properties: &armnetwork.InterfaceIPConfigurationPropertiesFormat{
					Primary:                   to.Ptr(true),
					PrivateIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodDynamic),
					Subnet:                    &armnetwork.Subnet{ID: to.Ptr(params.SubnetID)},
					PublicIPAddress:           &armnetwork.PublicIPAddress{ID: to.Ptr(params.PublicIP.ID)},
				},
			}},
		},
	}

	p.config.Logger.Infof("creating network interface %q in resource group %q", params.Name, params.ResourceGroup)
	poller, err := p.interfaces.BeginCreateOrUpdate(ctx, params.ResourceGroup, params.Name, nic, nil)
	if err == nil {
		_, err = poller.PollUntilDone(ctx, p.pollOptions())
	}
	if err != nil {
		return migration.ResourceRef{}, errorutils.Classify(err, fmt.Sprintf("creating network interface %q", params.Name))
	}
	return p.resolve(ctx, migration.ResourceKindNIC, params.ResourceGroup, params.Name, func(ctx context.Context) (string, error) {
		resp, err := p.interfaces.Get(ctx, params.ResourceGroup, params.Name, nil)
		return toValue(resp.ID), err
	})
}

// CreateVirtualMachine creates a machine booting from the uploaded disk
// image, attached to the network interface. A machine that already
// exists under the name keeps its OS disk; it is updated to use the
// network interface unless it is already attached to it.
func (p *Provisioner) CreateVirtualMachine(ctx context.Context, params VirtualMachineParams) (migration.ResourceRef, error) {
	if !params.NetworkInterface.Resolved(migration.ResourceKindNIC) {
		return migration.ResourceRef{}, migration.WithKind(
			errors.Errorf("creating virtual machine %q: network interface %s not resolved", params.VMName, params.NetworkInterface),
			migration.DependencyError,
		)
	}
	if !migration.KnownOSTypes.Contains(params.OSType) {
		return migration.ResourceRef{}, migration.WithKind(
			errors.NotValidf("OS type %q", params.OSType), migration.ProvisioningError,
		)
	}
	if err := checkResourceName("virtual machine", params.VMName); err != nil {
		return migration.ResourceRef{}, migration.WithKind(err, migration.ProvisioningError)
	}

	existing, err := p.machines.Get(ctx, params.ResourceGroup, params.VMName, nil)
	switch {
	case err == nil && toValue(existing.ID) != "":
		return p.updateVirtualMachine(ctx, params, existing.VirtualMachine)
	case err != nil && !errorutils.IsNotFoundError(err):
		return migration.ResourceRef{}, errorutils.Classify(err, fmt.Sprintf("reading virtual machine %q", params.VMName))
	}

	diskID, err := p.config.NewUUID()
	if err != nil {
		return migration.ResourceRef{}, errors.Annotate(err, "generating disk name")
	}
	container := params.StorageContainer
	if container == "" {
		container = migration.DefaultStorageContainer
	}
	osType := armcompute.OperatingSystemTypes(params.OSType)
	vm := armcompute.VirtualMachine{
		Location: to.Ptr(canonicalLocation(params.Location)),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(params.Size)),
			},
			OSProfile: &armcompute.OSProfile{
				AdminUsername: to.Ptr(AdminUsername),
				AdminPassword: to.Ptr(params.AdminPassword),
				ComputerName:  to.Ptr(computerName(params.VMName, osType)),
			},
			StorageProfile: &armcompute.StorageProfile{
				OSDisk: &armcompute.OSDisk{
					CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
					Caching:      to.Ptr(armcompute.CachingTypesReadWrite),
					Name:         to.Ptr(params.VMName + ".vhd"),
					OSType:       to.Ptr(osType),
					Image: &armcompute.VirtualHardDisk{
						URI: to.Ptr(migration.BlobURI(params.StorageAccount, container, params.VMName)),
					},
					Vhd: &armcompute.VirtualHardDisk{
						URI: to.Ptr(migration.BlobURI(params.StorageAccount, container, params.VMName+"_"+diskID.String())),
					},
				},
			},
			NetworkProfile: networkProfile(params.NetworkInterface.ID),
		},
	}

	p.config.Logger.Infof("creating virtual machine %q (%s) in resource group %q", params.VMName, params.Size, params.ResourceGroup)
	poller, err := p.machines.BeginCreateOrUpdate(ctx, params.ResourceGroup, params.VMName, vm, nil)
	var result armcompute.VirtualMachinesClientCreateOrUpdateResponse
	if err == nil {
		result, err = poller.PollUntilDone(ctx, p.pollOptions())
	}
	if err != nil {
		return migration.ResourceRef{}, errorutils.Classify(err, fmt.Sprintf("creating virtual machine %q", params.VMName))
	}
	if id := toValue(result.ID); id != "" {
		return p.ref(migration.ResourceKindVM, params.ResourceGroup, params.VMName, id), nil
	}
	return p.resolve(ctx, migration.ResourceKindVM, params.ResourceGroup, params.VMName, func(ctx context.Context) (string, error) {
		resp, err := p.machines.Get(ctx, params.ResourceGroup, params.VMName, nil)
		return toValue(resp.ID), err
	})
}

// updateVirtualMachine reconciles a machine that already exists under
// the requested name.
func (p *Provisioner) updateVirtualMachine(
	ctx context.Context, params VirtualMachineParams, existing armcompute.VirtualMachine,
) (migration.ResourceRef, error) {
	var props armcompute.VirtualMachineProperties
	if existing.Properties != nil {
		props = *existing.Properties
	}
	if state := toValue(props.ProvisioningState); strings.EqualFold(state, "Failed") {
		return migration.ResourceRef{}, migration.WithKind(
			errors.Errorf("virtual machine %q is in provisioning state %q", params.VMName, state),
			migration.ProvisioningError,
		)
	}
	if attachedTo(props.NetworkProfile, params.NetworkInterface.ID) {
		p.config.Logger.Infof("virtual machine %q already exists", params.VMName)
		return p.ref(migration.ResourceKindVM, params.ResourceGroup, params.VMName, toValue(existing.ID)), nil
	}

	// The OS profile cannot change once the machine exists, and the
	// storage profile is sent back unchanged so the OS disk is kept.
	vm := armcompute.VirtualMachine{
		Location: existing.Location,
		Tags:     existing.Tags,
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: props.HardwareProfile,
			StorageProfile:  props.StorageProfile,
			NetworkProfile:  networkProfile(params.NetworkInterface.ID),
		},
	}
	p.config.Logger.Infof("updating virtual machine %q to use network interface %q", params.VMName, params.NetworkInterface.Name)
	poller, err := p.machines.BeginCreateOrUpdate(ctx, params.ResourceGroup, params.VMName, vm, nil)
	var result armcompute.VirtualMachinesClientCreateOrUpdateResponse
	if err == nil {
		result, err = poller.PollUntilDone(ctx, p.pollOptions())
	}
	if err != nil {
		return migration.ResourceRef{}, errorutils.Classify(err, fmt.Sprintf("updating virtual machine %q", params.VMName))
	}
	id := toValue(result.ID)
	if id == "" {
		id = toValue(existing.ID)
	}
	return p.ref(migration.ResourceKindVM, params.ResourceGroup, params.VMName, id), nil
}

func networkProfile(nicID string) *armcompute.NetworkProfile {
	return &armcompute.NetworkProfile{
		NetworkInterfaces: []*armcompute.NetworkInterfaceReference{{
			ID: to.Ptr(nicID),
			Properties: &armcompute.NetworkInterfaceReferenceProperties{
				Primary: to.Ptr(true),
			},
		}},
	}
}

// attachedTo reports whether the network profile references the
// network interface with the given ID.
func attachedTo(profile *armcompute.NetworkProfile, nicID string) bool {
	if profile == nil {
		return false
	}
	for _, nic := range profile.NetworkInterfaces {
		if nic != nil && strings.EqualFold(toValue(nic.ID), nicID) {
			return true
		}
	}
	return false
}

func (p *Provisioner) pollOptions() *runtime.PollUntilDoneOptions {
	return &runtime.PollUntilDoneOptions{Frequency: p.config.PollFrequency}
}

func (p *Provisioner) ref(kind migration.ResourceKind, resourceGroup, name, id string) migration.ResourceRef {
	return migration.ResourceRef{
		ID:            id,
		Name:          name,
		ResourceGroup: resourceGroup,
		Kind:          kind,
	}
}

// resolve reads back the ID of a resource that was just created,
// retrying while Azure still reports it as not found.
func (p *Provisioner) resolve(
	ctx context.Context,
	kind migration.ResourceKind, resourceGroup, name string,
	get func(context.Context) (string, error),
) (migration.ResourceRef, error) {
	var id string
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			var err error
			id, err = get(ctx)
			if err == nil && id == "" {
				return errors.NotFoundf("ID of %s %q", kind, name)
			}
			return err
		},
		IsFatalError: func(err error) bool {
			return !errorutils.IsNotFoundError(err) && !errors.Is(err, errors.NotFound)
		},
		NotifyFunc: func(err error, attempt int) {
			p.config.Logger.Debugf("attempt %d resolving %s %q: %v", attempt, kind, name, err)
		},
		Attempts:    p.config.ResolveAttempts,
		Delay:       p.config.ResolveDelay,
		MaxDelay:    maxResolveDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       p.config.Clock,
		Stop:        ctx.Done(),
	})
	if err == nil {
		return p.ref(kind, resourceGroup, name, id), nil
	}
	if retry.IsRetryStopped(err) {
		return migration.ResourceRef{}, errors.Annotatef(ctx.Err(), "resolving %s %q", kind, name)
	}
	if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) {
		err = retry.LastError(err)
	}
	if errorutils.IsNotFoundError(err) || errors.Is(err, errors.NotFound) {
		return migration.ResourceRef{}, migration.WithKind(
			errors.Errorf("cannot resolve %s %q in resource group %q", kind, name, resourceGroup),
			migration.DependencyError,
		)
	}
	return migration.ResourceRef{}, errorutils.Classify(err, fmt.Sprintf("resolving %s %q", kind, name))
}

// computerName returns the host name of the machine, truncated to the
// limit of its operating system.
func computerName(vmName string, osType armcompute.OperatingSystemTypes) string {
	limit := 64
	if osType == armcompute.OperatingSystemTypesWindows {
		limit = 15
	}
	if len(vmName) > limit {
		return vmName[:limit]
	}
	return vmName
}

func toValue[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}
