// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration

import (
	"fmt"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

const (
	// DefaultConversionHostPort is the WinRM HTTP listener port.
	DefaultConversionHostPort = 5985

	// DefaultStorageContainer is the blob container converted disks
	// are uploaded to.
	DefaultStorageContainer = "upload"

	// DefaultAzureProfilePath is where the conversion host keeps the
	// saved Azure profile used for the disk upload.
	DefaultAzureProfilePath = `C:\creds\azure.txt`
)

// KnownOSTypes holds the operating system types accepted for the OS
// disk of the target machine.
var KnownOSTypes = set.NewStrings("Windows", "Linux")

// SourceCredentials holds the connection details of the management
// system that owns the source machine.
type SourceCredentials struct {
	Server   string
	User     string
	Password string
}

// ConversionHost describes the Windows machine that converts the source
// disk and uploads it to the target storage account.
type ConversionHost struct {
	// Address is the host name or IP address of the conversion host.
	Address string

	// Port is the remote management port.
	Port int

	User     string
	Password string

	// OutputPath is the directory on the conversion host that the
	// converted disk is written to.
	OutputPath string

	// AzureProfilePath is the saved Azure profile loaded before the
	// upload.
	AzureProfilePath string
}

// Request is the input of a single migration attempt. Values are
// collected once from configuration and the operator, and are not
// modified for the lifetime of the attempt.
type Request struct {
	// VMName is the name of the source machine. It is also used as the
	// name of the target machine and its DNS label.
	VMName string

	// Source holds the credentials of the owning vCenter.
	Source SourceCredentials

	// Location is the Azure region resources are created in.
	Location string

	ResourceGroup    string
	StorageAccount   string
	StorageContainer string

	// Subnet is the full resource ID of the subnet the network
	// interface is attached to.
	Subnet string

	IPName        string
	NICName       string
	VMSize        string
	OSType        string
	AdminPassword string

	ConversionHost ConversionHost
}

// WithDefaults returns a copy of the request with optional fields
// filled in.
func (r Request) WithDefaults() Request {
	if r.StorageContainer == "" {
		r.StorageContainer = DefaultStorageContainer
	}
	if r.ConversionHost.Port == 0 {
		r.ConversionHost.Port = DefaultConversionHostPort
	}
	if r.ConversionHost.AzureProfilePath == "" {
		r.ConversionHost.AzureProfilePath = DefaultAzureProfilePath
	}
	return r
}

// Validate returns an error if the request cannot drive a migration.
func (r Request) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"VMName", r.VMName},
		{"Source.Server", r.Source.Server},
		{"Source.User", r.Source.User},
		{"Location", r.Location},
		{"ResourceGroup", r.ResourceGroup},
		{"StorageAccount", r.StorageAccount},
		{"Subnet", r.Subnet},
		{"IPName", r.IPName},
		{"NICName", r.NICName},
		{"VMSize", r.VMSize},
		{"OSType", r.OSType},
		{"AdminPassword", r.AdminPassword},
		{"ConversionHost.Address", r.ConversionHost.Address},
		{"ConversionHost.User", r.ConversionHost.User},
		{"ConversionHost.OutputPath", r.ConversionHost.OutputPath},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return errors.NotValidf("empty %s", field.name)
		}
	}
	if !KnownOSTypes.Contains(r.OSType) {
		return errors.NotValidf("OSType %q", r.OSType)
	}
	if r.ConversionHost.Port < 0 || r.ConversionHost.Port > 65535 {
		return errors.NotValidf("ConversionHost.Port %d", r.ConversionHost.Port)
	}
	if !strings.HasPrefix(strings.ToLower(r.Subnet), "/subscriptions/") {
		return errors.NotValidf("Subnet %q", r.Subnet)
	}
	return nil
}

// BlobURI returns the URI of the blob the converted disk of the named
// machine is uploaded to.
func BlobURI(storageAccount, container, vmName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s.vhd", storageAccount, container, vmName)
}

// PowerState is the power state of the source machine as reported by
// the source hypervisor.
type PowerState string

const (
	PowerStateRunning PowerState = "running"
	PowerStateOff     PowerState = "off"
	PowerStateUnknown PowerState = "unknown"
)

// ConversionResult is the captured output of one run of the conversion
// script on the conversion host.
type ConversionResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports whether the conversion script wrote nothing to its
// error stream.
func (r ConversionResult) Succeeded() bool {
	return r.Stderr == ""
}

// ResourceKind identifies the kind of cloud resource a ResourceRef
// points at.
type ResourceKind string

const (
	ResourceKindIP  ResourceKind = "ip"
	ResourceKindNIC ResourceKind = "nic"
	ResourceKindVM  ResourceKind = "vm"
)

// ResourceRef references a resource created in the target cloud. A
// resource is uniquely identified by its resource group and name, and is
// referenced by dependent resources through its ID.
type ResourceRef struct {
	ID            string       `yaml:"id,omitempty"`
	Name          string       `yaml:"name"`
	ResourceGroup string       `yaml:"resource-group"`
	Kind          ResourceKind `yaml:"kind"`
}

// Resolved reports whether the reference carries a concrete ID for a
// resource of the given kind.
func (r ResourceRef) Resolved(kind ResourceKind) bool {
	return r.Kind == kind && r.ID != "" && r.Name != ""
}

// String is part of the fmt.Stringer interface.
func (r ResourceRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("%s %s/%s (unresolved)", r.Kind, r.ResourceGroup, r.Name)
}
