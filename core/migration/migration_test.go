// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/vmmigrate/core/migration"
)

type RequestSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&RequestSuite{})

func validRequest() migration.Request {
	return migration.Request{
		VMName: "web01",
		Source: migration.SourceCredentials{
			Server:   "vcenter.example.com",
			User:     "administrator@vsphere.local",
			Password: "sekrit",
		},
		Location:       "eastus2",
		ResourceGroup:  "migrated",
		StorageAccount: "migrationstore",
		Subnet:         "/subscriptions/sub/resourceGroups/net/providers/Microsoft.Network/virtualNetworks/vnet/subnets/default",
		IPName:         "web01-ip",
		NICName:        "web01-nic",
		VMSize:         "Standard_D2s_v3",
		OSType:         "Windows",
		AdminPassword:  "Passw0rd!",
		ConversionHost: migration.ConversionHost{
			Address:    "10.0.0.5",
			User:       "Administrator",
			Password:   "convert",
			OutputPath: `C:\images\web01`,
		},
	}.WithDefaults()
}

func (s *RequestSuite) TestValid(c *gc.C) {
	c.Assert(validRequest().Validate(), jc.ErrorIsNil)
}

func (s *RequestSuite) TestWithDefaults(c *gc.C) {
	req := migration.Request{}.WithDefaults()
	c.Check(req.StorageContainer, gc.Equals, "upload")
	c.Check(req.ConversionHost.Port, gc.Equals, 5985)
	c.Check(req.ConversionHost.AzureProfilePath, gc.Equals, `C:\creds\azure.txt`)

	req = migration.Request{
		StorageContainer: "vhds",
		ConversionHost:   migration.ConversionHost{Port: 5986},
	}.WithDefaults()
	c.Check(req.StorageContainer, gc.Equals, "vhds")
	c.Check(req.ConversionHost.Port, gc.Equals, 5986)
}

func (s *RequestSuite) TestValidation(c *gc.C) {
	tests := []struct {
		label        string
		tweak        func(*migration.Request)
		errorPattern string
	}{{
		"empty VMName",
		func(r *migration.Request) { r.VMName = "" },
		"empty VMName not valid",
	}, {
		"blank ResourceGroup",
		func(r *migration.Request) { r.ResourceGroup = "  " },
		"empty ResourceGroup not valid",
	}, {
		"empty AdminPassword",
		func(r *migration.Request) { r.AdminPassword = "" },
		"empty AdminPassword not valid",
	}, {
		"empty conversion host",
		func(r *migration.Request) { r.ConversionHost.Address = "" },
		"empty ConversionHost.Address not valid",
	}, {
		"unknown OS type",
		func(r *migration.Request) { r.OSType = "Plan9" },
		`OSType "Plan9" not valid`,
	}, {
		"bad port",
		func(r *migration.Request) { r.ConversionHost.Port = 70000 },
		"ConversionHost.Port 70000 not valid",
	}, {
		"subnet name instead of ID",
		func(r *migration.Request) { r.Subnet = "default" },
		`Subnet "default" not valid`,
	}}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.label)
		req := validRequest()
		test.tweak(&req)
		err := req.Validate()
		c.Check(err, gc.ErrorMatches, test.errorPattern)
		c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
	}
}

func (s *RequestSuite) TestConversionResultSucceeded(c *gc.C) {
	c.Check(migration.ConversionResult{Stdout: "done"}.Succeeded(), jc.IsTrue)
	c.Check(migration.ConversionResult{Stderr: "disk not found"}.Succeeded(), jc.IsFalse)
	// Only the error stream decides; a non-zero exit code alone does not.
	c.Check(migration.ConversionResult{ExitCode: 1}.Succeeded(), jc.IsTrue)
}

func (s *RequestSuite) TestResourceRefResolved(c *gc.C) {
	ref := migration.ResourceRef{ID: "/subscriptions/x/ip", Name: "ip", Kind: migration.ResourceKindIP}
	c.Check(ref.Resolved(migration.ResourceKindIP), jc.IsTrue)
	c.Check(ref.Resolved(migration.ResourceKindNIC), jc.IsFalse)

	ref.ID = ""
	c.Check(ref.Resolved(migration.ResourceKindIP), jc.IsFalse)
	c.Check(ref.String(), gc.Equals, "ip /ip (unresolved)")
}

func (s *RequestSuite) TestBlobURI(c *gc.C) {
	c.Check(migration.BlobURI("sa", "upload", "vm"), gc.Equals, "https://sa.blob.core.windows.net/upload/vm.vhd")
}
