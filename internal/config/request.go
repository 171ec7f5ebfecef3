// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package config

import (
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v3"

	"github.com/juju/vmmigrate/core/migration"
)

// RequestFile holds the operator's answers for one migration.
type RequestFile struct {
	VMName           string `yaml:"vm-name"`
	ResourceGroup    string `yaml:"resource-group"`
	StorageAccount   string `yaml:"storage-account"`
	StorageContainer string `yaml:"storage-container"`
	Subnet           string `yaml:"subnet"`
	IPName           string `yaml:"ip-name"`
	NICName          string `yaml:"nic-name"`
	VMSize           string `yaml:"vm-size"`
	OSType           string `yaml:"os-type"`
	AdminPassword    string `yaml:"admin-password"`
}

var requestChecker = schema.StrictFieldMap(
	schema.Fields{
		"vm-name":           schema.NonEmptyString("vm-name"),
		"resource-group":    schema.NonEmptyString("resource-group"),
		"storage-account":   schema.NonEmptyString("storage-account"),
		"storage-container": schema.String(),
		"subnet":            schema.NonEmptyString("subnet"),
		"ip-name":           schema.String(),
		"nic-name":          schema.String(),
		"vm-size":           schema.NonEmptyString("vm-size"),
		"os-type":           schema.String(),
		"admin-password":    schema.NonEmptyString("admin-password"),
	},
	schema.Defaults{
		"storage-container": migration.DefaultStorageContainer,
		"ip-name":           schema.Omit,
		"nic-name":          schema.Omit,
		"os-type":           "Windows",
	},
)

// ReadRequest reads the request file at path.
func ReadRequest(path string) (RequestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RequestFile{}, errors.Annotate(err, "reading request")
	}
	req, err := ParseRequest(data)
	return req, errors.Annotatef(err, "request %q", path)
}

// ParseRequest parses request YAML. The IP and NIC names default to
// names derived from the machine name.
func ParseRequest(data []byte) (RequestFile, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RequestFile{}, errors.Trace(err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	v, err := requestChecker.Coerce(raw, nil)
	if err != nil {
		return RequestFile{}, errors.Trace(err)
	}
	attrs := v.(map[string]any)

	req := RequestFile{
		VMName:           attrs["vm-name"].(string),
		ResourceGroup:    attrs["resource-group"].(string),
		StorageAccount:   attrs["storage-account"].(string),
		StorageContainer: attrs["storage-container"].(string),
		Subnet:           attrs["subnet"].(string),
		IPName:           stringAttr(attrs, "ip-name"),
		NICName:          stringAttr(attrs, "nic-name"),
		VMSize:           attrs["vm-size"].(string),
		OSType:           canonicalOSType(attrs["os-type"].(string)),
		AdminPassword:    attrs["admin-password"].(string),
	}
	if req.IPName == "" {
		req.IPName = req.VMName + "-ip"
	}
	if req.NICName == "" {
		req.NICName = req.VMName + "-nic"
	}
	if !migration.KnownOSTypes.Contains(req.OSType) {
		return RequestFile{}, errors.NotValidf("os-type %q (expected one of %s)",
			req.OSType, strings.Join(migration.KnownOSTypes.SortedValues(), ", "))
	}
	return req, nil
}

// canonicalOSType accepts OS types in any case.
func canonicalOSType(osType string) string {
	for _, known := range migration.KnownOSTypes.Values() {
		if strings.EqualFold(osType, known) {
			return known
		}
	}
	return osType
}

// Request combines the environment with the request file into a
// migration request.
func Request(env Environ, file RequestFile) migration.Request {
	return migration.Request{
		VMName: file.VMName,
		Source: migration.SourceCredentials{
			Server:   env.VSphere.Host(),
			User:     env.VSphere.User,
			Password: env.VSphere.Password,
		},
		Location:         env.Azure.Location,
		ResourceGroup:    file.ResourceGroup,
		StorageAccount:   file.StorageAccount,
		StorageContainer: file.StorageContainer,
		Subnet:           file.Subnet,
		IPName:           file.IPName,
		NICName:          file.NICName,
		VMSize:           file.VMSize,
		OSType:           file.OSType,
		AdminPassword:    file.AdminPassword,
		ConversionHost: migration.ConversionHost{
			Address:          env.ConversionHost.Address,
			Port:             env.ConversionHost.Port,
			User:             env.ConversionHost.User,
			Password:         env.ConversionHost.Password,
			OutputPath:       env.ConversionHost.OutputPath,
			AzureProfilePath: env.ConversionHost.AzureProfilePath,
		},
	}
}
