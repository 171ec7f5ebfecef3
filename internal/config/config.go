// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config reads the environment and request files that describe
// a migration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/yaml.v3"

	"github.com/juju/vmmigrate/core/migration"
)

const (
	// TransportWinRM runs the conversion script over WinRM.
	TransportWinRM = "winrm"

	// TransportSSH runs the conversion script over SSH.
	TransportSSH = "ssh"

	defaultWinRMPort = 5985
	defaultSSHPort   = 22
)

// KnownTransports holds the transports a conversion host can be reached
// over.
var KnownTransports = set.NewStrings(TransportWinRM, TransportSSH)

// Environ holds the credentials and endpoints shared by every
// migration.
type Environ struct {
	Azure          Azure
	VSphere        VSphere
	ConversionHost ConversionHost
	Migration      Migration
}

// Azure holds the target cloud account.
type Azure struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
	Location       string
}

// VSphere holds the vCenter that owns the source machines.
type VSphere struct {
	// Endpoint is the vCenter host name, or an URL of its SDK endpoint.
	Endpoint   string
	Datacenter string
	User       string
	Password   string
}

// URL returns the SDK URL of the vCenter, with the credentials set.
func (v VSphere) URL() (*url.URL, error) {
	raw := v.Endpoint
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Annotatef(err, "parsing vsphere endpoint %q", v.Endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/sdk"
	}
	u.User = url.UserPassword(v.User, v.Password)
	return u, nil
}

// Host returns the host name of the vCenter.
func (v VSphere) Host() string {
	if u, err := v.URL(); err == nil {
		return u.Hostname()
	}
	return v.Endpoint
}

// ConversionHost holds the Windows machine that converts and uploads
// disks.
type ConversionHost struct {
	Transport        string
	Address          string
	Port             int
	User             string
	Password         string
	OutputPath       string
	AzureProfilePath string
	ModulePath       string

	// HTTPS, Insecure and CACertPath apply to the WinRM transport.
	HTTPS      bool
	Insecure   bool
	CACertPath string

	// KnownHostsFile applies to the SSH transport.
	KnownHostsFile string

	Timeout time.Duration
}

// Migration holds the power off policy.
type Migration struct {
	PowerOffRetryInterval time.Duration
	PowerOffTimeout       time.Duration
}

var azureChecker = schema.StrictFieldMap(
	schema.Fields{
		"tenant-id":       schema.NonEmptyString("tenant-id"),
		"client-id":       schema.NonEmptyString("client-id"),
		"client-secret":   schema.NonEmptyString("client-secret"),
		"subscription-id": schema.NonEmptyString("subscription-id"),
		"location":        schema.NonEmptyString("location"),
	},
	schema.Defaults{},
)

var vsphereChecker = schema.StrictFieldMap(
	schema.Fields{
		"endpoint":   schema.NonEmptyString("endpoint"),
		"datacenter": schema.NonEmptyString("datacenter"),
		"user":       schema.NonEmptyString("user"),
		"password":   schema.String(),
	},
	schema.Defaults{
		"password": "",
	},
)

var conversionHostChecker = schema.StrictFieldMap(
	schema.Fields{
		"transport":          schema.String(),
		"address":            schema.NonEmptyString("address"),
		"port":               schema.ForceInt(),
		"user":               schema.NonEmptyString("user"),
		"password":           schema.String(),
		"output-path":        schema.NonEmptyString("output-path"),
		"azure-profile-path": schema.String(),
		"module-path":        schema.String(),
		"https":              schema.Bool(),
		"insecure":           schema.Bool(),
		"ca-cert-path":       schema.String(),
		"known-hosts-file":   schema.String(),
		"timeout":            schema.TimeDurationString(),
	},
	schema.Defaults{
		"transport":          TransportWinRM,
		"port":               schema.Omit,
		"password":           "",
		"azure-profile-path": migration.DefaultAzureProfilePath,
		"module-path":        schema.Omit,
		"https":              false,
		"insecure":           false,
		"ca-cert-path":       schema.Omit,
		"known-hosts-file":   schema.Omit,
		"timeout":            schema.Omit,
	},
)

var migrationChecker = schema.StrictFieldMap(
	schema.Fields{
		"power-off-retry-interval": schema.TimeDurationString(),
		"power-off-timeout":        schema.TimeDurationString(),
	},
	schema.Defaults{
		"power-off-retry-interval": "30s",
		"power-off-timeout":        "15m",
	},
)

var environChecker = schema.StrictFieldMap(
	schema.Fields{
		"azure":           azureChecker,
		"vsphere":         vsphereChecker,
		"conversion-host": conversionHostChecker,
		"migration":       migrationChecker,
	},
	schema.Defaults{
		"migration": map[string]any{},
	},
)

// ReadEnviron reads the environment config file at path.
func ReadEnviron(path string) (Environ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Environ{}, errors.Annotate(err, "reading environment config")
	}
	env, err := ParseEnviron(data)
	return env, errors.Annotatef(err, "environment config %q", path)
}

// ParseEnviron parses environment config YAML.
func ParseEnviron(data []byte) (Environ, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Environ{}, errors.Trace(err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	v, err := environChecker.Coerce(raw, nil)
	if err != nil {
		return Environ{}, errors.Trace(err)
	}
	attrs := v.(map[string]any)

	az := attrs["azure"].(map[string]any)
	vs := attrs["vsphere"].(map[string]any)
	host := attrs["conversion-host"].(map[string]any)
	policy := attrs["migration"].(map[string]any)

	env := Environ{
		Azure: Azure{
			TenantID:       az["tenant-id"].(string),
			ClientID:       az["client-id"].(string),
			ClientSecret:   az["client-secret"].(string),
			SubscriptionID: az["subscription-id"].(string),
			Location:       az["location"].(string),
		},
		VSphere: VSphere{
			Endpoint:   vs["endpoint"].(string),
			Datacenter: vs["datacenter"].(string),
			User:       vs["user"].(string),
			Password:   vs["password"].(string),
		},
		ConversionHost: ConversionHost{
			Transport:        strings.ToLower(host["transport"].(string)),
			Address:          host["address"].(string),
			User:             host["user"].(string),
			Password:         host["password"].(string),
			OutputPath:       host["output-path"].(string),
			AzureProfilePath: host["azure-profile-path"].(string),
			ModulePath:       stringAttr(host, "module-path"),
			HTTPS:            host["https"].(bool),
			Insecure:         host["insecure"].(bool),
			CACertPath:       stringAttr(host, "ca-cert-path"),
			KnownHostsFile:   stringAttr(host, "known-hosts-file"),
		},
	}
	if !KnownTransports.Contains(env.ConversionHost.Transport) {
		return Environ{}, errors.NotValidf("conversion-host.transport %q (expected one of %s)",
			env.ConversionHost.Transport, strings.Join(KnownTransports.SortedValues(), ", "))
	}
	if env.ConversionHost.Port, err = portAttr(host, env.ConversionHost.Transport); err != nil {
		return Environ{}, errors.Trace(err)
	}
	if env.ConversionHost.Timeout, err = durationAttr(host, "timeout"); err != nil {
		return Environ{}, errors.Annotate(err, "conversion-host.timeout")
	}
	if env.Migration.PowerOffRetryInterval, err = durationAttr(policy, "power-off-retry-interval"); err != nil {
		return Environ{}, errors.Annotate(err, "migration.power-off-retry-interval")
	}
	if env.Migration.PowerOffTimeout, err = durationAttr(policy, "power-off-timeout"); err != nil {
		return Environ{}, errors.Annotate(err, "migration.power-off-timeout")
	}
	if env.Migration.PowerOffRetryInterval <= 0 || env.Migration.PowerOffTimeout <= 0 {
		return Environ{}, errors.NotValidf("non-positive migration power off policy")
	}
	return env, nil
}

func stringAttr(attrs map[string]any, key string) string {
	v, _ := attrs[key].(string)
	return v
}

func portAttr(attrs map[string]any, transport string) (int, error) {
	var port int
	switch v := attrs["port"].(type) {
	case nil:
		if transport == TransportSSH {
			return defaultSSHPort, nil
		}
		return defaultWinRMPort, nil
	case int:
		port = v
	case int64:
		port = int(v)
	default:
		return 0, errors.NotValidf("conversion-host.port %v", v)
	}
	if port <= 0 || port > 65535 {
		return 0, errors.NotValidf("conversion-host.port %d", port)
	}
	return port, nil
}

func durationAttr(attrs map[string]any, key string) (time.Duration, error) {
	switch v := attrs[key].(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(v)
		return d, errors.Trace(err)
	default:
		return 0, errors.Errorf("unexpected duration %s", fmt.Sprint(v))
	}
}
