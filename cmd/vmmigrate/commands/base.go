// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"context"
	"os"
	"strings"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"

	"github.com/juju/vmmigrate/cmd"
	"github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/config"
	"github.com/juju/vmmigrate/internal/provider/azure"
	"github.com/juju/vmmigrate/internal/provider/vsphere"
	"github.com/juju/vmmigrate/internal/remote"
)

const defaultConfigPath = "~/.vmmigrate/environ.yaml"

// SourceAPI is the part of the vCenter client used by the commands.
type SourceAPI interface {
	PowerState(ctx context.Context, name string) (migration.PowerState, error)
	PowerOff(ctx context.Context, name string) error
	Refresh(ctx context.Context, name string) error
	Machine(ctx context.Context, name string) (vsphere.MachineInfo, error)
	Close(ctx context.Context) error
}

// CloudAPI is the part of the Azure provisioner used by the commands.
type CloudAPI interface {
	CreatePublicIP(ctx context.Context, params azure.PublicIPParams) (migration.ResourceRef, error)
	CreateNetworkInterface(ctx context.Context, params azure.NetworkInterfaceParams) (migration.ResourceRef, error)
	CreateVirtualMachine(ctx context.Context, params azure.VirtualMachineParams) (migration.ResourceRef, error)
	ListSubnets(ctx context.Context) ([]azure.SubnetInfo, error)
	Preflight(ctx context.Context, resourceGroup string) (azure.PreflightResult, error)
}

// ScriptRunner runs conversion scripts on the conversion host.
type ScriptRunner interface {
	Run(ctx context.Context, host migration.ConversionHost, script string) (migration.ConversionResult, error)
}

// environCommandBase is embedded by the commands that read the
// environment config.
type environCommandBase struct {
	cmd.CommandBase

	config cmd.FileVar
}

// SetFlags implements cmd.Command.
func (c *environCommandBase) SetFlags(f *gnuflag.FlagSet) {
	path := os.Getenv(ConfigEnvKey)
	if path == "" {
		path = defaultConfigPath
	}
	c.config.Path = path
	f.Var(&c.config, "config", "Path of the environment config")
}

func (c *environCommandBase) readEnviron(ctx *cmd.Context) (config.Environ, error) {
	data, err := c.config.Read(ctx)
	if err != nil {
		return config.Environ{}, errors.Annotate(err, "reading environment config")
	}
	env, err := config.ParseEnviron(data)
	return env, errors.Annotatef(err, "environment config %q", c.config.Path)
}

// requestArg parses the single request file argument of a command.
func requestArg(args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("no request file specified")
	}
	return args[0], cmd.CheckEmpty(args[1:])
}

// isSubnetID reports whether the subnet is an Azure resource ID rather
// than a name to be looked up.
func isSubnetID(subnet string) bool {
	return strings.HasPrefix(strings.ToLower(subnet), "/subscriptions/")
}

// resolveSubnet returns the subnet with the given name or ID.
func resolveSubnet(ctx context.Context, cloud CloudAPI, subnet string) (azure.SubnetInfo, error) {
	subnets, err := cloud.ListSubnets(ctx)
	if err != nil {
		return azure.SubnetInfo{}, errors.Trace(err)
	}
	if isSubnetID(subnet) {
		for _, sub := range subnets {
			if strings.EqualFold(sub.ID, subnet) {
				return sub, nil
			}
		}
		return azure.SubnetInfo{}, errors.NotFoundf("subnet %q", subnet)
	}
	sub, err := azure.SubnetByName(subnets, subnet)
	return sub, errors.Trace(err)
}

func newSourceAPI(ctx context.Context, env config.Environ) (SourceAPI, error) {
	u, err := env.VSphere.URL()
	if err != nil {
		return nil, errors.Trace(err)
	}
	client, err := vsphere.Dial(ctx, u, env.VSphere.Datacenter, loggo.GetLogger("vmmigrate.vsphere"))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return client, nil
}

func newCloudAPI(env config.Environ) (CloudAPI, error) {
	cred, err := azure.NewCredential(azure.ServicePrincipal{
		TenantID:     env.Azure.TenantID,
		ClientID:     env.Azure.ClientID,
		ClientSecret: env.Azure.ClientSecret,
	}, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	provisioner, err := azure.NewProvisioner(azure.ProvisionerConfig{
		Credential:     cred,
		SubscriptionID: env.Azure.SubscriptionID,
		Clock:          clock.WallClock,
		Logger:         loggo.GetLogger("vmmigrate.azure"),
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return provisioner, nil
}

func newScriptRunner(env config.Environ) (ScriptRunner, error) {
	host := env.ConversionHost
	runnerLogger := loggo.GetLogger("vmmigrate.remote")
	switch host.Transport {
	case config.TransportSSH:
		runner, err := remote.NewSSHRunner(remote.SSHConfig{
			KnownHostsFile: host.KnownHostsFile,
			Logger:         runnerLogger,
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		return runner, nil
	case config.TransportWinRM:
		var caCert []byte
		if host.CACertPath != "" {
			var err error
			if caCert, err = os.ReadFile(host.CACertPath); err != nil {
				return nil, errors.Annotate(err, "reading conversion host CA certificate")
			}
		}
		runner, err := remote.NewWinRMRunner(remote.WinRMConfig{
			HTTPS:    host.HTTPS,
			Insecure: host.Insecure,
			CACert:   caCert,
			Timeout:  host.Timeout,
			Logger:   runnerLogger,
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		return runner, nil
	}
	return nil, errors.NotValidf("conversion host transport %q", host.Transport)
}
