// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"golang.org/x/sync/errgroup"

	"github.com/juju/vmmigrate/cmd"
	"github.com/juju/vmmigrate/internal/config"
	"github.com/juju/vmmigrate/internal/provider/azure"
	"github.com/juju/vmmigrate/internal/provider/vsphere"
)

var checkDoc = `
Check that a migration can start: the Azure credential can see the
subscription and resource group, the subnet exists, and the source
machine is known to vCenter. Nothing is changed.
`

// NewCheckCommand returns a command that checks a migration request
// against both clouds.
func NewCheckCommand() cmd.Command {
	c := &checkCommand{}
	c.newSourceAPI = newSourceAPI
	c.newCloudAPI = newCloudAPI
	return c
}

type checkCommand struct {
	environCommandBase
	out cmd.Output

	requestPath string

	newSourceAPI func(context.Context, config.Environ) (SourceAPI, error)
	newCloudAPI  func(config.Environ) (CloudAPI, error)
}

// CheckResult is the output of the check command.
type CheckResult struct {
	Azure  azure.PreflightResult `yaml:"azure" json:"azure"`
	Subnet azure.SubnetInfo      `yaml:"subnet" json:"subnet"`
	Source vsphere.MachineInfo   `yaml:"source" json:"source"`
}

// Info implements cmd.Command.
func (c *checkCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "check",
		Args:    "<request.yaml>",
		Purpose: "Check that a migration can start.",
		Doc:     checkDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *checkCommand) SetFlags(f *gnuflag.FlagSet) {
	c.environCommandBase.SetFlags(f)
	c.out.AddFlags(f, "yaml", cmd.DefaultFormatters)
}

// Init implements cmd.Command.
func (c *checkCommand) Init(args []string) (err error) {
	c.requestPath, err = requestArg(args)
	return err
}

// Run implements cmd.Command.
func (c *checkCommand) Run(ctx *cmd.Context) error {
	env, err := c.readEnviron(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	file, err := config.ReadRequest(ctx.AbsPath(c.requestPath))
	if err != nil {
		return errors.Trace(err)
	}

	cloud, err := c.newCloudAPI(env)
	if err != nil {
		return errors.Trace(err)
	}
	source, err := c.newSourceAPI(ctx, env)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := source.Close(context.Background()); err != nil {
			logger.Warningf("closing vCenter connection: %v", err)
		}
	}()

	var result CheckResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if result.Azure, err = cloud.Preflight(gctx, file.ResourceGroup); err != nil {
			return errors.Trace(err)
		}
		result.Subnet, err = resolveSubnet(gctx, cloud, file.Subnet)
		return errors.Trace(err)
	})
	g.Go(func() (err error) {
		result.Source, err = source.Machine(gctx, file.VMName)
		return errors.Trace(err)
	})
	if err := g.Wait(); err != nil {
		return errors.Trace(err)
	}
	return c.out.Write(ctx, result)
}
