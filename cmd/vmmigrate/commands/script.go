// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/vmmigrate/cmd"
	"github.com/juju/vmmigrate/internal/config"
	"github.com/juju/vmmigrate/internal/conversion"
)

var scriptDoc = `
Print the conversion script a migration runs on the conversion host,
with passwords masked.

A subnet given by name is looked up in the Azure subscription.
`

// NewScriptCommand returns a command that prints the conversion script.
func NewScriptCommand() cmd.Command {
	c := &scriptCommand{}
	c.newCloudAPI = newCloudAPI
	return c
}

type scriptCommand struct {
	environCommandBase

	requestPath string

	newCloudAPI func(config.Environ) (CloudAPI, error)
}

// Info implements cmd.Command.
func (c *scriptCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "script",
		Args:    "<request.yaml>",
		Purpose: "Print the conversion script of a migration.",
		Doc:     scriptDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *scriptCommand) SetFlags(f *gnuflag.FlagSet) {
	c.environCommandBase.SetFlags(f)
}

// Init implements cmd.Command.
func (c *scriptCommand) Init(args []string) (err error) {
	c.requestPath, err = requestArg(args)
	return err
}

// Run implements cmd.Command.
func (c *scriptCommand) Run(ctx *cmd.Context) error {
	env, err := c.readEnviron(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	file, err := config.ReadRequest(ctx.AbsPath(c.requestPath))
	if err != nil {
		return errors.Trace(err)
	}
	if !isSubnetID(file.Subnet) {
		cloud, err := c.newCloudAPI(env)
		if err != nil {
			return errors.Trace(err)
		}
		subnet, err := resolveSubnet(ctx, cloud, file.Subnet)
		if err != nil {
			return errors.Trace(err)
		}
		file.Subnet = subnet.ID
	}

	builder := &conversion.Builder{ModulePath: env.ConversionHost.ModulePath}
	script, err := builder.Redacted(config.Request(env, file))
	if err != nil {
		return errors.Annotate(err, "rendering conversion script")
	}
	_, err = fmt.Fprint(ctx.Stdout, script)
	return err
}
