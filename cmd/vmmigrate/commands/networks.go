// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/vmmigrate/cmd"
	"github.com/juju/vmmigrate/internal/config"
	"github.com/juju/vmmigrate/internal/provider/azure"
)

var networksDoc = `
List the subnets of the Azure subscription a migrated machine can be
attached to. The subnet of a request may be given by ID, by name, or as
<virtual-network>/<subnet> when the name is ambiguous.
`

// NewNetworksCommand returns a command that lists subnets.
func NewNetworksCommand() cmd.Command {
	c := &networksCommand{}
	c.newCloudAPI = newCloudAPI
	return c
}

type networksCommand struct {
	environCommandBase
	out cmd.Output

	newCloudAPI func(config.Environ) (CloudAPI, error)
}

// Info implements cmd.Command.
func (c *networksCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "networks",
		Purpose: "List the subnets of the Azure subscription.",
		Doc:     networksDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *networksCommand) SetFlags(f *gnuflag.FlagSet) {
	c.environCommandBase.SetFlags(f)
	c.out.AddFlags(f, "tabular", map[string]cmd.Formatter{
		"yaml":    cmd.FormatYaml,
		"json":    cmd.FormatJson,
		"tabular": formatSubnetsTabular,
	})
}

// Run implements cmd.Command.
func (c *networksCommand) Run(ctx *cmd.Context) error {
	env, err := c.readEnviron(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	cloud, err := c.newCloudAPI(env)
	if err != nil {
		return errors.Trace(err)
	}
	subnets, err := cloud.ListSubnets(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if len(subnets) == 0 && c.out.Name() == "tabular" {
		ctx.Infof("No subnets found.")
		return nil
	}
	return c.out.Write(ctx, subnets)
}

func formatSubnetsTabular(writer io.Writer, value any) error {
	subnets, ok := value.([]azure.SubnetInfo)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", subnets, value)
	}
	tw := cmd.TabWriter(writer)
	print := func(values ...string) {
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	print("Subnet", "Network", "Resource group", "Location", "CIDR")
	for _, sub := range subnets {
		print(sub.Name, sub.VirtualNetwork, sub.ResourceGroup, sub.Location, sub.CIDR)
	}
	return tw.Flush()
}
