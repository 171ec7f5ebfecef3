// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/vmmigrate/cmd"
	coremigration "github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/worker/migrator"
)

var statusDoc = `
Show the recorded progress of a migration.

The state file is found either from the machine name, as
<vm-name>.migration.yaml in the current directory, or with --state.

Examples:

    vmmigrate status web-01
    vmmigrate status --state /var/lib/vmmigrate/web-01.yaml --format json
`

// NewStatusCommand returns a command that shows a migration record.
func NewStatusCommand() cmd.Command {
	return &statusCommand{}
}

type statusCommand struct {
	cmd.CommandBase
	out cmd.Output

	vmName    string
	statePath string
}

// StatusDetails is the output of the status command.
type StatusDetails struct {
	Phase             string                      `yaml:"phase" json:"phase"`
	Outcome           *coremigration.Outcome      `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	PowerOffRequested *time.Time                  `yaml:"power-off-requested,omitempty" json:"power-off-requested,omitempty"`
	PowerOffAttempts  int                         `yaml:"power-off-attempts,omitempty" json:"power-off-attempts,omitempty"`
	Resources         []coremigration.ResourceRef `yaml:"resources,omitempty" json:"resources,omitempty"`
	Updated           *time.Time                  `yaml:"updated,omitempty" json:"updated,omitempty"`
}

// Info implements cmd.Command.
func (c *statusCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "status",
		Args:    "[<vm-name>]",
		Purpose: "Show the progress of a migration.",
		Doc:     statusDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *statusCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.statePath, "state", "", "Path of the migration state file")
	c.out.AddFlags(f, "yaml", cmd.DefaultFormatters)
}

// Init implements cmd.Command.
func (c *statusCommand) Init(args []string) (err error) {
	if c.vmName, err = cmd.ZeroOrOneArgs(args); err != nil {
		return err
	}
	if c.vmName == "" && c.statePath == "" {
		return errors.New("specify a machine name or --state")
	}
	if c.vmName != "" && c.statePath != "" {
		return errors.New("cannot specify both a machine name and --state")
	}
	return nil
}

// Run implements cmd.Command.
func (c *statusCommand) Run(ctx *cmd.Context) error {
	path := c.statePath
	if path == "" {
		path = c.vmName + ".migration.yaml"
	}
	path = ctx.AbsPath(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errors.NotFoundf("migration state %q", path)
	}
	record, err := migrator.NewFileStore(path).Load()
	if err != nil {
		return errors.Trace(err)
	}
	return c.out.Write(ctx, statusDetails(record))
}

func statusDetails(record coremigration.Record) StatusDetails {
	details := StatusDetails{
		Phase:            record.Current().String(),
		PowerOffAttempts: record.PowerOffAttempts,
		Resources:        record.Resources(),
	}
	if outcome, ok := record.Outcome(); ok {
		details.Outcome = &outcome
	}
	if !record.PowerOffRequested.IsZero() {
		t := record.PowerOffRequested.UTC()
		details.PowerOffRequested = &t
	}
	if !record.Updated.IsZero() {
		t := record.Updated.UTC()
		details.Updated = &t
	}
	return details
}
