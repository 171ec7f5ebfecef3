// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/loggo/v2"
	"github.com/juju/version/v2"

	"github.com/juju/vmmigrate/cmd"
)

var logger = loggo.GetLogger("vmmigrate.cmd.vmmigrate")

const (
	// LoggingConfigEnvKey holds the default logging config of the
	// vmmigrate command.
	LoggingConfigEnvKey = "VMMIGRATE_LOGGING_CONFIG"

	// ConfigEnvKey holds the default path of the environment config.
	ConfigEnvKey = "VMMIGRATE_CONFIG"
)

// Version is the version of the vmmigrate command.
var Version = version.MustParse("1.0.0")

var vmmigrateDoc = `
vmmigrate moves virtual machines from a vSphere datacenter to Azure.

A migration powers off the source machine, converts and uploads its disk
through a Windows conversion host, and then creates a public IP address,
a network interface and a virtual machine from the uploaded image.

The credentials and endpoints shared by every migration are read from an
environment config file; each migration is described by a request file.
The progress of a migration is recorded in a state file, so that an
interrupted migration can be resumed by running the same command again.
`

// Main registers subcommands for the vmmigrate executable, and hands
// over control to the cmd package. It returns the exit code.
func Main(args []string) int {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	stdctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx.Context = stdctx

	return cmd.Main(NewVMMigrateCommand(), ctx, args[1:])
}

// NewVMMigrateCommand returns the vmmigrate super command with every
// subcommand registered.
func NewVMMigrateCommand() *cmd.SuperCommand {
	super := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:    "vmmigrate",
		Purpose: "Migrate virtual machines from vSphere to Azure.",
		Doc:     vmmigrateDoc,
		Version: Version.String(),
		Log:     &cmd.Log{DefaultConfig: os.Getenv(LoggingConfigEnvKey)},
	})
	super.Register(NewMigrateCommand())
	super.Register(NewStatusCommand())
	super.Register(NewScriptCommand())
	super.Register(NewNetworksCommand())
	super.Register(NewCheckCommand())
	return super
}
