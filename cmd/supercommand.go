// Copyright 2012-2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("vmmigrate.cmd")

// SuperCommandParams provides a way to have default parameter to the
// `NewSuperCommand` call.
type SuperCommandParams struct {
	Name    string
	Purpose string
	Doc     string
	Version string

	// Log holds the Log value associated with the supercommand. If it's
	// nil, no logging flags will be configured.
	Log *Log
}

// NewSuperCommand creates and initializes a new `SuperCommand`, and returns
// the fully initialized structure.
func NewSuperCommand(params SuperCommandParams) *SuperCommand {
	c := &SuperCommand{
		Name:    params.Name,
		Purpose: params.Purpose,
		Doc:     params.Doc,
		Log:     params.Log,
		version: params.Version,
	}
	c.subcmds = map[string]Command{
		"help": &helpCommand{super: c},
	}
	if c.version != "" {
		c.subcmds["version"] = &versionCommand{version: c.version}
	}
	return c
}

// SuperCommand is a Command that selects a subcommand and assumes its
// properties; any command line arguments that were not used in selecting
// the subcommand are passed down to it, and to Run a SuperCommand is to run
// its selected subcommand.
type SuperCommand struct {
	CommandBase
	Name    string
	Purpose string
	Doc     string
	Log     *Log

	version     string
	subcmds     map[string]Command
	commonflags *gnuflag.FlagSet
	action      Command
	actionName  string
	showHelp    bool
}

// IsSuperCommand implements Command.IsSuperCommand
func (c *SuperCommand) IsSuperCommand() bool {
	return true
}

// Register makes a subcommand available for use on the command line.
func (c *SuperCommand) Register(subcmd Command) {
	name := subcmd.Info().Name
	if _, found := c.subcmds[name]; found {
		panic(fmt.Sprintf("command already registered: %q", name))
	}
	c.subcmds[name] = subcmd
}

// describeCommands returns a short description of each registered subcommand.
func (c *SuperCommand) describeCommands() map[string]string {
	result := make(map[string]string, len(c.subcmds))
	for name, subcmd := range c.subcmds {
		result[name] = subcmd.Info().Purpose
	}
	return result
}

// Info returns a description of the currently selected subcommand, or of the
// SuperCommand itself if no subcommand has been specified.
func (c *SuperCommand) Info() *Info {
	if c.action != nil {
		info := *c.action.Info()
		info.Name = fmt.Sprintf("%s %s", c.Name, info.Name)
		return &info
	}
	return &Info{
		Name:        c.Name,
		Args:        "<command> ...",
		Purpose:     c.Purpose,
		Doc:         strings.TrimSpace(c.Doc),
		Subcommands: c.describeCommands(),
	}
}

// SetFlags adds the options that apply to all commands, particularly those
// due to logging.
func (c *SuperCommand) SetFlags(f *gnuflag.FlagSet) {
	if c.Log != nil {
		c.Log.AddFlags(f)
	}
	f.BoolVar(&c.showHelp, "h", false, "Show help on a command or other topic.")
	f.BoolVar(&c.showHelp, "help", false, "")

	c.commonflags = gnuflag.NewFlagSet(c.Name, gnuflag.ContinueOnError)
	c.commonflags.SetOutput(io.Discard)
	f.VisitAll(func(flag *gnuflag.Flag) {
		c.commonflags.Var(flag.Value, flag.Name, flag.Usage)
	})
}

// AllowInterspersedFlags is false for a SuperCommand, so that only options
// relating to the SuperCommand itself can come before the subcommand name.
func (c *SuperCommand) AllowInterspersedFlags() bool {
	return false
}

// Init initializes the command for running.
func (c *SuperCommand) Init(args []string) error {
	if c.commonflags == nil {
		c.SetFlags(gnuflag.NewFlagSet(c.Name, gnuflag.ContinueOnError))
	}
	if len(args) == 0 {
		c.action, c.actionName = c.subcmds["help"], "help"
		return c.action.Init(nil)
	}

	subcmd, found := c.subcmds[args[0]]
	if !found {
		return errors.Errorf("unrecognized command: %s %s", c.Name, args[0])
	}
	c.action, c.actionName = subcmd, args[0]

	subcmd.SetFlags(c.commonflags)
	if err := c.commonflags.Parse(subcmd.AllowInterspersedFlags(), args[1:]); err != nil {
		return err
	}
	subArgs := c.commonflags.Args()
	if c.showHelp {
		subArgs = []string{c.actionName}
		c.action, c.actionName = c.subcmds["help"], "help"
	}
	return c.action.Init(subArgs)
}

// Run executes the subcommand that was selected in Init.
func (c *SuperCommand) Run(ctx *Context) error {
	if c.action == nil {
		panic("Run: missing subcommand; Init failed or not called")
	}
	if c.Log != nil {
		if err := c.Log.Start(ctx); err != nil {
			return err
		}
	}
	logger.Infof("running %s %s [%s %s]", c.Name, c.actionName, runtime.Compiler, runtime.Version())

	err := c.action.Run(ctx)
	if err != nil && !IsErrSilent(err) {
		WriteError(ctx.Stderr, err)
		logger.Debugf("error stack: \n%v", errors.ErrorStack(err))
		return ErrSilent
	}
	if err == nil {
		logger.Infof("command finished")
	}
	return err
}

type helpCommand struct {
	CommandBase
	super *SuperCommand
	topic string
}

func (c *helpCommand) Info() *Info {
	return &Info{
		Name:    "help",
		Args:    "[command]",
		Purpose: "Show help on a command.",
	}
}

func (c *helpCommand) Init(args []string) error {
	topic, err := ZeroOrOneArgs(args)
	if err != nil {
		return err
	}
	if topic != "" {
		if _, found := c.super.subcmds[topic]; !found {
			return errors.Errorf("unknown command or topic for %s", topic)
		}
	}
	c.topic = topic
	return nil
}

func (c *helpCommand) Run(ctx *Context) error {
	if c.topic != "" {
		PrintUsage(ctx.Stdout, c.super.subcmds[c.topic])
		return nil
	}
	info := c.super.Info()
	info.Subcommands = c.super.describeCommands()
	fmt.Fprintf(ctx.Stdout, "Usage: %s %s\n", c.super.Name, "<command> ...")
	if c.super.Purpose != "" {
		fmt.Fprintf(ctx.Stdout, "\nSummary:\n%s\n", c.super.Purpose)
	}
	if c.super.Doc != "" {
		fmt.Fprintf(ctx.Stdout, "\nDetails:\n%s\n", strings.TrimSpace(c.super.Doc))
	}

	names := make([]string, 0, len(info.Subcommands))
	longest := 0
	for name := range info.Subcommands {
		names = append(names, name)
		if len(name) > longest {
			longest = len(name)
		}
	}
	sort.Strings(names)
	fmt.Fprintf(ctx.Stdout, "\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(ctx.Stdout, "    %-*s  %s\n", longest, name, info.Subcommands[name])
	}
	return nil
}

type versionCommand struct {
	CommandBase
	version string
}

func (c *versionCommand) Info() *Info {
	return &Info{
		Name:    "version",
		Purpose: "Print the current version.",
	}
}

func (c *versionCommand) Run(ctx *Context) error {
	_, err := fmt.Fprintln(ctx.Stdout, c.version)
	return err
}
