// Copyright 2013-2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
)

// Log supplies the necessary functionality for Commands that wish to set up
// logging.
type Log struct {
	// DefaultConfig is used to set the default logging configuration when
	// --logging-config is not given.
	DefaultConfig string

	Verbose bool
	Quiet   bool
	Debug   bool
	Config  string
}

// AddFlags adds appropriate flags to f.
func (l *Log) AddFlags(f *gnuflag.FlagSet) {
	f.BoolVar(&l.Verbose, "v", false, "Show more verbose output")
	f.BoolVar(&l.Verbose, "verbose", false, "")
	f.BoolVar(&l.Quiet, "q", false, "Show no informational output")
	f.BoolVar(&l.Quiet, "quiet", false, "")
	f.BoolVar(&l.Debug, "debug", false, "Equivalent to --logging-config=<root>=DEBUG")
	f.StringVar(&l.Config, "logging-config", l.DefaultConfig, "Specify log levels for modules")
}

// Start starts logging to the context's stderr using the configured
// levels.
func (l *Log) Start(ctx *Context) error {
	level := loggo.WARNING
	switch {
	case l.Debug:
		level = loggo.DEBUG
	case l.Verbose:
		level = loggo.INFO
	case l.Quiet:
		level = loggo.ERROR
	}

	if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(ctx.Stderr, loggo.DefaultFormatter)); err != nil {
		return err
	}
	loggo.GetLogger("").SetLogLevel(level)
	if l.Config != "" && !l.Debug {
		if err := loggo.ConfigureLoggers(l.Config); err != nil {
			return err
		}
	}
	return nil
}
