// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package commands

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/vmmigrate/cmd"
	coremigration "github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/config"
	"github.com/juju/vmmigrate/internal/conversion"
	"github.com/juju/vmmigrate/internal/migration"
	"github.com/juju/vmmigrate/internal/worker/migrator"
)

var migrateDoc = `
Advance the migration described by the request file.

Without --wait a single step of the migration is run: the command
returns as soon as the migration completes, fails, or has to wait for
the source machine to power off. Run the command again to resume. With
--wait the command keeps going until the migration completes or fails.

The progress of the migration is kept in the state file, by default
<vm-name>.migration.yaml in the current directory. A failed migration
lists the Azure resources it created; they must be removed by hand
before starting again with a new state file.

Examples:

    vmmigrate migrate web-01.yaml
    vmmigrate migrate web-01.yaml --wait --metrics-file web-01.prom
`

// NewMigrateCommand returns a command that runs a migration.
func NewMigrateCommand() cmd.Command {
	c := &migrateCommand{
		clock:       clock.WallClock,
		lockTimeout: defaultLockTimeout,
	}
	c.newSourceAPI = newSourceAPI
	c.newCloudAPI = newCloudAPI
	c.newScriptRunner = newScriptRunner
	return c
}

type migrateCommand struct {
	environCommandBase
	out cmd.Output

	requestPath string
	statePath   string
	metricsPath string
	wait        bool

	clock       clock.Clock
	lockTimeout time.Duration

	newSourceAPI    func(context.Context, config.Environ) (SourceAPI, error)
	newCloudAPI     func(config.Environ) (CloudAPI, error)
	newScriptRunner func(config.Environ) (ScriptRunner, error)
}

// Info implements cmd.Command.
func (c *migrateCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "migrate",
		Args:    "<request.yaml>",
		Purpose: "Migrate a virtual machine to Azure.",
		Doc:     migrateDoc,
	}
}

// SetFlags implements cmd.Command.
func (c *migrateCommand) SetFlags(f *gnuflag.FlagSet) {
	c.environCommandBase.SetFlags(f)
	f.StringVar(&c.statePath, "state", "", "Path of the migration state file")
	f.StringVar(&c.metricsPath, "metrics-file", "", "Write prometheus metrics to this file")
	f.BoolVar(&c.wait, "wait", false, "Keep going until the migration completes or fails")
	c.out.AddFlags(f, "yaml", cmd.DefaultFormatters)
}

// Init implements cmd.Command.
func (c *migrateCommand) Init(args []string) (err error) {
	c.requestPath, err = requestArg(args)
	return err
}

// Run implements cmd.Command.
func (c *migrateCommand) Run(ctx *cmd.Context) error {
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
	if !isSubnetID(file.Subnet) {
		subnet, err := resolveSubnet(ctx, cloud, file.Subnet)
		if err != nil {
			return errors.Trace(err)
		}
		logger.Debugf("subnet %q resolved to %s", file.Subnet, subnet.ID)
		file.Subnet = subnet.ID
	}
	req := config.Request(env, file)
	if err := req.WithDefaults().Validate(); err != nil {
		return errors.Annotate(err, "invalid migration request")
	}

	// The mutex waits on its clock, so it always uses the wall clock.
	releaser, err := acquireMachineLock(req.VMName, clock.WallClock, c.lockTimeout)
	if err != nil {
		return errors.Trace(err)
	}
	defer releaser.Release()

	source, err := c.newSourceAPI(ctx, env)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := source.Close(context.Background()); err != nil {
			logger.Warningf("closing vCenter connection: %v", err)
		}
	}()
	runner, err := c.newScriptRunner(env)
	if err != nil {
		return errors.Trace(err)
	}

	m, err := migration.NewMigrator(migration.Config{
		Source:                source,
		Builder:               &conversion.Builder{ModulePath: env.ConversionHost.ModulePath},
		Runner:                runner,
		Provisioner:           cloud,
		Clock:                 c.clock,
		Logger:                loggo.GetLogger("vmmigrate.migration"),
		PowerOffRetryInterval: env.Migration.PowerOffRetryInterval,
		PowerOffTimeout:       env.Migration.PowerOffTimeout,
	})
	if err != nil {
		return errors.Trace(err)
	}

	statePath := c.statePath
	if statePath == "" {
		statePath = req.VMName + ".migration.yaml"
	}
	store := migrator.NewFileStore(ctx.AbsPath(statePath))
	metrics := migrator.NewMetricsCollector()

	var outcome coremigration.Outcome
	if c.wait {
		outcome, err = c.runToCompletion(ctx, m, req, store, metrics)
	} else {
		outcome, err = c.runOnce(ctx, m, req, store, metrics)
	}
	if err != nil {
		return errors.Trace(err)
	}

	if c.metricsPath != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(metrics)
		if err := prometheus.WriteToTextfile(ctx.AbsPath(c.metricsPath), registry); err != nil {
			return errors.Annotate(err, "writing metrics")
		}
	}
	if err := c.out.Write(ctx, outcome); err != nil {
		return errors.Trace(err)
	}
	if outcome.Status == coremigration.OutcomeFailed {
		return cmd.ErrSilent
	}
	return nil
}

func (c *migrateCommand) runOnce(
	ctx context.Context,
	m *migration.Migrator,
	req coremigration.Request,
	store *migrator.FileStore,
	metrics *migrator.Collector,
) (coremigration.Outcome, error) {
	record, err := store.Load()
	if err != nil {
		return coremigration.Outcome{}, errors.Trace(err)
	}
	outcome, record := m.Run(ctx, req, record)
	if err := store.Save(record); err != nil {
		return coremigration.Outcome{}, errors.Trace(err)
	}
	metrics.Observe(req.VMName, outcome, record.Current())
	return outcome, nil
}

func (c *migrateCommand) runToCompletion(
	ctx context.Context,
	m *migration.Migrator,
	req coremigration.Request,
	store *migrator.FileStore,
	metrics *migrator.Collector,
) (coremigration.Outcome, error) {
	w, err := migrator.NewWorker(migrator.Config{
		Migrator: m,
		Request:  req,
		Store:    store,
		Clock:    c.clock,
		Logger:   loggo.GetLogger("vmmigrate.worker.migrator"),
		Metrics:  metrics,
	})
	if err != nil {
		return coremigration.Outcome{}, errors.Trace(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- w.Wait()
	}()
	select {
	case err = <-done:
	case <-ctx.Done():
		logger.Infof("interrupted, stopping migration of %q", req.VMName)
		w.Kill()
		err = <-done
	}
	if err != nil && !errors.Is(err, migrator.ErrMigrationFailed) {
		return coremigration.Outcome{}, errors.Trace(err)
	}
	return w.Outcome(), nil
}
