// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package migrator provides a worker that drives a single machine
// migration to completion, re-invoking the migration after each pending
// outcome.
package migrator

import (
	"context"
	"sync"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"

	coremigration "github.com/juju/vmmigrate/core/migration"
)

// ErrMigrationFailed is returned by Wait when the migration stopped
// with a failed outcome.
const ErrMigrationFailed = errors.ConstError("migration failed")

// Logger represents the logging methods called.
type Logger interface {
	Debugf(message string, args ...any)
	Infof(message string, args ...any)
	Errorf(message string, args ...any)
}

// Migrator advances a migration from a recorded state.
type Migrator interface {
	Run(ctx context.Context, req coremigration.Request, record coremigration.Record) (coremigration.Outcome, coremigration.Record)
}

// RecordStore persists the migration record between invocations.
type RecordStore interface {
	Load() (coremigration.Record, error)
	Save(coremigration.Record) error
}

// Config holds the dependencies and request of a migration worker.
type Config struct {
	Migrator Migrator
	Request  coremigration.Request
	Store    RecordStore
	Clock    clock.Clock
	Logger   Logger
	Metrics  *Collector
}

// Validate returns an error if the config cannot drive a worker.
func (config Config) Validate() error {
	if config.Migrator == nil {
		return errors.NotValidf("nil Migrator")
	}
	if config.Request.VMName == "" {
		return errors.NotValidf("empty Request.VMName")
	}
	if config.Store == nil {
		return errors.NotValidf("nil Store")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.Metrics == nil {
		return errors.NotValidf("nil Metrics")
	}
	return nil
}

// Worker runs a migration until it completes or fails.
type Worker struct {
	catacomb catacomb.Catacomb
	config   Config

	mu      sync.Mutex
	outcome coremigration.Outcome
}

// NewWorker starts a migration worker. The worker stops cleanly once
// the migration has completed, and with an error satisfying
// errors.Is(err, ErrMigrationFailed) once it has failed.
func NewWorker(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Worker{config: config}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

// Outcome returns the outcome of the most recent invocation.
func (w *Worker) Outcome() coremigration.Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outcome
}

func (w *Worker) setOutcome(outcome coremigration.Outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outcome = outcome
}

func (w *Worker) loop() error {
	ctx, cancel := w.scopedContext()
	defer cancel()

	vmName := w.config.Request.VMName
	for {
		record, err := w.config.Store.Load()
		if err != nil {
			return errors.Annotate(err, "loading migration record")
		}

		outcome, next := w.config.Migrator.Run(ctx, w.config.Request, record)
		if err := w.config.Store.Save(next); err != nil {
			return errors.Annotate(err, "saving migration record")
		}
		w.setOutcome(outcome)
		w.config.Metrics.Observe(vmName, outcome, next.Current())

		switch outcome.Status {
		case coremigration.OutcomeCompleted:
			w.config.Logger.Infof("migration of %q completed: %s", vmName, outcome.VMID)
			return nil
		case coremigration.OutcomeFailed:
			return errors.WithType(
				errors.Errorf("%s: %s", ErrMigrationFailed, outcome.Reason),
				ErrMigrationFailed,
			)
		}

		if ctx.Err() != nil {
			return w.catacomb.ErrDying()
		}
		w.config.Logger.Debugf("migration of %q in %s, retrying in %v", vmName, next.Current(), outcome.RetryAfter)
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case <-w.config.Clock.After(outcome.RetryAfter):
		}
	}
}

func (w *Worker) scopedContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(w.catacomb.Context(context.Background()))
}
