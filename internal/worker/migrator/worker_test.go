// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migrator_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gc "gopkg.in/check.v1"

	coremigration "github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/worker/migrator"
	coretesting "github.com/juju/vmmigrate/testing"
)

// stubMigrator returns the queued outcomes in order, moving the record
// to a phase matching each outcome.
type stubMigrator struct {
	mu       sync.Mutex
	outcomes []coremigration.Outcome
	records  []coremigration.Record
	ran      chan struct{}
}

func newStubMigrator(outcomes ...coremigration.Outcome) *stubMigrator {
	return &stubMigrator{
		outcomes: outcomes,
		ran:      make(chan struct{}, len(outcomes)),
	}
}

func (m *stubMigrator) Run(_ context.Context, _ coremigration.Request, record coremigration.Record) (coremigration.Outcome, coremigration.Record) {
	m.mu.Lock()
	defer func() {
		m.mu.Unlock()
		m.ran <- struct{}{}
	}()
	m.records = append(m.records, record)

	outcome := m.outcomes[0]
	if len(m.outcomes) > 1 {
		m.outcomes = m.outcomes[1:]
	}
	switch outcome.Status {
	case coremigration.OutcomeCompleted:
		record.Phase = coremigration.COMPLETED
		record.VM = &coremigration.ResourceRef{ID: outcome.VMID, Name: "web-01", Kind: coremigration.ResourceKindVM}
	case coremigration.OutcomeFailed:
		record.Phase = coremigration.FAILED
		record.Reason = outcome.Reason
	default:
		record.Phase = coremigration.AWAIT_POWEROFF
		record.PowerOffAttempts++
	}
	return outcome, record
}

func (m *stubMigrator) Records() []coremigration.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremigration.Record(nil), m.records...)
}

type workerSuite struct {
	testing.IsolationSuite

	clock   *testclock.Clock
	store   *migrator.FileStore
	metrics *migrator.Collector
}

var _ = gc.Suite(&workerSuite{})

func (s *workerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.clock = testclock.NewClock(time.Now())
	s.store = migrator.NewFileStore(filepath.Join(c.MkDir(), "state.yaml"))
	s.metrics = migrator.NewMetricsCollector()
}

func (s *workerSuite) config(m migrator.Migrator) migrator.Config {
	return migrator.Config{
		Migrator: m,
		Request:  coremigration.Request{VMName: "web-01"},
		Store:    s.store,
		Clock:    s.clock,
		Logger:   coretesting.NoopLogger{},
		Metrics:  s.metrics,
	}
}

func (s *workerSuite) waitRun(c *gc.C, m *stubMigrator) {
	select {
	case <-m.ran:
	case <-time.After(coretesting.LongWait):
		c.Fatalf("timed out waiting for migration run")
	}
}

func (s *workerSuite) TestValidate(c *gc.C) {
	for i, test := range []struct {
		patch  func(*migrator.Config)
		expect string
	}{{
		patch:  func(cfg *migrator.Config) { cfg.Migrator = nil },
		expect: "nil Migrator not valid",
	}, {
		patch:  func(cfg *migrator.Config) { cfg.Request.VMName = "" },
		expect: "empty Request.VMName not valid",
	}, {
		patch:  func(cfg *migrator.Config) { cfg.Store = nil },
		expect: "nil Store not valid",
	}, {
		patch:  func(cfg *migrator.Config) { cfg.Clock = nil },
		expect: "nil Clock not valid",
	}, {
		patch:  func(cfg *migrator.Config) { cfg.Logger = nil },
		expect: "nil Logger not valid",
	}, {
		patch:  func(cfg *migrator.Config) { cfg.Metrics = nil },
		expect: "nil Metrics not valid",
	}} {
		c.Logf("test %d: %s", i, test.expect)
		cfg := s.config(newStubMigrator(coremigration.Completed("id")))
		test.patch(&cfg)
		_, err := migrator.NewWorker(cfg)
		c.Check(err, jc.ErrorIs, errors.NotValid)
		c.Check(err, gc.ErrorMatches, test.expect)
	}
}

func (s *workerSuite) TestCompleted(c *gc.C) {
	m := newStubMigrator(coremigration.Completed("vm-id"))
	w, err := migrator.NewWorker(s.config(m))
	c.Assert(err, jc.ErrorIsNil)

	err = workertest.CheckKilled(c, w)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(w.Outcome(), jc.DeepEquals, coremigration.Completed("vm-id"))

	record, err := s.store.Load()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(record.Phase, gc.Equals, coremigration.COMPLETED)
	c.Check(record.VM.ID, gc.Equals, "vm-id")
}

func (s *workerSuite) TestPendingThenCompleted(c *gc.C) {
	m := newStubMigrator(
		coremigration.Pending(30*time.Second),
		coremigration.Completed("vm-id"),
	)
	w, err := migrator.NewWorker(s.config(m))
	c.Assert(err, jc.ErrorIsNil)

	s.waitRun(c, m)
	err = s.clock.WaitAdvance(30*time.Second, coretesting.LongWait, 1)
	c.Assert(err, jc.ErrorIsNil)

	err = workertest.CheckKilled(c, w)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(w.Outcome(), jc.DeepEquals, coremigration.Completed("vm-id"))

	records := m.Records()
	c.Assert(records, gc.HasLen, 2)
	c.Check(records[0].Current(), gc.Equals, coremigration.INIT)
	c.Check(records[1].Phase, gc.Equals, coremigration.AWAIT_POWEROFF)
	c.Check(records[1].PowerOffAttempts, gc.Equals, 1)
}

func (s *workerSuite) TestFailed(c *gc.C) {
	m := newStubMigrator(coremigration.Failed("disk not found"))
	w, err := migrator.NewWorker(s.config(m))
	c.Assert(err, jc.ErrorIsNil)

	err = workertest.CheckKilled(c, w)
	c.Assert(err, jc.ErrorIs, migrator.ErrMigrationFailed)
	c.Assert(err, gc.ErrorMatches, "migration failed: disk not found")

	record, err := s.store.Load()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(record.Phase, gc.Equals, coremigration.FAILED)
	c.Check(record.Reason, gc.Equals, "disk not found")
}

func (s *workerSuite) TestKillWhilePending(c *gc.C) {
	m := newStubMigrator(coremigration.Pending(time.Minute))
	w, err := migrator.NewWorker(s.config(m))
	c.Assert(err, jc.ErrorIsNil)

	s.waitRun(c, m)
	workertest.CleanKill(c, w)
	c.Check(m.Records(), gc.HasLen, 1)
}

func (s *workerSuite) TestResumesFromStoredRecord(c *gc.C) {
	err := s.store.Save(coremigration.Record{
		Phase: coremigration.PROVISIONING_NIC,
		IP:    &coremigration.ResourceRef{ID: "ip-id", Name: "web-01-ip", Kind: coremigration.ResourceKindIP},
	})
	c.Assert(err, jc.ErrorIsNil)

	m := newStubMigrator(coremigration.Completed("vm-id"))
	w, err := migrator.NewWorker(s.config(m))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(workertest.CheckKilled(c, w), jc.ErrorIsNil)

	records := m.Records()
	c.Assert(records, gc.HasLen, 1)
	c.Check(records[0].Phase, gc.Equals, coremigration.PROVISIONING_NIC)
	c.Check(records[0].IP.ID, gc.Equals, "ip-id")
}

func (s *workerSuite) TestMetrics(c *gc.C) {
	m := newStubMigrator(
		coremigration.Pending(30*time.Second),
		coremigration.Completed("vm-id"),
	)
	w, err := migrator.NewWorker(s.config(m))
	c.Assert(err, jc.ErrorIsNil)

	s.waitRun(c, m)
	c.Assert(s.clock.WaitAdvance(30*time.Second, coretesting.LongWait, 1), jc.ErrorIsNil)
	c.Assert(workertest.CheckKilled(c, w), jc.ErrorIsNil)

	expected := `
# HELP vmmigrate_invocations_total The number of migration invocations by outcome.
# TYPE vmmigrate_invocations_total counter
vmmigrate_invocations_total{status="completed",vm="web-01"} 1
vmmigrate_invocations_total{status="pending",vm="web-01"} 1
# HELP vmmigrate_phase The current phase of a migration, as the ordinal of its phase.
# TYPE vmmigrate_phase gauge
vmmigrate_phase{vm="web-01"} 7
`
	err = testutil.CollectAndCompare(s.metrics, strings.NewReader(expected))
	c.Assert(err, jc.ErrorIsNil)
}
