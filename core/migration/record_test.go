// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migration_test

import (
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/vmmigrate/core/migration"
)

type RecordSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&RecordSuite{})

func (s *RecordSuite) TestZeroValueIsInit(c *gc.C) {
	var rec migration.Record
	c.Check(rec.Current(), gc.Equals, migration.INIT)
	_, terminal := rec.Outcome()
	c.Check(terminal, jc.IsFalse)
}

func (s *RecordSuite) TestAdvance(c *gc.C) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rec, err := migration.Record{}.Advance(migration.AWAIT_POWEROFF, now)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(rec.Phase, gc.Equals, migration.AWAIT_POWEROFF)
	c.Check(rec.Updated, gc.Equals, now)

	_, err = rec.Advance(migration.PROVISIONING_IP, now)
	c.Check(err, gc.ErrorMatches, "cannot transition migration from await-poweroff to provisioning-ip")
}

func (s *RecordSuite) TestOutcome(c *gc.C) {
	rec := migration.Record{
		Phase: migration.COMPLETED,
		VM:    &migration.ResourceRef{ID: "vm-id", Name: "web01", Kind: migration.ResourceKindVM},
	}
	outcome, terminal := rec.Outcome()
	c.Check(terminal, jc.IsTrue)
	c.Check(outcome, jc.DeepEquals, migration.Completed("vm-id"))

	rec = migration.Record{Phase: migration.FAILED, Reason: "quota exceeded"}
	outcome, terminal = rec.Outcome()
	c.Check(terminal, jc.IsTrue)
	c.Check(outcome, jc.DeepEquals, migration.Failed("quota exceeded"))
}

func (s *RecordSuite) TestResources(c *gc.C) {
	ip := migration.ResourceRef{ID: "ip-id", Name: "ip", Kind: migration.ResourceKindIP}
	nic := migration.ResourceRef{ID: "nic-id", Name: "nic", Kind: migration.ResourceKindNIC}
	rec := migration.Record{IP: &ip, NIC: &nic}
	c.Check(rec.Resources(), jc.DeepEquals, []migration.ResourceRef{ip, nic})
}

func (s *RecordSuite) TestOutcomeString(c *gc.C) {
	c.Check(migration.Pending(30*time.Second).String(), gc.Equals, "pending, retry after 30s")
	c.Check(migration.Failed("disk not found").String(), gc.Equals, "failed: disk not found")
	c.Check(migration.Completed("vm-id").String(), gc.Equals, "completed (vm-id)")
}
