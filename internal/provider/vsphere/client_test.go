// Copyright 2017 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package vsphere_test

import (
	"context"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/vmware/govmomi/simulator"
	gc "gopkg.in/check.v1"

	"github.com/juju/vmmigrate/core/migration"
	"github.com/juju/vmmigrate/internal/provider/vsphere"
	coretesting "github.com/juju/vmmigrate/testing"
)

const testVM = "DC0_H0_VM0"

type clientSuite struct {
	testing.IsolationSuite

	model  *simulator.Model
	server *simulator.Server
	client *vsphere.Client
	logger *coretesting.RecordingLogger
}

var _ = gc.Suite(&clientSuite{})

func (s *clientSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)

	s.model = simulator.VPX()
	c.Assert(s.model.Create(), jc.ErrorIsNil)
	s.server = s.model.Service.NewServer()
	s.logger = &coretesting.RecordingLogger{}

	client, err := vsphere.Dial(context.Background(), s.server.URL, "DC0", s.logger)
	c.Assert(err, jc.ErrorIsNil)
	s.client = client
}

func (s *clientSuite) TearDownTest(c *gc.C) {
	if s.client != nil {
		_ = s.client.Close(context.Background())
	}
	s.server.Close()
	s.model.Remove()
	s.IsolationSuite.TearDownTest(c)
}

func (s *clientSuite) waitForState(c *gc.C, want migration.PowerState) {
	deadline := time.Now().Add(coretesting.LongWait)
	for {
		state, err := s.client.PowerState(context.Background(), testVM)
		c.Assert(err, jc.ErrorIsNil)
		if state == want {
			return
		}
		if time.Now().After(deadline) {
			c.Fatalf("%s still %s, want %s", testVM, state, want)
		}
		time.Sleep(coretesting.ShortWait)
	}
}

func (s *clientSuite) TestPowerStateRunning(c *gc.C) {
	state, err := s.client.PowerState(context.Background(), testVM)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(state, gc.Equals, migration.PowerStateRunning)
}

func (s *clientSuite) TestPowerStateNotFound(c *gc.C) {
	_, err := s.client.PowerState(context.Background(), "no-such-vm")
	c.Assert(err, jc.ErrorIs, errors.NotFound)
	c.Assert(err, gc.ErrorMatches, `virtual machine "no-such-vm" not found`)
}

func (s *clientSuite) TestPowerOff(c *gc.C) {
	err := s.client.PowerOff(context.Background(), testVM)
	c.Assert(err, jc.ErrorIsNil)
	s.waitForState(c, migration.PowerStateOff)
}

func (s *clientSuite) TestPowerOffAlreadyOff(c *gc.C) {
	c.Assert(s.client.PowerOff(context.Background(), testVM), jc.ErrorIsNil)
	s.waitForState(c, migration.PowerStateOff)

	err := s.client.PowerOff(context.Background(), testVM)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.logger.Contains(`"DC0_H0_VM0" is already powered off`), jc.IsTrue)
}

func (s *clientSuite) TestPowerOffNotFound(c *gc.C) {
	err := s.client.PowerOff(context.Background(), "no-such-vm")
	c.Assert(err, jc.ErrorIs, errors.NotFound)
}

func (s *clientSuite) TestRefresh(c *gc.C) {
	c.Assert(s.client.Refresh(context.Background(), testVM), jc.ErrorIsNil)
	c.Assert(s.client.Refresh(context.Background(), "no-such-vm"), jc.ErrorIs, errors.NotFound)
}

func (s *clientSuite) TestMachine(c *gc.C) {
	info, err := s.client.Machine(context.Background(), testVM)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(info.Name, gc.Equals, testVM)
	c.Assert(info.Host, gc.Equals, "DC0_H0")
	c.Assert(info.PowerState, gc.Equals, migration.PowerStateRunning)
	c.Assert(info.Disk, gc.Equals, humanize.IBytes(info.DiskBytes))
}

func (s *clientSuite) TestUnknownDatacenter(c *gc.C) {
	client, err := vsphere.Dial(context.Background(), s.server.URL, "DC9", s.logger)
	c.Assert(err, jc.ErrorIsNil)
	defer func() { _ = client.Close(context.Background()) }()

	_, err = client.PowerState(context.Background(), testVM)
	c.Assert(err, gc.ErrorMatches, `.*DC9.*not found`)
}

type dialSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&dialSuite{})

func (s *dialSuite) TestDialUnreachable(c *gc.C) {
	u := &url.URL{
		Scheme: "https",
		Host:   "127.0.0.1:1",
		Path:   "/sdk",
		User:   url.UserPassword("user", "pass"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), coretesting.LongWait)
	defer cancel()

	_, err := vsphere.Dial(ctx, u, "DC0", &coretesting.RecordingLogger{})
	c.Assert(err, gc.ErrorMatches, `connecting to vCenter 127.0.0.1:1: .*`)
	c.Assert(migration.KindOf(err), gc.Equals, migration.TransportError)
}
