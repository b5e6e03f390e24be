// Copyright (C) 2024 Canonical Ltd
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License version 3 as
// published by the Free Software Foundation.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package rtapp_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/snapcore/rtcore/rtapp"
)

func Test(t *testing.T) { TestingT(t) }

type modelSuite struct{}

var _ = Suite(&modelSuite{})

func (s *modelSuite) TestFinishSetsNameFromMapKey(c *C) {
	app := rtapp.NewBuilder(1).
		Task("blink", rtapp.Task{Priority: 1, Capacity: 4, Core: 0}).
		Build()
	c.Check(app.Tasks["blink"].Name, Equals, "blink")
}

func (s *modelSuite) TestFinishMarksScheduledTargets(c *C) {
	app := rtapp.NewBuilder(1).
		Task("producer", rtapp.Task{Priority: 2, Capacity: 4, Core: 0, Schedule: []string{"consumer"}}).
		Task("consumer", rtapp.Task{Priority: 1, Capacity: 4, Core: 0}).
		Build()
	c.Check(app.Tasks["consumer"].Scheduled, Equals, true)
	c.Check(app.Tasks["producer"].Scheduled, Equals, false)
}

func (s *modelSuite) TestFinishIgnoresScheduleOfUndeclaredTask(c *C) {
	app := rtapp.NewBuilder(1).
		Task("producer", rtapp.Task{Priority: 2, Capacity: 4, Core: 0, Schedule: []string{"ghost"}}).
		Build()
	// no panic, no entry created for "ghost": rtanalyze.Validate catches this
	c.Check(len(app.Tasks), Equals, 1)
}

func (s *modelSuite) TestParseApplicationRoundTrip(c *C) {
	doc := []byte(`
cores: 1
core_specs:
  0:
    init: init
    idle: idle
resources:
  shared:
    late: false
tasks:
  blink:
    priority: 1
    capacity: 4
    core: 0
    resources: [shared]
`)
	app, err := rtapp.ParseApplication(doc)
	c.Assert(err, IsNil)
	c.Check(app.Cores, Equals, 1)
	c.Check(app.CoreSpecs[0].Init, Equals, "init")
	c.Check(app.Tasks["blink"].Priority, Equals, uint8(1))
	c.Check(app.Tasks["blink"].Resources, DeepEquals, []string{"shared"})
	c.Check(app.Resources["shared"].Name, Equals, "shared")
}

func (s *modelSuite) TestParseApplicationRejectsMalformedYAML(c *C) {
	_, err := rtapp.ParseApplication([]byte("cores: [this is not a map"))
	c.Assert(err, NotNil)
}
