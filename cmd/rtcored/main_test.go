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

package main

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/snapcore/rtcore/rtapp"
	"github.com/snapcore/rtcore/rtruntime"
)

func Test(t *testing.T) { TestingT(t) }

type mainSuite struct{}

var _ = Suite(&mainSuite{})

func (s *mainSuite) TestRegisterDemoHandlersSatisfiesRegistry(c *C) {
	app := rtapp.NewBuilder(2).
		Core(0, "init0", "", "late").
		Core(1, "init1", "").
		Task("t", rtapp.Task{Priority: 1, Capacity: 1, Core: 1}).
		Resource("late", true, 0).
		Resource("counter", false, 1).
		Build()

	reg := rtruntime.NewRegistry()
	c.Assert(registerDemoHandlers(app, reg), IsNil)

	// Build succeeding is the real assertion: it only does if every task,
	// core and non-late resource came out of registerDemoHandlers.
	_, err := rtruntime.Build(app, reg)
	c.Assert(err, IsNil)
}

func (s *mainSuite) TestRegisterDemoHandlersRejectsDuplicateRegistration(c *C) {
	app := rtapp.NewBuilder(1).Core(0, "init", "").Build()
	reg := rtruntime.NewRegistry()
	c.Assert(reg.RegisterInit(0, func(*rtruntime.Context) map[string]interface{} { return nil }), IsNil)

	err := registerDemoHandlers(app, reg)
	c.Assert(err, ErrorMatches, `.*already has an init function registered.*`)
}
