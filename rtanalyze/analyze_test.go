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

package rtanalyze_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/snapcore/rtcore/rtanalyze"
	"github.com/snapcore/rtcore/rtapp"
)

func Test(t *testing.T) { TestingT(t) }

type analyzeSuite struct{}

var _ = Suite(&analyzeSuite{})

// The priorities 1,2,3 of S2 from spec.md §8, without its shared resource.
func (s *analyzeSuite) TestSignalAssignmentIsDescendingByPriority(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "init", "").
		Task("foo", rtapp.Task{Priority: 1, Capacity: 1, Core: 0}).
		Task("bar", rtapp.Task{Priority: 2, Capacity: 1, Core: 0}).
		Task("baz", rtapp.Task{Priority: 3, Capacity: 1, Core: 0}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	core := plan.Cores[0]
	off3, _ := core.Signo(3)
	off2, _ := core.Signo(2)
	off1, _ := core.Signo(1)
	c.Check(off3, Equals, 0) // highest priority -> lowest signal number
	c.Check(off2, Equals, 1)
	c.Check(off1, Equals, 2)
}

func (s *analyzeSuite) TestTimerQueuePriorityIsAboveEveryTaskPriority(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "init", "").
		Task("foo", rtapp.Task{Priority: 1, Capacity: 1, Core: 0}).
		Task("bar", rtapp.Task{Priority: 3, Capacity: 1, Core: 0, Schedule: []string{"foo"}}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	core := plan.Cores[0]
	c.Assert(core.HasTimerQueue, Equals, true)
	c.Check(core.TimerPriority > 3, Equals, true)
	timerOff, ok := core.Signo(core.TimerPriority)
	c.Assert(ok, Equals, true)
	c.Check(timerOff, Equals, 0) // timer is the highest priority on the core
}

func (s *analyzeSuite) TestCoreRangesAreDisjointAndContiguous(c *C) {
	app := rtapp.NewBuilder(2).
		Core(0, "init0", "").
		Core(1, "init1", "").
		Task("a", rtapp.Task{Priority: 1, Capacity: 1, Core: 0}).
		Task("b", rtapp.Task{Priority: 2, Capacity: 1, Core: 0}).
		Task("c", rtapp.Task{Priority: 1, Capacity: 1, Core: 1}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	c.Check(plan.Cores[0].Base, Equals, 0)
	c.Check(plan.Cores[1].Base, Equals, 2)
}

func (s *analyzeSuite) TestResourceCeilingIsMaxAccessorPriority(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "init", "").
		Resource("shared", false, 0).
		Task("lo", rtapp.Task{Priority: 1, Capacity: 1, Core: 0, Resources: []string{"shared"}}).
		Task("hi", rtapp.Task{Priority: 2, Capacity: 1, Core: 0, Resources: []string{"shared"}}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	c.Check(plan.Resources["shared"].Ceiling, Equals, uint8(2))
	c.Check(plan.Resources["shared"].Ownership, Equals, rtanalyze.Shared)
}

func (s *analyzeSuite) TestResourceTouchedByOneTaskIsExclusive(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "init", "").
		Resource("mine", false, 0).
		Task("solo", rtapp.Task{Priority: 1, Capacity: 1, Core: 0, Resources: []string{"mine"}}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	c.Check(plan.Resources["mine"].Ownership, Equals, rtanalyze.Exclusive)
}

func (s *analyzeSuite) TestFreeSlotLayoutPartitionsPerSenderCore(c *C) {
	app := rtapp.NewBuilder(2).
		Core(0, "init0", "").
		Core(1, "init1", "").
		Task("a", rtapp.Task{Priority: 1, Capacity: 2, Core: 0, Spawn: []string{"target"}}).
		Task("b", rtapp.Task{Priority: 1, Capacity: 2, Core: 1, Spawn: []string{"target"}}).
		Task("target", rtapp.Task{Priority: 1, Capacity: 2, Core: 0}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	tp := plan.Tasks["target"]
	c.Assert(len(tp.Senders), Equals, 2)
	c.Check(tp.Senders[0].SenderCore, Equals, 0)
	c.Check(tp.Senders[0].Lo, Equals, 0)
	c.Check(tp.Senders[0].Hi, Equals, 2)
	c.Check(tp.Senders[1].SenderCore, Equals, 1)
	c.Check(tp.Senders[1].Lo, Equals, 2)
	c.Check(tp.Senders[1].Hi, Equals, 4)
	c.Check(tp.TotalSlot, Equals, 4)
}

func (s *analyzeSuite) TestInitSpawnCountsAsASender(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "init", "").
		CoreSpawn(0, "foo").
		Task("foo", rtapp.Task{Priority: 1, Capacity: 1, Core: 0}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	tp := plan.Tasks["foo"]
	c.Assert(len(tp.Senders), Equals, 1)
	c.Check(tp.Senders[0].SenderCore, Equals, 0)
}

func (s *analyzeSuite) TestTagsAreUniqueWithinSharedPriority(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "init", "").
		Task("foo", rtapp.Task{Priority: 1, Capacity: 1, Core: 0}).
		Task("bar", rtapp.Task{Priority: 1, Capacity: 1, Core: 0}).
		Task("baz", rtapp.Task{Priority: 2, Capacity: 1, Core: 0}).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	c.Check(plan.Tasks["foo"].Tag != plan.Tasks["bar"].Tag, Equals, true)
	// a different priority level may reuse tag 0 freely
	c.Check(plan.Tasks["baz"].Tag, Equals, uint8(0))
}

func (s *analyzeSuite) TestBarrierGraphEdgeFromOwnerToReader(c *C) {
	app := rtapp.NewBuilder(2).
		Core(0, "init0", "").
		Core(1, "init1", "", "late").
		Resource("late", true, 0).
		Build()

	plan, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
	c.Assert(plan.Barriers, HasLen, 1)
	c.Check(plan.Barriers[0], Equals, rtanalyze.BarrierEdge{From: 0, To: 1})
}

func (s *analyzeSuite) TestValidateRejectsUndeclaredSpawnTarget(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "init", "").
		Task("a", rtapp.Task{Priority: 1, Capacity: 1, Core: 0, Spawn: []string{"ghost"}}).
		Build()
	_, err := rtanalyze.Analyze(app)
	c.Assert(err, ErrorMatches, ".*undeclared task \"ghost\".*")
}

func (s *analyzeSuite) TestValidateRejectsCrossCoreResourceSharing(c *C) {
	app := rtapp.NewBuilder(2).
		Core(0, "init0", "").
		Core(1, "init1", "").
		Resource("shared", false, 0).
		Task("a", rtapp.Task{Priority: 1, Capacity: 1, Core: 0, Resources: []string{"shared"}}).
		Task("b", rtapp.Task{Priority: 1, Capacity: 1, Core: 1, Resources: []string{"shared"}}).
		Build()
	_, err := rtanalyze.Analyze(app)
	c.Assert(err, ErrorMatches, ".*shared across cores.*")
}

func (s *analyzeSuite) TestValidateAllowsCoreInitToReadAnotherCoresLateResource(c *C) {
	// The opposite of a lock: a core's init listing a late resource it
	// doesn't own is exactly what buildBarrierGraph turns into a wait
	// edge (see TestBarrierGraphEdgeFromOwnerToReader), so it must pass
	// validation rather than be rejected.
	app := rtapp.NewBuilder(2).
		Core(0, "init0", "", "late").
		Core(1, "init1", "").
		Resource("late", true, 1).
		Build()
	_, err := rtanalyze.Analyze(app)
	c.Assert(err, IsNil)
}

func (s *analyzeSuite) TestValidateRejectsTaskLockingAnotherCoresLateResource(c *C) {
	app := rtapp.NewBuilder(2).
		Core(0, "init0", "").
		Core(1, "init1", "").
		Resource("late", true, 1).
		Task("a", rtapp.Task{Priority: 1, Capacity: 1, Core: 0, Resources: []string{"late"}}).
		Build()
	_, err := rtanalyze.Analyze(app)
	c.Assert(err, ErrorMatches, ".*locks late resource \"late\" owned by core 1.*")
}

func (s *analyzeSuite) TestValidateRejectsIdentifierCollision(c *C) {
	app := rtapp.NewBuilder(1).
		Core(0, "foo", "").
		Task("foo", rtapp.Task{Priority: 1, Capacity: 1, Core: 0}).
		Build()
	_, err := rtanalyze.Analyze(app)
	c.Assert(err, ErrorMatches, ".*identifier collision.*")
}

func (s *analyzeSuite) TestAnalyzeRejectsTooManySignals(c *C) {
	// Two cores each using 20 distinct priorities: 40 real-time signals
	// total, more than Linux's 32.
	b := rtapp.NewBuilder(2).Core(0, "init0", "").Core(1, "init1", "")
	for i := 0; i < 20; i++ {
		b.Task(taskName(0, i), rtapp.Task{Priority: uint8(i + 1), Capacity: 1, Core: 0})
		b.Task(taskName(1, i), rtapp.Task{Priority: uint8(i + 1), Capacity: 1, Core: 1})
	}
	_, err := rtanalyze.Analyze(b.Build())
	c.Assert(err, ErrorMatches, ".*real-time signals.*")
}

func (s *analyzeSuite) TestAnalyzeAcceptsExactly32Signals(c *C) {
	b := rtapp.NewBuilder(1).Core(0, "init", "")
	for i := 0; i < 32; i++ {
		b.Task(taskName(0, i), rtapp.Task{Priority: uint8(i + 1), Capacity: 1, Core: 0})
	}
	_, err := rtanalyze.Analyze(b.Build())
	c.Assert(err, IsNil)
}

func taskName(core, i int) string {
	return string(rune('a'+core)) + string(rune('A'+i))
}
