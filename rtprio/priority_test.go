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

package rtprio_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/snapcore/rtcore/rtprio"
)

func Test(t *testing.T) { TestingT(t) }

type prioSuite struct{}

var _ = Suite(&prioSuite{})

func (s *prioSuite) TestSignalForIsDescending(c *C) {
	cell := rtprio.NewCell(32, 35, 0)
	// highest priority (4) -> lowest signal (32), per spec.md §3
	c.Check(cell.SignalFor(4), Equals, 32)
	c.Check(cell.SignalFor(1), Equals, 35)
}

func (s *prioSuite) TestRaiseLowerRestoresCurrent(c *C) {
	cell := rtprio.NewCell(32, 35, 1)
	previous, raised := cell.Raise(3)
	c.Assert(raised, Equals, true)
	c.Check(previous, Equals, uint8(1))
	c.Check(cell.Current(), Equals, uint8(3))
	cell.Lower(previous)
	c.Check(cell.Current(), Equals, uint8(1))
}

func (s *prioSuite) TestRaiseIsNoopBelowCurrent(c *C) {
	cell := rtprio.NewCell(32, 35, 3)
	_, raised := cell.Raise(2)
	c.Check(raised, Equals, false)
	c.Check(cell.Current(), Equals, uint8(3))
}

func (s *prioSuite) TestLockRunsCriticalSectionAndRestoresPriority(c *C) {
	cell := rtprio.NewCell(32, 35, 1)
	res := 0
	rtprio.Lock(cell, &res, 3, func(r *int) {
		c.Check(cell.Current(), Equals, uint8(3))
		*r = 42
	})
	c.Check(res, Equals, 42)
	c.Check(cell.Current(), Equals, uint8(1))
}

func (s *prioSuite) TestLockAtOrAboveCeilingSkipsRaise(c *C) {
	cell := rtprio.NewCell(32, 35, 4)
	res := 0
	rtprio.Lock(cell, &res, 2, func(r *int) {
		c.Check(cell.Current(), Equals, uint8(4))
		*r = 7
	})
	c.Check(res, Equals, 7)
	c.Check(cell.Current(), Equals, uint8(4))
}
