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

//go:build linux && amd64

package rtsys_test

import (
	"os"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/snapcore/rtcore/rtsys"
)

func Test(t *testing.T) { TestingT(t) }

type sysSuite struct{}

var _ = Suite(&sysSuite{})

func (s *sysSuite) TestRangeMaskContiguous(c *C) {
	m := rtsys.RangeMask(3, 5)
	c.Check(m.Has(2), Equals, false)
	c.Check(m.Has(3), Equals, true)
	c.Check(m.Has(4), Equals, true)
	c.Check(m.Has(5), Equals, true)
	c.Check(m.Has(6), Equals, false)
}

func (s *sysSuite) TestRangeMaskSingle(c *C) {
	m := rtsys.RangeMask(10, 10)
	c.Check(m.Has(9), Equals, false)
	c.Check(m.Has(10), Equals, true)
	c.Check(m.Has(11), Equals, false)
}

func (s *sysSuite) TestRangeMaskEmptyWhenInverted(c *C) {
	c.Check(rtsys.RangeMask(5, 3), Equals, rtsys.Sigset(0))
}

func (s *sysSuite) TestSigsetBlockAndHas(c *C) {
	var set rtsys.Sigset
	set = set.Block(rtsys.SIGRTMIN)
	set = set.Block(rtsys.SIGRTMIN + 4)
	c.Check(set.Has(rtsys.SIGRTMIN), Equals, true)
	c.Check(set.Has(rtsys.SIGRTMIN+1), Equals, false)
	c.Check(set.Has(rtsys.SIGRTMIN+4), Equals, true)
}

func (s *sysSuite) TestWriteToStdout(c *C) {
	n, err := rtsys.Write(1, []byte(""))
	c.Assert(err, IsNil)
	c.Check(n, Equals, 0)
}

func (s *sysSuite) TestGetpidMatchesOS(c *C) {
	c.Check(rtsys.Getpid(), Equals, os.Getpid())
}

func (s *sysSuite) TestClockGettimeMonotonic(c *C) {
	ts, err := rtsys.ClockGettime(rtsys.ClockMonotonic)
	c.Assert(err, IsNil)
	c.Check(ts.Sec >= 0, Equals, true)
}
