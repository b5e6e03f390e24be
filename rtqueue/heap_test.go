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

package rtqueue_test

import (
	. "gopkg.in/check.v1"

	"github.com/snapcore/rtcore/rtqueue"
)

type heapSuite struct{}

var _ = Suite(&heapSuite{})

func (s *heapSuite) TestPeekIsMinimum(c *C) {
	h := rtqueue.NewMinHeap[int](8, func(a, b int) bool { return a < b })
	for _, v := range []int{5, 1, 4, 2, 8, 0, 3} {
		c.Assert(h.Push(v), Equals, true)
	}
	top, ok := h.Peek()
	c.Assert(ok, Equals, true)
	c.Check(top, Equals, 0)
}

func (s *heapSuite) TestPopOrdersAscending(c *C) {
	h := rtqueue.NewMinHeap[int](8, func(a, b int) bool { return a < b })
	for _, v := range []int{5, 1, 4, 2, 8, 0, 3} {
		h.Push(v)
	}
	var out []int
	for h.Len() > 0 {
		v, _ := h.Pop()
		out = append(out, v)
	}
	c.Check(out, DeepEquals, []int{0, 1, 2, 3, 4, 5, 8})
}

func (s *heapSuite) TestCapacityIsFixed(c *C) {
	h := rtqueue.NewMinHeap[int](2, func(a, b int) bool { return a < b })
	c.Assert(h.Push(1), Equals, true)
	c.Assert(h.Push(2), Equals, true)
	c.Check(h.Push(3), Equals, false)
	c.Check(h.Len(), Equals, 2)
}

func (s *heapSuite) TestEmptyHeapPeekAndPop(c *C) {
	h := rtqueue.NewMinHeap[int](2, func(a, b int) bool { return a < b })
	_, ok := h.Peek()
	c.Check(ok, Equals, false)
	_, ok = h.Pop()
	c.Check(ok, Equals, false)
}
