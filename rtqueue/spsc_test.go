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
	"sync"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/snapcore/rtcore/rtqueue"
)

func Test(t *testing.T) { TestingT(t) }

type spscSuite struct{}

var _ = Suite(&spscSuite{})

func (s *spscSuite) TestPushPopOrder(c *C) {
	q := rtqueue.NewSPSC[int](4)
	c.Assert(q.Push(1), Equals, true)
	c.Assert(q.Push(2), Equals, true)
	v, ok := q.Pop()
	c.Assert(ok, Equals, true)
	c.Check(v, Equals, 1)
	v, ok = q.Pop()
	c.Assert(ok, Equals, true)
	c.Check(v, Equals, 2)
	_, ok = q.Pop()
	c.Check(ok, Equals, false)
}

func (s *spscSuite) TestQueueFullIsOnlyError(c *C) {
	q := rtqueue.NewSPSC[uint8](2)
	c.Assert(q.Push(1), Equals, true)
	c.Assert(q.Push(2), Equals, true)
	c.Check(q.Push(3), Equals, false)

	v, _ := q.Pop()
	c.Check(v, Equals, uint8(1))
	c.Check(q.Push(3), Equals, true)
}

func (s *spscSuite) TestFreeSlotAccountingRoundTrip(c *C) {
	const capacity = 8
	q := rtqueue.NewSPSC[uint8](capacity)
	for i := 0; i < capacity; i++ {
		c.Assert(q.Push(uint8(i)), Equals, true)
	}
	c.Check(q.Push(99), Equals, false)

	seen := map[uint8]bool{}
	for i := 0; i < capacity; i++ {
		v, ok := q.Pop()
		c.Assert(ok, Equals, true)
		seen[v] = true
	}
	c.Check(len(seen), Equals, capacity)
	c.Check(q.Len(), Equals, 0)
}

func (s *spscSuite) TestConcurrentSingleProducerSingleConsumer(c *C) {
	const n = 20000
	q := rtqueue.NewSPSC[int](64)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Push(i) {
				// ring momentarily full; spin until the consumer drains it
			}
		}
	}()

	received := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			if v, ok := q.Pop(); ok {
				received = append(received, v)
			}
		}
	}()

	wg.Wait()
	c.Assert(len(received), Equals, n)
	for i, v := range received {
		c.Assert(v, Equals, i)
	}
}
