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

package rtqueue

import (
	"sync/atomic"

	"github.com/snapcore/rtcore/rtsys"
)

// OneCell is a write-once, busy-wait-to-read cell of int32, used for the
// process-wide Pid and per-core Tid publication described in spec.md §9
// ("Heavy use of process-wide state"). uninit is 0; real PIDs and TIDs
// are always positive, so 0 unambiguously means "not yet published".
type OneCell struct {
	v atomic.Int32
}

// Set publishes value. Calling it twice is a programmer error (the
// bootstrap only ever calls it once per core) but is not itself checked
// here, to keep the cell allocation-free and branch-free on the hot path.
func (c *OneCell) Set(value int32) {
	c.v.Store(value)
}

// Get busy-waits (yielding the processor between polls, like Barrier)
// until a value has been published, then returns it.
func (c *OneCell) Get() int32 {
	for {
		if v := c.v.Load(); v != 0 {
			return v
		}
		rtsys.SchedYield()
	}
}

// TryGet returns the published value and true, or (0, false) if Set has
// not been called yet.
func (c *OneCell) TryGet() (int32, bool) {
	v := c.v.Load()
	return v, v != 0
}
