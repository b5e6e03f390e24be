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

// Barrier is a one-shot release/wait gate, one per core that publishes a
// late resource. It is the Go analogue of the atomic bool described in
// spec.md §4.2: Release stores true with release semantics, Wait spins
// with an acquire load until it observes it, yielding the processor
// between polls the same way the original busy-waits via sched_yield
// rather than blocking on a futex (there is no other way to wait for an
// executor thread that is itself spinning with signals masked).
type Barrier struct {
	released atomic.Bool
}

// Release marks the barrier as satisfied. Idempotent.
func (b *Barrier) Release() {
	b.released.Store(true)
}

// Wait spins until Release has been called.
func (b *Barrier) Wait() {
	for !b.released.Load() {
		rtsys.SchedYield()
	}
}

// Ready reports whether Release has already been called, without waiting.
func (b *Barrier) Ready() bool {
	return b.released.Load()
}
