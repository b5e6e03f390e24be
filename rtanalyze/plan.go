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

package rtanalyze

import "github.com/snapcore/rtcore/rtsys"

// Ownership records whether a resource is touched by exactly one task
// (Exclusive) or more than one (Shared): spec.md §4.5 step 2.
type Ownership int

const (
	Exclusive Ownership = iota
	Shared
)

// ResourcePlan is the analyzer's output for one resource.
type ResourcePlan struct {
	Name      string
	Core      int
	Ceiling   uint8
	Ownership Ownership
	Late      bool
	OwnerCore int
}

// SlotRange is one sender core's share of a task's free-slot partition
// (spec.md §4.5 step 5): slots [Lo, Hi) belong to SenderCore.
type SlotRange struct {
	SenderCore int
	Lo, Hi     int
}

// TaskPlan is the analyzer's output for one task.
type TaskPlan struct {
	Name     string
	Core     int
	Priority uint8
	Capacity int

	// Tag is this task's discriminant within the tagged union of tasks
	// dispatched at (Core, Priority): spec.md §4.6 "a tagged-union
	// R{c}_T{P} enumerating tasks dispatched at that priority on that
	// executor". Unique only among tasks sharing (Core, Priority).
	Tag uint8

	Senders   []SlotRange
	TotalSlot int
}

// CorePlan is the analyzer's output for one executor: the signal numbers
// it owns and how they map to priorities (spec.md §4.5 step 1, §3
// "Signal assignment").
type CorePlan struct {
	Core int

	// Base is the offset from rtsys.SIGRTMIN at which this core's
	// contiguous signal range starts; ranges across cores are disjoint.
	Base int

	// Signals maps each distinct priority used on this core (descending)
	// to its offset from Base, in [0, len(Signals)). Offset 0 is the
	// highest priority, matching spec.md §3: "the highest priority maps
	// to start_c and lower priorities map to successively higher signal
	// numbers".
	Signals map[uint8]int

	// HasTimerQueue is true if any task on this core is ever scheduled.
	HasTimerQueue bool

	// TimerPriority is the synthetic priority level reserved for the
	// timer queue when HasTimerQueue is true: one above every
	// application priority on this core, so the timer fires and
	// re-arms without being delayed by application work.
	TimerPriority uint8
}

// Signo returns the real-time signal offset (added to rtsys.SIGRTMIN)
// assigned to priority p on this core. ok is false if p is not used here.
func (c CorePlan) Signo(p uint8) (offset int, ok bool) {
	off, ok := c.Signals[p]
	if !ok {
		return 0, false
	}
	return c.Base + off, true
}

// Rank returns p's dense local rank in [1, N] (N = len(Signals)), the
// form rtprio.Cell's Raise/Lower/SignalFor expect: rank N is the highest
// priority actually used on this core, rank 1 the lowest, with no gaps
// even when the application's own priority numbers are sparse.
func (c CorePlan) Rank(p uint8) (rank uint8, ok bool) {
	off, ok := c.Signals[p]
	if !ok {
		return 0, false
	}
	return uint8(len(c.Signals) - off), true
}

// SigLo/SigHi are the absolute (rtsys.SIGRTMIN-relative) signal number
// bounds of this core's range, as rtprio.NewCell wants them.
func (c CorePlan) SigLo() int { return rtsys.SIGRTMIN + c.Base }
func (c CorePlan) SigHi() int { return rtsys.SIGRTMIN + c.Base + len(c.Signals) - 1 }

// BarrierEdge records that core From's init must complete and release
// its barrier before core To's init may proceed, because To reads a late
// resource that From writes (spec.md §4.5 step 4).
type BarrierEdge struct {
	From, To int
}

// Plan is the complete analyzer output consumed by rtruntime.Build.
type Plan struct {
	Cores     []CorePlan
	Tasks     map[string]TaskPlan
	Resources map[string]ResourcePlan
	Barriers  []BarrierEdge
}
