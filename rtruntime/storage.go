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

package rtruntime

import (
	"github.com/snapcore/rtcore/rtanalyze"
	"github.com/snapcore/rtcore/rtprio"
	"github.com/snapcore/rtcore/rtqueue"
	"github.com/snapcore/rtcore/rttimer"
)

// taskSlot is one entry of INPUTS[t]/INSTANTS[t] (spec.md §3): a single
// input, and — only meaningful if the task is ever scheduled — the
// instant it is due.
type taskSlot struct {
	input   interface{}
	instant Instant
}

// taskState is the fully wired runtime state for one task: its storage
// arena and one free-slot queue per sender core (spec.md §3 "Free
// queue").
type taskState struct {
	name     string
	core     int
	priority uint8
	tag      uint8
	capacity int
	fn       TaskFunc

	// timerTag is this task's discriminant within its core's timer
	// queue, unique across every scheduled task on the core regardless
	// of priority (unlike tag, which is only unique within one priority
	// group): see build.go's timer-tag assignment.
	timerTag uint8

	slots []taskSlot
	// free is keyed by sender core. The handler (this task's dispatch
	// loop) is the producer, pushing a slot index back after running;
	// a spawn/schedule call site on that sender core is the consumer,
	// popping a slot before writing into it. This directionality is the
	// reverse of the task's own work flow (the spawner produces work, the
	// handler consumes it) and is deliberate: see spec.md §9 "Reentrancy
	// of handlers".
	free map[int]*rtqueue.SPSC[int]
	// senderOf maps a slot index back to the sender core it belongs to,
	// so the handler returns a finished slot to the one free queue that
	// is allowed to hand it out again rather than any queue with room.
	senderOf []int
}

func newTaskState(tp rtanalyze.TaskPlan, fn TaskFunc) *taskState {
	ts := &taskState{
		name:     tp.Name,
		core:     tp.Core,
		priority: tp.Priority,
		tag:      tp.Tag,
		capacity: tp.Capacity,
		fn:       fn,
		slots:    make([]taskSlot, tp.TotalSlot),
		free:     make(map[int]*rtqueue.SPSC[int], len(tp.Senders)),
		senderOf: make([]int, tp.TotalSlot),
	}
	for _, sr := range tp.Senders {
		q := rtqueue.NewSPSC[int](sr.Hi - sr.Lo)
		for i := sr.Lo; i < sr.Hi; i++ {
			q.Push(i)
			ts.senderOf[i] = sr.SenderCore
		}
		ts.free[sr.SenderCore] = q
	}
	return ts
}

// dispatchEntry is one (core, signal offset) table slot: either the
// timer-queue priority, or a set of tasks dispatched at a shared
// priority, keyed by their tag (spec.md §4.6 tagged union R{c}_T{P}).
type dispatchEntry struct {
	isTimer bool
	tasks   map[uint8]*taskState
}

// executor is the runtime state for one core: its priority cell, its
// optional timer queue, and the signal-offset dispatch table.
type executor struct {
	core int
	cell *rtprio.Cell
	tq   *rttimer.Queue // nil if the core has no scheduled tasks

	timerOffset int // offset of the timer-queue priority, if tq != nil
	dispatch    map[int]dispatchEntry
	// timerTasks maps a scheduled task's timerTag to its state, for the
	// dispatch loop to resolve a NotReady entry popped off tq.
	timerTasks map[uint8]*taskState

	tid   rtqueue.OneCell
	ready rtqueue.Barrier // released once this core has published late resources it owns
	idle  IdleFunc
}
