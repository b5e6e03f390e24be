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
	"fmt"

	"github.com/snapcore/rtcore/rtsys"
	"github.com/snapcore/rtcore/rttimer"
)

// spawn is the shared implementation behind Context.Spawn and
// Context.Schedule (spec.md §4.6 "per spawn/schedule call site"): pop a
// free slot belonging to senderCore, write the input (and, for schedule,
// the instant) into it, and either raise the task's dispatch signal
// directly (spawn) or enqueue it in the target core's timer queue
// (schedule).
func (rt *Runtime) spawn(senderCore int, task string, input interface{}, at *Instant) error {
	ts, ok := rt.tasks[task]
	if !ok {
		return fmt.Errorf("rtruntime: no such task %q", task)
	}
	if at != nil && ts.core != senderCore {
		return fmt.Errorf("rtruntime: schedule(%q) must be called from its own core %d, not %d", task, ts.core, senderCore)
	}

	q, ok := ts.free[senderCore]
	if !ok {
		return fmt.Errorf("rtruntime: %q has no caller on core %d", task, senderCore)
	}
	slot, ok := q.Pop()
	if !ok {
		return &QueueFullError{Task: task, Input: input}
	}

	if at != nil {
		ts.slots[slot] = taskSlot{input: input, instant: *at}
	} else {
		ts.slots[slot] = taskSlot{input: input}
	}
	value := uint64(ts.tag)<<8 | uint64(uint8(slot))

	if at == nil {
		return rt.raiseTask(ts, value)
	}
	if !rt.scheduleTask(ts, *at, uint8(slot)) {
		q.Push(slot) // the timer heap rejected it; give the slot back
		return &QueueFullError{Task: task, Input: input}
	}
	return nil
}

// raiseTask delivers task's dispatch signal immediately (a spawn).
func (rt *Runtime) raiseTask(ts *taskState, value uint64) error {
	cp := rt.plan.Cores[ts.core]
	offset, ok := cp.Signo(ts.priority)
	if !ok {
		return fmt.Errorf("rtruntime: %q has no assigned signal", ts.name)
	}
	sig := rtsys.SIGRTMIN + offset
	if err := rt.raiseFn(rt, ts.core, sig, value); err != nil {
		fatal(fmt.Sprintf("couldn't queue signal %d for %q: %v", sig, ts.name, err))
	}
	return nil
}

// scheduleTask pushes a NotReady entry into task's core's timer queue,
// tagging it with task's timerTag (unique across every scheduled task on
// the core, unlike the priority-scoped dispatch tag) and the slot just
// written, so the dispatch loop can recover both once the deadline is
// reached. It reports whether the queue had room.
func (rt *Runtime) scheduleTask(ts *taskState, at Instant, slot uint8) bool {
	ex := rt.executors[ts.core]
	nr := rttimer.NotReady{Instant: at, Index: slot, Task: ts.timerTag}
	target := rttimer.Target{CrossCore: rt.crossCore}
	if rt.crossCore {
		tid, _ := ex.tid.TryGet()
		target.TGID, target.TID = rt.tgid, int(tid)
	}
	return ex.tq.Enqueue(nr, target)
}

// defaultRaise is the real cross-process/cross-thread signal delivery
// used outside of tests: single-core applications queue to the whole
// process (rt_sigqueueinfo), multi-core applications always target the
// destination executor's thread directly (rt_tgsigqueueinfo), mirroring
// rttimer.Target.CrossCore's convention.
func defaultRaise(rt *Runtime, targetCore, sig int, value uint64) error {
	if !rt.crossCore {
		return rtsys.RtSigqueueinfo(rtsys.Getpid(), sig, value)
	}
	tid, ok := rt.executors[targetCore].tid.TryGet()
	if !ok {
		return fmt.Errorf("rtruntime: core %d has not published its thread id yet", targetCore)
	}
	return rtsys.RtTgsigqueueinfo(rt.tgid, int(tid), sig, value)
}

// dispatchOutcome is what dispatchStep decided to run, decoupled from the
// real blocking wait so it can be unit tested directly.
type dispatchOutcome struct {
	ranTimer bool
	ranTask  string
}

// dispatchStep decodes one delivered signal against ex's dispatch table
// and runs the corresponding handler. A delivery at the timer-queue offset
// drains the timer queue whatever its info.Code: rtanalyze gives the timer
// queue a priority level of its own, so it never shares an offset with a
// task. At a task offset only an SI_QUEUE delivery (carrying a tag/slot
// payload) runs a task (spec.md §4.6, tagged-union dispatch); any other
// code is ignored. now is threaded in rather than read from the clock so
// the decision is deterministic and testable.
func (rt *Runtime) dispatchStep(ex *executor, ctx *Context, offset int32, info rtsys.Siginfo, now Instant) dispatchOutcome {
	entry, ok := ex.dispatch[int(offset)]
	if !ok {
		return dispatchOutcome{}
	}

	if entry.isTimer {
		rt.drainTimerQueue(ex, ctx, now)
		return dispatchOutcome{ranTimer: true}
	}

	if info.Code != rtsys.SI_QUEUE {
		// A timer-priority fire sharing a non-timer offset never happens
		// in a correctly analyzed plan; treat it as a spurious wakeup.
		return dispatchOutcome{}
	}
	tag := uint8(info.Value >> 8)
	slot := uint8(info.Value)
	ts, ok := entry.tasks[tag]
	if !ok {
		return dispatchOutcome{}
	}
	rt.runTask(ts, ctx, slot)
	return dispatchOutcome{ranTask: ts.name}
}

// drainTimerQueue repeatedly dequeues every entry whose deadline has
// already passed, running each task in turn, then lets Dequeue re-arm the
// POSIX timer for whatever remains.
func (rt *Runtime) drainTimerQueue(ex *executor, ctx *Context, now Instant) {
	for {
		tag, slot, ready := ex.tq.Dequeue(now)
		if !ready {
			return
		}
		if ts, ok := ex.timerTasks[tag]; ok {
			rt.runTask(ts, ctx, slot)
		}
	}
}

// DispatchForTesting decodes and runs exactly one signal delivery against
// core's dispatch table, exactly as the real dispatch loop would, without
// touching rt_sigtimedwait. It exists only for _test.go files.
func (rt *Runtime) DispatchForTesting(core int, sig int, code int32, value uint64, now Instant) (ranTask string, ranTimer bool) {
	ex := rt.executors[core]
	ctx := rt.ContextForTesting(core)
	offset := int32(sig) - int32(rtsys.SIGRTMIN)
	outcome := rt.dispatchStep(ex, ctx, offset, rtsys.Siginfo{Signo: int32(sig), Code: code, Value: value}, now)
	return outcome.ranTask, outcome.ranTimer
}

// runTask invokes task's body with the input stored at slot, then returns
// the slot to its sender's free queue (the handler is the free queue's
// producer; see storage.go's taskState.free doc comment).
func (rt *Runtime) runTask(ts *taskState, ctx *Context, slot uint8) {
	input := ts.slots[slot].input
	ts.fn(ctx, input)
	owner := ts.senderOf[slot]
	ts.free[owner].Push(int(slot))
}
