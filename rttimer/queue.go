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

// Package rttimer implements the per-executor timer queue: a fixed-size
// min-heap of not-yet-ready scheduled tasks, backed by one POSIX
// per-process timer that is always armed to fire at the heap's head
// instant (or disarmed, when the heap is empty). It is a port of
// rtfm/src/tq.rs.
package rttimer

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/snapcore/rtcore/rtqueue"
	"github.com/snapcore/rtcore/rtsys"
)

// NotReady is one pending `schedule` entry: the task tag and slot index
// that identify where its input/instant were written, and the instant at
// which it becomes runnable.
type NotReady struct {
	Instant time.Time
	Index   uint8
	Task    uint8
}

// Target identifies where the queue's wake-up signal should be delivered
// when an earlier entry displaces the current head. TGID/TID are only
// used in multi-core applications (rt_tgsigqueueinfo-style delivery);
// single-core applications leave them zero and Queue signals the whole
// process instead, matching rtfm/src/tq.rs's tgid_tid: Option<(pid_t, pid_t)>.
type Target struct {
	TGID, TID int
	CrossCore bool
}

// Queue is one executor's timer queue. It is not safe for concurrent use
// and takes no lock of its own. rtruntime touches a core's queue only from
// that core's executor thread — schedule call sites (producers, which must
// run on the task's own core) and the dispatch loop at the timer-queue
// priority (consumer) — and that single thread is what serializes access.
type Queue struct {
	heap    *rtqueue.MinHeap[NotReady]
	timerID int32
	signo   uint8

	// raiseFn/armFn indirect the two real syscalls this queue makes, so
	// tests can exercise the heap/invariant logic without sending a real
	// signal to the process or arming a real kernel timer.
	raiseFn func(target Target, sig int) error
	armFn   func(timerID int32, at time.Time) error
}

// NewQueue creates a queue with room for capacity pending entries, backed
// by the POSIX timer identified by timerID and signalled on signo (the
// real-time signal offset assigned to this core's timer-queue priority).
func NewQueue(capacity int, timerID int32, signo uint8) *Queue {
	return &Queue{
		heap: rtqueue.NewMinHeap[NotReady](capacity, func(a, b NotReady) bool {
			if a.Instant.Equal(b.Instant) {
				return false // ties are not broken: equal instants dequeue in no defined order
			}
			return a.Instant.Before(b.Instant)
		}),
		timerID: timerID,
		signo:   signo,
		raiseFn: defaultRaise,
		armFn:   armTimer,
	}
}

// Enqueue pushes nr, reporting false if the queue is already at capacity
// (the caller must then echo the scheduled input back, per spec.md §8
// property 5). If nr displaces the current head — becomes the new
// earliest deadline — the queue's wake-up signal is raised immediately,
// before the push, exactly as rtfm/src/tq.rs does it: the handler that
// eventually runs will drain readiness and re-peek, so a signal that
// arrives slightly before the corresponding push is visible is harmless.
func (q *Queue) Enqueue(nr NotReady, target Target) bool {
	if q.heap.Len() >= q.heap.Cap() {
		return false
	}
	if head, ok := q.heap.Peek(); !ok || nr.Instant.Before(head.Instant) {
		q.raise(target)
	}
	return q.heap.Push(nr)
}

func (q *Queue) raise(target Target) {
	sig := rtsys.SIGRTMIN + int(q.signo)
	if err := q.raiseFn(target, sig); err != nil {
		Fatal("error: couldn't send a signal")
	}
}

func defaultRaise(target Target, sig int) error {
	if target.CrossCore {
		return rtsys.Tgkill(target.TGID, target.TID, sig)
	}
	return rtsys.Kill(0, sig)
}

// Dequeue is called from the timer-signal handler context at the
// timer-queue priority. If the head instant has already passed, it pops
// and returns (task, index, true). Otherwise it re-arms the POSIX timer
// for the head's instant (TIMER_ABSTIME) and returns false: the queue is
// not empty, just not yet ready. An empty queue returns false without
// touching the timer.
//
// Invariant (spec.md §4.4): at every moment outside of this call, either
// the heap is empty or the timer is armed for the head's instant; this
// function is exactly where that invariant gets re-established after an
// Enqueue or a firing.
func (q *Queue) Dequeue(now time.Time) (task uint8, index uint8, ready bool) {
	head, ok := q.heap.Peek()
	if !ok {
		return 0, 0, false
	}
	if !now.Before(head.Instant) {
		nr, _ := q.heap.Pop()
		return nr.Task, nr.Index, true
	}
	if err := q.armFn(q.timerID, head.Instant); err != nil {
		Fatal("error: couldn't set timeout")
	}
	return 0, 0, false
}

// Len reports the number of entries currently pending.
func (q *Queue) Len() int { return q.heap.Len() }

// SetTimerID records the real POSIX timer backing this queue. Build wires
// queues together before any timer exists; Run calls this once it has
// created the timer (rtruntime's createTimer).
func (q *Queue) SetTimerID(timerID int32) { q.timerID = timerID }

// SetBackendForTesting replaces the raise/arm syscalls with fakes; it
// exists only for _test.go files.
func (q *Queue) SetBackendForTesting(raise func(Target, int) error, arm func(int32, time.Time) error) {
	q.raiseFn = raise
	q.armFn = arm
}

func armTimer(timerID int32, at time.Time) error {
	// The timer runs on CLOCK_MONOTONIC, so translate at into a deadline on
	// that clock by its distance from now.
	now, err := rtsys.ClockGettime(rtsys.ClockMonotonic)
	if err != nil {
		return err
	}
	spec := rtsys.Timerspec{
		Value: unix.NsecToTimespec(now.Nano() + int64(time.Until(at))),
	}
	return rtsys.TimerSettime(timerID, rtsys.TIMER_ABSTIME, spec)
}
