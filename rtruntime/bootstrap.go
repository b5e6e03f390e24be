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
	goruntime "runtime"

	"golang.org/x/sys/unix"
	"gopkg.in/tomb.v2"

	"github.com/snapcore/rtcore/rtsys"
)

// dispatchTimeout bounds how long one executor's rt_sigtimedwait call
// blocks before re-checking whether its tomb is dying: long enough that
// the busy-poll cost is negligible, short enough that Run returns
// promptly once killed.
var dispatchTimeout = unix.Timespec{Sec: 0, Nsec: 200_000_000}

// Run wires up the real kernel state Build deliberately avoids touching:
// one OS thread per core (runtime.LockOSThread, never Clone — see
// rtsys.Clone's doc comment), its CPU affinity and SCHED_FIFO priority,
// its signal mask and, if it owns scheduled tasks, its POSIX timer. It
// blocks until every executor's goroutine has returned, which in normal
// operation is never. Run offers no stop handle: its tomb is local, so
// the dispatch loops' t.Dying() polls end them only once an executor
// goroutine has returned an error.
func (rt *Runtime) Run() error {
	rt.tgid = rtsys.Getpid()

	var t tomb.Tomb
	for _, ex := range rt.executors {
		ex := ex
		t.Go(func() error {
			return rt.runExecutor(&t, ex)
		})
	}
	return t.Wait()
}

// runExecutor is the full per-core bootstrap from spec.md §4.6 step 8,
// redesigned around a synchronous dispatch loop (SPEC_FULL.md §1): lock
// to an OS thread, pin it, block its whole signal range once and for
// all, publish its thread id and (if needed) create its POSIX timer,
// wait on whatever other cores' late resources it reads, run its own
// init, release its own barrier, cross the global start barrier
// (property 7), then idle or dispatch forever.
//
// The signal range stays blocked at the OS level for the rest of the
// thread's life. No rt_sigaction handler is ever installed (there is
// none to install one into — see rtsys_linux_amd64.go), so unblocking
// any signal in this range, even briefly, hands the kernel's default
// action for an unhandled real-time signal to a signal this executor
// expects to consume synchronously: the process dies (signal(7)).
// Admission by dynamic priority happens entirely through the `set`
// argument rt_sigtimedwait is called with (rtprio.Cell.Unmasked),
// never through the real OS mask.
func (rt *Runtime) runExecutor(t *tomb.Tomb, ex *executor) error {
	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	if err := rtsys.SchedSetaffinity(0, ex.core); err != nil {
		fatal(fmt.Sprintf("core %d: sched_setaffinity: %v", ex.core, err))
	}
	if err := rtsys.SchedSetscheduler(0, rtsys.SchedFIFO, 1); err != nil {
		fatal(fmt.Sprintf("core %d: sched_setscheduler: %v", ex.core, err))
	}

	cp := rt.plan.Cores[ex.core]
	full := rtsys.RangeMask(cp.SigLo(), cp.SigHi())
	if _, err := rtsys.RtSigprocmask(rtsys.SigBlock, full); err != nil {
		fatal(fmt.Sprintf("core %d: couldn't block its signal range: %v", ex.core, err))
	}

	tid := rtsys.Gettid()
	ex.tid.Set(int32(tid))

	if cp.HasTimerQueue {
		if err := rt.createTimer(ex, tid); err != nil {
			fatal(fmt.Sprintf("core %d: timer_create: %v", ex.core, err))
		}
	}

	for _, from := range rt.waitFor[ex.core] {
		rt.executors[from].ready.Wait()
	}

	ctx := &Context{rt: rt, core: ex.core, cell: ex.cell}
	if init := rt.inits[ex.core]; init != nil {
		for name, value := range init(ctx) {
			if r, ok := rt.resources[name]; ok {
				r.box = value
			}
		}
	}
	ex.ready.Release()

	if ex.core == 0 {
		rt.start.Release()
	} else {
		rt.start.Wait()
	}

	if ex.idle != nil {
		ex.idle(ctx)
		return nil // idle functions are documented to diverge; returning is a user bug, not ours
	}
	return rt.dispatchLoop(t, ex, ctx)
}

// createTimer creates the POSIX timer backing ex's timer queue and wires
// its real timer id into the queue Build left pointing at a placeholder.
// Delivery targets this thread directly (SIGEV_THREAD_ID) in multi-core
// applications, matching rttimer.Target.CrossCore's convention; in
// single-core applications the timer signals the whole process instead.
func (rt *Runtime) createTimer(ex *executor, tid int) error {
	// ex.timerOffset already came out of cp.Signo(cp.TimerPriority), which
	// is Base-inclusive (see CorePlan.Signo's doc comment); adding cp.Base
	// again here would double-count it.
	sig := int32(rtsys.SIGRTMIN + ex.timerOffset)
	sigevent := &rtsys.Sigevent{Signo: sig}
	if rt.crossCore {
		sigevent.Notify = rtsys.SigevThreadID
		sigevent.TID = int32(tid)
	} else {
		sigevent.Notify = rtsys.SigevSignal
	}
	timerID, err := rtsys.TimerCreate(rtsys.ClockMonotonic, sigevent)
	if err != nil {
		return err
	}
	ex.tq.SetTimerID(timerID)
	return nil
}

// dispatchLoop blocks in rt_sigtimedwait for whatever this executor's
// current dynamic priority leaves unmasked, decodes each delivered
// signal and runs the corresponding handler, forever. It polls t.Dying()
// between waits rather than blocking indefinitely so Run can still
// return once the tomb is killed, since rt_sigtimedwait itself has no
// channel-based cancellation.
func (rt *Runtime) dispatchLoop(t *tomb.Tomb, ex *executor, ctx *Context) error {
	for {
		select {
		case <-t.Dying():
			return tomb.ErrDying
		default:
		}

		timeout := dispatchTimeout
		info, err := rtsys.RtSigtimedwait(ex.cell.Unmasked(), &timeout)
		if err != nil {
			if errno, ok := err.(rtsys.Errno); ok && (errno == unix.EAGAIN || errno == unix.EINTR) {
				continue
			}
			fatal(fmt.Sprintf("core %d: rt_sigtimedwait: %v", ex.core, err))
		}

		// ex.dispatch and ex.timerOffset are keyed by CorePlan.Signo's
		// result (rtsys.SIGRTMIN-relative, across every core), so the
		// inverse here is just subtracting SIGRTMIN, not cp.SigLo().
		offset := info.Signo - int32(rtsys.SIGRTMIN)
		rt.dispatchStep(ex, ctx, offset, info, Now())
	}
}
