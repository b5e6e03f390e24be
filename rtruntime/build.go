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
	"sort"
	"time"

	"golang.org/x/xerrors"

	"github.com/snapcore/rtcore/rtanalyze"
	"github.com/snapcore/rtcore/rtapp"
	"github.com/snapcore/rtcore/rtprio"
	"github.com/snapcore/rtcore/rtqueue"
	"github.com/snapcore/rtcore/rttimer"
)

// Runtime is the woven application: per-task storage, per-core dispatch
// tables, resource proxies and the bootstrap, built once by Build and
// started by Run. Build performs no syscalls; it is pure data assembly
// and is safe to call from tests.
type Runtime struct {
	app   *rtapp.Application
	plan  *rtanalyze.Plan
	tasks map[string]*taskState

	resources map[string]*Resource
	executors []*executor
	inits     map[int]InitFunc

	// waitFor[core] lists the other cores whose executor.ready barrier
	// must be observed released before core may run its own init,
	// derived from plan.Barriers (spec.md §4.5 step 4).
	waitFor map[int][]int

	crossCore bool
	tgid      int

	start rtqueue.Barrier // global "core 0 init done" gate, see runExecutor

	// raiseFn sends the (task_tag<<8 | slot) payload to targetCore's
	// dispatcher signal. It defaults to the real rt_sigqueueinfo/
	// rt_tgsigqueueinfo syscalls; SetSignalBackendForTesting overrides it.
	raiseFn func(rt *Runtime, targetCore, sig int, value uint64) error
}

// Build validates app (via rtanalyze.Analyze) and wires it against reg:
// every declared task must have a registered TaskFunc, every core must
// have a registered InitFunc, and every non-late resource must have a
// registered initial value. It performs no syscalls.
func Build(app *rtapp.Application, reg *Registry) (*Runtime, error) {
	plan, err := rtanalyze.Analyze(app)
	if err != nil {
		return nil, err
	}
	if err := checkRegistryComplete(app, reg); err != nil {
		return nil, err
	}

	rt := &Runtime{
		app:       app,
		plan:      plan,
		tasks:     make(map[string]*taskState, len(app.Tasks)),
		resources: make(map[string]*Resource, len(plan.Resources)),
		executors: make([]*executor, app.Cores),
		inits:     reg.Inits,
		waitFor:   make(map[int][]int, len(plan.Barriers)),
		crossCore: app.Cores > 1,
		raiseFn:   defaultRaise,
	}
	for _, edge := range plan.Barriers {
		rt.waitFor[edge.To] = append(rt.waitFor[edge.To], edge.From)
	}

	timerCapacity := make(map[int]int, app.Cores)
	for _, t := range app.Tasks {
		if t.Scheduled {
			timerCapacity[t.Core] += t.Capacity
		}
	}

	for c := 0; c < app.Cores; c++ {
		cp := plan.Cores[c]
		ex := &executor{
			core:     c,
			cell:     rtprio.NewCell(cp.SigLo(), cp.SigHi(), 0),
			dispatch: make(map[int]dispatchEntry),
			idle:     reg.Idles[c],
		}
		if cp.HasTimerQueue {
			off, _ := cp.Signo(cp.TimerPriority)
			ex.timerOffset = off
			ex.dispatch[off] = dispatchEntry{isTimer: true}
			// timerID 0 is a placeholder; Run's createTimer wires in the
			// real one via Queue.SetTimerID once the owning thread exists.
			ex.tq = rttimer.NewQueue(timerCapacity[c], 0, uint8(off))
		}
		rt.executors[c] = ex
	}

	for name, t := range app.Tasks {
		tp := plan.Tasks[name]
		ts := newTaskState(tp, reg.Tasks[name])
		rt.tasks[name] = ts

		cp := plan.Cores[t.Core]
		off, _ := cp.Signo(t.Priority)
		entry, ok := rt.executors[t.Core].dispatch[off]
		if !ok {
			entry = dispatchEntry{tasks: make(map[uint8]*taskState)}
		} else if entry.tasks == nil {
			entry.tasks = make(map[uint8]*taskState)
		}
		entry.tasks[tp.Tag] = ts
		rt.executors[t.Core].dispatch[off] = entry
	}

	scheduledByCore := make(map[int][]string)
	for name, t := range app.Tasks {
		if t.Scheduled {
			scheduledByCore[t.Core] = append(scheduledByCore[t.Core], name)
		}
	}
	for core, names := range scheduledByCore {
		sort.Strings(names)
		ex := rt.executors[core]
		ex.timerTasks = make(map[uint8]*taskState, len(names))
		for i, name := range names {
			ts := rt.tasks[name]
			ts.timerTag = uint8(i)
			ex.timerTasks[ts.timerTag] = ts
		}
	}

	for name, rp := range plan.Resources {
		cell := rt.executors[rp.Core].cell
		rank, _ := plan.Cores[rp.Core].Rank(rp.Ceiling)
		var box interface{}
		if !rp.Late {
			box = reg.Resources[name]
		}
		rt.resources[name] = &Resource{name: name, core: rp.Core, ceiling: rank, cell: cell, box: box}
	}

	return rt, nil
}

func checkRegistryComplete(app *rtapp.Application, reg *Registry) error {
	for name := range app.Tasks {
		if _, ok := reg.Tasks[name]; !ok {
			return xerrors.Errorf("no TaskFunc registered for task %q", name)
		}
	}
	for n := range app.CoreSpecs {
		if _, ok := reg.Inits[n]; !ok {
			return xerrors.Errorf("no InitFunc registered for core %d", n)
		}
	}
	for name, r := range app.Resources {
		_, hasValue := reg.Resources[name]
		if r.Late && hasValue {
			return xerrors.Errorf("resource %q is late but also has a registered initial value", name)
		}
		if !r.Late && !hasValue {
			return xerrors.Errorf("resource %q is not late but has no registered initial value", name)
		}
	}
	return nil
}

// SetSignalBackendForTesting replaces the real rt_sigqueueinfo/
// rt_tgsigqueueinfo syscalls with fn; it exists only for _test.go files.
func (rt *Runtime) SetSignalBackendForTesting(fn func(rt *Runtime, targetCore, sig int, value uint64) error) {
	rt.raiseFn = fn
}

// SetTimerBackendForTesting replaces core's timer queue's raise/arm
// syscalls with fakes, the same way rttimer's own tests do; it is a
// no-op if core has no timer queue. It exists only for _test.go files.
func (rt *Runtime) SetTimerBackendForTesting(core int, raise func(rttimer.Target, int) error, arm func(int32, time.Time) error) {
	if tq := rt.executors[core].tq; tq != nil {
		tq.SetBackendForTesting(raise, arm)
	}
}

// ContextForTesting returns the Context an init/task/idle function for
// core would receive, for use outside of Run's real bootstrap.
func (rt *Runtime) ContextForTesting(core int) *Context {
	ex := rt.executors[core]
	return &Context{rt: rt, core: core, cell: ex.cell}
}

// FreeSlotsForTesting reports how many slots task's free queue for
// senderCore currently holds.
func (rt *Runtime) FreeSlotsForTesting(task string, senderCore int) int {
	return rt.tasks[task].free[senderCore].Len()
}

// RunInitForTesting runs core's registered InitFunc and applies its
// returned late resources, exactly as runExecutor does, without any of
// the surrounding syscalls.
func (rt *Runtime) RunInitForTesting(core int) {
	init := rt.inits[core]
	if init == nil {
		return
	}
	ctx := rt.ContextForTesting(core)
	for name, value := range init(ctx) {
		if r, ok := rt.resources[name]; ok {
			r.box = value
		}
	}
}
