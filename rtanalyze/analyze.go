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

import (
	"sort"

	"golang.org/x/xerrors"

	"github.com/snapcore/rtcore/rtapp"
	"github.com/snapcore/rtcore/rtsys"
)

// Analyze runs Validate and, if the application passes, computes the
// Plan: spec.md §4.5 steps 1, 2, 4 and 5 (signals, ceilings, barrier
// graph, free-slot layout) plus dispatch tags. No Send/Sync obligations
// (step 3) are computed.
func Analyze(app *rtapp.Application) (*Plan, error) {
	if err := Validate(app); err != nil {
		return nil, err
	}

	cores, err := assignSignals(app)
	if err != nil {
		return nil, err
	}
	resources := assignCeilings(app)
	tasks := layoutFreeSlots(app)
	assignTags(app, tasks)
	barriers := buildBarrierGraph(app)

	return &Plan{Cores: cores, Tasks: tasks, Resources: resources, Barriers: barriers}, nil
}

// assignSignals implements spec.md §4.5 step 1.
func assignSignals(app *rtapp.Application) ([]CorePlan, error) {
	plans := make([]CorePlan, app.Cores)
	base := 0
	for c := 0; c < app.Cores; c++ {
		priorities := make(map[uint8]bool)
		hasTimer := false
		for _, t := range app.Tasks {
			if t.Core != c {
				continue
			}
			priorities[t.Priority] = true
			if t.Scheduled {
				hasTimer = true
			}
		}

		distinct := make([]uint8, 0, len(priorities))
		for p := range priorities {
			distinct = append(distinct, p)
		}
		sort.Slice(distinct, func(i, j int) bool { return distinct[i] > distinct[j] })

		var timerPriority uint8
		if hasTimer {
			max := uint8(0)
			for _, p := range distinct {
				if p > max {
					max = p
				}
			}
			timerPriority = max + 1
			distinct = append([]uint8{timerPriority}, distinct...)
		}

		signals := make(map[uint8]int, len(distinct))
		for offset, p := range distinct {
			signals[p] = offset
		}

		plans[c] = CorePlan{
			Core:          c,
			Base:          base,
			Signals:       signals,
			HasTimerQueue: hasTimer,
			TimerPriority: timerPriority,
		}
		base += len(distinct)
	}

	if base > rtsys.SIGRTMAX-rtsys.SIGRTMIN+1 {
		return nil, xerrors.Errorf("application needs %d real-time signals, Linux exposes only %d", base, rtsys.SIGRTMAX-rtsys.SIGRTMIN+1)
	}
	return plans, nil
}

// assignCeilings implements spec.md §4.5 step 2.
func assignCeilings(app *rtapp.Application) map[string]ResourcePlan {
	out := make(map[string]ResourcePlan, len(app.Resources))
	accessorCount := make(map[string]int)
	for name, r := range app.Resources {
		rp := ResourcePlan{Name: name, Late: r.Late, OwnerCore: r.OwnerCore}
		if r.Late {
			// A late resource's lock always belongs to its owner's cell,
			// regardless of which other core's init merely reads it
			// through the barrier path (see validateLateResourceAccess).
			rp.Core = r.OwnerCore
		}
		out[name] = rp
	}
	for _, t := range app.Tasks {
		for _, rname := range t.Resources {
			rp := out[rname]
			if t.Priority > rp.Ceiling {
				rp.Ceiling = t.Priority
			}
			if !rp.Late {
				rp.Core = t.Core
			}
			out[rname] = rp
			accessorCount[rname]++
		}
	}
	for n, spec := range app.CoreSpecs {
		for _, rname := range spec.Resources {
			rp := out[rname]
			if !rp.Late {
				rp.Core = n
			}
			out[rname] = rp
		}
	}
	for name, rp := range out {
		if accessorCount[name] > 1 {
			rp.Ownership = Shared
		} else {
			rp.Ownership = Exclusive
		}
		out[name] = rp
	}
	return out
}

// layoutFreeSlots implements spec.md §4.5 step 5.
func layoutFreeSlots(app *rtapp.Application) map[string]TaskPlan {
	senderCores := make(map[string]map[int]bool)
	addSender := func(task string, core int) {
		if senderCores[task] == nil {
			senderCores[task] = make(map[int]bool)
		}
		senderCores[task][core] = true
	}
	for _, t := range app.Tasks {
		for _, target := range t.Spawn {
			addSender(target, t.Core)
		}
		for _, target := range t.Schedule {
			addSender(target, t.Core)
		}
	}
	for n, spec := range app.CoreSpecs {
		for _, target := range spec.Spawn {
			addSender(target, n)
		}
		for _, target := range spec.Schedule {
			addSender(target, n)
		}
	}

	out := make(map[string]TaskPlan, len(app.Tasks))
	for name, t := range app.Tasks {
		cores := make([]int, 0, len(senderCores[name]))
		for c := range senderCores[name] {
			cores = append(cores, c)
		}
		sort.Ints(cores)

		ranges := make([]SlotRange, 0, len(cores))
		offset := 0
		for _, c := range cores {
			ranges = append(ranges, SlotRange{SenderCore: c, Lo: offset, Hi: offset + t.Capacity})
			offset += t.Capacity
		}

		out[name] = TaskPlan{
			Name:      name,
			Core:      t.Core,
			Priority:  t.Priority,
			Capacity:  t.Capacity,
			Senders:   ranges,
			TotalSlot: offset,
		}
	}
	return out
}

// assignTags gives every task a Tag unique among tasks sharing its
// (Core, Priority), so the dispatcher can tell them apart by the 8-bit
// task-variant byte in si_value (spec.md §4.6).
func assignTags(app *rtapp.Application, tasks map[string]TaskPlan) {
	names := make([]string, 0, len(app.Tasks))
	for name := range app.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	next := make(map[[2]int]uint8) // (core, priority) -> next tag
	for _, name := range names {
		t := app.Tasks[name]
		key := [2]int{t.Core, int(t.Priority)}
		tag := next[key]
		next[key] = tag + 1
		tp := tasks[name]
		tp.Tag = tag
		tasks[name] = tp
	}
}

// buildBarrierGraph implements spec.md §4.5 step 4.
func buildBarrierGraph(app *rtapp.Application) []BarrierEdge {
	edges := make(map[BarrierEdge]bool)
	for n, spec := range app.CoreSpecs {
		for _, rname := range spec.Resources {
			r, ok := app.Resources[rname]
			if !ok || !r.Late || r.OwnerCore == n {
				continue
			}
			edges[BarrierEdge{From: r.OwnerCore, To: n}] = true
		}
	}
	out := make([]BarrierEdge, 0, len(edges))
	for e := range edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
