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

	"github.com/snapcore/rtcore/rtprio"
)

// Context is the generated per-task/init/idle handle from spec.md §6:
// "Context { resources, spawn, schedule, scheduled }".
type Context struct {
	rt   *Runtime
	core int
	cell *rtprio.Cell
}

// Core returns the executor this context is running on.
func (ctx *Context) Core() int { return ctx.core }

// Resource looks up a declared resource by name. It returns nil if name
// was never declared; callers that trust their own Application do not
// need to check — a missing resource is a configuration bug, not a
// runtime condition.
func (ctx *Context) Resource(name string) *Resource {
	return ctx.rt.resources[name]
}

// Scheduled reports whether task is ever targeted by a schedule call
// anywhere in the application (spec.md §6 "Context{..., scheduled}").
func (ctx *Context) Scheduled(task string) bool {
	t, ok := ctx.rt.app.Tasks[task]
	return ok && t.Scheduled
}

// QueueFullError is returned by Spawn/Schedule when task's free-slot
// queue has no room; Input is the caller's original input, byte-for-byte
// (spec.md §8 property 5: "returns Err(x) with x byte-equal to the
// input").
type QueueFullError struct {
	Task  string
	Input interface{}
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("rtruntime: %s queue is full", e.Task)
}

// Spawn enqueues input for task and raises its signal (spec.md §4.6
// "per spawn-capable call site"). It returns a *QueueFullError when the
// task's free-slot queue is exhausted (spec.md §8 property 5), and a plain
// error when task is not declared or has no spawn/schedule caller on this
// core; a failure to queue the signal is fatal and does not return.
func (ctx *Context) Spawn(task string, input interface{}) error {
	return ctx.rt.spawn(ctx.core, task, input, nil)
}

// Schedule is Spawn's timed counterpart (spec.md §4.6 "per schedule call
// site"): task runs no earlier than at. Scheduling is only supported
// from the task's own core; calling it for a task assigned to a
// different core returns a plain error.
func (ctx *Context) Schedule(task string, at Instant, input interface{}) error {
	return ctx.rt.spawn(ctx.core, task, input, &at)
}
