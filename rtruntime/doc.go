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

// Package rtruntime is the code/runtime weaver (spec.md §4.6), realized
// as a builder instead of compile-time code generation (SPEC_FULL.md §1,
// §4.6). Build takes a validated rtapp.Application and a Registry of Go
// task/init/idle functions and wires per-task storage, per-core dispatch
// tables and a bootstrap; Run starts the executors.
//
// The one documented semantic departure from spec.md is the dispatch
// mechanism itself: where the original reenters a running thread through
// an asynchronous SA_SIGINFO handler, rtruntime's executors block in
// rtsys.RtSigtimedwait and decode/dispatch synchronously, because the Go
// runtime owns the process's signal trampoline and cannot safely host a
// foreign asynchronous handler that calls back into Go (see
// SPEC_FULL.md §1). Every other invariant — priority monotonicity, SRP
// exclusion, free-slot accounting, schedule monotonicity for distinct
// instants, queue-full semantics — holds exactly as specified. Scheduled
// entries with equal instants dequeue in no defined order.
package rtruntime
