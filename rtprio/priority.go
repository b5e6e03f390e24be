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

// Package rtprio implements the dynamic-priority cell and Stack Resource
// Policy (SRP) lock every executor uses to guard shared resources:
// raising priority to a resource's ceiling, running the critical
// section, then restoring it. It is a port of Priority/lock/set_priority
// in rtfm/src/export.rs, adapted to SPEC_FULL.md §1's synchronous
// dispatch model: the executor's OS-level signal mask is blocked once,
// permanently, at bootstrap (rtruntime.runExecutor), so Raise/Lower
// never touch it. What they actually gate is which signals
// rtsys.RtSigtimedwait is next called with (Cell.Unmasked) — admission
// by dynamic priority happens in the `set` argument of that syscall,
// never by unblocking signals at the kernel level.
package rtprio

import (
	"github.com/snapcore/rtcore/rtsys"
)

// Cell holds one executor's current dynamic priority. It is touched only
// by the OS thread that owns it — never shared across executors, never
// accessed concurrently — so a plain field suffices; the original's
// comment on this point ("no atomics needed because preemption is bounded
// by the signal mask") applies unchanged here.
type Cell struct {
	current uint8
	// lo/hi is the contiguous signal range this executor's priorities
	// were assigned within (see rtanalyze.CorePlan.SigLo/SigHi); masking
	// always narrows to a sub-range of it.
	lo, hi int
}

// NewCell creates a priority cell for an executor whose priorities occupy
// real-time signals [lo, hi] (1-based, kernel numbering), starting at the
// given initial priority (0 for init/idle context).
func NewCell(lo, hi int, initial uint8) *Cell {
	return &Cell{current: initial, lo: lo, hi: hi}
}

// Current returns the dynamic priority last set by Raise/Lower.
func (p *Cell) Current() uint8 { return p.current }

// SignalFor maps a 1-based priority level (within this cell's range, where
// priority 1 is the lowest and maps to the highest signal number) to its
// real-time signal number, following spec.md §3: "the *highest* priority
// maps to start_c and lower priorities map to successively higher signal
// numbers".
func (p *Cell) SignalFor(priority uint8) int {
	return p.hi - int(priority) + 1
}

// maskFor returns the Sigset blocking every signal belonging to a
// priority strictly above floor and at-or-below ceiling -- i.e. the
// signals for dynamic priorities in (floor, ceiling].
func (p *Cell) maskFor(floor, ceiling uint8) rtsys.Sigset {
	if ceiling <= floor {
		return 0
	}
	// priority ceiling -> signal SignalFor(ceiling) (numerically smallest
	// in the blocked range, since higher priority = lower signal number)
	// priority floor+1 -> signal SignalFor(floor+1) (numerically largest)
	return rtsys.RangeMask(p.SignalFor(ceiling), p.SignalFor(floor+1))
}

// Raise sets the dynamic priority to ceiling, returning the previous
// priority so the caller can restore it on Lower. It is a no-op (and
// returns ok=false) if ceiling does not exceed the current priority,
// matching step 3 of the lock algorithm in spec.md §4.3: a task already at
// or above a resource's ceiling does not need to mask anything further.
// This is pure in-process bookkeeping -- the real signal mask is never
// touched here (see the package doc).
func (p *Cell) Raise(ceiling uint8) (previous uint8, ok bool) {
	previous = p.current
	if ceiling <= previous {
		return previous, false
	}
	p.current = ceiling
	return previous, true
}

// Lower restores the dynamic priority to previous. Like Raise, this
// never touches the real signal mask: the next rtsys.RtSigtimedwait call
// simply gets a wider Unmasked() set to wait on.
func (p *Cell) Lower(previous uint8) {
	p.current = previous
}

// N reports how many distinct local priority levels this cell's range
// covers (its rank ceiling): rtanalyze assigns each core a dense rank
// 1..N for the N distinct priorities actually used there.
func (p *Cell) N() uint8 {
	return uint8(p.hi - p.lo + 1)
}

// Unmasked returns the set of signals deliverable at the cell's current
// priority: every signal for a rank strictly above current. The dispatch
// loop waits on exactly this set via rtsys.RtSigtimedwait (SPEC_FULL.md
// §1's synchronous stand-in for an unmasked asynchronous handler).
func (p *Cell) Unmasked() rtsys.Sigset {
	return p.maskFor(p.current, p.N())
}
