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

package rttimer

import "github.com/snapcore/rtcore/rtsys"

// CreateTimer creates the one POSIX per-process timer an executor's queue
// is backed by (spec.md §3 "The timer is created once per executor").
// For a single-core application the timer should notify the whole process
// (SIGEV_SIGNAL); for multi-core, it must be pinned to the owning
// executor's thread (SIGEV_THREAD_ID, carrying tid) so that a cross-core
// reschedule doesn't wake the wrong thread.
func CreateTimer(signo uint8, tid int32, crossCore bool) (int32, error) {
	ev := &rtsys.Sigevent{
		Signo: int32(rtsys.SIGRTMIN) + int32(signo),
	}
	if crossCore {
		ev.Notify = rtsys.SigevThreadID
		ev.TID = tid
	} else {
		ev.Notify = rtsys.SigevSignal
	}
	return rtsys.TimerCreate(rtsys.ClockMonotonic, ev)
}
