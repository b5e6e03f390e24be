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

import "time"

// Instant is a scheduling deadline: spec.md §6 "Instant::now() / Instant +
// Duration are provided". time.Time already carries a monotonic reading
// on every platform rtcore targets, so there is no need to call
// rtsys.ClockGettime(CLOCK_MONOTONIC) a second time just to build one;
// rtsys.ClockGettime remains available for code that talks to the kernel
// timer APIs directly (rttimer.armTimer).
type Instant = time.Time

// Now returns the current instant.
func Now() Instant { return time.Now() }
