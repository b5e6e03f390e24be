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

import "github.com/snapcore/rtcore/rtsys"

// fatalExitCode is the exit_group code for an unrecoverable bootstrap or
// dispatch-loop error (SPEC_FULL.md §7).
const fatalExitCode = 101

// fatal is indirected through a variable, like rtprio.terminate and
// rttimer.Fatal, so _test.go files can observe a would-be-fatal condition
// without actually exiting the test binary.
var fatal = func(msg string) {
	rtsys.Write(2, []byte("rtcore: fatal: "+msg+"\n"))
	rtsys.ExitGroup(fatalExitCode)
}

// SetFatalHookForTesting installs f in place of the real stderr-write +
// exit_group path, returning a restore function.
func SetFatalHookForTesting(f func(msg string)) (restore func()) {
	prev := fatal
	fatal = f
	return func() { fatal = prev }
}
