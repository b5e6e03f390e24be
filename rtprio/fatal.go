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

package rtprio

import "github.com/snapcore/rtcore/rtsys"

// terminate is indirected so tests can observe a fatal path without
// actually calling exit_group(101) on the test runner; it defaults to the
// real syscall and only SetFatalHookForTesting replaces it. rttimer.Fatal
// is this same Fatal; rtruntime keeps its own fatal variable of the same
// shape. Mirrors the original's `fatal` in
// rtfm/src/export.rs, which prints to stderr and calls exit_group(101).
var terminate = func(code uint8) { rtsys.ExitGroup(code) }

// Fatal reports msg on stderr and terminates the process with exit code
// 101, rtcore's fixed fatal-error exit status (spec.md §6 "Exit codes").
func Fatal(msg string) {
	rtsys.Write(2, []byte(msg+"\n"))
	terminate(101)
}

// SetFatalHookForTesting overrides the termination step and returns a
// restore function. It exists solely so _test.go files can exercise fatal
// paths without killing the test binary.
func SetFatalHookForTesting(f func(code uint8)) (restore func()) {
	prev := terminate
	terminate = f
	return func() { terminate = prev }
}
