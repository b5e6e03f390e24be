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

// Package rtsys is the thin, typed Linux syscall surface that the rest of
// rtcore builds on: signal delivery and masking, POSIX per-process timers,
// and the scheduling-class calls needed to turn a goroutine's backing OS
// thread into an RTFM executor.
//
// Every wrapper here does exactly one syscall and returns its result and,
// for calls that can fail, an Errno as error (Getpid, Gettid, SchedYield,
// Pause, Exit and ExitGroup return no error); none of them retries, none
// of them interprets EINTR specially, and none of them allocates on the
// happy path. Callers that get an error either
// propagate it (recoverable, e.g. a full free queue upstream) or treat it
// as fatal and call ExitGroup — rtcore itself never retries a failed
// signal-related syscall.
package rtsys
