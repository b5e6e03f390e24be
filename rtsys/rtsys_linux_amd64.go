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

//go:build linux && amd64

package rtsys

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// SIGRTMIN is the smallest real-time signal number the kernel exposes
// (include/uapi/asm-generic/signal.h). rtcore talks to the kernel through
// raw syscalls rather than glibc, so this is the kernel's SIGRTMIN (32),
// not glibc's (which reserves the first three for its own use).
const SIGRTMIN = 32

// SIGRTMAX is the largest usable real-time signal number.
const SIGRTMAX = 63

// Sigset is a Linux kernel sigset_t: a single 64-bit word, one bit per
// signal number (bit 0 = signal 1). The kernel's rt_sig* family always
// takes an explicit size, which rtcore always passes as 8 (sizeof(Sigset)).
type Sigset uint64

const sigsetSize = unsafe.Sizeof(Sigset(0))

// Block returns a Sigset with signal sig (1-based, as in kill(2)) set.
func (s Sigset) Block(sig int) Sigset {
	return s | (1 << uint(sig-1))
}

// Has reports whether sig is set in s.
func (s Sigset) Has(sig int) bool {
	return s&(1<<uint(sig-1)) != 0
}

// RangeMask returns a Sigset with every signal in [lo, hi] (inclusive, both
// 1-based) set. The analyzer hands out contiguous signal ranges per
// executor, and SRP ceilings mask a contiguous sub-range of that, so every
// mask rtcore ever builds is exactly this shape.
func RangeMask(lo, hi int) Sigset {
	if lo > hi {
		return 0
	}
	width := uint(hi - lo + 1)
	var span Sigset
	if width >= 64 {
		span = ^Sigset(0)
	} else {
		span = (1 << width) - 1
	}
	return span << uint(lo-1)
}

// Errno is the error type every wrapper below returns; it is Linux's own
// errno, surfaced unwrapped. It satisfies error and formats like
// "operation not permitted" via (unix.Errno).Error.
type Errno = unix.Errno

func check(r1 uintptr, r2 uintptr, errno unix.Errno) (uintptr, error) {
	if errno != 0 {
		return 0, errno
	}
	return r1, nil
}

// Write is NR 1, write(2). See `man 2 write`.
func Write(fd int, buf []byte) (int, error) {
	var p unsafe.Pointer
	if len(buf) > 0 {
		p = unsafe.Pointer(&buf[0])
	}
	r, _, errno := unix.Syscall(unix.SYS_WRITE, uintptr(fd), uintptr(p), uintptr(len(buf)))
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

// Mmap is NR 9, mmap(2), restricted to the anonymous mappings rtcore needs
// (executor stacks, were rtcore to allocate them itself — see
// rtruntime's bootstrap doc comment for why it does not).
func Mmap(length int, prot, flags int) (uintptr, error) {
	r, _, errno := unix.Syscall6(unix.SYS_MMAP, 0, uintptr(length), uintptr(prot), uintptr(flags), ^uintptr(0), 0)
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

// Munmap is the inverse of Mmap.
func Munmap(addr uintptr, length int) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, uintptr(length), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Sigaction is the fixed-layout argument to RtSigaction; Handler is left
// zero (SIG_DFL) throughout rtcore, since the dispatch loop consumes
// signals synchronously via RtSigtimedwait rather than asynchronously via
// an installed handler (see SPEC_FULL.md §1).
type Sigaction struct {
	Handler  uintptr
	Flags    uint64
	Restorer uintptr
	Mask     Sigset
}

// RtSigaction is NR 13, rt_sigaction(2).
func RtSigaction(sig int, act *Sigaction) (prev Sigaction, err error) {
	_, _, errno := unix.Syscall6(unix.SYS_RT_SIGACTION, uintptr(sig),
		uintptr(unsafe.Pointer(act)), uintptr(unsafe.Pointer(&prev)), sigsetSize, 0, 0)
	if errno != 0 {
		return Sigaction{}, errno
	}
	return prev, nil
}

// RtSigprocmask is NR 14, rt_sigprocmask(2); it always operates on the
// calling OS thread, which is why every rtcore executor locks itself to
// one with runtime.LockOSThread before touching its mask.
func RtSigprocmask(how int, set Sigset) (prev Sigset, err error) {
	_, _, errno := unix.Syscall6(unix.SYS_RT_SIGPROCMASK, uintptr(how),
		uintptr(unsafe.Pointer(&set)), uintptr(unsafe.Pointer(&prev)), sigsetSize, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return prev, nil
}

// Mask how values for RtSigprocmask.
const (
	SigBlock   = 0
	SigUnblock = 1
	SigSetmask = 2
)

// RtSigpending is NR 127, rt_sigpending(2).
func RtSigpending() (Sigset, error) {
	var set Sigset
	_, _, errno := unix.Syscall(unix.SYS_RT_SIGPENDING, uintptr(unsafe.Pointer(&set)), sigsetSize, 0)
	if errno != 0 {
		return 0, errno
	}
	return set, nil
}

// Siginfo is the subset of siginfo_t rtcore reads back from
// RtSigtimedwait: the signal number, the SI_CODE (used to tell a spawn
// delivery from a timer fire when they share a priority), and the 8-byte
// sigval payload carrying the task tag and slot index.
type Siginfo struct {
	Signo int32
	Code  int32
	Value uint64
}

// SI_QUEUE is the si_code stamped on signals raised via rt_sigqueueinfo;
// rtruntime ignores any other si_code delivered at a task's signal.
const SI_QUEUE = -1

// rawSiginfo mirrors the kernel's siginfo_t layout closely enough to pull
// si_signo/si_code/si_value (the _sigqueue.si_int/si_ptr union) out of the
// 128-byte buffer rt_sigtimedwait and rt_sigqueueinfo exchange; see
// linux-sys/src/types.rs for the struct this is ported from.
type rawSiginfo struct {
	Signo int32
	Errno int32
	Code  int32
	_     int32
	Value uint64
	_     [12]uint64
}

// RtSigtimedwait is NR 128, rt_sigtimedwait(2). A nil timeout blocks
// indefinitely; this is the call rtcore's dispatch loop spends almost all
// of its time inside of.
func RtSigtimedwait(set Sigset, timeout *unix.Timespec) (Siginfo, error) {
	var info rawSiginfo
	r, _, errno := unix.Syscall6(unix.SYS_RT_SIGTIMEDWAIT, uintptr(unsafe.Pointer(&set)),
		uintptr(unsafe.Pointer(&info)), uintptr(unsafe.Pointer(timeout)), sigsetSize, 0, 0)
	if errno != 0 {
		return Siginfo{}, errno
	}
	return Siginfo{Signo: int32(r), Code: info.Code, Value: info.Value}, nil
}

func queueinfo(nr, pid, tid, sig int, value uint64) error {
	info := rawSiginfo{
		Signo: int32(sig),
		Code:  SI_QUEUE,
		Value: value,
	}
	var errno unix.Errno
	if nr == unix.SYS_RT_TGSIGQUEUEINFO {
		_, _, errno = unix.Syscall6(uintptr(nr), uintptr(pid), uintptr(tid), uintptr(sig), uintptr(unsafe.Pointer(&info)), 0, 0)
	} else {
		_, _, errno = unix.Syscall(uintptr(nr), uintptr(pid), uintptr(sig), uintptr(unsafe.Pointer(&info)))
	}
	if errno != 0 {
		return errno
	}
	return nil
}

// RtSigqueueinfo is NR 129, rt_sigqueueinfo(2): queue sig at pid (the
// whole process, for single-core spawns) carrying value in si_value.
func RtSigqueueinfo(pid, sig int, value uint64) error {
	return queueinfo(unix.SYS_RT_SIGQUEUEINFO, pid, 0, sig, value)
}

// RtTgsigqueueinfo is NR 297, rt_tgsigqueueinfo(2): queue sig at a specific
// thread tid within thread group tgid, used for cross-executor spawn and
// schedule in multi-core applications.
func RtTgsigqueueinfo(tgid, tid, sig int, value uint64) error {
	return queueinfo(unix.SYS_RT_TGSIGQUEUEINFO, tgid, tid, sig, value)
}

// Kill is NR 62, kill(2). pid 0 means "this process", used by single-core
// timer re-arm signalling.
func Kill(pid, sig int) error {
	_, _, errno := unix.Syscall(unix.SYS_KILL, uintptr(pid), uintptr(sig), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Tgkill is NR 234, tgkill(2): signal one specific thread.
func Tgkill(tgid, tid, sig int) error {
	_, _, errno := unix.Syscall(unix.SYS_TGKILL, uintptr(tgid), uintptr(tid), uintptr(sig))
	if errno != 0 {
		return errno
	}
	return nil
}

// SchedYield is NR 24, sched_yield(2).
func SchedYield() {
	unix.Syscall(unix.SYS_SCHED_YIELD, 0, 0, 0)
}

// SchedSetaffinity is NR 203, restricted to pinning the calling thread to
// a single CPU, which is all rtcore's executors ever need.
func SchedSetaffinity(pid int, cpu int) error {
	var mask [8]uint64
	mask[cpu/64] = 1 << uint(cpu%64)
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETAFFINITY, uintptr(pid), uintptr(len(mask)*8), uintptr(unsafe.Pointer(&mask[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

// SchedSetscheduler is NR 144, sched_setscheduler(2).
func SchedSetscheduler(pid, policy, priority int) error {
	param := int32(priority)
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, uintptr(pid), uintptr(policy), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errno
	}
	return nil
}

// SchedSetparam is NR 142, sched_setparam(2).
func SchedSetparam(pid, priority int) error {
	param := int32(priority)
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETPARAM, uintptr(pid), uintptr(unsafe.Pointer(&param)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Scheduling policies used by SchedSetscheduler.
const (
	SchedFIFO = 1
)

// Getpid is NR 39, getpid(2).
func Getpid() int {
	r, _, _ := unix.Syscall(unix.SYS_GETPID, 0, 0, 0)
	return int(r)
}

// Gettid is NR 186, gettid(2).
func Gettid() int {
	r, _, _ := unix.Syscall(unix.SYS_GETTID, 0, 0, 0)
	return int(r)
}

// Clone is NR 56, clone(2), exposed here to keep the syscall surface
// complete and testable in isolation. rtruntime's bootstrap does not call
// it: a hand-rolled clone trampoline would hand the child a stack the Go
// runtime knows nothing about, and Go code cannot safely run on a stack
// the runtime didn't allocate. Executors are real OS threads obtained
// through runtime.LockOSThread instead (see rtruntime/bootstrap.go).
func Clone(flags uintptr, newStackTop uintptr) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_CLONE, flags, newStackTop, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

// Pause is NR 34, pause(2).
func Pause() {
	unix.Syscall(unix.SYS_PAUSE, 0, 0, 0)
}

// Exit is NR 60, exit(2).
func Exit(code uint8) {
	unix.Syscall(unix.SYS_EXIT, uintptr(code), 0, 0)
	panic("unreachable")
}

// ExitGroup is NR 231, exit_group(2); this is rtcore's only path out of a
// fatal runtime error.
func ExitGroup(code uint8) {
	unix.Syscall(unix.SYS_EXIT_GROUP, uintptr(code), 0, 0)
	panic("unreachable")
}

// GetCPU is NR 309, getcpu(2).
func GetCPU() (cpu, node uint32, err error) {
	_, _, errno := unix.Syscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return 0, 0, errno
	}
	return cpu, node, nil
}

// Timerspec mirrors itimerspec for TimerSettime.
type Timerspec struct {
	Interval unix.Timespec
	Value    unix.Timespec
}

// TIMER_ABSTIME is the TimerSettime flag that makes Value an absolute
// CLOCK_MONOTONIC deadline rather than a relative duration.
const TIMER_ABSTIME = 1

// TimerCreate is NR 222, timer_create(2). sigev describes delivery: for a
// single-core application the timer signals the process (SIGEV_SIGNAL);
// for multi-core, it targets the owning executor's thread directly
// (SIGEV_THREAD_ID).
func TimerCreate(clockID int32, sigevent *Sigevent) (timerID int32, err error) {
	_, _, errno := unix.Syscall(unix.SYS_TIMER_CREATE, uintptr(clockID),
		uintptr(unsafe.Pointer(sigevent)), uintptr(unsafe.Pointer(&timerID)))
	if errno != 0 {
		return 0, errno
	}
	return timerID, nil
}

// Sigevent mirrors struct sigevent restricted to the SIGEV_SIGNAL and
// SIGEV_THREAD_ID shapes rtcore's timers use.
type Sigevent struct {
	Value  uint64
	Signo  int32
	Notify int32
	// TID is only meaningful when Notify == SIGEV_THREAD_ID.
	TID int32
	_   [44]byte // remainder of the union, unused by rtcore
}

const (
	SigevSignal   = 0
	SigevThreadID = 4
)

// TimerSettime is NR 223, timer_settime(2).
func TimerSettime(timerID int32, flags int, new Timerspec) error {
	_, _, errno := unix.Syscall6(unix.SYS_TIMER_SETTIME, uintptr(timerID), uintptr(flags),
		uintptr(unsafe.Pointer(&new)), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Linux clock IDs used by ClockGettime / TimerCreate.
const (
	ClockMonotonic     = 1
	ClockMonotonicRaw  = 4
	ClockMonotonicCoarse = 6
)

// ClockGettime is NR 228, clock_gettime(2).
func ClockGettime(clockID int32) (unix.Timespec, error) {
	var ts unix.Timespec
	_, _, errno := unix.Syscall(unix.SYS_CLOCK_GETTIME, uintptr(clockID), uintptr(unsafe.Pointer(&ts)), 0)
	if errno != 0 {
		return unix.Timespec{}, errno
	}
	return ts, nil
}
