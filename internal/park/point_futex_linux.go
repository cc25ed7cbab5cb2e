// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package park

import (
	"math"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Point is a futex-backed parking spot. The zero value is ready to use.
//
// The wake sequence must stay a bare uint32: its address is handed to the
// kernel.
type Point struct {
	seq     uint32
	waiters atomic.Int32
}

// Wait parks the caller until a Notify or NotifyAll on p, provided unchanged
// still reports true once the park is armed. May return spuriously.
func (p *Point) Wait(unchanged func() bool) {
	seq := atomic.LoadUint32(&p.seq)
	if !unchanged() {
		return
	}
	p.waiters.Add(1)
	futexWait(&p.seq, seq)
	p.waiters.Add(-1)
}

// Notify wakes one parked waiter, if any.
func (p *Point) Notify() {
	atomic.AddUint32(&p.seq, 1)
	futexWake(&p.seq, 1)
}

// NotifyAll wakes every parked waiter.
func (p *Point) NotifyAll() {
	atomic.AddUint32(&p.seq, 1)
	futexWake(&p.seq, math.MaxInt32)
}

// Waiters reports how many callers are currently parked. Diagnostic; the
// count is precise only once the waiter has actually entered the kernel wait.
func (p *Point) Waiters() int32 {
	return p.waiters.Load()
}

// futexWait blocks until the value at addr differs from val or a wake
// arrives. EAGAIN (value already changed) and EINTR are normal returns;
// callers re-check their condition regardless.
func futexWait(addr *uint32, val uint32) {
	if atomic.LoadUint32(addr) != val {
		return
	}
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAIT|unix.FUTEX_PRIVATE_FLAG),
		uintptr(val),
		0, 0, 0,
	)
}

// futexWake wakes up to n waiters parked on addr.
func futexWake(addr *uint32, n int32) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(unix.FUTEX_WAKE|unix.FUTEX_PRIVATE_FLAG),
		uintptr(n),
		0, 0, 0,
	)
}
