// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package park

import (
	"sync"
	"sync/atomic"
)

// Point is a condvar-backed parking spot for platforms without an exposed
// futex. The zero value is ready to use.
//
// The mutex is only ever taken inside Wait/Notify — the slow path. Callers
// reach Wait only after their lock-free attempt failed, so the protocol fast
// paths stay lock-free.
type Point struct {
	mu      sync.Mutex
	cond    *sync.Cond
	waiters atomic.Int32
}

// Wait parks the caller until a Notify or NotifyAll on p, provided unchanged
// still reports true under the slow-path lock. May return spuriously.
func (p *Point) Wait(unchanged func() bool) {
	p.mu.Lock()
	if p.cond == nil {
		p.cond = sync.NewCond(&p.mu)
	}
	if unchanged() {
		p.waiters.Add(1)
		p.cond.Wait()
		p.waiters.Add(-1)
	}
	p.mu.Unlock()
}

// Notify wakes one parked waiter, if any.
//
// The empty critical section orders the notification after any waiter that
// has passed its unchanged check but not yet parked; without it the signal
// could land in the gap and be lost.
func (p *Point) Notify() {
	p.mu.Lock()
	c := p.cond
	p.mu.Unlock()
	if c != nil {
		c.Signal()
	}
}

// NotifyAll wakes every parked waiter.
func (p *Point) NotifyAll() {
	p.mu.Lock()
	c := p.cond
	p.mu.Unlock()
	if c != nil {
		c.Broadcast()
	}
}

// Waiters reports how many callers are currently parked.
func (p *Point) Waiters() int32 {
	return p.waiters.Load()
}
