// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringio

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/ringio/internal/park"
)

// MPSC is a multi-producer single-consumer ring of value slots.
//
// Producers claim a slot by CAS on the write index, copy their element into
// it, then publish through the read-max index in claim order: the producer
// that claimed slot k advances readMaxIndex from k to k+1, which cannot
// succeed before the producer of k-1 has published k. The single consumer
// therefore always sees a contiguous run of ready elements, exposed by Peek
// as one slice and consumed by CommitPop.
//
// One slot is always left vacant so that writeIndex+1 == readIndex
// unambiguously means full; a ring of capacity n holds at most n-1 elements.
//
// Cancel poisons all three indices to -1 and releases every parked caller.
// Cancellation is sticky: every subsequent operation fails.
type MPSC[T any] struct {
	_            pad
	writeIndex   atomix.Int64 // next slot a producer will claim; -1 = canceled
	readMaxIndex atomix.Int64 // high-water mark of fully written slots; -1 = canceled
	maxQueued    atomix.Int32
	waitCount    atomix.Int32
	readMaxWait  park.Point // consumer parks here when empty
	_            pad
	readIndex    atomix.Int64 // first unconsumed slot; -1 = canceled
	readWait     park.Point   // producers park here when full
	_            pad
	popExpected  int64 // consumer-local snapshot from the last Peek
	popDesired   int64
	buffer       []T
	size         int64
}

// WriteStats are producer-side diagnostic counters, maintained with relaxed
// atomics.
type WriteStats struct {
	MaxQueued int32 // high-water mark of in-flight elements
	WaitCount int32 // times a blocking Push parked on a full ring
}

// NewMPSC creates a new MPSC slot ring holding at most capacity-1 elements.
// Capacity may be any value >= 2; it is not rounded.
func NewMPSC[T any](capacity int) *MPSC[T] {
	if capacity < 2 {
		panic("ringio: capacity must be >= 2")
	}
	return &MPSC[T]{
		buffer: make([]T, capacity),
		size:   int64(capacity),
	}
}

// Push adds an element, blocking while the ring is full.
// Returns false only if the ring has been canceled.
func (q *MPSC[T]) Push(elem *T) bool {
	return q.push(elem, true)
}

// TryPush adds an element without blocking.
// Returns false if the ring is full or canceled.
func (q *MPSC[T]) TryPush(elem *T) bool {
	return q.push(elem, false)
}

func (q *MPSC[T]) push(elem *T, wait bool) bool {
	var writeIndex, newWriteIndex int64
	var queueSize int32
	for {
		writeIndex = q.writeIndex.LoadRelaxed()
		if writeIndex < 0 {
			return false // canceled
		}
		readIndex := q.readIndex.LoadAcquire()
		if readIndex < 0 {
			return false // canceled
		}
		newWriteIndex = (writeIndex + 1) % q.size
		if newWriteIndex == readIndex {
			// full
			if !wait {
				return false
			}
			q.waitCount.Add(1)
			q.readWait.Wait(func() bool {
				return q.readIndex.LoadRelaxed() == readIndex
			})
			continue
		}

		queueSize = int32((q.size + newWriteIndex - readIndex) % q.size)

		// A failed strong CAS means another producer won the slot; the
		// whole observation is stale and the claim restarts from the top.
		if q.writeIndex.CompareAndSwapRelaxed(writeIndex, newWriteIndex) {
			break
		}
	}

	// The slot is exclusively ours until the publication below.
	q.buffer[writeIndex] = *elem

	for {
		maxQueued := q.maxQueued.LoadRelaxed()
		if maxQueued >= queueSize {
			break
		}
		if q.maxQueued.CompareAndSwapRelaxed(maxQueued, queueSize) {
			break
		}
	}

	// Publish in claim order: this CAS can only succeed once the producer
	// of the previous slot has advanced readMaxIndex to our writeIndex.
	sw := spin.Wait{}
	for {
		if q.readMaxIndex.CompareAndSwapAcqRel(writeIndex, newWriteIndex) {
			q.readMaxWait.Notify()
			return true
		}
		if q.readMaxIndex.LoadRelaxed() < 0 {
			return false // canceled
		}
		sw.Once()
	}
}

// Peek exposes up to max contiguous ready elements, blocking while the ring
// is empty. Returns the run and its length, or (nil, -1) if the ring has
// been canceled. The run stays valid until CommitPop; a second Peek without
// an intervening CommitPop returns the same run.
//
// At a wrap boundary the run is clamped to the end of the ring, so a single
// Peek never observes more than one contiguous slice.
func (q *MPSC[T]) Peek(max int64) ([]T, int64) {
	return q.peek(max, true)
}

// TryPeek is the non-blocking Peek.
// Returns (nil, 0) when empty and (nil, -1) when canceled.
func (q *MPSC[T]) TryPeek(max int64) ([]T, int64) {
	return q.peek(max, false)
}

func (q *MPSC[T]) peek(max int64, wait bool) ([]T, int64) {
	if max < 0 {
		max = 0
	}
	readIndex := q.readIndex.LoadRelaxed() // consumer-owned
	var readMaxIndex int64
	for {
		readMaxIndex = q.readMaxIndex.LoadAcquire()
		if readMaxIndex < 0 {
			return nil, -1 // canceled
		}
		if readIndex != readMaxIndex {
			break
		}
		// empty
		if !wait {
			return nil, 0
		}
		q.readMaxWait.Wait(func() bool {
			return q.readMaxIndex.LoadRelaxed() == readMaxIndex
		})
	}

	avail := readMaxIndex - readIndex
	if readIndex > readMaxIndex {
		avail = q.size - readIndex
	}
	n := min(avail, max)

	q.popExpected = readIndex
	q.popDesired = (readIndex + n) % q.size
	return q.buffer[readIndex : readIndex+n : readIndex+n], n
}

// CommitPop commits consumption of the run reported by the most recent
// successful Peek and wakes one producer parked on a full ring. Without a
// CommitPop the next Peek re-reports the same run.
func (q *MPSC[T]) CommitPop() {
	sw := spin.Wait{}
	for {
		if q.readIndex.CompareAndSwapAcqRel(q.popExpected, q.popDesired) {
			q.readWait.Notify()
			return
		}
		if q.readIndex.LoadRelaxed() < 0 {
			return // canceled
		}
		// Only a cancel can race the consumer's own index; anything else
		// resolves on retry.
		sw.Once()
	}
}

// Cancel transitions the ring into the terminal canceled state and releases
// every parked producer and the consumer. Idempotent.
func (q *MPSC[T]) Cancel() {
	for {
		index := q.writeIndex.LoadRelaxed()
		if index < 0 {
			break
		}
		if q.writeIndex.CompareAndSwapAcqRel(index, -1) {
			break
		}
	}
	for {
		index := q.readMaxIndex.LoadRelaxed()
		if index < 0 {
			break
		}
		if q.readMaxIndex.CompareAndSwapAcqRel(index, -1) {
			q.readMaxWait.NotifyAll()
			break
		}
	}
	for {
		index := q.readIndex.LoadRelaxed()
		if index < 0 {
			break
		}
		if q.readIndex.CompareAndSwapAcqRel(index, -1) {
			q.readWait.NotifyAll()
			break
		}
	}
}

// WriteStats returns the producer-side diagnostic counters.
func (q *MPSC[T]) WriteStats() WriteStats {
	return WriteStats{
		MaxQueued: q.maxQueued.LoadRelaxed(),
		WaitCount: q.waitCount.LoadRelaxed(),
	}
}

// Cap returns the slot count. The ring holds at most Cap()-1 elements.
func (q *MPSC[T]) Cap() int {
	return int(q.size)
}

// Enqueue adds an element in the non-blocking queue-interface shape.
// Returns ErrWouldBlock when full and ErrCanceled after Cancel.
func (q *MPSC[T]) Enqueue(elem *T) error {
	if q.TryPush(elem) {
		return nil
	}
	if q.writeIndex.LoadRelaxed() < 0 {
		return ErrCanceled
	}
	return ErrWouldBlock
}

// Dequeue removes and returns one element in the non-blocking
// queue-interface shape (single consumer only). Returns ErrWouldBlock when
// empty and ErrCanceled after Cancel.
func (q *MPSC[T]) Dequeue() (T, error) {
	var zero T
	run, n := q.TryPeek(1)
	switch {
	case n < 0:
		return zero, ErrCanceled
	case n == 0:
		return zero, ErrWouldBlock
	}
	elem := run[0]
	q.CommitPop()
	return elem, nil
}
