// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringio

// Test-only access to ring internals: direct index pokes to construct each
// meta-state of the zero-copy ring, a state classifier, and waiter counters
// for deterministic blocking tests.

// RingState classifies the reader-visible meta-state of an SPSCZeroCopy.
type RingState int

const (
	StateE0 RingState = iota // empty, readIndex == 0
	StateE1                  // empty, readIndex > 0
	StateF0                  // full, readIndex == 0, writeIndex == cap
	StateF1                  // full, readIndex > 0, writeIndex == readIndex-1
	StateX0                  // front, readIndex == 0, readIndex < writeIndex
	StateX1                  // front, readIndex > 0, readIndex < writeIndex
	StateY0                  // back, writeIndex == 0
	StateY1                  // back, writeIndex > 0, writeIndex < readIndex
)

func (s RingState) String() string {
	switch s {
	case StateE0:
		return "E0"
	case StateE1:
		return "E1"
	case StateF0:
		return "F0"
	case StateF1:
		return "F1"
	case StateX0:
		return "X0"
	case StateX1:
		return "X1"
	case StateY0:
		return "Y0"
	case StateY1:
		return "Y1"
	}
	return "invalid"
}

// SetIndexes force-sets the ring's words to construct a meta-state.
func SetIndexes[T any](q *SPSCZeroCopy[T], writeIndex, readEndIndex, readIndex int32) {
	q.writeCtx.Store(encodeCtx(writeIndex, readEndIndex))
	q.readIndex.Store(readIndex)
}

// Indexes returns the ring's current words.
func Indexes[T any](q *SPSCZeroCopy[T]) (writeIndex, readEndIndex, readIndex int32) {
	writeIndex, readEndIndex = decodeCtx(q.writeCtx.LoadRelaxed())
	readIndex = q.readIndex.LoadRelaxed()
	return
}

// StateOf classifies the ring's current meta-state.
func StateOf[T any](q *SPSCZeroCopy[T]) RingState {
	writeIndex, _, readIndex := Indexes(q)
	if readIndex <= writeIndex {
		// front
		if writeIndex == readIndex {
			if readIndex == 0 {
				return StateE0
			}
			return StateE1
		}
		if readIndex == 0 {
			if writeIndex == q.maxSize {
				return StateF0
			}
			return StateX0
		}
		return StateX1
	}
	// back
	if readIndex-1 == writeIndex {
		return StateF1
	}
	if writeIndex == 0 {
		return StateY0
	}
	return StateY1
}

// ReaderWaiters reports readers parked for data.
func ReaderWaiters[T any](q *SPSCZeroCopy[T]) int32 {
	return q.writeCtxWait.Waiters()
}

// WriterWaiters reports writers parked for room (or for emptiness).
func WriterWaiters[T any](q *SPSCZeroCopy[T]) int32 {
	return q.readIndexWait.Waiters()
}

// ConsumerWaiters reports consumers parked on an empty MPSC ring.
func ConsumerWaiters[T any](q *MPSC[T]) int32 {
	return q.readMaxWait.Waiters()
}

// ProducerWaiters reports producers parked on a full MPSC ring.
func ProducerWaiters[T any](q *MPSC[T]) int32 {
	return q.readWait.Waiters()
}
