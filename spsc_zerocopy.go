// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringio

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/ringio/internal/park"
)

// SPSCZeroCopy is a single-producer single-consumer ring that leases its
// underlying storage directly to the caller: the writer reserves a
// contiguous region with GetWritePtr, fills it in place, and commits with
// MoveWritePtr; the reader mirrors this with GetReadPtr/MoveReadPtr. No
// element ever passes through an intermediate copy.
//
// The ring is described by two words:
//
//   - writeCtx packs (writeIndex, readEndIndex) into one 64-bit atomic so
//     a flip publishes both consistently in a single CAS
//   - readIndex is the reader's position
//
// readIndex <= writeIndex is the front side: valid data in
// [readIndex, writeIndex), free space at the tail plus [0, readIndex-1).
// writeIndex < readIndex is the back side: the writer has flipped to the
// head of the ring and readEndIndex marks where the wrapped valid region
// ends. readIndex == writeIndex always means empty; back-side fullness is
// readIndex-1 == writeIndex, so one element of slack is never handed out.
//
// A reservation never spans the wrap: when the tail is too small the writer
// flips to offset 0 instead. Requests are capped at Cap()/2, which
// guarantees a flip always yields enough room once the reader drains.
//
// Cancel poisons both words to -1 and releases all parked callers.
type SPSCZeroCopy[T any] struct {
	_             pad
	writeCtx      atomix.Uint64 // packed (writeIndex, readEndIndex); writeIndex -1 = canceled
	writeCtxWait  park.Point    // reader parks here when starved
	wim           writeReservation
	wstats        WriterStats
	_             pad
	readIndex     atomix.Int32 // -1 = canceled
	readIndexWait park.Point   // writer parks here when out of room
	rim           readReservation
	_             pad
	buffer        []T
	maxSize       int32
}

// writeReservation is the writer-local snapshot between GetWritePtr and
// MoveWritePtr.
type writeReservation struct {
	writeCtx      uint64
	writeIndex2   int32
	readEndIndex2 int32
	readIndex     int32
	avail         int32
}

// readReservation is the reader-local snapshot between GetReadPtr and
// MoveReadPtr.
type readReservation struct {
	readIndex    int32
	readIndex2   int32
	writeIndex   int32
	readEndIndex int32
	avail        int32
}

// WriterStats are writer-side diagnostic counters. They are plain fields
// mutated only by the writer; reading them from other goroutines yields
// best-effort values.
type WriterStats struct {
	WaitCount       int32 // times the writer parked for room
	Insufficient    int32 // availability checks that found too little room
	MaxReadEndIndex int32 // high-water mark of the published wrap boundary
}

// NewSPSCZeroCopy creates a ring of capacity elements with the element
// type's natural alignment.
func NewSPSCZeroCopy[T any](capacity int) *SPSCZeroCopy[T] {
	var zero T
	return NewSPSCZeroCopyAligned[T](capacity, unsafe.Alignof(zero))
}

// NewSPSCZeroCopyAligned creates a ring whose storage base is aligned to
// align bytes, so every reservation that starts at offset 0 — and, for
// byte-sized elements, every reservation the caller sizes accordingly —
// lands on an aligned address. align must be reachable by whole-element
// steps (align >= alignof(T) and a multiple of sizeof(T), the usual case
// being T = byte).
func NewSPSCZeroCopyAligned[T any](capacity int, align uintptr) *SPSCZeroCopy[T] {
	if capacity < 2 {
		panic("ringio: capacity must be >= 2")
	}
	if int64(capacity) > int64(maxInt32) {
		panic("ringio: capacity exceeds int32 range")
	}
	var zero T
	eleSize := unsafe.Sizeof(zero)
	eleAlign := unsafe.Alignof(zero)

	buffer := make([]T, capacity)
	if align > eleAlign {
		if eleSize == 0 || align%eleSize != 0 {
			panic("ringio: alignment not reachable by element-sized steps")
		}
		extra := int(align/eleSize) - 1
		storage := make([]T, capacity+extra)
		offset := 0
		for !isAligned(unsafe.Pointer(&storage[offset]), align) {
			offset++
			if offset > extra {
				panic("ringio: aligned base not found")
			}
		}
		buffer = storage[offset : offset+capacity : offset+capacity]
	}

	return &SPSCZeroCopy[T]{
		buffer:  buffer,
		maxSize: int32(capacity),
	}
}

func isAligned(p unsafe.Pointer, align uintptr) bool {
	return uintptr(p)%align == 0
}

const maxInt32 = 1<<31 - 1

// GetWritePtr reserves a contiguous writable region of at least want
// elements and returns it with the full reservable size; the caller may
// fill any prefix up to that size before MoveWritePtr. want > 0 blocks
// until room or cancellation; want == 0 probes and returns (nil, 0) when
// the room is insufficient. want < 0 or want > Cap()/2 returns (nil, -1),
// as does cancellation.
func (q *SPSCZeroCopy[T]) GetWritePtr(want int32) ([]T, int32) {
	if want < 0 || want > q.maxSize/2 {
		return nil, -1
	}
	ctx := q.writeCtx.LoadRelaxed() // only written from the writer side
	writeIndex, readEndIndex := decodeCtx(ctx)
	if writeIndex < 0 {
		return nil, -1 // canceled
	}
	for {
		// The acquire here pairs with the reader's release-CAS on
		// readIndex, making the reader's consumption visible before room
		// is computed; the reader in turn acquires writeCtx before
		// touching the buffer. These two edges carry the whole protocol.
		readIndex := q.readIndex.LoadAcquire()
		if readIndex < 0 {
			break // canceled
		}

		avail, flipTo := checkWriteAvailable(writeIndex, readIndex, q.maxSize)
		writeIndex2, readEndIndex2 := writeIndex, readEndIndex
		if flipTo >= 0 {
			// flip to back: the old writeIndex becomes the wrap boundary
			writeIndex2 = flipTo
			readEndIndex2 = writeIndex
		}
		if avail > 0 && want <= avail {
			q.wim = writeReservation{
				writeCtx:      ctx,
				writeIndex2:   writeIndex2,
				readEndIndex2: readEndIndex2,
				readIndex:     readIndex,
				avail:         avail,
			}
			return q.buffer[writeIndex2 : writeIndex2+avail : writeIndex2+avail], avail
		}
		if flipTo >= 0 {
			// Publish the flip before parking: it may be exactly what the
			// reader is waiting on to make progress.
			ctx2 := encodeCtx(writeIndex2, readEndIndex2)
			if !q.publishWriteCtx(ctx, ctx2) {
				break // canceled
			}
			ctx = ctx2
			writeIndex = writeIndex2
			readEndIndex = readEndIndex2
		}
		q.wstats.Insufficient++
		if want == 0 {
			return nil, 0 // non-blocking probe
		}
		q.wstats.WaitCount++
		q.readIndexWait.Wait(func() bool {
			return q.readIndex.LoadRelaxed() == readIndex
		})
	}
	return nil, -1 // canceled
}

// MoveWritePtr commits that written elements of the last reservation were
// filled and publishes them to the reader. Returns written, or -1 when
// written is negative, exceeds the reservation, or the ring was canceled.
func (q *SPSCZeroCopy[T]) MoveWritePtr(written int32) int32 {
	if written < 0 || written > q.wim.avail {
		return -1
	}
	newWriteIndex := q.wim.writeIndex2 + written // wrapping happens only via flip
	newReadEndIndex := q.wim.readEndIndex2
	if isFrontSide(newWriteIndex, q.wim.readIndex) {
		// readEndIndex is don't-care on the front side; keeping it equal
		// to writeIndex makes downstream emptiness checks degenerate
		// correctly.
		newReadEndIndex = newWriteIndex
	}
	if q.wstats.MaxReadEndIndex < q.wim.readEndIndex2 {
		q.wstats.MaxReadEndIndex = q.wim.readEndIndex2
	}
	if !q.publishWriteCtx(q.wim.writeCtx, encodeCtx(newWriteIndex, newReadEndIndex)) {
		return -1 // canceled
	}
	q.wim.avail = 0
	return written
}

// GetReadPtr reserves a contiguous readable region of at least want
// elements; semantics mirror GetWritePtr.
func (q *SPSCZeroCopy[T]) GetReadPtr(want int32) ([]T, int32) {
	if want < 0 || want > q.maxSize/2 {
		return nil, -1
	}
	readIndex := q.readIndex.LoadRelaxed() // only written from the reader side
	if readIndex < 0 {
		return nil, -1 // canceled
	}
	for {
		ctx := q.writeCtx.LoadAcquire()
		writeIndex, readEndIndex := decodeCtx(ctx)
		if writeIndex < 0 {
			break // canceled
		}

		avail, flipTo := checkReadAvailable(writeIndex, readEndIndex, readIndex)
		readIndex2 := readIndex
		if flipTo >= 0 {
			readIndex2 = flipTo // flip to front
		}
		if avail > 0 && want <= avail {
			q.rim = readReservation{
				readIndex:    readIndex,
				readIndex2:   readIndex2,
				writeIndex:   writeIndex,
				readEndIndex: readEndIndex,
				avail:        avail,
			}
			return q.buffer[readIndex2 : readIndex2+avail : readIndex2+avail], avail
		}
		if flipTo >= 0 {
			// Publish the flip before parking so the writer can reuse the
			// wrapped region.
			if !q.publishReadIndex(readIndex, readIndex2) {
				break // canceled
			}
			readIndex = readIndex2
		}
		if want == 0 {
			return nil, 0 // non-blocking probe
		}
		q.writeCtxWait.Wait(func() bool {
			return q.writeCtx.LoadRelaxed() == ctx
		})
	}
	return nil, -1 // canceled
}

// MoveReadPtr commits that read elements of the last reservation were
// consumed and releases them to the writer. Returns read, or -1 when read
// is negative, exceeds the reservation, or the ring was canceled.
func (q *SPSCZeroCopy[T]) MoveReadPtr(read int32) int32 {
	if read < 0 || read > q.rim.avail {
		return -1
	}
	newReadIndex := q.rim.readIndex2 + read
	if !isFrontSide(q.rim.writeIndex, q.rim.readIndex2) {
		if q.rim.readEndIndex <= newReadIndex {
			newReadIndex = 0 // consumed the whole wrapped region
		}
	}
	if !q.publishReadIndex(q.rim.readIndex, newReadIndex) {
		return -1 // canceled
	}
	q.rim.avail = 0
	return read
}

// WaitUntilEmptyForWriter blocks the writer until the reader has consumed
// everything published, or until cancellation.
func (q *SPSCZeroCopy[T]) WaitUntilEmptyForWriter() {
	ctx := q.writeCtx.LoadRelaxed()
	writeIndex, readEndIndex := decodeCtx(ctx)
	if writeIndex < 0 {
		return // canceled
	}
	for {
		readIndex := q.readIndex.LoadAcquire()
		if readIndex < 0 {
			return // canceled
		}
		if isEmpty(writeIndex, readEndIndex, readIndex) {
			return
		}
		q.readIndexWait.Wait(func() bool {
			return q.readIndex.LoadRelaxed() == readIndex
		})
	}
}

// Cancel transitions the ring into the terminal canceled state and releases
// all parked callers. Idempotent.
func (q *SPSCZeroCopy[T]) Cancel() {
	for {
		ctx := q.writeCtx.LoadRelaxed()
		if writeIndex, _ := decodeCtx(ctx); writeIndex < 0 {
			break
		}
		if q.writeCtx.CompareAndSwapAcqRel(ctx, encodeCtx(-1, -1)) {
			q.writeCtxWait.NotifyAll()
			break
		}
	}
	for {
		index := q.readIndex.LoadRelaxed()
		if index < 0 {
			break
		}
		if q.readIndex.CompareAndSwapAcqRel(index, -1) {
			q.readIndexWait.NotifyAll()
			break
		}
	}
}

// WriterStats returns the writer-side diagnostic counters.
func (q *SPSCZeroCopy[T]) WriterStats() WriterStats {
	return q.wstats
}

// Cap returns the element capacity of the ring. A single reservation is
// limited to Cap()/2.
func (q *SPSCZeroCopy[T]) Cap() int {
	return int(q.maxSize)
}

// WriteWith reserves at least want elements, runs fn over the leased
// storage, and commits fn's return value. The result is MoveWritePtr's:
// the committed size, 0 for an insufficient non-blocking probe, -1 on
// rejection or cancellation.
func (q *SPSCZeroCopy[T]) WriteWith(want int32, fn func(buf []T) int32) int32 {
	buf, size := q.GetWritePtr(want)
	if buf == nil {
		return size
	}
	return q.MoveWritePtr(fn(buf))
}

// ReadWith reserves at least want readable elements, runs fn over them, and
// commits fn's return value via MoveReadPtr.
func (q *SPSCZeroCopy[T]) ReadWith(want int32, fn func(buf []T) int32) int32 {
	buf, size := q.GetReadPtr(want)
	if buf == nil {
		return size
	}
	return q.MoveReadPtr(fn(buf))
}

// publishWriteCtx release-CASes writeCtx from current to next and wakes the
// reader. Returns false if cancellation won the word instead.
func (q *SPSCZeroCopy[T]) publishWriteCtx(current, next uint64) bool {
	sw := spin.Wait{}
	for !q.writeCtx.CompareAndSwapAcqRel(current, next) {
		if writeIndex, _ := decodeCtx(q.writeCtx.LoadRelaxed()); writeIndex < 0 {
			return false // canceled
		}
		sw.Once()
	}
	q.writeCtxWait.Notify()
	return true
}

// publishReadIndex release-CASes readIndex from current to next and wakes
// the writer. Returns false if cancellation won the word instead.
func (q *SPSCZeroCopy[T]) publishReadIndex(current, next int32) bool {
	sw := spin.Wait{}
	for !q.readIndex.CompareAndSwapAcqRel(current, next) {
		if q.readIndex.LoadRelaxed() < 0 {
			return false // canceled
		}
		sw.Once()
	}
	q.readIndexWait.Notify()
	return true
}

// encodeCtx packs (writeIndex, readEndIndex) with writeIndex in the low
// word, so the canceled encoding (-1, -1) is negative as a whole int64.
func encodeCtx(writeIndex, readEndIndex int32) uint64 {
	return uint64(uint32(writeIndex)) | uint64(uint32(readEndIndex))<<32
}

func decodeCtx(ctx uint64) (writeIndex, readEndIndex int32) {
	return int32(uint32(ctx)), int32(uint32(ctx >> 32))
}

func isFrontSide(writeIndex, readIndex int32) bool {
	return readIndex <= writeIndex
}

// checkWriteAvailable computes the writer's contiguous room. flipTo >= 0
// means the writer should move to that offset (always 0) because the head
// region is larger than the tail.
func checkWriteAvailable(writeIndex, readIndex, maxSize int32) (avail, flipTo int32) {
	if isFrontSide(writeIndex, readIndex) {
		tail := maxSize - writeIndex
		head := readIndex - 1
		if tail < head {
			return head, 0 // flip to back
		}
		return tail, -1
	}
	return readIndex - writeIndex - 1, -1
}

// checkReadAvailable computes the reader's contiguous data. flipTo >= 0
// means the wrapped region is exhausted and the reader should move to the
// head, where writeIndex elements are valid.
//
// The writer may still believe it is on the back side while the reader has
// already flipped to the front, so the side is always judged from the
// reader's own index.
func checkReadAvailable(writeIndex, readEndIndex, readIndex int32) (avail, flipTo int32) {
	if isFrontSide(writeIndex, readIndex) {
		return writeIndex - readIndex, -1
	}
	avail = readEndIndex - readIndex
	if avail == 0 {
		return writeIndex, 0 // flip to front
	}
	return avail, -1
}

func isEmpty(writeIndex, readEndIndex, readIndex int32) bool {
	if isFrontSide(writeIndex, readIndex) {
		return writeIndex == readIndex
	}
	return readEndIndex == readIndex
}
