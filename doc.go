// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ringio provides bounded, wait-capable, lock-free ring buffers for
// intra-process producer/consumer handoff.
//
// Two independent primitives are offered:
//
//   - MPSC: a multi-producer single-consumer ring of fixed-size element
//     slots, consumed in contiguous runs via Peek/CommitPop
//   - SPSCZeroCopy: a single-producer single-consumer ring that leases its
//     underlying storage directly to caller-supplied read/write routines
//
// # MPSC slot ring
//
// Producers deposit one element per push; the single consumer peeks a
// contiguous run of ready elements and commits them in one step:
//
//	q := ringio.NewMPSC[Event](128)
//
//	// Producers (any number of goroutines)
//	ev := Event{ID: 1}
//	if !q.Push(&ev) {
//	    return // ring canceled
//	}
//
//	// Consumer (exactly one goroutine)
//	for {
//	    run, n := q.Peek(64)
//	    if n < 0 {
//	        return // ring canceled
//	    }
//	    for i := range run {
//	        process(&run[i])
//	    }
//	    q.CommitPop()
//	}
//
// Push blocks while the ring is full and fails only on cancellation;
// TryPush and TryPeek never block (0 means empty, -1 means canceled).
// Non-blocking queue-interface adapters (Enqueue/Dequeue with semantic
// errors) are provided for ecosystem-style retry loops:
//
//	backoff := iox.Backoff{}
//	for q.Enqueue(&ev) != nil {
//	    backoff.Wait()
//	}
//
// # SPSC zero-copy ring
//
// The writer reserves a contiguous region, fills it in place, and commits;
// the reader mirrors this. Data is produced and consumed directly in the
// ring's storage:
//
//	rb := ringio.NewSPSCZeroCopy[byte](1 << 16)
//
//	// Writer
//	buf, avail := rb.GetWritePtr(frameLen)
//	if avail < 0 {
//	    return // canceled
//	}
//	n := encodeFrame(buf)
//	rb.MoveWritePtr(n)
//
//	// Reader
//	data, avail := rb.GetReadPtr(1)
//	if avail < 0 {
//	    return // canceled
//	}
//	consumed := decodeFrames(data)
//	rb.MoveReadPtr(consumed)
//
// Or equivalently with the routine-passing helpers:
//
//	rb.WriteWith(frameLen, encodeFrame)
//	rb.ReadWith(1, decodeFrames)
//
// A reservation is always one contiguous slice: when the tail of the ring is
// too small the writer flips to the head instead of splitting, and the
// reader follows once it exhausts the wrapped region. A single request is
// therefore limited to Cap()/2 elements; larger requests are rejected with
// -1. Requesting 0 elements turns either Get call into a non-blocking probe.
//
// # Blocking and cancellation
//
// Blocking calls park on the opposing side's index using futex-style
// wait/notify (no locks on any fast path). Cancel poisons every index,
// releases all parked callers, and is sticky: after it, every operation
// reports -1 (or ErrCanceled on the adapter surface). Cancel any ring
// before releasing it.
//
// # Thread safety
//
//   - MPSC: any number of producer goroutines, exactly one consumer
//   - SPSCZeroCopy: exactly one writer goroutine and one reader goroutine
//
// Violating these constraints causes undefined behavior including data
// corruption. Peek/CommitPop and GetReadPtr/MoveReadPtr pairs belong to the
// single consumer; GetWritePtr/MoveWritePtr pairs belong to the single
// writer.
//
// # Race detection
//
// The protocols establish happens-before through acquire/release atomics on
// index words, which Go's race detector cannot observe. The concurrent stress
// tests are excluded under the race detector via the RaceEnabled constant; this is a
// limitation of the detector, not of the algorithms.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions in retry loops, and [code.hybscloud.com/iox] for semantic
// errors on the adapter surface.
package ringio
