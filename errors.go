// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringio

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Enqueue: the ring is full (backpressure)
// For Dequeue: the ring is empty (no data available)
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry later (with backoff or yield) rather than propagating the error.
// The numeric core API reports the same condition as 0 from non-blocking
// calls; only the queue-style adapters surface it as an error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrCanceled indicates the ring has been canceled.
//
// Cancellation is sticky and one-way: once Cancel has been called on a ring,
// every operation fails with this error (or -1 on the numeric API) and no
// further state mutation occurs. Retrying is pointless.
var ErrCanceled = errors.New("ringio: canceled")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsCanceled reports whether err indicates a canceled ring.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock; cancellation is terminal and
// therefore a failure. Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
