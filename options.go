// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringio

// Options configures ring creation.
type Options struct {
	capacity int
	align    uintptr
}

// Builder creates rings with fluent configuration.
//
// Example:
//
//	q := ringio.BuildMPSC[Event](ringio.New(128))
//	rb := ringio.BuildZeroCopy[byte](ringio.New(1 << 16).Aligned(64))
type Builder struct {
	opts Options
}

// New creates a ring builder with the given capacity.
// Capacity is taken as-is; it is not rounded. Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("ringio: capacity must be >= 2")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// Aligned requests that zero-copy storage start on an align-byte boundary.
// Ignored by the MPSC slot ring, whose elements are copied, not leased.
func (b *Builder) Aligned(align uintptr) *Builder {
	b.opts.align = align
	return b
}

// BuildMPSC creates an MPSC slot ring from the builder.
func BuildMPSC[T any](b *Builder) *MPSC[T] {
	return NewMPSC[T](b.opts.capacity)
}

// BuildZeroCopy creates an SPSC zero-copy ring from the builder.
func BuildZeroCopy[T any](b *Builder) *SPSCZeroCopy[T] {
	if b.opts.align != 0 {
		return NewSPSCZeroCopyAligned[T](b.opts.capacity, b.opts.align)
	}
	return NewSPSCZeroCopy[T](b.opts.capacity)
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
