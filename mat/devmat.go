package mat

import (
	"fmt"
	"unsafe"

	"github.com/sandialabs/geryon/device"
)

// Dev is the device-side matrix. It either owns a device buffer or is a
// view aliasing host storage. A view holds no buffer at all, so clearing
// one cannot free device memory; the distinction is structural, not a flag
// checked before every free.
type Dev[E Element] struct {
	buf   device.Buffer // owned storage; nil for views
	alias []E           // aliased host storage; nil when owned
	rows  int
	cols  int
	usage device.UsageHint
	q     *device.Queue
}

// Alloc reserves independent device storage for rows*cols elements with
// the given usage hint, releasing any prior storage first.
func (d *Dev[E]) Alloc(rows, cols int, q *device.Queue, usage device.UsageHint) error {
	d.Clear()

	if rows < 0 || cols < 0 {
		return fmt.Errorf("device alloc: invalid shape %dx%d: %w", rows, cols, ErrAllocation)
	}

	size := int64(rows*cols) * int64(TypeOf[E]().Size())
	buf, err := q.Device().Alloc(size, usage)
	if err != nil {
		return fmt.Errorf("device alloc %dx%d: %w (%v)", rows, cols, ErrAllocation, err)
	}

	d.buf = buf
	d.rows = rows
	d.cols = cols
	d.usage = usage
	d.q = q
	return nil
}

// View binds this side as an alias of already-allocated host storage. No
// device memory is requested and none will ever be freed through it.
func (d *Dev[E]) View(alias []E, rows, cols int, q *device.Queue) {
	d.Clear()

	d.alias = alias
	d.rows = rows
	d.cols = cols
	d.q = q
}

// Clear releases owned device storage, if any, and resets the shape to
// zero. For views there is nothing to release. Idempotent.
func (d *Dev[E]) Clear() {
	if d.buf != nil {
		d.buf.Free()
		d.buf = nil
	}
	d.alias = nil
	d.rows = 0
	d.cols = 0
	d.q = nil
}

// Zero sets every element to zero. For owned storage the memset is
// enqueued on the command queue; for views the aliased host storage is
// zeroed in place.
func (d *Dev[E]) Zero() {
	d.ZeroN(d.rows * d.cols)
}

// ZeroN sets the first n elements to zero.
func (d *Dev[E]) ZeroN(n int) {
	if d.buf != nil {
		buf := d.buf
		bytes := int64(n) * int64(TypeOf[E]().Size())
		d.q.Enqueue(func() error {
			return buf.Memset(0, bytes)
		})
		return
	}
	clear(d.alias[:n])
}

// Rows returns the number of rows.
func (d *Dev[E]) Rows() int { return d.rows }

// Cols returns the number of columns.
func (d *Dev[E]) Cols() int { return d.cols }

// Numel returns the number of elements.
func (d *Dev[E]) Numel() int { return d.rows * d.cols }

// IsView reports whether this side aliases host storage instead of owning
// a device buffer.
func (d *Dev[E]) IsView() bool { return d.buf == nil && d.q != nil }

// Buffer returns the owned device buffer, or nil for views.
func (d *Dev[E]) Buffer() device.Buffer { return d.buf }

// Data returns the aliased host storage for views. For owned device
// storage there is no host-addressable slice and Data returns nil; use
// CopyToHost instead.
func (d *Dev[E]) Data() []E { return d.alias }

// Queue returns the command queue device operations are issued against.
func (d *Dev[E]) Queue() *device.Queue { return d.q }

// CopyFromHost transfers src into device storage. For owned storage the
// copy is enqueued on the command queue and completes by the next Sync;
// for views it is an immediate host-side copy.
func (d *Dev[E]) CopyFromHost(src []E) {
	if d.buf != nil {
		buf := d.buf
		payload := bytesOf(src)
		d.q.Enqueue(func() error {
			return buf.CopyFromHost(payload)
		})
		return
	}
	copy(d.alias, src)
}

// CopyToHost transfers device storage into dst. For owned storage the copy
// is enqueued on the command queue; dst must not be read before the next
// Sync. For views it is an immediate host-side copy.
func (d *Dev[E]) CopyToHost(dst []E) {
	if d.buf != nil {
		buf := d.buf
		payload := bytesOf(dst)
		d.q.Enqueue(func() error {
			return buf.CopyToHost(payload)
		})
		return
	}
	copy(dst, d.alias)
}

// bytesOf reinterprets an element slice as its raw bytes.
func bytesOf[E Element](s []E) []byte {
	if len(s) == 0 {
		return nil
	}
	size := len(s) * TypeOf[E]().Size()
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), size)
}
