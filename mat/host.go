package mat

import (
	"fmt"
	"unsafe"

	"github.com/sandialabs/geryon/device"
)

// Host is the host-side matrix: a flat, row-major, unpadded store of
// rows*cols elements obtained from a device's host allocator so pinning
// hints can take effect.
type Host[E Element] struct {
	data []E
	raw  []byte // allocation as handed out by the device, kept for FreeHost
	rows int
	cols int
	pin  device.PinHint
	q    *device.Queue
}

// Alloc reserves rows*cols elements with the given pin hint, releasing any
// prior storage first.
func (h *Host[E]) Alloc(rows, cols int, q *device.Queue, pin device.PinHint) error {
	h.Clear()

	if rows < 0 || cols < 0 {
		return fmt.Errorf("host alloc: invalid shape %dx%d: %w", rows, cols, ErrAllocation)
	}

	n := rows * cols
	size := int64(n) * int64(TypeOf[E]().Size())
	raw, err := q.Device().AllocHost(size, pin)
	if err != nil {
		return fmt.Errorf("host alloc %dx%d: %w (%v)", rows, cols, ErrAllocation, err)
	}

	h.raw = raw
	if n > 0 {
		h.data = unsafe.Slice((*E)(unsafe.Pointer(&raw[0])), n)
	}
	h.rows = rows
	h.cols = cols
	h.pin = pin
	h.q = q
	return nil
}

// Clear releases host storage and resets the shape to zero. Safe to call
// repeatedly and on a never-allocated matrix.
func (h *Host[E]) Clear() {
	if h.raw != nil && h.q != nil {
		h.q.Device().FreeHost(h.raw)
	}
	h.data = nil
	h.raw = nil
	h.rows = 0
	h.cols = 0
	h.q = nil
}

// Zero sets every element to zero.
func (h *Host[E]) Zero() {
	clear(h.data)
}

// ZeroN sets the first n elements to zero.
func (h *Host[E]) ZeroN(n int) {
	clear(h.data[:n])
}

// Rows returns the number of rows.
func (h *Host[E]) Rows() int { return h.rows }

// Cols returns the number of columns.
func (h *Host[E]) Cols() int { return h.cols }

// Numel returns the number of elements.
func (h *Host[E]) Numel() int { return len(h.data) }

// At returns a mutable reference to the element at (row, col). Bounds are
// the caller's responsibility.
func (h *Host[E]) At(row, col int) *E {
	return &h.data[row*h.cols+col]
}

// AtIdx returns a mutable reference to the i-th element in row-major order.
func (h *Host[E]) AtIdx(i int) *E {
	return &h.data[i]
}

// Data returns the backing slice. Ownership is not transferred.
func (h *Host[E]) Data() []E { return h.data }

// Ptr returns the address of host storage for interop with external
// transfer routines. Nil when unallocated or empty.
func (h *Host[E]) Ptr() unsafe.Pointer {
	if len(h.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&h.data[0])
}

// Pin returns the pin hint the storage was allocated with.
func (h *Host[E]) Pin() device.PinHint { return h.pin }

// Queue returns the command queue associated with this matrix.
func (h *Host[E]) Queue() *device.Queue { return h.q }

// Sync blocks until all work previously enqueued on the associated command
// queue has completed.
func (h *Host[E]) Sync() error {
	return h.q.Sync()
}
