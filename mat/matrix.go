package mat

import (
	"unsafe"

	"github.com/sandialabs/geryon/device"
)

// Matrix pairs a host-resident buffer with a device-resident buffer and
// presents them as one logical 2D array. H is the host element type, D the
// device element type. How the device side is backed is decided once, at
// allocation time, by Choose.
//
// Both sides always describe the same logical shape. Element access goes
// through the host side; in independent mode nothing keeps the two sides
// coherent and transfers are explicit through Dev.
type Matrix[H, D Element] struct {
	Host Host[H]
	Dev  Dev[D]
	disp Disposition
}

// New allocates a rows x cols matrix on q's device with default hints
// (read-write-optimized pinning, read-write device usage).
func New[H, D Element](rows, cols int, q *device.Queue) (*Matrix[H, D], error) {
	m := &Matrix[H, D]{}
	if err := m.Alloc(rows, cols, q, device.ReadWriteOptimized, device.ReadWrite); err != nil {
		return nil, err
	}
	return m, nil
}

// Alloc reserves storage for rows*cols elements on both sides, releasing
// any prior storage first. The host side is allocated first; the device
// side then either aliases it (same element representation on a
// unified-memory device) or gets an independent allocation. On any failure
// the matrix is left fully unallocated.
func (m *Matrix[H, D]) Alloc(rows, cols int, q *device.Queue, pin device.PinHint, usage device.UsageHint) error {
	m.Clear()

	if err := m.Host.Alloc(rows, cols, q, pin); err != nil {
		return err
	}

	disp := Choose(TypeOf[H](), TypeOf[D](), q.Device().UnifiedMemory())
	if disp == View {
		m.Dev.View(aliasSlice[H, D](m.Host.Data()), rows, cols, q)
	} else {
		if err := m.Dev.Alloc(rows, cols, q, usage); err != nil {
			// Roll back so no partial allocation is observable.
			m.Host.Clear()
			return err
		}
	}

	m.disp = disp
	return nil
}

// Clear releases all storage and returns the matrix to the unallocated
// state. Device memory is freed only when the device side owns it; a view
// holds nothing to free. Safe to call repeatedly and on a never-allocated
// matrix.
func (m *Matrix[H, D]) Clear() {
	m.Dev.Clear()
	m.Host.Clear()
	m.disp = Unallocated
}

// Disposition returns the storage strategy fixed at allocation time.
func (m *Matrix[H, D]) Disposition() Disposition { return m.disp }

// Zero sets every element of both sides to zero. In view mode both sides
// share one storage; the host-side pass covers it and the device-side pass
// is skipped so the storage is zeroed exactly once per call.
func (m *Matrix[H, D]) Zero() {
	m.Host.Zero()
	if m.disp == Independent {
		m.Dev.Zero()
	}
}

// ZeroN sets the first n elements of both sides to zero.
func (m *Matrix[H, D]) ZeroN(n int) {
	m.Host.ZeroN(n)
	if m.disp == Independent {
		m.Dev.ZeroN(n)
	}
}

// Rows returns the number of rows.
func (m *Matrix[H, D]) Rows() int { return m.Host.Rows() }

// Cols returns the number of columns.
func (m *Matrix[H, D]) Cols() int { return m.Host.Cols() }

// Numel returns the number of elements.
func (m *Matrix[H, D]) Numel() int { return m.Host.Numel() }

// At returns a mutable reference into host storage at (row, col). Bounds
// are the caller's responsibility.
func (m *Matrix[H, D]) At(row, col int) *H {
	return m.Host.At(row, col)
}

// AtIdx returns a mutable reference to the i-th element in row-major order.
func (m *Matrix[H, D]) AtIdx(i int) *H {
	return m.Host.AtIdx(i)
}

// HostData returns the host-side backing slice without transferring
// ownership.
func (m *Matrix[H, D]) HostData() []H { return m.Host.Data() }

// HostPtr returns the address of host storage for interop with external
// transfer routines.
func (m *Matrix[H, D]) HostPtr() unsafe.Pointer { return m.Host.Ptr() }

// Queue returns the command queue associated with the matrix.
func (m *Matrix[H, D]) Queue() *device.Queue { return m.Host.Queue() }

// Sync blocks until all work previously enqueued on the matrix's command
// queue has completed. This is the only operation that blocks.
func (m *Matrix[H, D]) Sync() error {
	return m.Host.Sync()
}

// aliasSlice reinterprets host storage as the device element type. Only
// valid when both types share a DataType, which Choose guarantees before a
// view is taken.
func aliasSlice[H, D Element](h []H) []D {
	if len(h) == 0 {
		return nil
	}
	return unsafe.Slice((*D)(unsafe.Pointer(&h[0])), len(h))
}
