package mat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandialabs/geryon/device"
)

func newMockQueue(t *testing.T, unified bool) (*mockDevice, *device.Queue) {
	t.Helper()
	dev := &mockDevice{unified: unified}
	q := device.NewQueue(dev)
	t.Cleanup(q.Close)
	return dev, q
}

func TestAllocShape(t *testing.T) {
	_, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	assert.Equal(t, 4, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, 12, m.Numel())

	// Host and device sides always describe the same logical shape.
	assert.Equal(t, m.Host.Rows(), m.Dev.Rows())
	assert.Equal(t, m.Host.Cols(), m.Dev.Cols())
	assert.Equal(t, m.Host.Numel(), m.Dev.Numel())
}

func TestViewAliasing(t *testing.T) {
	dev, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	require.Equal(t, View, m.Disposition())
	assert.True(t, m.Dev.IsView())
	assert.Nil(t, m.Dev.Buffer())
	assert.Zero(t, dev.devAllocs, "a view must not allocate device memory")

	// A host-side write is visible through the device side with no copy.
	*m.At(1, 2) = 7
	assert.Equal(t, float32(7), m.Dev.Data()[1*3+2])
	assert.NotNil(t, m.HostPtr())
}

func TestIndependentNotAliased(t *testing.T) {
	dev, q := newMockQueue(t, true)

	// Mismatched element types forbid aliasing even on unified memory.
	var m Matrix[float64, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	require.Equal(t, Independent, m.Disposition())
	assert.False(t, m.Dev.IsView())
	assert.NotNil(t, m.Dev.Buffer())
	assert.Nil(t, m.Dev.Data())
	assert.Equal(t, 1, dev.devAllocs)

	// Host writes must not leak to the device side without a transfer.
	*m.At(1, 2) = 7
	out := make([]float32, m.Numel())
	m.Dev.CopyToHost(out)
	require.NoError(t, m.Sync())
	for i, v := range out {
		assert.Zerof(t, v, "element %d visible on device without a copy", i)
	}
}

func TestDiscreteDeviceIsIndependent(t *testing.T) {
	_, q := newMockQueue(t, false)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(2, 2, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	assert.Equal(t, Independent, m.Disposition())
}

func TestClearViewNeverFreesDevice(t *testing.T) {
	dev, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	require.Equal(t, View, m.Disposition())

	m.Clear()
	assert.Zero(t, dev.devFrees, "clearing a view must not issue a device free")
	assert.Equal(t, Unallocated, m.Disposition())
	assert.Zero(t, m.Numel())
}

func TestClearIndependentFreesOnce(t *testing.T) {
	dev, q := newMockQueue(t, false)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	require.Equal(t, Independent, m.Disposition())

	m.Clear()
	assert.Equal(t, 1, dev.devFrees)

	m.Clear()
	assert.Equal(t, 1, dev.devFrees, "second clear must not free again")
	assert.Zero(t, m.Numel())
}

func TestClearNeverAllocated(t *testing.T) {
	var m Matrix[float32, float32]
	m.Clear()
	m.Clear()
	assert.Zero(t, m.Numel())
	assert.Equal(t, Unallocated, m.Disposition())
}

func TestReallocRoundTrip(t *testing.T) {
	dev, q := newMockQueue(t, false)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	*m.AtIdx(0) = 42

	// Reallocation implies a clear of the first allocation.
	require.NoError(t, m.Alloc(2, 5, q, device.NotPinned, device.ReadWrite))
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 5, m.Cols())
	assert.Equal(t, 10, m.Numel())
	assert.Zero(t, *m.AtIdx(0), "residual state from the first allocation")

	assert.Equal(t, 2, dev.devAllocs)
	assert.Equal(t, 1, dev.devFrees)
	assert.Equal(t, 2, dev.hostAllocs)
	assert.Equal(t, 1, dev.hostFrees)

	m.Clear()
	assert.Equal(t, dev.devAllocs, dev.devFrees, "device allocation count not balanced")
	assert.Equal(t, dev.hostAllocs, dev.hostFrees, "host allocation count not balanced")
}

func TestZeroView(t *testing.T) {
	_, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	for i := 0; i < m.Numel(); i++ {
		*m.AtIdx(i) = 3
	}
	m.Zero()
	require.NoError(t, m.Sync())

	for i := 0; i < m.Numel(); i++ {
		assert.Zerof(t, *m.AtIdx(i), "element %d not zeroed", i)
	}
}

func TestZeroN(t *testing.T) {
	_, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	for i := 0; i < m.Numel(); i++ {
		*m.AtIdx(i) = 9
	}
	m.ZeroN(5)

	for i := 0; i < 5; i++ {
		assert.Zerof(t, *m.AtIdx(i), "element %d not zeroed", i)
	}
	for i := 5; i < m.Numel(); i++ {
		assert.Equalf(t, float32(9), *m.AtIdx(i), "element %d modified beyond n", i)
	}
}

func TestZeroIndependentDevice(t *testing.T) {
	_, q := newMockQueue(t, false)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	ones := make([]float32, m.Numel())
	for i := range ones {
		ones[i] = 1
	}
	m.Dev.CopyFromHost(ones)
	require.NoError(t, m.Sync())

	m.Zero()
	require.NoError(t, m.Sync())

	out := make([]float32, m.Numel())
	m.Dev.CopyToHost(out)
	require.NoError(t, m.Sync())
	for i, v := range out {
		assert.Zerof(t, v, "device element %d not zeroed", i)
	}
}

func TestIndependentTransfer(t *testing.T) {
	_, q := newMockQueue(t, false)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(2, 2, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	for i := 0; i < m.Numel(); i++ {
		*m.AtIdx(i) = float32(i + 1)
	}

	// Round-trip host -> device -> host through the explicit copies.
	m.Dev.CopyFromHost(m.HostData())
	out := make([]float32, m.Numel())
	m.Dev.CopyToHost(out)
	require.NoError(t, m.Sync())

	for i := 0; i < m.Numel(); i++ {
		assert.Equal(t, float32(i+1), out[i])
	}
}

func TestHostAllocFailure(t *testing.T) {
	dev, q := newMockQueue(t, false)
	dev.failHostAlloc = true

	var m Matrix[float32, float32]
	err := m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite)
	require.ErrorIs(t, err, ErrAllocation)

	assert.Zero(t, m.Numel())
	assert.Equal(t, Unallocated, m.Disposition())
	assert.Zero(t, dev.devAllocs, "no device allocation may be attempted after host failure")
}

func TestDeviceAllocFailure(t *testing.T) {
	dev, q := newMockQueue(t, false)
	dev.failDevAlloc = true

	var m Matrix[float32, float32]
	err := m.Alloc(4, 3, q, device.NotPinned, device.ReadWrite)
	require.ErrorIs(t, err, ErrAllocation)

	assert.Zero(t, m.Numel())
	assert.Equal(t, Unallocated, m.Disposition())
	// The host allocation that succeeded must not leak.
	assert.Equal(t, dev.hostAllocs, dev.hostFrees)
}

func TestInvalidShape(t *testing.T) {
	_, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	err := m.Alloc(-1, 3, q, device.NotPinned, device.ReadWrite)
	require.ErrorIs(t, err, ErrAllocation)
	assert.Zero(t, m.Numel())
}

func TestEmptyMatrix(t *testing.T) {
	_, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(0, 0, q, device.NotPinned, device.ReadWrite))
	defer m.Clear()

	assert.Zero(t, m.Numel())
	assert.Nil(t, m.HostPtr())
	m.Zero() // must not panic
}

func TestNewOnCPUDevice(t *testing.T) {
	cpu := device.NewCPUDevice()
	defer cpu.Free()

	m, err := New[float32, float32](4, 3, cpu.DefaultQueue())
	require.NoError(t, err)
	defer m.Clear()

	// The CPU shares memory with itself, so same-typed sides alias.
	assert.Equal(t, View, m.Disposition())
	*m.At(2, 1) = 5
	assert.Equal(t, float32(5), m.Dev.Data()[2*3+1])
	require.NoError(t, m.Sync())
}

func TestPinHintRecorded(t *testing.T) {
	_, q := newMockQueue(t, true)

	var m Matrix[float32, float32]
	require.NoError(t, m.Alloc(2, 2, q, device.WriteOptimized, device.ReadWrite))
	defer m.Clear()

	assert.Equal(t, device.WriteOptimized, m.Host.Pin())
}
