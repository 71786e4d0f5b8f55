package mat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandialabs/geryon/device"
)

func TestHostRowMajorIndexing(t *testing.T) {
	_, q := newMockQueue(t, true)

	var h Host[int32]
	require.NoError(t, h.Alloc(3, 4, q, device.NotPinned))
	defer h.Clear()

	// (row, col) and flat indexing address the same storage.
	assert.Same(t, h.At(1, 2), h.AtIdx(1*4+2))
	assert.Same(t, h.At(0, 0), h.AtIdx(0))
	assert.Same(t, h.At(2, 3), h.AtIdx(11))

	*h.At(1, 2) = 99
	assert.Equal(t, int32(99), h.Data()[6])
}

func TestHostClearReleasesStorage(t *testing.T) {
	dev, q := newMockQueue(t, true)

	var h Host[float32]
	require.NoError(t, h.Alloc(2, 2, q, device.NotPinned))
	require.Equal(t, 1, dev.hostAllocs)

	h.Clear()
	assert.Equal(t, 1, dev.hostFrees)
	assert.Zero(t, h.Numel())
	assert.Nil(t, h.Data())
	assert.Nil(t, h.Ptr())

	h.Clear()
	assert.Equal(t, 1, dev.hostFrees, "second clear must not free again")
}

func TestHostZero(t *testing.T) {
	_, q := newMockQueue(t, true)

	var h Host[float64]
	require.NoError(t, h.Alloc(2, 3, q, device.NotPinned))
	defer h.Clear()

	for i := 0; i < h.Numel(); i++ {
		*h.AtIdx(i) = 1.5
	}
	h.ZeroN(2)
	assert.Zero(t, *h.AtIdx(0))
	assert.Zero(t, *h.AtIdx(1))
	assert.Equal(t, 1.5, *h.AtIdx(2))

	h.Zero()
	for i := 0; i < h.Numel(); i++ {
		assert.Zero(t, *h.AtIdx(i))
	}
}
