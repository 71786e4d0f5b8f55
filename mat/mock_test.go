package mat

import (
	"errors"
	"fmt"

	"github.com/sandialabs/geryon/device"
)

// mockDevice stands in for an accelerator. It counts allocator traffic so
// lifecycle invariants are observable, and can be told to fail either
// allocation path.
type mockDevice struct {
	unified bool

	failHostAlloc bool
	failDevAlloc  bool

	hostAllocs int
	hostFrees  int
	devAllocs  int
	devFrees   int
}

func (d *mockDevice) Name() string        { return "mock" }
func (d *mockDevice) Kind() device.Kind   { return device.KindCPU }
func (d *mockDevice) UnifiedMemory() bool { return d.unified }

func (d *mockDevice) AllocHost(size int64, pin device.PinHint) ([]byte, error) {
	if d.failHostAlloc {
		return nil, errors.New("mock: host out of memory")
	}
	d.hostAllocs++
	return make([]byte, size), nil
}

func (d *mockDevice) FreeHost(mem []byte) error {
	d.hostFrees++
	return nil
}

func (d *mockDevice) Alloc(size int64, usage device.UsageHint) (device.Buffer, error) {
	if d.failDevAlloc {
		return nil, errors.New("mock: device out of memory")
	}
	d.devAllocs++
	return &mockBuffer{data: make([]byte, size), dev: d}, nil
}

func (d *mockDevice) DefaultQueue() *device.Queue { return nil }
func (d *mockDevice) MemoryUsage() (int64, int64) { return 0, 0 }
func (d *mockDevice) Free() error                 { return nil }

// mockBuffer is plain host memory masquerading as device storage.
type mockBuffer struct {
	data []byte
	dev  *mockDevice
}

func (b *mockBuffer) Size() int64  { return int64(len(b.data)) }
func (b *mockBuffer) Ptr() uintptr { return 0 }

func (b *mockBuffer) CopyToHost(dst []byte) error {
	if len(dst) > len(b.data) {
		return fmt.Errorf("read size %d exceeds buffer size %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *mockBuffer) CopyFromHost(src []byte) error {
	if len(b.data) < len(src) {
		return fmt.Errorf("buffer too small: %d < %d", len(b.data), len(src))
	}
	copy(b.data, src)
	return nil
}

func (b *mockBuffer) Memset(v byte, n int64) error {
	if n > int64(len(b.data)) {
		return fmt.Errorf("memset size %d exceeds buffer size %d", n, len(b.data))
	}
	region := b.data[:n]
	for i := range region {
		region[i] = v
	}
	return nil
}

func (b *mockBuffer) Free() error {
	b.dev.devFrees++
	b.data = nil
	return nil
}

func (b *mockBuffer) Device() device.Device { return b.dev }
