package device

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// CPUDevice is the host itself presented as a compute device. It always
// shares memory with the host, so a matrix placed on it can alias a single
// storage for both sides.
type CPUDevice struct {
	name string

	queueOnce sync.Once
	queue     *Queue
}

// NewCPUDevice creates a new CPU device.
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{
		name: fmt.Sprintf("CPU (%s)", runtime.GOARCH),
	}
}

func (d *CPUDevice) Kind() Kind          { return KindCPU }
func (d *CPUDevice) Name() string        { return d.name }
func (d *CPUDevice) UnifiedMemory() bool { return true }

func (d *CPUDevice) AllocHost(size int64, pin PinHint) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid host allocation size: %d", size)
	}
	// Pinning is meaningless without a discrete device; the hint is
	// accepted and ignored.
	return make([]byte, size), nil
}

func (d *CPUDevice) FreeHost(mem []byte) error {
	// Host memory is garbage collected.
	return nil
}

func (d *CPUDevice) Alloc(size int64, usage UsageHint) (Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}
	return &cpuBuffer{data: make([]byte, size), dev: d}, nil
}

func (d *CPUDevice) DefaultQueue() *Queue {
	d.queueOnce.Do(func() {
		d.queue = NewQueue(d)
	})
	return d.queue
}

func (d *CPUDevice) MemoryUsage() (int64, int64) {
	// CPU memory tracking is handled by the Go runtime.
	return 0, 0
}

func (d *CPUDevice) Free() error {
	if d.queue != nil {
		d.queue.Close()
		d.queue = nil
	}
	return nil
}

// cpuBuffer implements Buffer for host memory.
type cpuBuffer struct {
	data []byte
	dev  *CPUDevice
	mu   sync.RWMutex
}

func (b *cpuBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.data))
}

func (b *cpuBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.data[0]))
}

func (b *cpuBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(dst) > len(b.data) {
		return fmt.Errorf("read size %d exceeds buffer size %d", len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *cpuBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) < len(src) {
		return fmt.Errorf("buffer too small: %d < %d", len(b.data), len(src))
	}
	copy(b.data, src)
	return nil
}

func (b *cpuBuffer) Memset(v byte, n int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > int64(len(b.data)) {
		return fmt.Errorf("memset size %d exceeds buffer size %d", n, len(b.data))
	}
	region := b.data[:n]
	for i := range region {
		region[i] = v
	}
	return nil
}

func (b *cpuBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	return nil
}

func (b *cpuBuffer) Device() Device {
	return b.dev
}
