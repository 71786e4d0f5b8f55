//go:build linux && cgo

package device

/*
#cgo CFLAGS: -I/opt/cuda/include -I/usr/local/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L/usr/local/cuda/lib64 -lcudart

#include <cuda_runtime.h>
#include <stdlib.h>

// Error checking helper
static const char* getCudaErrorString(cudaError_t error) {
    return cudaGetErrorString(error);
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

// CUDADevice represents a CUDA GPU device.
type CUDADevice struct {
	deviceID   int
	name       string
	integrated bool // device shares physical memory with the host

	buffers    map[uintptr]*cudaBuffer
	hostAllocs map[uintptr]bool // page-locked allocations from cudaHostAlloc
	mu         sync.RWMutex
	pool       *BufferPool

	queueOnce sync.Once
	queue     *Queue
}

// Singleton CUDA device: creating multiple CUDA contexts wastes GPU memory.
var (
	cudaDeviceSingleton *CUDADevice
	cudaDeviceOnce      sync.Once
	cudaDeviceErr       error
)

// NewCUDADevice returns the singleton CUDA device (created on first call).
func NewCUDADevice() (*CUDADevice, error) {
	cudaDeviceOnce.Do(func() {
		cudaDeviceSingleton, cudaDeviceErr = initCUDADevice()
	})
	return cudaDeviceSingleton, cudaDeviceErr
}

func initCUDADevice() (*CUDADevice, error) {
	var deviceCount C.int
	err := C.cudaGetDeviceCount(&deviceCount)
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("CUDA not available: %s", C.GoString(C.getCudaErrorString(err)))
	}
	if deviceCount == 0 {
		return nil, fmt.Errorf("no CUDA devices found")
	}

	deviceID := 0
	err = C.cudaSetDevice(C.int(deviceID))
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to set CUDA device %d: %s", deviceID, C.GoString(C.getCudaErrorString(err)))
	}

	var props C.struct_cudaDeviceProp
	err = C.cudaGetDeviceProperties(&props, C.int(deviceID))
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to get device properties: %s", C.GoString(C.getCudaErrorString(err)))
	}

	dev := &CUDADevice{
		deviceID: deviceID,
		name:     C.GoString(&props.name[0]),
		// Integrated GPUs (Jetson and similar) address host memory
		// directly; discrete boards do not.
		integrated: props.integrated != 0,
		buffers:    make(map[uintptr]*cudaBuffer),
		hostAllocs: make(map[uintptr]bool),
	}

	var free, total C.size_t
	err = C.cudaMemGetInfo(&free, &total)
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to get memory info: %s", C.GoString(C.getCudaErrorString(err)))
	}

	// Use 90% of free memory for the buffer pool.
	dev.pool = NewBufferPool(dev, int64(free)*9/10)

	return dev, nil
}

func (d *CUDADevice) Kind() Kind          { return KindCUDA }
func (d *CUDADevice) Name() string        { return d.name }
func (d *CUDADevice) UnifiedMemory() bool { return d.integrated }

func (d *CUDADevice) AllocHost(size int64, pin PinHint) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid host allocation size: %d", size)
	}
	if pin == NotPinned || size == 0 {
		return make([]byte, size), nil
	}

	// Pinned request: page-locked memory via cudaHostAlloc so transfers
	// can use DMA. Write-optimized memory is write-combined.
	flags := C.uint(C.cudaHostAllocDefault)
	if pin == WriteOptimized {
		flags = C.cudaHostAllocWriteCombined
	}

	var ptr unsafe.Pointer
	err := C.cudaHostAlloc(&ptr, C.size_t(size), flags)
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to allocate %d bytes of pinned memory: %s",
			size, C.GoString(C.getCudaErrorString(err)))
	}

	d.mu.Lock()
	d.hostAllocs[uintptr(ptr)] = true
	d.mu.Unlock()

	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *CUDADevice) FreeHost(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	base := uintptr(unsafe.Pointer(&mem[0]))

	d.mu.Lock()
	pinned := d.hostAllocs[base]
	if pinned {
		delete(d.hostAllocs, base)
	}
	d.mu.Unlock()

	if !pinned {
		// Pageable allocation, garbage collected.
		return nil
	}
	err := C.cudaFreeHost(unsafe.Pointer(base))
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to free pinned memory: %s", C.GoString(C.getCudaErrorString(err)))
	}
	return nil
}

func (d *CUDADevice) Alloc(size int64, usage UsageHint) (Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}
	// The usage hint is advisory; cudaMalloc has no equivalent knob.
	if d.pool != nil {
		return d.pool.Allocate(size)
	}
	return d.allocateDirect(size)
}

// allocateDirect performs direct buffer allocation without pooling.
func (d *CUDADevice) allocateDirect(size int64) (Buffer, error) {
	var ptr unsafe.Pointer
	err := C.cudaMalloc(&ptr, C.size_t(size))
	if err != C.cudaSuccess {
		return nil, fmt.Errorf("failed to allocate CUDA buffer of size %d: %s",
			size, C.GoString(C.getCudaErrorString(err)))
	}

	buf := &cudaBuffer{
		ptr:    ptr,
		size:   size,
		device: d,
	}

	d.mu.Lock()
	d.buffers[uintptr(ptr)] = buf
	d.mu.Unlock()

	return buf, nil
}

func (d *CUDADevice) DefaultQueue() *Queue {
	d.queueOnce.Do(func() {
		d.queue = NewQueue(d)
	})
	return d.queue
}

func (d *CUDADevice) MemoryUsage() (int64, int64) {
	var free, total C.size_t
	err := C.cudaMemGetInfo(&free, &total)
	if err != C.cudaSuccess {
		return 0, 0
	}
	return int64(total) - int64(free), int64(total)
}

func (d *CUDADevice) Free() error {
	// Clear the buffer pool first (before acquiring the lock to avoid
	// deadlock through pooled buffer frees).
	if d.pool != nil {
		d.pool.Clear()
	}
	if d.queue != nil {
		d.queue.Close()
		d.queue = nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, buf := range d.buffers {
		if buf.ptr != nil {
			C.cudaFree(buf.ptr)
			buf.ptr = nil
		}
	}
	d.buffers = nil

	for base := range d.hostAllocs {
		C.cudaFreeHost(unsafe.Pointer(base))
	}
	d.hostAllocs = nil

	err := C.cudaDeviceReset()
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to reset CUDA device: %s", C.GoString(C.getCudaErrorString(err)))
	}
	return nil
}

// SetPoolLimit caps the bytes the buffer pool retains for reuse,
// overriding the default derived from free device memory.
func (d *CUDADevice) SetPoolLimit(maxBytes int64) {
	if d.pool != nil {
		d.pool.SetLimit(maxBytes)
	}
}

// PoolStats returns buffer pool statistics.
func (d *CUDADevice) PoolStats() PoolStats {
	if d.pool != nil {
		return d.pool.Stats()
	}
	return PoolStats{}
}

// cudaBuffer implements Buffer for CUDA GPU memory.
type cudaBuffer struct {
	ptr    unsafe.Pointer
	size   int64
	device *CUDADevice
	mu     sync.RWMutex
}

func (b *cudaBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *cudaBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uintptr(b.ptr)
}

func (b *cudaBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if int64(len(dst)) > b.size {
		return fmt.Errorf("read size %d exceeds buffer size %d", len(dst), b.size)
	}
	if len(dst) == 0 {
		return nil
	}
	err := C.cudaMemcpy(unsafe.Pointer(&dst[0]), b.ptr, C.size_t(len(dst)), C.cudaMemcpyDeviceToHost)
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to copy to host: %s", C.GoString(C.getCudaErrorString(err)))
	}
	return nil
}

func (b *cudaBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size < int64(len(src)) {
		return fmt.Errorf("buffer too small: %d < %d", b.size, len(src))
	}
	if len(src) == 0 {
		return nil
	}
	err := C.cudaMemcpy(b.ptr, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice)
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to copy from host: %s", C.GoString(C.getCudaErrorString(err)))
	}
	return nil
}

func (b *cudaBuffer) Memset(v byte, n int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.size {
		return fmt.Errorf("memset size %d exceeds buffer size %d", n, b.size)
	}
	err := C.cudaMemset(b.ptr, C.int(v), C.size_t(n))
	if err != C.cudaSuccess {
		return fmt.Errorf("failed to memset CUDA buffer: %s", C.GoString(C.getCudaErrorString(err)))
	}
	return nil
}

func (b *cudaBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ptr != nil {
		if b.device != nil {
			b.device.mu.Lock()
			delete(b.device.buffers, uintptr(b.ptr))
			b.device.mu.Unlock()
		}
		err := C.cudaFree(b.ptr)
		if err != C.cudaSuccess {
			return fmt.Errorf("failed to free CUDA buffer: %s", C.GoString(C.getCudaErrorString(err)))
		}
		b.ptr = nil
	}
	return nil
}

func (b *cudaBuffer) Device() Device {
	return b.device
}
