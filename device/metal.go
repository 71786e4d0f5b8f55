//go:build darwin && cgo

package device

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Metal -framework Foundation

#import <Metal/Metal.h>
#import <Foundation/Foundation.h>
#include <string.h>
#include <stdlib.h>

typedef struct {
    void* device;
    void* commandQueue;
} MetalContext;

// Create Metal device and command queue
static MetalContext* createMetalContext() {
    @autoreleasepool {
        id<MTLDevice> device = MTLCreateSystemDefaultDevice();
        if (device == nil) {
            return NULL;
        }

        id<MTLCommandQueue> queue = [device newCommandQueue];
        if (queue == nil) {
            return NULL;
        }

        MetalContext* ctx = (MetalContext*)malloc(sizeof(MetalContext));
        ctx->device = (void*)CFBridgingRetain(device);
        ctx->commandQueue = (void*)CFBridgingRetain(queue);
        return ctx;
    }
}

// Get device name (caller must free returned string)
static char* getDeviceName(void* device) {
    @autoreleasepool {
        id<MTLDevice> mtlDevice = (__bridge id<MTLDevice>)device;
        return strdup([[mtlDevice name] UTF8String]);
    }
}

// Allocate a shared-storage buffer (host and GPU address the same memory)
static void* allocateBuffer(void* device, size_t size) {
    @autoreleasepool {
        id<MTLDevice> mtlDevice = (__bridge id<MTLDevice>)device;
        id<MTLBuffer> buffer = [mtlDevice newBufferWithLength:size
                                                      options:MTLResourceStorageModeShared];
        if (buffer == nil) {
            return NULL;
        }
        return (void*)CFBridgingRetain(buffer);
    }
}

static void freeBuffer(void* buffer) {
    if (buffer != NULL) {
        CFBridgingRelease(buffer);
    }
}

static void* getBufferContents(void* buffer) {
    @autoreleasepool {
        id<MTLBuffer> mtlBuffer = (__bridge id<MTLBuffer>)buffer;
        return [mtlBuffer contents];
    }
}

// Wait for all GPU operations on the command queue to complete
static void synchronize(void* commandQueue) {
    @autoreleasepool {
        id<MTLCommandQueue> queue = (__bridge id<MTLCommandQueue>)commandQueue;
        id<MTLCommandBuffer> commandBuffer = [queue commandBuffer];
        [commandBuffer commit];
        [commandBuffer waitUntilCompleted];
    }
}

static size_t getRecommendedMaxWorkingSetSize(void* device) {
    @autoreleasepool {
        id<MTLDevice> mtlDevice = (__bridge id<MTLDevice>)device;
        return [mtlDevice recommendedMaxWorkingSetSize];
    }
}

static size_t getCurrentAllocatedSize(void* device) {
    @autoreleasepool {
        id<MTLDevice> mtlDevice = (__bridge id<MTLDevice>)device;
        return [mtlDevice currentAllocatedSize];
    }
}

static void freeMetalContext(MetalContext* ctx) {
    if (ctx != NULL) {
        if (ctx->commandQueue != NULL) {
            CFBridgingRelease(ctx->commandQueue);
        }
        if (ctx->device != NULL) {
            CFBridgingRelease(ctx->device);
        }
        free(ctx);
    }
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"
)

// MetalDevice represents an Apple GPU. All buffers use shared storage mode,
// so the device genuinely addresses host memory.
type MetalDevice struct {
	ctx  *C.MetalContext
	name string

	buffers map[uintptr]*metalBuffer
	mu      sync.RWMutex

	queueOnce sync.Once
	queue     *Queue
}

// NewMetalDevice creates a Metal device with its command queue.
func NewMetalDevice() (*MetalDevice, error) {
	ctx := C.createMetalContext()
	if ctx == nil {
		return nil, fmt.Errorf("failed to create Metal device (no Metal-capable GPU?)")
	}

	cname := C.getDeviceName(ctx.device)
	name := C.GoString(cname)
	C.free(unsafe.Pointer(cname))

	return &MetalDevice{
		ctx:     ctx,
		name:    name,
		buffers: make(map[uintptr]*metalBuffer),
	}, nil
}

func (d *MetalDevice) Kind() Kind          { return KindMetal }
func (d *MetalDevice) Name() string        { return d.name }
func (d *MetalDevice) UnifiedMemory() bool { return true }

func (d *MetalDevice) AllocHost(size int64, pin PinHint) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid host allocation size: %d", size)
	}
	// Apple Silicon memory is unified; every host allocation is already
	// GPU-visible, so the pin hint needs no special handling.
	return make([]byte, size), nil
}

func (d *MetalDevice) FreeHost(mem []byte) error {
	return nil
}

func (d *MetalDevice) Alloc(size int64, usage UsageHint) (Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", size)
	}

	handle := C.allocateBuffer(d.ctx.device, C.size_t(size))
	if handle == nil {
		return nil, fmt.Errorf("failed to allocate Metal buffer of size %d", size)
	}

	buf := &metalBuffer{
		handle:   handle,
		contents: C.getBufferContents(handle),
		size:     size,
		device:   d,
	}

	d.mu.Lock()
	d.buffers[uintptr(handle)] = buf
	d.mu.Unlock()

	return buf, nil
}

func (d *MetalDevice) DefaultQueue() *Queue {
	d.queueOnce.Do(func() {
		d.queue = NewQueue(d)
	})
	return d.queue
}

func (d *MetalDevice) MemoryUsage() (int64, int64) {
	used := int64(C.getCurrentAllocatedSize(d.ctx.device))
	total := int64(C.getRecommendedMaxWorkingSetSize(d.ctx.device))
	return used, total
}

// Synchronize waits for all GPU work submitted to the Metal command queue.
func (d *MetalDevice) Synchronize() {
	C.synchronize(d.ctx.commandQueue)
}

func (d *MetalDevice) Free() error {
	if d.queue != nil {
		d.queue.Close()
		d.queue = nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, buf := range d.buffers {
		if buf.handle != nil {
			C.freeBuffer(buf.handle)
			buf.handle = nil
		}
	}
	d.buffers = nil

	if d.ctx != nil {
		C.freeMetalContext(d.ctx)
		d.ctx = nil
	}
	return nil
}

// metalBuffer implements Buffer for Metal GPU memory.
type metalBuffer struct {
	handle   unsafe.Pointer // id<MTLBuffer>
	contents unsafe.Pointer // host-visible contents pointer
	size     int64
	device   *MetalDevice
	mu       sync.RWMutex
}

func (b *metalBuffer) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *metalBuffer) Ptr() uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uintptr(b.handle)
}

func (b *metalBuffer) CopyToHost(dst []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if int64(len(dst)) > b.size {
		return fmt.Errorf("read size %d exceeds buffer size %d", len(dst), b.size)
	}
	if len(dst) == 0 {
		return nil
	}
	C.memcpy(unsafe.Pointer(&dst[0]), b.contents, C.size_t(len(dst)))
	return nil
}

func (b *metalBuffer) CopyFromHost(src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size < int64(len(src)) {
		return fmt.Errorf("buffer too small: %d < %d", b.size, len(src))
	}
	if len(src) == 0 {
		return nil
	}
	C.memcpy(b.contents, unsafe.Pointer(&src[0]), C.size_t(len(src)))
	return nil
}

func (b *metalBuffer) Memset(v byte, n int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.size {
		return fmt.Errorf("memset size %d exceeds buffer size %d", n, b.size)
	}
	C.memset(b.contents, C.int(v), C.size_t(n))
	return nil
}

func (b *metalBuffer) Free() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle != nil {
		if b.device != nil {
			b.device.mu.Lock()
			delete(b.device.buffers, uintptr(b.handle))
			b.device.mu.Unlock()
		}
		C.freeBuffer(b.handle)
		b.handle = nil
		b.contents = nil
	}
	return nil
}

func (b *metalBuffer) Device() Device {
	return b.device
}
