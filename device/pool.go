package device

import (
	"fmt"
	"sync"

	"github.com/sandialabs/geryon/internal/logging"
)

// BufferPool manages a pool of device buffers for efficient reuse. Device
// allocation is expensive on discrete hardware; the pool keeps freed
// buffers in power-of-two size buckets and hands them back on the next
// allocation of a compatible size.
type BufferPool struct {
	device   Device
	free     map[int64][]*pooledBuffer // bucket size -> available buffers
	active   map[uintptr]*pooledBuffer // buffer address -> in-use buffers
	mu       sync.Mutex
	maxBytes int64 // maximum total bytes to retain (0 = unlimited)
	curBytes int64 // bytes currently retained
	stats    PoolStats
}

// PoolStats tracks buffer pool statistics.
type PoolStats struct {
	Allocations int64 // total allocation requests
	Reuses      int64 // buffers served from the pool
	Evictions   int64 // buffers freed due to the byte cap
	Misses      int64 // requests that needed a fresh device allocation
}

// pooledBuffer wraps a device buffer so Free routes back to the pool. The
// underlying allocation is bucket-sized; Size reports what the caller
// asked for.
type pooledBuffer struct {
	Buffer
	bucket  int64 // power-of-two bucket the buffer is retained under
	reqSize int64 // size requested by the caller
	pool    *BufferPool
}

// directAllocator is implemented by devices that expose unpooled
// allocation; without it the pool falls back to Device.Alloc.
type directAllocator interface {
	allocateDirect(size int64) (Buffer, error)
}

// Pooled is implemented by devices whose buffer allocations go through a
// BufferPool, so callers can cap retention and read pool statistics.
type Pooled interface {
	SetPoolLimit(maxBytes int64)
	PoolStats() PoolStats
}

// NewBufferPool creates a buffer pool over dev retaining at most maxBytes
// of freed memory (0 = unlimited).
func NewBufferPool(dev Device, maxBytes int64) *BufferPool {
	return &BufferPool{
		device:   dev,
		free:     make(map[int64][]*pooledBuffer),
		active:   make(map[uintptr]*pooledBuffer),
		maxBytes: maxBytes,
	}
}

// Allocate returns a buffer of at least size bytes, reusing a pooled
// buffer when one is available.
func (p *BufferPool) Allocate(size int64) (Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Allocations++

	bucket := roundUpPowerOf2(size)
	if bufs := p.free[bucket]; len(bufs) > 0 {
		buf := bufs[len(bufs)-1]
		p.free[bucket] = bufs[:len(bufs)-1]
		p.curBytes -= bucket

		buf.reqSize = size
		p.active[buf.Buffer.Ptr()] = buf
		p.stats.Reuses++
		return buf, nil
	}

	p.stats.Misses++

	raw, err := p.allocateDirect(bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate device buffer: %w", err)
	}

	buf := &pooledBuffer{
		Buffer:  raw,
		bucket:  bucket,
		reqSize: size,
		pool:    p,
	}
	p.active[raw.Ptr()] = buf
	return buf, nil
}

func (p *BufferPool) allocateDirect(size int64) (Buffer, error) {
	if da, ok := p.device.(directAllocator); ok {
		return da.allocateDirect(size)
	}
	return p.device.Alloc(size, ReadWrite)
}

// Release returns a buffer to the pool. Buffers not allocated through the
// pool are freed directly.
func (p *BufferPool) Release(buf Buffer) error {
	pb, ok := buf.(*pooledBuffer)
	if !ok {
		return buf.Free()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ptr := pb.Buffer.Ptr()
	if _, tracked := p.active[ptr]; !tracked {
		return pb.Buffer.Free()
	}
	delete(p.active, ptr)

	if p.maxBytes > 0 && p.curBytes+pb.bucket > p.maxBytes {
		p.evictOne()
	}

	p.free[pb.bucket] = append(p.free[pb.bucket], pb)
	p.curBytes += pb.bucket
	return nil
}

// evictOne frees one retained buffer to make room. Called with the lock held.
func (p *BufferPool) evictOne() {
	for bucket, bufs := range p.free {
		if len(bufs) > 0 {
			buf := bufs[0]
			p.free[bucket] = bufs[1:]
			p.curBytes -= bucket
			p.stats.Evictions++
			logging.Get().WithField("bytes", bucket).Debug("buffer pool eviction")
			buf.Buffer.Free()
			return
		}
	}
}

// SetLimit changes the retention cap (0 = unlimited), evicting retained
// buffers until the pool fits under the new cap.
func (p *BufferPool) SetLimit(maxBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.maxBytes = maxBytes
	if maxBytes <= 0 {
		return
	}
	for p.curBytes > maxBytes {
		p.evictOne()
	}
}

// Clear empties the pool and frees all retained buffers.
func (p *BufferPool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for bucket, bufs := range p.free {
		for _, buf := range bufs {
			if err := buf.Buffer.Free(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(p.free, bucket)
	}
	p.curBytes = 0
	return firstErr
}

// Stats returns current pool statistics.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// MemoryUsage returns retained bytes, active bytes, and the byte cap.
func (p *BufferPool) MemoryUsage() (retained, active, max int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, buf := range p.active {
		active += buf.bucket
	}
	return p.curBytes, active, p.maxBytes
}

// roundUpPowerOf2 rounds up to the nearest power of two, with a 256-byte
// floor so tiny buffers share a bucket.
func roundUpPowerOf2(n int64) int64 {
	if n <= 256 {
		return 256
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}

// Size reports the requested size, not the bucket-rounded allocation.
func (b *pooledBuffer) Size() int64 {
	return b.reqSize
}

// Free routes through the pool so the buffer is retained for reuse.
func (b *pooledBuffer) Free() error {
	if b.pool != nil {
		return b.pool.Release(b)
	}
	return b.Buffer.Free()
}
