package device

import "testing"

var _ Pooled = (*CUDADevice)(nil)

func TestBufferPoolReuse(t *testing.T) {
	dev := NewCPUDevice()
	defer dev.Free()

	pool := NewBufferPool(dev, 10*1024*1024)
	defer pool.Clear()

	buf1, err := pool.Allocate(1024)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if buf1.Size() != 1024 {
		t.Errorf("Size() = %d, want requested size 1024", buf1.Size())
	}

	if err := pool.Release(buf1); err != nil {
		t.Errorf("Release failed: %v", err)
	}

	stats := pool.Stats()
	if stats.Allocations != 1 {
		t.Errorf("Expected 1 allocation, got %d", stats.Allocations)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}

	// Same bucket: should reuse the pooled buffer.
	buf2, err := pool.Allocate(900)
	if err != nil {
		t.Fatalf("Second allocate failed: %v", err)
	}
	if buf2.Size() != 900 {
		t.Errorf("Reused buffer Size() = %d, want 900", buf2.Size())
	}

	stats = pool.Stats()
	if stats.Reuses != 1 {
		t.Errorf("Expected 1 reuse, got %d", stats.Reuses)
	}

	pool.Release(buf2)
}

func TestBufferPoolBucketRounding(t *testing.T) {
	cases := map[int64]int64{
		1:    256,
		256:  256,
		257:  512,
		1024: 1024,
		1025: 2048,
	}
	for in, want := range cases {
		if got := roundUpPowerOf2(in); got != want {
			t.Errorf("roundUpPowerOf2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBufferPoolEviction(t *testing.T) {
	dev := NewCPUDevice()
	defer dev.Free()

	// Cap the pool at a single 256-byte bucket.
	pool := NewBufferPool(dev, 256)
	defer pool.Clear()

	buf1, err := pool.Allocate(100)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	buf2, err := pool.Allocate(100)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	pool.Release(buf1)
	pool.Release(buf2) // over the cap: evicts buf1

	stats := pool.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}

	retained, active, max := pool.MemoryUsage()
	if retained != 256 {
		t.Errorf("Retained = %d, want 256", retained)
	}
	if active != 0 {
		t.Errorf("Active = %d, want 0", active)
	}
	if max != 256 {
		t.Errorf("Max = %d, want 256", max)
	}
}

func TestBufferPoolSetLimit(t *testing.T) {
	dev := NewCPUDevice()
	defer dev.Free()

	pool := NewBufferPool(dev, 0)
	defer pool.Clear()

	buf1, err := pool.Allocate(100)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	buf2, err := pool.Allocate(100)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	pool.Release(buf1)
	pool.Release(buf2)

	retained, _, max := pool.MemoryUsage()
	if retained != 512 {
		t.Fatalf("Retained = %d before SetLimit, want 512", retained)
	}
	if max != 0 {
		t.Fatalf("Max = %d, want unlimited", max)
	}

	// Shrinking the cap evicts retained buffers down to the new limit.
	pool.SetLimit(256)

	stats := pool.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction after SetLimit, got %d", stats.Evictions)
	}
	retained, _, max = pool.MemoryUsage()
	if retained != 256 {
		t.Errorf("Retained = %d after SetLimit, want 256", retained)
	}
	if max != 256 {
		t.Errorf("Max = %d after SetLimit, want 256", max)
	}
}

func TestBufferPoolClear(t *testing.T) {
	dev := NewCPUDevice()
	defer dev.Free()

	pool := NewBufferPool(dev, 0)

	buf, err := pool.Allocate(4096)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	pool.Release(buf)

	if err := pool.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	retained, _, _ := pool.MemoryUsage()
	if retained != 0 {
		t.Errorf("Retained = %d after Clear, want 0", retained)
	}
}

func TestBufferPoolReleaseUnpooled(t *testing.T) {
	dev := NewCPUDevice()
	defer dev.Free()

	pool := NewBufferPool(dev, 0)

	raw, err := dev.Alloc(128, ReadWrite)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	// A buffer that never came from the pool is freed directly.
	if err := pool.Release(raw); err != nil {
		t.Errorf("Release of unpooled buffer failed: %v", err)
	}
}
