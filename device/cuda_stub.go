//go:build !linux || !cgo

package device

import "fmt"

// CUDADevice stub for non-Linux or non-CGO builds.
type CUDADevice struct{}

// NewCUDADevice returns an error on unsupported platforms.
func NewCUDADevice() (*CUDADevice, error) {
	return nil, fmt.Errorf("CUDA support requires Linux with CGO enabled")
}

func (d *CUDADevice) Kind() Kind          { return KindCUDA }
func (d *CUDADevice) Name() string        { return "CUDA (unavailable)" }
func (d *CUDADevice) UnifiedMemory() bool { return false }

func (d *CUDADevice) AllocHost(size int64, pin PinHint) ([]byte, error) {
	return nil, fmt.Errorf("CUDA not available")
}
func (d *CUDADevice) FreeHost(mem []byte) error { return nil }
func (d *CUDADevice) Alloc(size int64, usage UsageHint) (Buffer, error) {
	return nil, fmt.Errorf("CUDA not available")
}
func (d *CUDADevice) DefaultQueue() *Queue        { return nil }
func (d *CUDADevice) MemoryUsage() (int64, int64) { return 0, 0 }
func (d *CUDADevice) Free() error                 { return nil }
func (d *CUDADevice) SetPoolLimit(maxBytes int64) {}
func (d *CUDADevice) PoolStats() PoolStats        { return PoolStats{} }
