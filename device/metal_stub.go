//go:build !darwin || !cgo

package device

import "fmt"

// MetalDevice stub for non-Darwin platforms.
type MetalDevice struct{}

func NewMetalDevice() (*MetalDevice, error) {
	return nil, fmt.Errorf("Metal is only supported on macOS")
}

func (d *MetalDevice) Kind() Kind          { return KindMetal }
func (d *MetalDevice) Name() string        { return "Metal (unsupported)" }
func (d *MetalDevice) UnifiedMemory() bool { return true }

func (d *MetalDevice) AllocHost(size int64, pin PinHint) ([]byte, error) {
	return nil, fmt.Errorf("Metal not supported on this platform")
}
func (d *MetalDevice) FreeHost(mem []byte) error { return nil }
func (d *MetalDevice) Alloc(size int64, usage UsageHint) (Buffer, error) {
	return nil, fmt.Errorf("Metal not supported on this platform")
}
func (d *MetalDevice) DefaultQueue() *Queue        { return nil }
func (d *MetalDevice) MemoryUsage() (int64, int64) { return 0, 0 }
func (d *MetalDevice) Free() error                 { return nil }
