// Package device abstracts the memory side of a compute device: host and
// device allocation, command queues, and the capability queries the matrix
// layer needs to decide between aliased and independent storage.
package device

import (
	"fmt"
	"runtime"

	"github.com/sandialabs/geryon/internal/logging"
)

// Kind identifies the backend driving a device.
type Kind int

const (
	KindCPU Kind = iota
	KindCUDA
	KindMetal
)

func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "CPU"
	case KindCUDA:
		return "CUDA"
	case KindMetal:
		return "Metal"
	default:
		return "Unknown"
	}
}

// PinHint controls how host memory is reserved. Pinning is a performance
// hint for transfer-heavy workloads and never affects correctness.
type PinHint int

const (
	NotPinned          PinHint = iota // pageable host memory
	WriteOptimized                    // pinned, write-combined
	ReadWriteOptimized                // pinned
)

func (p PinHint) String() string {
	switch p {
	case NotPinned:
		return "not-pinned"
	case WriteOptimized:
		return "write-optimized"
	case ReadWriteOptimized:
		return "rw-optimized"
	default:
		return "unknown"
	}
}

// UsageHint tells the device allocator how a buffer will be accessed from
// device code. Advisory only; no backend enforces it.
type UsageHint int

const (
	ReadWrite UsageHint = iota
	WriteOnly
	ReadOnly
)

func (u UsageHint) String() string {
	switch u {
	case ReadWrite:
		return "read-write"
	case WriteOnly:
		return "write-only"
	case ReadOnly:
		return "read-only"
	default:
		return "unknown"
	}
}

// Device represents a compute device (CPU or accelerator).
type Device interface {
	// Name returns a human-readable device name.
	Name() string

	// Kind returns the backend kind.
	Kind() Kind

	// UnifiedMemory reports whether the device addresses the same physical
	// memory as the host. The answer is fixed at device initialization.
	UnifiedMemory() bool

	// AllocHost reserves size bytes of host-addressable memory, honoring
	// the pin hint where the backend supports pinning.
	AllocHost(size int64, pin PinHint) ([]byte, error)

	// FreeHost releases memory obtained from AllocHost.
	FreeHost(mem []byte) error

	// Alloc reserves a device buffer of size bytes.
	Alloc(size int64, usage UsageHint) (Buffer, error)

	// DefaultQueue returns the device's default command queue, created on
	// first use.
	DefaultQueue() *Queue

	// MemoryUsage returns current device memory usage in bytes (used, total).
	MemoryUsage() (int64, int64)

	// Free releases the device and all associated resources.
	Free() error
}

// GetDefaultDevice returns the best device for the current system: an
// accelerator when one initializes, otherwise the CPU.
func GetDefaultDevice() (Device, error) {
	switch runtime.GOOS {
	case "darwin":
		if dev, err := NewMetalDevice(); err == nil {
			logging.Get().WithField("device", dev.Name()).Debug("selected Metal device")
			return dev, nil
		}
	case "linux":
		if dev, err := NewCUDADevice(); err == nil {
			logging.Get().WithField("device", dev.Name()).Debug("selected CUDA device")
			return dev, nil
		}
	}
	return NewCPUDevice(), nil
}

// GetDevice returns a device of the specified kind.
func GetDevice(kind Kind) (Device, error) {
	switch kind {
	case KindCPU:
		return NewCPUDevice(), nil
	case KindCUDA:
		return NewCUDADevice()
	case KindMetal:
		return NewMetalDevice()
	default:
		return nil, fmt.Errorf("unknown device kind: %v", kind)
	}
}
