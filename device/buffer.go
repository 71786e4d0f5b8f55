package device

// Buffer represents device-resident memory.
type Buffer interface {
	// Size returns the size of the buffer in bytes.
	Size() int64

	// Ptr returns the raw address of the buffer for device APIs.
	Ptr() uintptr

	// CopyToHost copies the first len(dst) bytes of the buffer to host
	// memory.
	CopyToHost(dst []byte) error

	// CopyFromHost copies host memory into the buffer.
	CopyFromHost(src []byte) error

	// Memset fills the first n bytes of the buffer with b.
	Memset(b byte, n int64) error

	// Free releases the buffer.
	Free() error

	// Device returns the device that owns this buffer.
	Device() Device
}
