// Package mat provides a dual-memory-space matrix: one logical 2D array
// backed by a host-resident buffer and a device-resident buffer.
//
// A single allocation call decides how the device side is backed. When the
// host and device element types are identical and the device physically
// shares memory with the host, the device side becomes a zero-copy view of
// host storage. Otherwise the two sides get independent allocations and the
// caller moves data explicitly through the device buffer's copy primitives.
//
// The matrix is a passive structure: nothing here launches kernels or
// computes. Sync is the only blocking operation; it waits on the command
// queue the matrix was allocated against.
package mat
