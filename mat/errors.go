package mat

import "errors"

// ErrAllocation is returned when a host or device storage request cannot be
// satisfied (size, memory pressure, invalid pin request). It is the only
// error kind allocation produces; match with errors.Is. After any failed
// allocation the matrix is fully unallocated, never half-built.
var ErrAllocation = errors.New("mat: allocation failed")
