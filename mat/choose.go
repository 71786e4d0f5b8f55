package mat

// Disposition is the storage strategy fixed for a matrix at allocation time.
type Disposition int

const (
	// Unallocated is the neutral state: no storage on either side.
	Unallocated Disposition = iota

	// View means the device side aliases host storage (zero-copy). The
	// device side owns nothing and clearing it frees nothing.
	View

	// Independent means host and device storage are disjoint. Nothing
	// keeps them coherent; transfers are explicit.
	Independent
)

func (d Disposition) String() string {
	switch d {
	case Unallocated:
		return "unallocated"
	case View:
		return "view"
	case Independent:
		return "independent"
	default:
		return "unknown"
	}
}

// Choose picks the storage strategy for a host/device element type pair on
// a device with the given shared-memory capability. Aliasing is sound only
// when both sides hold bit-identical representations and the device
// physically addresses host memory; a type mismatch forces independent
// storage regardless of shared memory, since the two views would disagree
// on element size.
func Choose(host, dev DataType, unifiedMemory bool) Disposition {
	if host == dev && unifiedMemory {
		return View
	}
	return Independent
}
