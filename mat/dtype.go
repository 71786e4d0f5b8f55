package mat

import "reflect"

// Element constrains the element types a matrix side can hold. Every
// permitted type has an all-zero-bytes zero value, so device-side zeroing
// can be a plain memset.
type Element interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~uint32
}

// DataType is the runtime type identity of a matrix side. Two sides with
// equal DataType hold bit-identical element representations, which is the
// condition under which aliasing one storage from both sides is sound.
type DataType int

const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Uint32
)

// String returns the name of the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint32:
		return "uint32"
	default:
		return "unknown"
	}
}

// Size returns the number of bytes per element.
func (dt DataType) Size() int {
	switch dt {
	case Float64, Int64:
		return 8
	case Float32, Int32, Uint32:
		return 4
	case Uint8:
		return 1
	default:
		return 0
	}
}

// TypeOf resolves the DataType for an element type parameter. Named types
// resolve to their underlying representation.
func TypeOf[E Element]() DataType {
	var z E
	switch reflect.TypeOf(z).Kind() {
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Int32:
		return Int32
	case reflect.Int64:
		return Int64
	case reflect.Uint8:
		return Uint8
	case reflect.Uint32:
		return Uint32
	default:
		// Unreachable: the Element constraint admits nothing else.
		panic("mat: unsupported element type")
	}
}
