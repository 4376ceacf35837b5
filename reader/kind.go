package reader

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Numeric is the set of types the typed reads decode
type Numeric interface {
	constraints.Integer | constraints.Float
}

// Kind describes how a fixed-size little-endian value is decoded
type Kind struct {
	Name   string
	Size   int
	Signed bool
	Float  bool
}

var (
	I8  = Kind{Name: "i8", Size: 1, Signed: true}
	I16 = Kind{Name: "i16", Size: 2, Signed: true}
	I32 = Kind{Name: "i32", Size: 4, Signed: true}
	I64 = Kind{Name: "i64", Size: 8, Signed: true}
	U8  = Kind{Name: "u8", Size: 1}
	U16 = Kind{Name: "u16", Size: 2}
	U32 = Kind{Name: "u32", Size: 4}
	U64 = Kind{Name: "u64", Size: 8}
	F32 = Kind{Name: "f32", Size: 4, Signed: true, Float: true}
	F64 = Kind{Name: "f64", Size: 8, Signed: true, Float: true}
)

// Kinds lists every supported kind
var Kinds = []Kind{I8, I16, I32, I64, U8, U16, U32, U64, F32, F64}

func (k Kind) String() string {
	return k.Name
}

// KindByName looks up a kind by its short name ("i32", "f64", ...)
func KindByName(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.Name == name {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("unknown value kind %q", name)
}

// KindOf returns the kind matching T. Platform sized int and uint are treated as 64 bit.
func KindOf[T Numeric]() Kind {
	var zero T
	switch reflect.TypeOf(zero).Kind() {
	case reflect.Int8:
		return I8
	case reflect.Int16:
		return I16
	case reflect.Int32:
		return I32
	case reflect.Int64, reflect.Int:
		return I64
	case reflect.Uint8:
		return U8
	case reflect.Uint16:
		return U16
	case reflect.Uint32:
		return U32
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		return U64
	case reflect.Float32:
		return F32
	default:
		return F64
	}
}

// Value is a decoded value. Bits holds the raw little-endian bits zero-extended to 64.
type Value struct {
	Kind Kind
	Bits uint64
}

// Decode decodes the first k.Size bytes of b
func (k Kind) Decode(b []byte) Value {
	var bits uint64
	switch k.Size {
	case 1:
		bits = uint64(b[0])
	case 2:
		bits = uint64(binary.LittleEndian.Uint16(b))
	case 4:
		bits = uint64(binary.LittleEndian.Uint32(b))
	default:
		bits = binary.LittleEndian.Uint64(b)
	}
	return Value{Kind: k, Bits: bits}
}

// Int64 returns the value as a signed integer, sign-extended from its size for signed kinds
func (v Value) Int64() int64 {
	if !v.Kind.Signed || v.Kind.Float {
		return int64(v.Bits)
	}
	shift := 64 - 8*uint(v.Kind.Size)
	return int64(v.Bits<<shift) >> shift
}

// Float64 converts the value to a float64 the way a numeric host type would see it
func (v Value) Float64() float64 {
	switch {
	case v.Kind.Float && v.Kind.Size == 4:
		return float64(math.Float32frombits(uint32(v.Bits)))
	case v.Kind.Float:
		return math.Float64frombits(v.Bits)
	case v.Kind.Signed:
		return float64(v.Int64())
	default:
		return float64(v.Bits)
	}
}

func (v Value) String() string {
	switch {
	case v.Kind.Float:
		return fmt.Sprint(v.Float64())
	case v.Kind.Signed:
		return fmt.Sprint(v.Int64())
	default:
		return fmt.Sprint(v.Bits)
	}
}

func convert[T Numeric](v Value) T {
	switch {
	case v.Kind.Float && v.Kind.Size == 4:
		return T(math.Float32frombits(uint32(v.Bits)))
	case v.Kind.Float:
		return T(math.Float64frombits(v.Bits))
	case v.Kind.Signed:
		return T(v.Int64())
	default:
		return T(v.Bits)
	}
}
