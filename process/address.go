package process

import (
	"fmt"
	"math"
)

// Address is a 32-bit signed virtual address.
// Every numeric value entering the engine is wrapped modulo 2^32, so large unsigned
// addresses and negative numbers with the same bit pattern are the same Address.
type Address int32

const addressSpace = 1 << 32

// NormalizeAddress wraps a host numeric value into an Address.
// Fractions truncate toward zero, NaN and infinities map to 0.
func NormalizeAddress(v float64) Address {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	wrapped := math.Mod(math.Trunc(v), addressSpace)
	if wrapped < 0 {
		wrapped += addressSpace
	}

	return Address(int32(uint32(wrapped)))
}

// AddressFromUint64 truncates a native address to its low 32 bits
func AddressFromUint64(v uint64) Address {
	return Address(int32(uint32(v)))
}

// Uint32 returns the unsigned bit pattern of the address
func (a Address) Uint32() uint32 {
	return uint32(a)
}

// Uint64 returns the address as a native, zero-extended address
func (a Address) Uint64() uint64 {
	return uint64(uint32(a))
}

// Float64 returns the signed value handed back to a host environment
func (a Address) Float64() float64 {
	return float64(int32(a))
}

// Add offsets the address, wrapping around the 32-bit space
func (a Address) Add(offset int32) Address {
	return Address(int32(a) + offset)
}

func (a Address) String() string {
	return fmt.Sprintf("0x%08X", uint32(a))
}
