package reader

import (
	"procmem/process"
)

// ReadValue reads and decodes one value of kind k at addr
func (r *Reader) ReadValue(k Kind, addr process.Address) (Value, error) {
	v, err := r.value(k, addr)
	if err != nil {
		return Value{}, &process.ReadError{Address: addr, Length: k.Size, Type: k.Name, Err: err}
	}
	return v, nil
}

func (r *Reader) value(k Kind, addr process.Address) (Value, error) {
	buf := make([]byte, k.Size)
	if err := r.read(addr.Uint64(), buf); err != nil {
		return Value{}, err
	}
	return k.Decode(buf), nil
}

// Read reads a little-endian T at addr
func Read[T Numeric](r *Reader, addr process.Address) (T, error) {
	v, err := r.ReadValue(KindOf[T](), addr)
	if err != nil {
		var zero T
		return zero, err
	}
	return convert[T](v), nil
}

func (r *Reader) ReadI8(addr process.Address) (int8, error)     { return Read[int8](r, addr) }
func (r *Reader) ReadI16(addr process.Address) (int16, error)   { return Read[int16](r, addr) }
func (r *Reader) ReadI32(addr process.Address) (int32, error)   { return Read[int32](r, addr) }
func (r *Reader) ReadI64(addr process.Address) (int64, error)   { return Read[int64](r, addr) }
func (r *Reader) ReadU8(addr process.Address) (uint8, error)    { return Read[uint8](r, addr) }
func (r *Reader) ReadU16(addr process.Address) (uint16, error)  { return Read[uint16](r, addr) }
func (r *Reader) ReadU32(addr process.Address) (uint32, error)  { return Read[uint32](r, addr) }
func (r *Reader) ReadU64(addr process.Address) (uint64, error)  { return Read[uint64](r, addr) }
func (r *Reader) ReadF32(addr process.Address) (float32, error) { return Read[float32](r, addr) }
func (r *Reader) ReadF64(addr process.Address) (float64, error) { return Read[float64](r, addr) }

// ReadPointer reads the 32-bit value at addr, then reads the 32-bit value stored at
// that address and returns it. The result is two levels of indirection away from addr.
func (r *Reader) ReadPointer(addr process.Address) (process.Address, error) {
	first, err := r.value(I32, addr)
	if err != nil {
		return 0, &process.ReadError{Address: addr, Length: 4, Type: "pointer", Err: err}
	}

	second, err := r.value(I32, process.Address(first.Int64()))
	if err != nil {
		return 0, &process.ReadError{Address: addr, Length: 4, Type: "pointer", Err: err}
	}

	return process.Address(second.Int64()), nil
}
