package reader

import (
	"fmt"

	"procmem/process"
)

// ReadString reads a length-prefixed UTF-16LE string object: a u32 code unit count
// at addr+4 and the code units from addr+8. Unpaired surrogates decode to U+FFFD.
func (r *Reader) ReadString(addr process.Address) (string, error) {
	length, err := r.value(U32, addr.Add(4))
	if err != nil {
		return "", &process.ReadError{Address: addr, Length: 4, Type: "string", Err: err}
	}

	if length.Bits > MaxStringLength {
		return "", &process.ReadError{
			Address: addr,
			Length:  4,
			Type:    "string",
			Err:     fmt.Errorf("%w: %d code units", process.ErrStringTooLong, length.Bits),
		}
	}

	buf := make([]byte, 2*length.Bits)
	if err := r.read(addr.Add(8).Uint64(), buf); err != nil {
		return "", &process.ReadError{Address: addr, Length: len(buf), Type: "string", Err: err}
	}

	return process.DecodeUTF16(buf), nil
}
