package process

import (
	"encoding/binary"
	"unicode/utf16"
)

// DecodeUTF16 decodes little-endian UTF-16 code units, ignoring a trailing odd byte.
// Unpaired surrogates decode to U+FFFD.
func DecodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}
