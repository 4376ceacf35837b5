package metadata

import (
	"encoding/binary"
	"fmt"
)

// Layout holds the offsets of the fields read from the process environment block (PEB),
// its RTL_USER_PROCESS_PARAMETERS record and UNICODE_STRING descriptors for one pointer width
type Layout struct {
	PointerSize int

	// PEB.ProcessParameters
	ProcessParameters int

	// RTL_USER_PROCESS_PARAMETERS fields
	CurrentDirectory int // CurrentDirectory.DosPath
	ImagePathName    int
	CommandLine      int

	// UNICODE_STRING.Buffer; Length is at 0 and MaximumLength at 2
	UnicodeBuffer int
}

var (
	Layout32 = Layout{
		PointerSize:       4,
		ProcessParameters: 0x10,
		CurrentDirectory:  0x24,
		ImagePathName:     0x38,
		CommandLine:       0x40,
		UnicodeBuffer:     0x04,
	}

	Layout64 = Layout{
		PointerSize:       8,
		ProcessParameters: 0x20,
		CurrentDirectory:  0x38,
		ImagePathName:     0x60,
		CommandLine:       0x70,
		UnicodeBuffer:     0x08,
	}
)

// LayoutFor returns the layout matching a PEB pointer width
func LayoutFor(pointerSize int) (Layout, error) {
	switch pointerSize {
	case 4:
		return Layout32, nil
	case 8:
		return Layout64, nil
	default:
		return Layout{}, fmt.Errorf("unsupported pointer size %d", pointerSize)
	}
}

// PEBSize is the number of PEB bytes needed to reach ProcessParameters
func (l Layout) PEBSize() int {
	return l.ProcessParameters + l.PointerSize
}

// UnicodeStringSize is the size of a UNICODE_STRING descriptor
func (l Layout) UnicodeStringSize() int {
	return l.UnicodeBuffer + l.PointerSize
}

// ParametersSize is the number of parameter record bytes needed to reach the last field read
func (l Layout) ParametersSize() int {
	return max(l.CurrentDirectory, l.ImagePathName, l.CommandLine) + l.UnicodeStringSize()
}

// Pointer decodes a pointer at off
func (l Layout) Pointer(b []byte, off int) uint64 {
	if l.PointerSize == 4 {
		return uint64(binary.LittleEndian.Uint32(b[off:]))
	}
	return binary.LittleEndian.Uint64(b[off:])
}

// UnicodeString is a decoded UNICODE_STRING descriptor. Length is in bytes.
type UnicodeString struct {
	Length        uint16
	MaximumLength uint16
	Buffer        uint64
}

// UnicodeString decodes the descriptor at off
func (l Layout) UnicodeString(b []byte, off int) UnicodeString {
	return UnicodeString{
		Length:        binary.LittleEndian.Uint16(b[off:]),
		MaximumLength: binary.LittleEndian.Uint16(b[off+2:]),
		Buffer:        l.Pointer(b, off+l.UnicodeBuffer),
	}
}
