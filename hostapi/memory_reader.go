package hostapi

import (
	"fmt"

	"procmem/process"
	"procmem/reader"
)

// MemoryReader exposes a reader session with host numbers in and out.
// 64-bit values lose precision beyond 2^53 when returned.
type MemoryReader struct {
	r *reader.Reader
}

func newMemoryReader(os process.OS, pid process.ProcessID) (*MemoryReader, error) {
	r, err := reader.New(os, pid)
	if err != nil {
		return nil, err
	}
	return &MemoryReader{r: r}, nil
}

// FindSignature returns the address of the first match as a signed 32-bit number
func (m *MemoryReader) FindSignature(sig string) (float64, error) {
	addr, err := m.r.FindSignature(sig)
	if err != nil {
		return 0, err
	}
	return addr.Float64(), nil
}

func (m *MemoryReader) ReadRaw(addr, size float64) ([]byte, error) {
	a := process.NormalizeAddress(addr)
	n, ok := length(size)
	if !ok {
		return nil, &process.ReadError{Address: a, Err: fmt.Errorf("invalid length %v", size)}
	}
	return m.r.ReadRaw(a, n)
}

// Read reads one value of the named kind ("i8" .. "f64")
func (m *MemoryReader) Read(kind string, addr float64) (float64, error) {
	k, err := reader.KindByName(kind)
	if err != nil {
		return 0, err
	}
	return m.read(k, addr)
}

func (m *MemoryReader) read(k reader.Kind, addr float64) (float64, error) {
	v, err := m.r.ReadValue(k, process.NormalizeAddress(addr))
	if err != nil {
		return 0, err
	}
	return v.Float64(), nil
}

func (m *MemoryReader) ReadI8(addr float64) (float64, error)  { return m.read(reader.I8, addr) }
func (m *MemoryReader) ReadI16(addr float64) (float64, error) { return m.read(reader.I16, addr) }
func (m *MemoryReader) ReadI32(addr float64) (float64, error) { return m.read(reader.I32, addr) }
func (m *MemoryReader) ReadI64(addr float64) (float64, error) { return m.read(reader.I64, addr) }
func (m *MemoryReader) ReadU8(addr float64) (float64, error)  { return m.read(reader.U8, addr) }
func (m *MemoryReader) ReadU16(addr float64) (float64, error) { return m.read(reader.U16, addr) }
func (m *MemoryReader) ReadU32(addr float64) (float64, error) { return m.read(reader.U32, addr) }
func (m *MemoryReader) ReadU64(addr float64) (float64, error) { return m.read(reader.U64, addr) }
func (m *MemoryReader) ReadF32(addr float64) (float64, error) { return m.read(reader.F32, addr) }
func (m *MemoryReader) ReadF64(addr float64) (float64, error) { return m.read(reader.F64, addr) }

// ReadPointer follows the pointer at addr twice and returns the final value
func (m *MemoryReader) ReadPointer(addr float64) (float64, error) {
	p, err := m.r.ReadPointer(process.NormalizeAddress(addr))
	if err != nil {
		return 0, err
	}
	return p.Float64(), nil
}

func (m *MemoryReader) ReadString(addr float64) (string, error) {
	return m.r.ReadString(process.NormalizeAddress(addr))
}

// Close releases the process handle. Further reads fail.
func (m *MemoryReader) Close() error {
	return m.r.Close()
}
