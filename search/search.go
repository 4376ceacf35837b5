// Package search finds offset paths from a base address to a value by following
// 32-bit pointers through the memory of a session.
package search

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"procmem/process"
	"procmem/process/memory_map"
)

// Memory is the part of a session the search reads through
type Memory interface {
	ReadRaw(addr process.Address, n int) ([]byte, error)
	Regions() []memory_map.Region
}

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize int
	MaxDepth      int
	Alignment     int
	Target        []byte
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size int) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithAlignment(align int) Option {
	return func(s *Searcher) {
		s.Alignment = align
	}
}

// WithTarget searches for the exact bytes of target
func WithTarget(target []byte) Option {
	return func(s *Searcher) {
		s.Target = target
	}
}

// WithValue searches for the little-endian encoding of a fixed-size value
func WithValue[T int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64](v T) Option {
	return func(s *Searcher) {
		s.Target, _ = binary.Append(nil, binary.LittleEndian, v)
	}
}

// Result is a path of offsets from the base. Every offset but the last is
// dereferenced as a 32-bit pointer.
type Result struct {
	Path    []int32
	Address process.Address
}

func (r Result) String() string {
	parts := make([]string, len(r.Path))
	for i, off := range r.Path {
		parts[i] = fmt.Sprintf("0x%x", off)
	}
	return fmt.Sprintf("[%s] -> %s", strings.Join(parts, ", "), r.Address)
}

// Search walks the structure at base up to MaxDepth pointers deep and reports every
// path that ends at a copy of the target
func Search(mem Memory, base process.Address, options ...Option) ([]Result, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		Alignment:     4,
	}

	for _, opt := range options {
		opt(s)
	}

	if len(s.Target) == 0 {
		return nil, fmt.Errorf("no search target specified")
	}
	if s.Alignment <= 0 {
		s.Alignment = 1
	}

	regions := mem.Regions()
	var results []Result
	visited := make(map[process.Address]bool)

	var searchRecursive func(addr process.Address, depth int, path []int32)
	searchRecursive = func(addr process.Address, depth int, path []int32) {
		if depth > s.MaxDepth || visited[addr] {
			return
		}
		visited[addr] = true

		data, err := mem.ReadRaw(addr, s.MaxStructSize)
		if err != nil {
			return
		}

		for offset := 0; offset+s.Alignment <= len(data); offset += s.Alignment {
			if bytes.HasPrefix(data[offset:], s.Target) {
				results = append(results, Result{
					Path:    appendPath(path, offset),
					Address: addr.Add(int32(offset)),
				})
			}

			if offset%4 != 0 || offset+4 > len(data) || depth >= s.MaxDepth {
				continue
			}

			ptr := binary.LittleEndian.Uint32(data[offset:])
			if ptr != 0 && memory_map.Find(uint64(ptr), regions) != nil {
				searchRecursive(process.AddressFromUint64(uint64(ptr)), depth+1, appendPath(path, offset))
			}
		}
	}

	searchRecursive(base, 0, nil)

	return results, nil
}

func appendPath(path []int32, offset int) []int32 {
	newPath := make([]int32, len(path), len(path)+1)
	copy(newPath, path)
	return append(newPath, int32(offset))
}

// Follow resolves a path produced by Search: every offset but the last is added to
// the current address and dereferenced as a 32-bit pointer
func Follow(mem Memory, base process.Address, path []int32) (process.Address, error) {
	addr := base
	for i, off := range path {
		addr = addr.Add(off)
		if i == len(path)-1 {
			break
		}

		data, err := mem.ReadRaw(addr, 4)
		if err != nil {
			return 0, fmt.Errorf("pointer chain step %d: %w", i, err)
		}
		addr = process.Address(int32(binary.LittleEndian.Uint32(data)))
	}
	return addr, nil
}
