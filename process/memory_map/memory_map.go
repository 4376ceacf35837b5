package memory_map

import (
	"fmt"
	"sort"
)

// State mirrors the allocation state reported by the OS for a region
type State uint32

const (
	StateCommit  State = 0x1000
	StateReserve State = 0x2000
	StateFree    State = 0x10000
)

func (s State) String() string {
	switch s {
	case StateCommit:
		return "commit"
	case StateReserve:
		return "reserve"
	case StateFree:
		return "free"
	default:
		return fmt.Sprintf("state(0x%x)", uint32(s))
	}
}

// Region represents a contiguous range of a process's address space
type Region struct {
	Address uint64 `json:"address"`         // The starting address of the region
	Size    uint64 `json:"size"`            // The size of the region in bytes
	State   State  `json:"state"`           // Allocation state
	Perms   string `json:"perms,omitempty"` // Permissions when known (e.g., "r-xp")
}

// String returns a string representation of the region
func (r Region) String() string {
	if r.Perms != "" {
		return fmt.Sprintf("Address: %x, Size: %d, State: %s, Perms: %s", r.Address, r.Size, r.State, r.Perms)
	}
	return fmt.Sprintf("Address: %x, Size: %d, State: %s", r.Address, r.Size, r.State)
}

func (r Region) End() uint64 {
	return r.Address + r.Size
}

func (r Region) Contains(addr uint64) bool {
	return addr >= r.Address && addr < r.End()
}

func (r Region) IsFree() bool {
	return r.State == StateFree
}

func (r Region) IsReadable() bool {
	return r.Perms == "" || r.Perms[0] == 'r'
}

// Find returns the region containing addr. regions must be sorted by address and non-overlapping.
func Find(addr uint64, regions []Region) *Region {
	i := sort.Search(len(regions), func(i int) bool {
		return regions[i].End() > addr
	})
	if i < len(regions) && regions[i].Address <= addr {
		return &regions[i]
	}

	return nil
}

// TotalSize sums the sizes of all regions
func TotalSize(regions []Region) uint64 {
	var total uint64
	for _, r := range regions {
		total += r.Size
	}
	return total
}
