package process

import (
	"procmem/process/memory_map"
)

// WalkRegions enumerates every non-free region of the address space behind h,
// in ascending order, starting at address zero
func WalkRegions(os OS, pid ProcessID, h Handle) ([]memory_map.Region, error) {
	var regions []memory_map.Region
	var addr uint64

	for {
		region, ok, err := os.QueryRegion(h, addr)
		if err != nil {
			return nil, &RegionsError{PID: pid, Err: err}
		}
		if !ok || region.Size == 0 {
			break
		}

		if !region.IsFree() {
			regions = append(regions, region)
		}

		next := region.End()
		if next <= addr {
			break
		}
		addr = next
	}

	return regions, nil
}

// EnumerateRegions opens pid, walks its address space and closes the handle again
func EnumerateRegions(os OS, pid ProcessID) ([]memory_map.Region, error) {
	h, err := os.OpenProcess(pid)
	if err != nil {
		return nil, &AccessError{PID: pid, Err: err}
	}
	defer Release(os, h)

	return WalkRegions(os, pid, h)
}
