package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/[pid]/maps format. Readable mappings are reported as committed,
// mappings without read permission (PROT_NONE reservations) as reserved.
func ParseMaps(r io.Reader) ([]Region, error) {
	var regions []Region
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr <= startAddr {
			continue
		}

		state := StateCommit
		if !strings.HasPrefix(fields[1], "r") {
			state = StateReserve
		}

		regions = append(regions, Region{
			Address: startAddr,
			Size:    endAddr - startAddr,
			State:   state,
			Perms:   fields[1],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return regions, nil
}

// FillGaps returns regions interleaved with free regions covering the holes between them,
// up to limit. The input must be sorted.
func FillGaps(regions []Region, limit uint64) []Region {
	out := make([]Region, 0, len(regions)*2+1)
	var cursor uint64
	for _, r := range regions {
		if r.Address > cursor {
			out = append(out, Region{Address: cursor, Size: r.Address - cursor, State: StateFree})
		}
		out = append(out, r)
		cursor = r.End()
	}
	if limit > cursor {
		out = append(out, Region{Address: cursor, Size: limit - cursor, State: StateFree})
	}
	return out
}
