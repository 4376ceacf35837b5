package process

import (
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/samber/lo"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process"))

// ProcessExists reports whether pid can be opened and has not exited.
// Any failure along the way is reported as false.
func ProcessExists(os OS, pid ProcessID) bool {
	h, err := os.OpenProcess(pid)
	if err != nil {
		return false
	}
	defer Release(os, h)

	code, err := os.ExitCode(h)
	if err != nil {
		return false
	}

	return code == StillActive
}

// FindProcesses returns the ids of every process whose executable name starts with prefix.
// The comparison is case sensitive and results keep snapshot order.
func FindProcesses(os OS, prefix string) ([]ProcessID, error) {
	entries, err := FindProcessEntries(os, prefix)
	if err != nil {
		return nil, err
	}

	return lo.Map(entries, func(e ProcessEntry, _ int) ProcessID {
		return e.PID
	}), nil
}

// FindProcessEntries is FindProcesses returning the matched snapshot rows
func FindProcessEntries(os OS, prefix string) ([]ProcessEntry, error) {
	it, err := os.Processes()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := it.Close(); err != nil {
			log.Warn("Failed to close process snapshot: ", err)
		}
	}()

	var results []ProcessEntry
	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		if strings.HasPrefix(entry.Name, prefix) {
			results = append(results, entry)
		}
	}

	if err := it.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Release closes h, logging rather than returning a failure
func Release(os OS, h Handle) {
	if err := os.CloseHandle(h); err != nil {
		log.Warn("Failed to close process handle: ", err)
	}
}
