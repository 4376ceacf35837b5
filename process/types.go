package process

import "fmt"

// ProcessID represents a unique identifier for a process.
// Ids are reused by the OS once a process exits, so they must not be cached across restarts.
type ProcessID uint32

// Handle is an OS resource granting query-information and read-memory rights on one process
type Handle uintptr

// StillActive is the exit code reported for a process that has not exited yet
const StillActive uint32 = 259

// ProcessEntry is one row of a process-table snapshot
type ProcessEntry struct {
	PID  ProcessID // Process ID
	Name string    // Image name, e.g. "osu!.exe"
}

func (e ProcessEntry) String() string {
	return fmt.Sprintf("%d %s", e.PID, e.Name)
}

// BasicInformation is the subset of the OS basic process information the engine consumes
type BasicInformation struct {
	PebBaseAddress uint64 // Address of the process environment block in the target
	PointerSize    int    // Pointer width of the PEB layout at PebBaseAddress (4 or 8)
}
