// Package hostapi is the call surface handed to an embedding host runtime.
// Process ids and addresses cross it as float64 and are wrapped to 32 bits on the way in.
package hostapi

import (
	"math"

	"github.com/samber/lo"

	"procmem/metadata"
	"procmem/process"
)

// MaxReadLength bounds ReadRaw so a bad length from the host fails before allocating
const MaxReadLength = 64 << 20

// Host binds the call surface to one OS implementation
type Host struct {
	os process.OS
}

func New(os process.OS) *Host {
	return &Host{os: os}
}

// ProcessID wraps a host number into a process id
func ProcessID(v float64) process.ProcessID {
	return process.ProcessID(process.NormalizeAddress(v).Uint32())
}

// IsProcessExists reports whether pid can be opened and has not exited
func (h *Host) IsProcessExists(pid float64) bool {
	return process.ProcessExists(h.os, ProcessID(pid))
}

// FindProcesses lists the ids of processes whose image name starts with prefix
func (h *Host) FindProcesses(prefix string) ([]float64, error) {
	pids, err := process.FindProcesses(h.os, prefix)
	if err != nil {
		return nil, err
	}
	return lo.Map(pids, func(pid process.ProcessID, _ int) float64 {
		return float64(pid)
	}), nil
}

// GetProcessPath returns the full path of the main module of pid
func (h *Host) GetProcessPath(pid float64) (string, error) {
	return metadata.ProcessPath(h.os, ProcessID(pid))
}

// GetProcessCommandLine returns the command line pid was started with
func (h *Host) GetProcessCommandLine(pid float64) (string, error) {
	return metadata.CommandLine(h.os, ProcessID(pid))
}

// NewMemoryReader opens a read session on pid
func (h *Host) NewMemoryReader(pid float64) (*MemoryReader, error) {
	return newMemoryReader(h.os, ProcessID(pid))
}

func length(v float64) (int, bool) {
	if math.IsNaN(v) || v < 0 || v > MaxReadLength {
		return 0, false
	}
	return int(v), true
}
