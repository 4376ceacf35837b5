package process

import (
	"procmem/process/memory_map"
)

// OS is the set of primitives a platform must provide to inspect another process.
// Every handle returned by OpenProcess must be released with CloseHandle.
type OS interface {
	// OpenProcess opens a process with query and read rights
	OpenProcess(pid ProcessID) (Handle, error)

	// CloseHandle releases a handle returned by OpenProcess
	CloseHandle(h Handle) error

	// ExitCode returns the exit status of the process, StillActive while it runs
	ExitCode(h Handle) (uint32, error)

	// Processes returns an iterator over a snapshot of all running processes
	Processes() (ProcessIterator, error)

	// QueryRegion describes the region containing addr or, when addr is unmapped,
	// the next one above it. ok is false once the end of the address space is reached.
	QueryRegion(h Handle, addr uint64) (region memory_map.Region, ok bool, err error)

	// ReadMemory copies len(buf) bytes from addr and returns how many were copied
	ReadMemory(h Handle, addr uint64, buf []byte) (int, error)

	// ModuleFileName returns the full path of the main executable
	ModuleFileName(h Handle) (string, error)

	// BasicInformation locates the process environment block
	BasicInformation(h Handle) (BasicInformation, error)
}

// ProcessIterator walks a process snapshot. Close must be called once done.
type ProcessIterator interface {
	Next() (ProcessEntry, bool)
	Err() error
	Close() error
}

// CommandLineReader is implemented by platforms that expose the command line directly
// instead of through the process environment block
type CommandLineReader interface {
	CommandLine(h Handle) (string, error)
}

// SliceIterator iterates over a fixed list of entries
type SliceIterator struct {
	entries []ProcessEntry
	pos     int
}

func NewSliceIterator(entries []ProcessEntry) *SliceIterator {
	return &SliceIterator{entries: entries}
}

func (it *SliceIterator) Next() (ProcessEntry, bool) {
	if it.pos >= len(it.entries) {
		return ProcessEntry{}, false
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true
}

func (it *SliceIterator) Err() error   { return nil }
func (it *SliceIterator) Close() error { return nil }
