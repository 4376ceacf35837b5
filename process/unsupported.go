package process

import (
	"procmem/process/memory_map"
)

// Unsupported is the OS used on platforms without a backend
type Unsupported struct{}

var _ OS = Unsupported{}

func (Unsupported) OpenProcess(ProcessID) (Handle, error) { return 0, ErrUnsupported }
func (Unsupported) CloseHandle(Handle) error              { return ErrUnsupported }
func (Unsupported) ExitCode(Handle) (uint32, error)       { return 0, ErrUnsupported }
func (Unsupported) Processes() (ProcessIterator, error)   { return nil, ErrUnsupported }

func (Unsupported) QueryRegion(Handle, uint64) (memory_map.Region, bool, error) {
	return memory_map.Region{}, false, ErrUnsupported
}

func (Unsupported) ReadMemory(Handle, uint64, []byte) (int, error) { return 0, ErrUnsupported }
func (Unsupported) ModuleFileName(Handle) (string, error)          { return "", ErrUnsupported }

func (Unsupported) BasicInformation(Handle) (BasicInformation, error) {
	return BasicInformation{}, ErrUnsupported
}
