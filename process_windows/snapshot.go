//go:build windows

package process_windows

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"

	"procmem/process"
)

// snapshot iterates a Toolhelp32 process snapshot
type snapshot struct {
	h       windows.Handle
	entry   windows.ProcessEntry32
	started bool
	done    bool
	err     error
}

func (OS) Processes() (process.ProcessIterator, error) {
	h, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, systemError("CreateToolhelp32Snapshot", err)
	}

	s := &snapshot{h: h}
	s.entry.Size = uint32(unsafe.Sizeof(s.entry))
	return s, nil
}

func (s *snapshot) Next() (process.ProcessEntry, bool) {
	if s.done {
		return process.ProcessEntry{}, false
	}

	var err error
	if !s.started {
		s.started = true
		err = windows.Process32First(s.h, &s.entry)
	} else {
		err = windows.Process32Next(s.h, &s.entry)
	}

	if err != nil {
		s.done = true
		if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			s.err = systemError("Process32Next", err)
		}
		return process.ProcessEntry{}, false
	}

	return process.ProcessEntry{
		PID:  process.ProcessID(s.entry.ProcessID),
		Name: windows.UTF16ToString(s.entry.ExeFile[:]),
	}, true
}

func (s *snapshot) Err() error {
	return s.err
}

func (s *snapshot) Close() error {
	if s.h == 0 {
		return nil
	}
	err := windows.CloseHandle(s.h)
	s.h = 0
	if err != nil {
		return systemError("CloseHandle", err)
	}
	return nil
}
