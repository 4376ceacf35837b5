//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"procmem/process"
	"procmem/process/memory_map"
)

const desiredAccess = windows.PROCESS_QUERY_INFORMATION | windows.PROCESS_VM_READ

// OS implements process.OS on top of kernel32, psapi and ntdll
type OS struct{}

var _ process.OS = OS{}

func New() OS {
	return OS{}
}

func systemError(op string, err error) error {
	var errno windows.Errno
	if errors.As(err, &errno) {
		if errno == windows.ERROR_PARTIAL_COPY {
			return &process.SystemError{Op: op, Code: uint32(errno), Err: fmt.Errorf("%w: %w", process.ErrPartialCopy, errno)}
		}
		return &process.SystemError{Op: op, Code: uint32(errno), Err: errno}
	}

	var status windows.NTStatus
	if errors.As(err, &status) {
		return &process.SystemError{Op: op, Code: uint32(status), Err: status}
	}

	return fmt.Errorf("%s failed: %w", op, err)
}

func (OS) OpenProcess(pid process.ProcessID) (process.Handle, error) {
	h, err := windows.OpenProcess(desiredAccess, false, uint32(pid))
	if err != nil {
		return 0, systemError("OpenProcess", err)
	}
	return process.Handle(h), nil
}

func (OS) CloseHandle(h process.Handle) error {
	if err := windows.CloseHandle(windows.Handle(h)); err != nil {
		return systemError("CloseHandle", err)
	}
	return nil
}

func (OS) ExitCode(h process.Handle) (uint32, error) {
	var code uint32
	if err := windows.GetExitCodeProcess(windows.Handle(h), &code); err != nil {
		return 0, systemError("GetExitCodeProcess", err)
	}
	return code, nil
}

func (OS) QueryRegion(h process.Handle, addr uint64) (memory_map.Region, bool, error) {
	var mbi windows.MemoryBasicInformation
	err := windows.VirtualQueryEx(windows.Handle(h), uintptr(addr), &mbi, unsafe.Sizeof(mbi))
	if err != nil {
		// past the highest user-mode address
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return memory_map.Region{}, false, nil
		}
		return memory_map.Region{}, false, systemError("VirtualQueryEx", err)
	}

	return memory_map.Region{
		Address: uint64(mbi.BaseAddress),
		Size:    uint64(mbi.RegionSize),
		State:   memory_map.State(mbi.State),
	}, true, nil
}

func (OS) ReadMemory(h process.Handle, addr uint64, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	var bytesRead uintptr
	err := windows.ReadProcessMemory(windows.Handle(h), uintptr(addr), &buf[0], uintptr(len(buf)), &bytesRead)
	if err != nil {
		return int(bytesRead), systemError("ReadProcessMemory", err)
	}
	return int(bytesRead), nil
}

func (OS) ModuleFileName(h process.Handle) (string, error) {
	buf := make([]uint16, windows.MAX_LONG_PATH)
	if err := windows.GetModuleFileNameEx(windows.Handle(h), 0, &buf[0], uint32(len(buf))); err != nil {
		return "", systemError("GetModuleFileNameEx", err)
	}
	return windows.UTF16ToString(buf), nil
}

func (OS) BasicInformation(h process.Handle) (process.BasicInformation, error) {
	var pbi windows.PROCESS_BASIC_INFORMATION
	var retLen uint32
	err := windows.NtQueryInformationProcess(windows.Handle(h), windows.ProcessBasicInformation, unsafe.Pointer(&pbi), uint32(unsafe.Sizeof(pbi)), &retLen)
	if err != nil {
		return process.BasicInformation{}, systemError("NtQueryInformationProcess", err)
	}

	// the PEB reported here always matches the width of the calling process
	return process.BasicInformation{
		PebBaseAddress: uint64(uintptr(unsafe.Pointer(pbi.PebBaseAddress))),
		PointerSize:    int(unsafe.Sizeof(uintptr(0))),
	}, nil
}
