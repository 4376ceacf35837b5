//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"procmem/process"
)

// process_vm_readv uses the process_vm_readv syscall to copy remote memory into buf
func process_vm_readv(pid process.ProcessID, buf []byte, remoteAddr uint64) (int, error) {
	// Create iovec for local buffer
	var localIov unix.Iovec
	localIov.Base = &buf[0]
	localIov.SetLen(len(buf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(buf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		if errno == unix.EFAULT {
			return 0, &process.SystemError{Op: "process_vm_readv", Code: uint32(errno), Err: fmt.Errorf("%w: %w", process.ErrPartialCopy, errno)}
		}
		return 0, &process.SystemError{Op: "process_vm_readv", Code: uint32(errno), Err: errno}
	}

	// a transfer stops at the first inaccessible page
	if int(n) != len(buf) {
		return int(n), &process.SystemError{Op: "process_vm_readv", Err: fmt.Errorf("%w: %d of %d bytes", process.ErrPartialCopy, n, len(buf))}
	}

	return int(n), nil
}

func (o *OS) ReadMemory(h process.Handle, addr uint64, buf []byte) (int, error) {
	ph, err := o.get(h)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	return process_vm_readv(ph.pid, buf, addr)
}
