//go:build linux

package process_linux

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"

	"procmem/process"
	"procmem/process/memory_map"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-linux"))

// handle is an open /proc/<pid> directory. Files are read relative to it so a
// recycled pid cannot redirect an open handle to another process.
type handle struct {
	pid     process.ProcessID
	dirfd   int
	regions []memory_map.Region // maps snapshot with gaps, taken when a walk starts
}

// OS implements process.OS using procfs and process_vm_readv
type OS struct {
	mu      sync.Mutex
	handles map[process.Handle]*handle
}

var (
	_ process.OS                = (*OS)(nil)
	_ process.CommandLineReader = (*OS)(nil)
)

func New() *OS {
	return &OS{handles: make(map[process.Handle]*handle)}
}

func (o *OS) get(h process.Handle) (*handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ph, ok := o.handles[h]
	if !ok {
		return nil, &process.SystemError{Op: "handle", Code: uint32(unix.EBADF), Err: unix.EBADF}
	}
	return ph, nil
}

func systemError(op string, err error) error {
	if errno, ok := err.(unix.Errno); ok {
		return &process.SystemError{Op: op, Code: uint32(errno), Err: errno}
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func (o *OS) OpenProcess(pid process.ProcessID) (process.Handle, error) {
	fd, err := unix.Open(fmt.Sprintf("/proc/%d", pid), unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, systemError("open", err)
	}

	h := process.Handle(fd)

	o.mu.Lock()
	o.handles[h] = &handle{pid: pid, dirfd: fd}
	o.mu.Unlock()

	return h, nil
}

func (o *OS) CloseHandle(h process.Handle) error {
	o.mu.Lock()
	ph, ok := o.handles[h]
	delete(o.handles, h)
	o.mu.Unlock()

	if !ok {
		return &process.SystemError{Op: "close", Code: uint32(unix.EBADF), Err: unix.EBADF}
	}
	if err := unix.Close(ph.dirfd); err != nil {
		return systemError("close", err)
	}
	return nil
}

// readAt reads a whole procfs file relative to the process directory
func readAt(dirfd int, name string) ([]byte, error) {
	fd, err := unix.Openat(dirfd, name, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, systemError("openat "+name, err)
	}

	f := os.NewFile(uintptr(fd), name)
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// ExitCode reports StillActive unless the process is a zombie or dead.
// The real exit status is only available to the parent, so exited processes report 0.
func (o *OS) ExitCode(h process.Handle) (uint32, error) {
	ph, err := o.get(h)
	if err != nil {
		return 0, err
	}

	stat, err := readAt(ph.dirfd, "stat")
	if err != nil {
		return 0, err
	}

	// the state follows the parenthesised comm, which may itself contain ')'
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return 0, fmt.Errorf("malformed stat for process %d", ph.pid)
	}

	switch stat[i+2] {
	case 'Z', 'X', 'x':
		return 0, nil
	default:
		return process.StillActive, nil
	}
}

func (o *OS) QueryRegion(h process.Handle, addr uint64) (memory_map.Region, bool, error) {
	ph, err := o.get(h)
	if err != nil {
		return memory_map.Region{}, false, err
	}

	if addr == 0 || ph.regions == nil {
		maps, err := readAt(ph.dirfd, "maps")
		if err != nil {
			return memory_map.Region{}, false, err
		}

		regions, err := memory_map.ParseMaps(bytes.NewReader(maps))
		if err != nil {
			return memory_map.Region{}, false, err
		}

		ph.regions = memory_map.FillGaps(regions, 0)
	}

	r := memory_map.Find(addr, ph.regions)
	if r == nil {
		return memory_map.Region{}, false, nil
	}
	return *r, true, nil
}

func (o *OS) ModuleFileName(h process.Handle) (string, error) {
	ph, err := o.get(h)
	if err != nil {
		return "", err
	}

	buf := make([]byte, unix.PathMax)
	n, err := unix.Readlinkat(ph.dirfd, "exe", buf)
	if err != nil {
		return "", systemError("readlinkat exe", err)
	}
	return string(buf[:n]), nil
}

func (o *OS) BasicInformation(process.Handle) (process.BasicInformation, error) {
	return process.BasicInformation{}, process.ErrUnsupported
}

// CommandLine returns the NUL separated arguments joined by spaces
func (o *OS) CommandLine(h process.Handle) (string, error) {
	ph, err := o.get(h)
	if err != nil {
		return "", err
	}

	raw, err := readAt(ph.dirfd, "cmdline")
	if err != nil {
		return "", err
	}

	args := strings.Split(strings.TrimRight(string(raw), "\x00"), "\x00")
	return strings.Join(args, " "), nil
}

// procIterator walks the numeric entries of /proc, reading each name lazily
type procIterator struct {
	pids []int
	pos  int
}

func (o *OS) Processes() (process.ProcessIterator, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	it := &procIterator{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		it.pids = append(it.pids, pid)
	}
	return it, nil
}

func (it *procIterator) Next() (process.ProcessEntry, bool) {
	for it.pos < len(it.pids) {
		pid := it.pids[it.pos]
		it.pos++

		name, ok := processName(pid)
		if !ok {
			continue // exited since the directory was listed
		}
		return process.ProcessEntry{PID: process.ProcessID(pid), Name: name}, true
	}
	return process.ProcessEntry{}, false
}

func (it *procIterator) Err() error   { return nil }
func (it *procIterator) Close() error { return nil }

// maxCommLength is TASK_COMM_LEN without the terminating NUL
const maxCommLength = 15

// processName returns comm, the name the process was started under. Programs run
// through a loader (Wine) or a symlink keep that name while exe points at the loader
// or the link target. A comm cut at maxCommLength is completed from the executable
// basename when that basename starts with it.
func processName(pid int) (string, bool) {
	dir := filepath.Join("/proc", strconv.Itoa(pid))

	comm, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err != nil {
		log.Debugln("Skipping process", pid, ":", err)
		return "", false
	}

	name := strings.TrimSuffix(string(comm), "\n")
	if len(name) < maxCommLength {
		return name, true
	}

	if exe, err := os.Readlink(filepath.Join(dir, "exe")); err == nil {
		if base := filepath.Base(strings.TrimSuffix(exe, " (deleted)")); strings.HasPrefix(base, name) {
			return base, true
		}
	}
	return name, true
}
