//go:build linux

package process_linux

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"procmem/metadata"
	"procmem/process"
	"procmem/process/memory_map"
	"procmem/reader"
)

func self() process.ProcessID {
	return process.ProcessID(os.Getpid())
}

func TestProcessExistsSelf(t *testing.T) {
	o := New()
	assert.True(t, process.ProcessExists(o, self()))
	assert.False(t, process.ProcessExists(o, 0x7ffffff0))
}

func TestFindProcessesSelf(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	pids, err := process.FindProcesses(New(), filepath.Base(exe))
	require.NoError(t, err)
	assert.Contains(t, pids, self())
}

func TestEnumerateRegionsSelf(t *testing.T) {
	regions, err := process.EnumerateRegions(New(), self())
	require.NoError(t, err)
	require.NotEmpty(t, regions)

	for i, r := range regions {
		assert.Equal(t, r.IsReadable(), r.State == memory_map.StateCommit, r.String())
		if i > 0 {
			assert.LessOrEqual(t, regions[i-1].End(), r.Address)
		}
	}
}

func TestReadMemorySelf(t *testing.T) {
	o := New()
	h, err := o.OpenProcess(self())
	require.NoError(t, err)
	defer o.CloseHandle(h)

	value := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	buf := make([]byte, len(value))
	n, err := o.ReadMemory(h, uint64(uintptr(unsafe.Pointer(&value[0]))), buf)
	require.NoError(t, err)
	assert.Equal(t, len(value), n)
	assert.Equal(t, value[:], buf)

	_, err = o.ReadMemory(h, 0, buf)
	assert.ErrorIs(t, err, process.ErrPartialCopy)
}

func TestMetadataSelf(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	path, err := metadata.ProcessPath(New(), self())
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(exe), filepath.Base(path))

	cmdline, err := metadata.CommandLine(New(), self())
	require.NoError(t, err)
	assert.Contains(t, cmdline, filepath.Base(os.Args[0]))
}

func TestCloseHandle(t *testing.T) {
	o := New()
	h, err := o.OpenProcess(self())
	require.NoError(t, err)

	require.NoError(t, o.CloseHandle(h))
	assert.Error(t, o.CloseHandle(h))
	_, err = o.ExitCode(h)
	assert.Error(t, err)
}

func TestFindProcessesByCommName(t *testing.T) {
	target, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not found")
	}

	link := filepath.Join(t.TempDir(), "osu!.exe")
	require.NoError(t, os.Symlink(target, link))

	cmd := exec.Command(link, "30")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	pid := process.ProcessID(cmd.Process.Pid)
	require.Eventually(t, func() bool {
		pids, err := process.FindProcesses(New(), "osu!")
		return err == nil && slices.Contains(pids, pid)
	}, 5*time.Second, 20*time.Millisecond)
}

// scanMarker lives in the data segment of the test binary
var scanMarker = []byte{0x5a, 0x3c, 0x96, 0xe1, 0x7b, 0x42, 0xd8, 0x0f}

func TestFindSignatureSkipsProtNoneReservation(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) < 8 {
		t.Skip("needs a 64-bit address space")
	}

	size := uint64(512) << 30
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		t.Skipf("cannot reserve 512 GiB: %v", err)
	}
	defer unix.Munmap(mem)
	base := uint64(uintptr(unsafe.Pointer(&mem[0])))

	r, err := reader.New(New(), self())
	require.NoError(t, err)
	defer r.Close()

	region := memory_map.Find(base, r.Regions())
	require.NotNil(t, region)
	assert.Equal(t, memory_map.StateReserve, region.State)
	assert.Equal(t, "---p", region.Perms)

	_, err = r.FindSignature("5a 3c 96 e1 7b 42 d8 0f")
	require.NoError(t, err, "marker at %p", &scanMarker[0])
}
