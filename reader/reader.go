// Package reader implements a read-only session against one foreign process:
// raw and typed reads at 32-bit addresses, pointer and string helpers, and signature scans
// over the committed regions captured when the session was opened.
package reader

import (
	"fmt"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/dustin/go-humanize"

	"procmem/process"
	"procmem/process/memory_map"
)

// MaxStringLength bounds the code unit count accepted by ReadString
const MaxStringLength = 1 << 20

// Reader is a session bound to one process. It is not safe for concurrent use.
type Reader struct {
	os      process.OS
	pid     process.ProcessID
	handle  process.Handle
	regions []memory_map.Region
	closed  bool
	log     *logger.Logger
}

// New opens pid and captures its region list using the same handle
func New(os process.OS, pid process.ProcessID) (*Reader, error) {
	h, err := os.OpenProcess(pid)
	if err != nil {
		return nil, &process.AccessError{PID: pid, Err: err}
	}

	regions, err := process.WalkRegions(os, pid, h)
	if err != nil {
		process.Release(os, h)
		return nil, err
	}

	r := &Reader{
		os:      os,
		pid:     pid,
		handle:  h,
		regions: regions,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	r.log.Infoln("Process opened,", len(regions), "regions,", humanize.IBytes(memory_map.TotalSize(regions)))

	return r, nil
}

// PID returns the process id the session is bound to
func (r *Reader) PID() process.ProcessID {
	return r.pid
}

// Regions returns a copy of the region snapshot
func (r *Reader) Regions() []memory_map.Region {
	result := make([]memory_map.Region, len(r.regions))
	copy(result, r.regions)
	return result
}

// Close releases the process handle. Calling it again is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.os.CloseHandle(r.handle); err != nil {
		r.log.Warn("Failed to close process handle: ", err)
		return err
	}

	r.log.Infoln("Process closed")
	return nil
}

// read fills buf from addr and reports the raw cause on failure
func (r *Reader) read(addr uint64, buf []byte) error {
	if r.closed {
		return process.ErrSessionClosed
	}
	if len(buf) == 0 {
		return nil
	}

	n, err := r.os.ReadMemory(r.handle, addr, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("%w: %d of %d bytes", process.ErrShortRead, n, len(buf))
	}
	return nil
}

// ReadRaw reads exactly n bytes at addr
func (r *Reader) ReadRaw(addr process.Address, n int) ([]byte, error) {
	if n < 0 {
		return nil, &process.ReadError{Address: addr, Length: n, Err: fmt.Errorf("negative length")}
	}

	buf := make([]byte, n)
	if err := r.read(addr.Uint64(), buf); err != nil {
		return nil, &process.ReadError{Address: addr, Length: n, Err: err}
	}
	return buf, nil
}

// ReadRegion reads a whole region, as used when capturing dumps
func (r *Reader) ReadRegion(region memory_map.Region) ([]byte, error) {
	buf := make([]byte, region.Size)
	if err := r.read(region.Address, buf); err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}
	return buf, nil
}
