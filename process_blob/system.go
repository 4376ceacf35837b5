package process_blob

import (
	"fmt"
	"sort"
	"sync"

	"procmem/process"
	"procmem/process/memory_map"
)

const (
	errorInvalidParameter = 87
	errorAccessDenied     = 5
	errorPartialCopy      = 299
)

// Region is one region of a simulated address space.
// Data shorter than Size reads as zero past its end; a committed region with nil Data is unreadable.
type Region struct {
	Address uint64
	Size    uint64
	State   memory_map.State
	Data    []byte
	Fault   error // returned by any read touching the region
}

func (r *Region) End() uint64 {
	return r.Address + r.Size
}

// Process is a simulated process
type Process struct {
	PID            process.ProcessID
	Name           string
	Exited         bool
	ModulePath     string
	PebBaseAddress uint64
	PointerSize    int
	Regions        []*Region

	OpenFault   error
	ExitFault   error
	QueryFault  error
	InfoFault   error
	ModuleFault error
}

// NewRegion returns a committed region holding data
func NewRegion(addr uint64, data []byte) *Region {
	return &Region{Address: addr, Size: uint64(len(data)), State: memory_map.StateCommit, Data: data}
}

// Write copies data into the committed regions covering addr, allocating their backing store as needed
func (p *Process) Write(addr uint64, data []byte) error {
	for len(data) > 0 {
		r := p.region(addr)
		if r == nil || r.State != memory_map.StateCommit {
			return fmt.Errorf("address 0x%x not committed", addr)
		}
		if uint64(len(r.Data)) < r.Size {
			grown := make([]byte, r.Size)
			copy(grown, r.Data)
			r.Data = grown
		}
		n := copy(r.Data[addr-r.Address:], data)
		data = data[n:]
		addr += uint64(n)
	}
	return nil
}

func (p *Process) region(addr uint64) *Region {
	i := sort.Search(len(p.Regions), func(i int) bool {
		return p.Regions[i].End() > addr
	})
	if i < len(p.Regions) && p.Regions[i].Address <= addr {
		return p.Regions[i]
	}
	return nil
}

func (p *Process) sortRegions() {
	sort.Slice(p.Regions, func(i, j int) bool {
		return p.Regions[i].Address < p.Regions[j].Address
	})
}

// System is an in-memory process.OS. It backs offline dumps and tests,
// and counts outstanding handles and snapshots so leaks can be asserted.
type System struct {
	mu        sync.Mutex
	procs     map[process.ProcessID]*Process
	order     []process.ProcessID
	handles   map[process.Handle]process.ProcessID
	next      process.Handle
	snapshots int

	// SnapshotFault makes Processes fail
	SnapshotFault error
	// IterFault is reported by iterators after the last entry
	IterFault error
}

var _ process.OS = (*System)(nil)

func NewSystem() *System {
	return &System{
		procs:   make(map[process.ProcessID]*Process),
		handles: make(map[process.Handle]process.ProcessID),
		next:    0x100,
	}
}

// Add registers p, replacing any process with the same id
func (s *System) Add(p *Process) *Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.sortRegions()
	if _, ok := s.procs[p.PID]; !ok {
		s.order = append(s.order, p.PID)
	}
	s.procs[p.PID] = p
	return p
}

// Process returns the registered process for pid
func (s *System) Process(pid process.ProcessID) (*Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procs[pid]
	return p, ok
}

// OpenHandles returns how many handles are currently open
func (s *System) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// OpenSnapshots returns how many process snapshots have not been closed
func (s *System) OpenSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots
}

func (s *System) lookup(h process.Handle) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pid, ok := s.handles[h]
	if !ok {
		return nil, &process.SystemError{Op: "handle", Code: errorInvalidParameter, Err: fmt.Errorf("invalid handle 0x%x", uintptr(h))}
	}
	return s.procs[pid], nil
}

func (s *System) OpenProcess(pid process.ProcessID) (process.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procs[pid]
	if !ok {
		return 0, &process.SystemError{Op: "OpenProcess", Code: errorInvalidParameter, Err: fmt.Errorf("no process %d", pid)}
	}
	if p.OpenFault != nil {
		return 0, &process.SystemError{Op: "OpenProcess", Code: errorAccessDenied, Err: p.OpenFault}
	}

	s.next += 4
	s.handles[s.next] = pid
	return s.next, nil
}

func (s *System) CloseHandle(h process.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[h]; !ok {
		return &process.SystemError{Op: "CloseHandle", Code: errorInvalidParameter, Err: fmt.Errorf("invalid handle 0x%x", uintptr(h))}
	}
	delete(s.handles, h)
	return nil
}

func (s *System) ExitCode(h process.Handle) (uint32, error) {
	p, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	if p.ExitFault != nil {
		return 0, p.ExitFault
	}
	if p.Exited {
		return 0, nil
	}
	return process.StillActive, nil
}

func (s *System) Processes() (process.ProcessIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SnapshotFault != nil {
		return nil, s.SnapshotFault
	}

	entries := make([]process.ProcessEntry, 0, len(s.order))
	for _, pid := range s.order {
		entries = append(entries, process.ProcessEntry{PID: pid, Name: s.procs[pid].Name})
	}
	s.snapshots++

	return &snapshot{SliceIterator: process.NewSliceIterator(entries), s: s, fault: s.IterFault}, nil
}

type snapshot struct {
	*process.SliceIterator
	s      *System
	fault  error
	closed bool
}

func (it *snapshot) Err() error {
	return it.fault
}

func (it *snapshot) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true

	it.s.mu.Lock()
	it.s.snapshots--
	it.s.mu.Unlock()
	return nil
}

// QueryRegion follows VirtualQueryEx: the region containing addr, or the free gap up to the next one.
// Past the last region there is nothing more to report.
func (s *System) QueryRegion(h process.Handle, addr uint64) (memory_map.Region, bool, error) {
	p, err := s.lookup(h)
	if err != nil {
		return memory_map.Region{}, false, err
	}
	if p.QueryFault != nil {
		return memory_map.Region{}, false, p.QueryFault
	}

	for _, r := range p.Regions {
		if r.End() <= addr {
			continue
		}
		if r.Address <= addr {
			return memory_map.Region{Address: r.Address, Size: r.Size, State: r.State}, true, nil
		}
		return memory_map.Region{Address: addr, Size: r.Address - addr, State: memory_map.StateFree}, true, nil
	}

	return memory_map.Region{}, false, nil
}

func (s *System) ReadMemory(h process.Handle, addr uint64, buf []byte) (int, error) {
	p, err := s.lookup(h)
	if err != nil {
		return 0, err
	}

	copied := 0
	for copied < len(buf) {
		cur := addr + uint64(copied)
		r := p.region(cur)
		if r != nil && r.Fault != nil {
			return copied, r.Fault
		}
		if r == nil || r.State != memory_map.StateCommit || r.Data == nil {
			return copied, &process.SystemError{Op: "ReadProcessMemory", Code: errorPartialCopy, Err: process.ErrPartialCopy}
		}

		off := cur - r.Address
		want := r.Size - off
		if rest := uint64(len(buf) - copied); rest < want {
			want = rest
		}

		chunk := buf[copied : copied+int(want)]
		n := 0
		if off < uint64(len(r.Data)) {
			n = copy(chunk, r.Data[off:])
		}
		clear(chunk[n:])
		copied += int(want)
	}

	return copied, nil
}

func (s *System) ModuleFileName(h process.Handle) (string, error) {
	p, err := s.lookup(h)
	if err != nil {
		return "", err
	}
	if p.ModuleFault != nil {
		return "", p.ModuleFault
	}
	return p.ModulePath, nil
}

func (s *System) BasicInformation(h process.Handle) (process.BasicInformation, error) {
	p, err := s.lookup(h)
	if err != nil {
		return process.BasicInformation{}, err
	}
	if p.InfoFault != nil {
		return process.BasicInformation{}, p.InfoFault
	}

	size := p.PointerSize
	if size == 0 {
		size = 8
	}
	return process.BasicInformation{PebBaseAddress: p.PebBaseAddress, PointerSize: size}, nil
}
