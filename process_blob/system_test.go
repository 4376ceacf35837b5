package process_blob

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/process"
	"procmem/process/memory_map"
)

func TestQueryRegionReportsGaps(t *testing.T) {
	s := NewSystem()
	s.Add(&Process{PID: 7, Regions: []*Region{
		NewRegion(0x3000, make([]byte, 0x1000)),
		{Address: 0x1000, Size: 0x1000, State: memory_map.StateReserve},
	}})

	h, err := s.OpenProcess(7)
	require.NoError(t, err)
	defer s.CloseHandle(h)

	r, ok, err := s.QueryRegion(h, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, memory_map.Region{Address: 0, Size: 0x1000, State: memory_map.StateFree}, r)

	r, ok, err = s.QueryRegion(h, 0x1800)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, memory_map.StateReserve, r.State)
	assert.Equal(t, uint64(0x1000), r.Address)

	_, ok, err = s.QueryRegion(h, 0x4000)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadMemorySpansRegions(t *testing.T) {
	s := NewSystem()
	p := s.Add(&Process{PID: 7, Regions: []*Region{
		NewRegion(0x1000, []byte{1, 2, 3, 4}),
		{Address: 0x1004, Size: 4, State: memory_map.StateCommit, Data: []byte{5}},
	}})
	require.NoError(t, p.Write(0x1006, []byte{9}))

	h, err := s.OpenProcess(7)
	require.NoError(t, err)
	defer s.CloseHandle(h)

	buf := make([]byte, 8)
	n, err := s.ReadMemory(h, 0x1000, buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 9, 0}, buf)

	n, err = s.ReadMemory(h, 0x1006, make([]byte, 4))
	assert.Equal(t, 2, n)
	assert.True(t, errors.Is(err, process.ErrPartialCopy))
	code, ok := process.ErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, uint32(299), code)
}

func TestHandleAccounting(t *testing.T) {
	s := NewSystem()
	s.Add(&Process{PID: 1})

	h, err := s.OpenProcess(1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.OpenHandles())

	require.NoError(t, s.CloseHandle(h))
	assert.Equal(t, 0, s.OpenHandles())
	assert.Error(t, s.CloseHandle(h))

	_, err = s.OpenProcess(2)
	assert.Error(t, err)
	assert.Equal(t, 0, s.OpenHandles())
}
