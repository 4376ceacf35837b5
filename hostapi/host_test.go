package hostapi

import (
	"encoding/binary"
	"math"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/metadata"
	"procmem/process"
	"procmem/process_blob"
)

const (
	testPID  = 4242
	dataBase = 0x00400000
	pebBase  = 0x7ffd0000
)

func utf16le(s string) []byte {
	var b []byte
	for _, u := range utf16.Encode([]rune(s)) {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return b
}

// newHost builds a 32-bit process with a PEB carrying cmdline
func newHost(t *testing.T, cmdline string) (*Host, *process_blob.System) {
	s := process_blob.NewSystem()
	p := s.Add(&process_blob.Process{
		PID:            testPID,
		Name:           "osu!.exe",
		ModulePath:     `C:\osu!\osu!.exe`,
		PebBaseAddress: pebBase,
		PointerSize:    4,
		Regions: []*process_blob.Region{
			process_blob.NewRegion(dataBase, make([]byte, 0x100)),
			process_blob.NewRegion(pebBase, make([]byte, 0x1000)),
		},
	})
	s.Add(&process_blob.Process{PID: 10, Name: "explorer.exe"})
	s.Add(&process_blob.Process{PID: 11, Name: "osu!.exe", Exited: true})

	l := metadata.Layout32
	params := uint64(pebBase + 0x100)
	text := uint64(pebBase + 0x400)
	require.NoError(t, p.Write(pebBase+uint64(l.ProcessParameters), binary.LittleEndian.AppendUint32(nil, uint32(params))))

	data := utf16le(cmdline)
	desc := binary.LittleEndian.AppendUint16(nil, uint16(len(data)))
	desc = binary.LittleEndian.AppendUint16(desc, uint16(len(data)))
	desc = binary.LittleEndian.AppendUint32(desc, uint32(text))
	require.NoError(t, p.Write(params+uint64(l.CommandLine), desc))
	require.NoError(t, p.Write(text, data))

	// length-prefixed string object at dataBase+0x40
	str := binary.LittleEndian.AppendUint32(make([]byte, 4), 3)
	str = append(str, utf16le("abc")...)
	require.NoError(t, p.Write(dataBase+0x40, str))

	// dataBase -> dataBase+0x10 -> 0x12345678
	require.NoError(t, p.Write(dataBase, binary.LittleEndian.AppendUint32(nil, dataBase+0x10)))
	require.NoError(t, p.Write(dataBase+0x10, binary.LittleEndian.AppendUint32(nil, 0x12345678)))
	require.NoError(t, p.Write(dataBase+0x20, binary.LittleEndian.AppendUint32(nil, 0xFFFFFFFE)))
	require.NoError(t, p.Write(dataBase+0x28, binary.LittleEndian.AppendUint64(nil, math.Float64bits(1.5))))
	require.NoError(t, p.Write(dataBase+0x80, []byte{0xDE, 0xAD, 0xBE, 0xEF}))

	return New(s), s
}

func TestProcessDirectory(t *testing.T) {
	h, s := newHost(t, "osu!.exe -devserver")

	assert.True(t, h.IsProcessExists(testPID))
	assert.True(t, h.IsProcessExists(testPID+math.Pow(2, 32)))
	assert.False(t, h.IsProcessExists(11))
	assert.False(t, h.IsProcessExists(99))

	pids, err := h.FindProcesses("osu")
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{testPID, 11}, pids)

	pids, err = h.FindProcesses("notepad")
	require.NoError(t, err)
	assert.Empty(t, pids)

	assert.Equal(t, 0, s.OpenHandles())
}

func TestProcessMetadata(t *testing.T) {
	h, s := newHost(t, "osu!.exe -devserver")

	path, err := h.GetProcessPath(testPID)
	require.NoError(t, err)
	assert.Equal(t, `C:\osu!\osu!.exe`, path)

	cmdline, err := h.GetProcessCommandLine(testPID)
	require.NoError(t, err)
	assert.Equal(t, "osu!.exe -devserver", cmdline)

	_, err = h.GetProcessCommandLine(99)
	var metaErr *process.MetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, process.ProcessID(99), metaErr.PID)

	assert.Equal(t, 0, s.OpenHandles())
}

func TestMemoryReader(t *testing.T) {
	h, s := newHost(t, "")

	m, err := h.NewMemoryReader(testPID)
	require.NoError(t, err)

	addr, err := m.FindSignature("de ad ?? ef")
	require.NoError(t, err)
	assert.Equal(t, float64(dataBase+0x80), addr)

	b, err := m.ReadRaw(dataBase+0x80, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, b)

	_, err = m.ReadRaw(dataBase, -1)
	assert.Error(t, err)

	_, err = m.ReadRaw(dataBase, MaxReadLength+1)
	var lengthErr *process.ReadError
	require.ErrorAs(t, err, &lengthErr)
	assert.Equal(t, process.Address(dataBase), lengthErr.Address)

	_, err = m.ReadRaw(dataBase, math.MaxInt32)
	assert.Error(t, err)

	v, err := m.ReadI32(dataBase + 0x20)
	require.NoError(t, err)
	assert.Equal(t, float64(-2), v)

	v, err = m.ReadU32(dataBase + 0x20)
	require.NoError(t, err)
	assert.Equal(t, float64(0xFFFFFFFE), v)

	v, err = m.Read("f64", dataBase+0x28)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	_, err = m.Read("i128", dataBase)
	assert.Error(t, err)

	p, err := m.ReadPointer(dataBase)
	require.NoError(t, err)
	assert.Equal(t, float64(0x12345678), p)

	str, err := m.ReadString(dataBase + 0x40)
	require.NoError(t, err)
	assert.Equal(t, "abc", str)

	_, err = m.ReadU8(0x10)
	var readErr *process.ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, process.Address(0x10), readErr.Address)
	assert.Equal(t, "u8", readErr.Type)

	require.NoError(t, m.Close())
	assert.Equal(t, 0, s.OpenHandles())
}

func TestNewMemoryReaderFailure(t *testing.T) {
	h, _ := newHost(t, "")

	_, err := h.NewMemoryReader(99)
	var accessErr *process.AccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, process.ProcessID(99), accessErr.PID)
}

func TestProcessIDWraps(t *testing.T) {
	assert.Equal(t, process.ProcessID(4), ProcessID(4.9))
	assert.Equal(t, process.ProcessID(math.MaxUint32), ProcessID(-1))
}
