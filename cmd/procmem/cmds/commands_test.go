package cmds

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/process"
	"procmem/process/memory_map"
	"procmem/process_blob"
)

const testPID = 4242

func newSystem(t *testing.T) *process_blob.System {
	s := process_blob.NewSystem()
	p := s.Add(&process_blob.Process{
		PID:        testPID,
		Name:       "osu!.exe",
		ModulePath: `C:\osu!\osu!.exe`,
		Regions: []*process_blob.Region{
			process_blob.NewRegion(0x00400000, make([]byte, 0x100)),
			{Address: 0x00500000, Size: 0x1000, State: memory_map.StateReserve},
		},
	})
	require.NoError(t, p.Write(0x00400000, binary.LittleEndian.AppendUint32(nil, 0x00400010)))
	require.NoError(t, p.Write(0x00400010, binary.LittleEndian.AppendUint32(nil, 0x00400020)))
	require.NoError(t, p.Write(0x00400020, binary.LittleEndian.AppendUint32(nil, 0xFFFFFFFF)))
	require.NoError(t, p.Write(0x00400080, []byte{0xDE, 0xAD, 0xBE, 0xEF}))
	return s
}

func run(t *testing.T, s process.OS, args ...string) (string, error) {
	old := openOS
	openOS = func() (process.OS, error) { return s, nil }
	t.Cleanup(func() { openOS = old })

	var out bytes.Buffer
	cmd := New()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExistsAndFind(t *testing.T) {
	s := newSystem(t)

	out, err := run(t, s, "exists", "4242")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, s, "exists", "1")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	out, err = run(t, s, "find", "osu")
	require.NoError(t, err)
	assert.Contains(t, out, "4242 osu!.exe")

	_, err = run(t, s, "exists", "nope")
	assert.Error(t, err)
}

func TestRegions(t *testing.T) {
	out, err := run(t, newSystem(t), "regions", "4242")
	require.NoError(t, err)
	assert.Contains(t, out, "0x00400000")
	assert.Contains(t, out, "reserve")
	assert.Contains(t, out, "2 regions")
}

func TestScanAndRead(t *testing.T) {
	s := newSystem(t)

	out, err := run(t, s, "scan", "4242", "de", "ad", "??", "ef", "-C", "0")
	require.NoError(t, err)
	assert.Equal(t, "0x00400080\n", out)

	out, err = run(t, s, "scan", "4242", "de ad ?? ef", "--context", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "de ad be ef")

	out, err = run(t, s, "read", "4242", "--addr", "0x400020", "--type", "i32")
	require.NoError(t, err)
	assert.Equal(t, "-1\n", out)

	out, err = run(t, s, "read", "4242", "--addr", "0x400080", "--raw", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "de ad be ef")

	out, err = run(t, s, "pointer", "4242", "--addr", "4194304")
	require.NoError(t, err)
	assert.Equal(t, "0x00400020\n", out)

	_, err = run(t, s, "read", "4242", "--addr", "0x10")
	var readErr *process.ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, 0, s.OpenHandles())
}

func TestPath(t *testing.T) {
	out, err := run(t, newSystem(t), "path", "4242")
	require.NoError(t, err)
	assert.Equal(t, "C:\\osu!\\osu!.exe\n", out)
}

func TestDumpAndReplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")

	out, err := run(t, newSystem(t), "dump", "4242", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "saved 1 regions")
	_, err = os.Stat(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)

	replay, _, err := process_blob.Load(dir)
	require.NoError(t, err)
	out, err = run(t, replay, "read", "4242", "--addr", "0x400080", "--type", "u32")
	require.NoError(t, err)
	assert.Equal(t, "4022250974\n", out)
}

func TestParseAddress(t *testing.T) {
	for in, want := range map[string]process.Address{
		"0x10":       0x10,
		"16":         0x10,
		"-1":         -1,
		"0xFFFFFFFF": -1,
		"4294967312": 0x10,
	} {
		got, err := parseAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseAddress("zz")
	assert.Error(t, err)
}

func TestValueOption(t *testing.T) {
	_, err := valueOption("f32", "1.5")
	require.NoError(t, err)
	_, err = valueOption("u8", "300")
	assert.Error(t, err)
	_, err = valueOption("x", "1")
	assert.Error(t, err)
}
