package hexdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/process/memory_map"
	"procmem/signature"
)

func mustParse(t *testing.T, text string) signature.Signature {
	t.Helper()
	sig, err := signature.Parse(text)
	require.NoError(t, err)
	return sig
}

func TestPlain(t *testing.T) {
	out := Plain([]byte("hello, world!\x00\x01\x02abc"), 0x1000)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "00001000  68 65 6c 6c"))
	assert.True(t, strings.HasSuffix(lines[0], "|hello, world!...|"))
	assert.True(t, strings.HasPrefix(lines[1], "00001010  61 62 63"))
}

func TestDumpMaxLines(t *testing.T) {
	options := DefaultOptions()
	options.MaxLines = 1

	out := Dump(make([]byte, 40), options)
	assert.Contains(t, out, "... 24 more bytes")
}

func TestHighlightMask(t *testing.T) {
	sig := mustParse(t, "AA ?? CC")
	mask := highlightMask([]byte{0x00, 0xaa, 0xbb, 0xcc, 0x00}, &sig)
	assert.Equal(t, []bool{false, true, true, true, false}, mask)

	assert.Equal(t, []bool{false, false}, highlightMask([]byte{1, 2}, nil))
}

func TestPointers(t *testing.T) {
	regions := []memory_map.Region{{Address: 0x400000, Size: 0x1000, State: memory_map.StateCommit}}
	data := []byte{
		0x10, 0x00, 0x40, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x20, 0x40, 0x00,
		0xff, 0x0f, 0x40, 0x00,
	}

	assert.Equal(t, []string{"0x00400010", "0x00400fff"}, pointers(data, 0x1000, regions))
	assert.Contains(t, Region(data, 0x1000, regions, nil), "0x00400010")
}
