package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/process"
	"procmem/process_blob"
	"procmem/reader"
)

const sample = `
name: sample
patterns:
  - name: base
    pattern: "DE AD ?? EF"
    offset: 0x2
  - name: before
    pattern: "CA FE"
    offset: -0x4
  - name: spectator
    pattern: "11 22 33"
    optional: true
`

func TestParse(t *testing.T) {
	set, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "sample", set.Name)
	require.Len(t, set.Patterns, 3)
	assert.Equal(t, Pattern{Name: "before", Signature: "CA FE", Offset: -4}, set.Patterns[1])
	assert.True(t, set.Patterns[2].Optional)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("patterns:\n  - name: bad\n    pattern: \"GG\"\n"))
	assert.ErrorIs(t, err, process.ErrInvalidSignature)

	_, err = Parse([]byte("patterns:\n  - name: a\n    pattern: \"00\"\n  - name: a\n    pattern: \"01\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("patterns: ["))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "set.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(sample), 0644))

	set, err := Load(filename)
	require.NoError(t, err)
	assert.Len(t, set.Patterns, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOsuStable(t *testing.T) {
	set := OsuStable()
	assert.Equal(t, "osu-stable", set.Name)
	assert.NotEmpty(t, set.Patterns)
}

func TestResolve(t *testing.T) {
	s := process_blob.NewSystem()
	s.Add(&process_blob.Process{PID: 5, Regions: []*process_blob.Region{
		process_blob.NewRegion(0x400000, []byte{0x90, 0xde, 0xad, 0x00, 0xef, 0x90, 0xca, 0xfe}),
	}})

	r, err := reader.New(s, 5)
	require.NoError(t, err)
	defer r.Close()

	set, err := Parse([]byte(sample))
	require.NoError(t, err)

	addrs, err := set.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, map[string]process.Address{
		"base":   0x400003,
		"before": 0x400002,
	}, addrs)

	set.Patterns[2].Optional = false
	_, err = set.Resolve(r)
	assert.ErrorIs(t, err, process.ErrSignatureNotFound)
	assert.Contains(t, err.Error(), "spectator")
}
