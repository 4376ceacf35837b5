package process_finder

import (
	"errors"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procmem/process"
	"procmem/process_blob"
)

type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

func withProcesses(t *testing.T, procs []ps.Process, err error) {
	old := listProcesses
	listProcesses = func() ([]ps.Process, error) { return procs, err }
	t.Cleanup(func() { listProcesses = old })
}

func TestByName(t *testing.T) {
	withProcesses(t, []ps.Process{
		fakeProcess{pid: 900, name: "osu!.exe"},
		fakeProcess{pid: 12, name: "explorer.exe"},
		fakeProcess{pid: 300, name: "osu!.exe"},
	}, nil)

	m, err := ByName(nil, "osu!")
	require.NoError(t, err)
	assert.Equal(t, Match{PID: 300, Name: "osu!.exe"}, m)

	all, err := All(nil, ".exe")
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessID{12, 300, 900}, []process.ProcessID{all[0].PID, all[1].PID, all[2].PID})

	_, err = ByName(nil, "notepad")
	assert.Error(t, err)
}

func TestByNameCommandLine(t *testing.T) {
	withProcesses(t, []ps.Process{fakeProcess{pid: 300, name: "osu!.exe"}}, nil)

	s := process_blob.NewSystem()
	s.Add(&process_blob.Process{PID: 300, Name: "osu!.exe"})

	// no PEB in the simulated process, so the command line stays empty
	m, err := ByName(s, "osu!")
	require.NoError(t, err)
	assert.Equal(t, "", m.CommandLine)
	assert.Equal(t, 0, s.OpenHandles())
	assert.Equal(t, "300 osu!.exe", m.String())
}

func TestListFailure(t *testing.T) {
	withProcesses(t, nil, errors.New("no procfs"))

	_, err := ByName(nil, "osu!")
	assert.Error(t, err)
}
