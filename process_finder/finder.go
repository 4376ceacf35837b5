// Package process_finder looks processes up by executable name using the system process table
package process_finder

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/go-ps"
	"github.com/samber/lo"

	"procmem/metadata"
	"procmem/process"
)

// listProcesses is replaced in tests
var listProcesses = ps.Processes

// Match is a process found by name
type Match struct {
	PID         process.ProcessID
	Name        string
	CommandLine string
}

func (m Match) String() string {
	if m.CommandLine == "" {
		return fmt.Sprintf("%d %s", m.PID, m.Name)
	}
	return fmt.Sprintf("%d %s (%s)", m.PID, m.Name, m.CommandLine)
}

// All returns every process whose executable name contains name, ordered by pid.
// The command line is filled in when os can read it.
func All(o process.OS, name string) ([]Match, error) {
	procs, err := listProcesses()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	self := os.Getpid()
	procs = lo.Filter(procs, func(p ps.Process, _ int) bool {
		return p.Pid() != self && strings.Contains(p.Executable(), name)
	})

	matches := lo.Map(procs, func(p ps.Process, _ int) Match {
		m := Match{PID: process.ProcessID(p.Pid()), Name: p.Executable()}
		if o != nil {
			if cmdline, err := metadata.CommandLine(o, m.PID); err == nil {
				m.CommandLine = cmdline
			}
		}
		return m
	})

	return sortByPID(matches), nil
}

// ByName returns the lowest-pid process whose executable name contains name
func ByName(o process.OS, name string) (Match, error) {
	matches, err := All(o, name)
	if err != nil {
		return Match{}, err
	}
	if len(matches) == 0 {
		return Match{}, fmt.Errorf("no process found with name %q", name)
	}
	return matches[0], nil
}

func sortByPID(matches []Match) []Match {
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].PID < matches[j].PID
	})
	return matches
}
