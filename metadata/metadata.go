// Package metadata extracts the executable path and the startup parameters of a process.
// Parameters are located by walking the process environment block in the target's memory.
package metadata

import (
	"fmt"
	"strings"

	"procmem/process"
)

// ProcessParameters is the subset of the process parameters record exposed by Parameters
type ProcessParameters struct {
	ImagePathName    string
	CommandLine      string
	CurrentDirectory string
}

// ProcessPath returns the full path of the main executable of pid
func ProcessPath(os process.OS, pid process.ProcessID) (string, error) {
	h, err := os.OpenProcess(pid)
	if err != nil {
		return "", process.NewMetadataError(pid, process.StepOpenProcess, err)
	}
	defer process.Release(os, h)

	path, err := os.ModuleFileName(h)
	if err != nil {
		return "", process.NewMetadataError(pid, process.StepModulePath, err)
	}

	return strings.TrimSpace(strings.TrimRight(path, "\x00")), nil
}

// CommandLine returns the command line pid was started with
func CommandLine(os process.OS, pid process.ProcessID) (string, error) {
	h, err := os.OpenProcess(pid)
	if err != nil {
		return "", process.NewMetadataError(pid, process.StepOpenProcess, err)
	}
	defer process.Release(os, h)

	if cr, ok := os.(process.CommandLineReader); ok {
		cmdline, err := cr.CommandLine(h)
		if err != nil {
			return "", process.NewMetadataError(pid, process.StepReadCommandLine, err)
		}
		return cmdline, nil
	}

	w, err := newWalker(os, pid, h)
	if err != nil {
		return "", err
	}

	return w.string(w.layout.CommandLine, process.StepReadCommandLine)
}

// Parameters returns image path, command line and current directory from one PEB walk
func Parameters(os process.OS, pid process.ProcessID) (ProcessParameters, error) {
	h, err := os.OpenProcess(pid)
	if err != nil {
		return ProcessParameters{}, process.NewMetadataError(pid, process.StepOpenProcess, err)
	}
	defer process.Release(os, h)

	w, err := newWalker(os, pid, h)
	if err != nil {
		return ProcessParameters{}, err
	}

	var params ProcessParameters
	if params.ImagePathName, err = w.string(w.layout.ImagePathName, process.StepReadImagePath); err != nil {
		return ProcessParameters{}, err
	}
	if params.CommandLine, err = w.string(w.layout.CommandLine, process.StepReadCommandLine); err != nil {
		return ProcessParameters{}, err
	}
	if params.CurrentDirectory, err = w.string(w.layout.CurrentDirectory, process.StepReadCurrentDirectory); err != nil {
		return ProcessParameters{}, err
	}

	return params, nil
}

// walker holds the process parameters record of one open process
type walker struct {
	os     process.OS
	pid    process.ProcessID
	h      process.Handle
	layout Layout
	params []byte
}

func newWalker(os process.OS, pid process.ProcessID, h process.Handle) (*walker, error) {
	info, err := os.BasicInformation(h)
	if err != nil {
		return nil, process.NewMetadataError(pid, process.StepQueryInformation, err)
	}

	layout, err := LayoutFor(info.PointerSize)
	if err != nil {
		return nil, process.NewMetadataError(pid, process.StepQueryInformation, err)
	}

	peb := make([]byte, layout.PEBSize())
	if err := readFull(os, h, info.PebBaseAddress, peb); err != nil {
		return nil, process.NewMetadataError(pid, process.StepReadPEB, err)
	}

	params := make([]byte, layout.ParametersSize())
	if err := readFull(os, h, layout.Pointer(peb, layout.ProcessParameters), params); err != nil {
		return nil, process.NewMetadataError(pid, process.StepReadParameters, err)
	}

	return &walker{os: os, pid: pid, h: h, layout: layout, params: params}, nil
}

// string reads the UNICODE_STRING whose descriptor sits at off in the parameters record
func (w *walker) string(off int, step process.MetadataStep) (string, error) {
	us := w.layout.UnicodeString(w.params, off)
	if us.Length == 0 {
		return "", nil
	}

	buf := make([]byte, us.Length&^1)
	if err := readFull(w.os, w.h, us.Buffer, buf); err != nil {
		return "", process.NewMetadataError(w.pid, step, err)
	}

	return process.DecodeUTF16(buf), nil
}

func readFull(os process.OS, h process.Handle, addr uint64, buf []byte) error {
	n, err := os.ReadMemory(h, addr, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("%w: %d of %d bytes at 0x%x", process.ErrShortRead, n, len(buf), addr)
	}
	return nil
}
