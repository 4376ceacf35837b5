package process

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrUnsupported is returned by every operation on platforms without an implementation
	ErrUnsupported = errors.New("operation not supported on this platform")

	// ErrPartialCopy marks a read that failed because part of the range was not accessible.
	// Backends wrap it so that callers can tell a transient hole from a hard failure.
	ErrPartialCopy = errors.New("only part of the memory request was completed")

	// ErrShortRead is returned when a successful OS read delivered fewer bytes than requested
	ErrShortRead = errors.New("short read")

	// ErrSessionClosed is returned when a reader is used after Close
	ErrSessionClosed = errors.New("session closed")

	ErrSignatureNotFound = errors.New("signature not found")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrStringTooLong     = errors.New("string length out of range")
)

// AccessError reports that no handle could be opened for a process
type AccessError struct {
	PID ProcessID
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot open process (%d): %v", e.PID, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// RegionsError reports that the virtual memory walk failed outright
type RegionsError struct {
	PID ProcessID
	Err error
}

func (e *RegionsError) Error() string {
	return fmt.Sprintf("failed to enumerate regions of process (%d): %v", e.PID, e.Err)
}

func (e *RegionsError) Unwrap() error { return e.Err }

// SignatureError reports a signature that could not be parsed or was not found
type SignatureError struct {
	Signature string
	Err       error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Signature)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// ReadError reports a failed read at a specific address.
// Type is empty for raw reads and names the requested type otherwise ("i32", "pointer", "string").
type ReadError struct {
	Address Address
	Length  int
	Type    string
	Err     error
}

func (e *ReadError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("failed to read %d bytes at address %s: %v", e.Length, e.Address, e.Err)
	}
	return fmt.Sprintf("failed to read %s at address %s: %v", e.Type, e.Address, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// MetadataStep identifies which step of a metadata extraction failed
type MetadataStep int

const (
	StepOpenProcess MetadataStep = iota
	StepModulePath
	StepQueryInformation
	StepReadPEB
	StepReadParameters
	StepReadCommandLine
	StepReadImagePath
	StepReadCurrentDirectory
)

func (s MetadataStep) String() string {
	switch s {
	case StepOpenProcess:
		return "open process"
	case StepModulePath:
		return "resolve module path"
	case StepQueryInformation:
		return "query process information"
	case StepReadPEB:
		return "read PEB"
	case StepReadParameters:
		return "read process parameters"
	case StepReadCommandLine:
		return "read command line"
	case StepReadImagePath:
		return "read image path"
	case StepReadCurrentDirectory:
		return "read current directory"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// MetadataError reports a failed metadata extraction step.
// Code holds the OS status when the backend supplied one, zero otherwise.
type MetadataError struct {
	PID  ProcessID
	Step MetadataStep
	Code uint32
	Err  error
}

func (e *MetadataError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("failed to %s of process (%d) (%d): %v", e.Step, e.PID, e.Code, e.Err)
	}
	return fmt.Sprintf("failed to %s of process (%d): %v", e.Step, e.PID, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// NewMetadataError builds a MetadataError, lifting the OS status out of err when present
func NewMetadataError(pid ProcessID, step MetadataStep, err error) *MetadataError {
	code, _ := ErrorCode(err)
	return &MetadataError{PID: pid, Step: step, Code: code, Err: err}
}

// SystemError carries the raw status of a failed OS primitive
type SystemError struct {
	Op   string
	Code uint32
	Err  error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s failed (%d): %v", e.Op, e.Code, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// ErrorCode extracts the OS status carried by err, if any
func ErrorCode(err error) (uint32, bool) {
	var se *SystemError
	if errors.As(err, &se) {
		return se.Code, true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno), true
	}

	return 0, false
}
