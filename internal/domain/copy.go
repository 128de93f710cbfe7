package domain

import (
	"syscall"
	"time"
)

// CopyRequest is one source to destination transfer inside a batch.
// It is immutable once handed to the orchestrator.
type CopyRequest struct {
	// Source and Destination are root:// URLs
	Source      string
	Destination string

	// Replace overwrites an existing destination
	Replace bool

	// SourceSpaceToken and DestSpaceToken are placement hints
	SourceSpaceToken string
	DestSpaceToken   string

	// VerifyChecksum enables end-to-end checksum validation
	VerifyChecksum bool

	// Checksum is "TYPE:value"; either side may be empty
	Checksum string

	// Timeout bounds the third-party copy, zero means engine default
	Timeout time.Duration
}

// CopyOutcome is the per-file result of a batch run
type CopyOutcome struct {
	Index       int
	Source      string
	Destination string
	OK          bool
	ErrNo       int
	Message     string
}

// Status is the terminal state of an engine call or job. A failed status
// with a zero ErrNo is reported as EIO.
type Status struct {
	OK      bool
	ErrNo   int
	Message string
}

// StatusOK is the successful status
var StatusOK = Status{OK: true}

// String renders the status the way lifecycle events show it
func (s Status) String() string {
	if s.OK {
		return "[SUCCESS]"
	}
	if s.Message == "" {
		return "[ERROR]"
	}
	return "[ERROR] " + s.Message
}

// Errno translates the engine error number into a POSIX errno
func (s Status) Errno() syscall.Errno {
	if s.OK {
		return 0
	}
	return ErrnoFromXrootd(s.ErrNo)
}

// JobResult is the per-job record an engine fills in during a run
type JobResult struct {
	Status Status

	// RealTarget is set when the destination redirected the copy
	RealTarget string
}
