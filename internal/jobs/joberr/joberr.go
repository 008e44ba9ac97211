// Package joberr classifies the error taxonomy from spec §7: job-class
// errors are caught at the dispatcher boundary and turned into a
// terminal failed commit; everything else propagates and aborts the
// dispatcher.
package joberr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Compare with errors.Is, not ==, since job-class
// errors are usually wrapped with additional context.
var (
	// ErrConflict signals an optimistic-concurrency violation on commit.
	// Inside the core this is always a programming error: a claimed job
	// is only ever written by the runner that claimed it.
	ErrConflict = errors.New("job version conflict")

	// ErrJobVanished means commit re-read a job that no longer exists.
	// The original implementation treated this as an insert-on-absent
	// upsert (with a transcription bug, see DESIGN.md); since every job
	// in the core path was just claimed, a vanished row is a hard error.
	ErrJobVanished = errors.New("job vanished from queue during commit")

	// ErrControlNotFound signals "no control row exists yet" on read.
	// Upsert does not depend on it: it inserts or replaces the row in
	// one ON CONFLICT statement.
	ErrControlNotFound = errors.New("control row not found")
)

// JobClassError is the interface implemented by every error that should
// be converted into a terminal "failed" commit instead of aborting the
// dispatcher.
type JobClassError interface {
	error
	jobClass()
}

type jobClassErr struct {
	msg string
}

func (e *jobClassErr) Error() string { return e.msg }
func (e *jobClassErr) jobClass()     {}

// IsJobClass reports whether err (or anything it wraps) is a job-class
// error.
func IsJobClass(err error) bool {
	var jc JobClassError
	return errors.As(err, &jc)
}

func InvalidJobType(jobType string) error {
	return &jobClassErr{msg: fmt.Sprintf("invalid job type %q", jobType)}
}

func InvalidJobData(reason string) error {
	return &jobClassErr{msg: fmt.Sprintf("invalid job data: %s", reason)}
}

func MissingMetadataEntry(entryID string) error {
	return &jobClassErr{msg: fmt.Sprintf("no metadata entry for %q", entryID)}
}

func MalformedResultLine(reason string) error {
	return &jobClassErr{msg: fmt.Sprintf("malformed result line: %s", reason)}
}

func InvalidContainerName(name string) error {
	return &jobClassErr{msg: fmt.Sprintf("job id %q is not a valid container name", name)}
}
