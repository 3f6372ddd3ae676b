package fd

import (
	"errors"
	"io/fs"
	"strconv"

	"github.com/spachava753/sysown/oserr"
)

var (
	// ErrWouldBlock is the class of a non-blocking operation that could not
	// make progress. Retry after the descriptor becomes ready.
	ErrWouldBlock = errors.New("fd: operation would block")

	// ErrInterrupted is the class of an operation interrupted by a signal
	// before any data was transferred. The caller may retry.
	ErrInterrupted = errors.New("fd: interrupted")

	// ErrNotConnected is the class of a write to a socket without a peer.
	ErrNotConnected = errors.New("fd: not connected")

	// ErrBrokenPipe is the class of a write whose reading side is gone.
	ErrBrokenPipe = errors.New("fd: broken pipe")

	// ErrPermission is the class of faulting or unpermitted transfers.
	ErrPermission = fs.ErrPermission
)

// OpError records a failed descriptor operation. Err is the captured OS
// condition; Class, when set, is one of the sentinels above.
type OpError struct {
	Op    string
	Fd    int
	Path  string
	Class error
	Err   oserr.Error
}

func (e *OpError) Error() string {
	s := "fd: " + e.Op
	switch {
	case e.Path != "":
		s += " " + e.Path
	case e.Fd >= 0:
		s += " " + strconv.Itoa(e.Fd)
	}
	return s + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() []error {
	if e.Class != nil {
		return []error{e.Class, e.Err}
	}
	return []error{e.Err}
}

// Temporary reports whether the operation may succeed if retried.
func (e *OpError) Temporary() bool {
	return e.Err.Temporary()
}

func opError(op string, raw int, err error) *OpError {
	return &OpError{Op: op, Fd: raw, Err: oserr.Capture(err)}
}

func readError(raw int, err error) *OpError {
	e := opError("read", raw, err)
	switch e.Err.Kind() {
	case oserr.Again, oserr.WouldBlock:
		e.Class = ErrWouldBlock
	case oserr.Interrupted:
		e.Class = ErrInterrupted
	case oserr.BadAddress:
		e.Class = ErrPermission
	}
	return e
}

func writeError(raw int, err error) *OpError {
	e := opError("write", raw, err)
	switch e.Err.Kind() {
	case oserr.Again, oserr.WouldBlock:
		e.Class = ErrWouldBlock
	case oserr.DestinationRequired:
		e.Class = ErrNotConnected
	case oserr.BadAddress, oserr.NotPermitted:
		e.Class = ErrPermission
	case oserr.Interrupted:
		e.Class = ErrInterrupted
	case oserr.BrokenPipe:
		e.Class = ErrBrokenPipe
	}
	return e
}
