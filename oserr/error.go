package oserr

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// ErrRender is returned by Render when the OS message for a code is not
// usable text. It is a rendering failure, not an OS condition.
var ErrRender = errors.New("oserr: message is not valid text")

// Error is an OS error condition: a named Kind, or Unknown with the exact
// numeric code. Error values are immutable and comparable.
type Error struct {
	kind Kind
	code unix.Errno
}

// FromCode decodes a numeric OS code. Codes without a named kind produce an
// Unknown Error carrying code unchanged.
func FromCode(code unix.Errno) Error {
	if kind, ok := byCode[code]; ok {
		return Error{kind: kind, code: code}
	}
	return Error{kind: Unknown, code: code}
}

// ToCode is the inverse of FromCode.
func ToCode(e Error) unix.Errno {
	return e.code
}

// New returns the Error for a named kind with its canonical code.
func New(kind Kind) Error {
	return Error{kind: kind, code: kind.Code()}
}

// Capture converts the error returned by a failing syscall wrapper. It must
// be called on the failure path of that same call. err must be the errno the
// call returned; anything else means the caller broke the capture protocol.
func Capture(err error) Error {
	if err == nil {
		panic("oserr: Capture called without a failure")
	}
	var e Error
	if errors.As(err, &e) {
		return e
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return FromCode(errno)
	}
	panic(fmt.Sprintf("oserr: Capture called with non-errno error %T: %v", err, err))
}

// Render returns the OS's message text for e. It supports any code, named
// or not.
func Render(e Error) (string, error) {
	msg := e.code.Error()
	if msg == "" || !utf8.ValidString(msg) {
		return "", ErrRender
	}
	return msg, nil
}

// Kind returns the named kind, or Unknown.
func (e Error) Kind() Kind { return e.kind }

// Code returns the numeric OS code.
func (e Error) Code() unix.Errno { return e.code }

func (e Error) Error() string {
	msg, err := Render(e)
	if err != nil {
		return fmt.Sprintf("errno %d", int(e.code))
	}
	return msg
}

// Unwrap exposes the raw errno so that io/fs sentinels match.
func (e Error) Unwrap() error {
	return e.code
}

// Is reports whether target names the same condition: a Kind, a raw errno
// or another Error with the same code.
func (e Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		// Aliased names (EAGAIN/EWOULDBLOCK) match each other.
		return t != Unknown && (t == e.kind || t.Code() == e.code)
	case Error:
		return t.code == e.code
	case unix.Errno:
		return t == e.code
	}
	return false
}

// Temporary reports whether retrying the operation may succeed.
func (e Error) Temporary() bool {
	switch e.kind {
	case Again, WouldBlock, Interrupted:
		return true
	}
	return false
}
