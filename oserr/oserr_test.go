package oserr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/nalgeon/be"
	"golang.org/x/sys/unix"
)

func TestRoundTripNamedCodes(t *testing.T) {
	for _, kind := range Kinds() {
		code := kind.Code()
		be.True(t, code != 0)
		be.Equal(t, ToCode(FromCode(code)), code)
	}
}

func TestFromCodeNamed(t *testing.T) {
	be.Equal(t, FromCode(unix.ENOENT).Kind(), NotFound)
	be.Equal(t, FromCode(unix.EACCES).Kind(), AccessDenied)
	be.Equal(t, FromCode(unix.EPIPE).Kind(), BrokenPipe)
	be.Equal(t, FromCode(unix.EINTR).Kind(), Interrupted)
	be.Equal(t, FromCode(unix.E2BIG).Kind(), ArgListTooLong)
}

func TestAliasedCodesDecodeToFirstKind(t *testing.T) {
	if unix.EAGAIN != unix.EWOULDBLOCK {
		t.Skip("EAGAIN and EWOULDBLOCK are distinct on this platform")
	}
	e := FromCode(unix.EWOULDBLOCK)
	be.Equal(t, e.Kind(), Again)
	be.True(t, errors.Is(e, WouldBlock))
	be.True(t, errors.Is(e, Again))
}

func TestUnknownCodeIsLossless(t *testing.T) {
	for _, code := range []unix.Errno{0, 4095, 9999, unix.Errno(1 << 20)} {
		if _, named := byCode[code]; named {
			continue
		}
		e := FromCode(code)
		be.Equal(t, e.Kind(), Unknown)
		be.Equal(t, ToCode(e), code)
	}
}

func TestNewUsesCanonicalCode(t *testing.T) {
	e := New(NoChild)
	be.Equal(t, e.Code(), unix.ECHILD)
	be.Equal(t, e, FromCode(unix.ECHILD))
}

func TestCapture(t *testing.T) {
	e := Capture(unix.EBADF)
	be.Equal(t, e.Kind(), BadDescriptor)

	wrapped := fmt.Errorf("read: %w", unix.EIO)
	be.Equal(t, Capture(wrapped).Kind(), IO)

	// Already-translated values pass through.
	be.Equal(t, Capture(New(NoSpace)), New(NoSpace))
}

func TestCapturePanicsOnProtocolViolation(t *testing.T) {
	for name, err := range map[string]error{
		"nil":       nil,
		"non-errno": errors.New("not an errno"),
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				be.True(t, recover() != nil)
			}()
			Capture(err)
		})
	}
}

func TestRenderKnownRange(t *testing.T) {
	for code := unix.Errno(1); code < 134; code++ {
		msg, err := Render(FromCode(code))
		be.Err(t, err, nil)
		be.True(t, msg != "")
	}
}

func TestRenderMatchesOS(t *testing.T) {
	msg, err := Render(New(NotFound))
	be.Err(t, err, nil)
	be.Equal(t, msg, unix.ENOENT.Error())
}

func TestErrorsIs(t *testing.T) {
	var err error = fmt.Errorf("open: %w", FromCode(unix.ENOENT))
	be.True(t, errors.Is(err, NotFound))
	be.True(t, errors.Is(err, unix.ENOENT))
	be.True(t, errors.Is(err, fs.ErrNotExist))
	be.True(t, !errors.Is(err, AccessDenied))
	be.True(t, !errors.Is(err, Unknown))

	var e Error
	be.True(t, errors.As(err, &e))
	be.Equal(t, e.Kind(), NotFound)
}

func TestKindString(t *testing.T) {
	be.Equal(t, NotFound.String(), "ENOENT")
	be.Equal(t, BrokenPipe.String(), "EPIPE")
	be.Equal(t, Unknown.String(), "UNKNOWN")
}

func TestTemporary(t *testing.T) {
	be.True(t, New(Interrupted).Temporary())
	be.True(t, New(Again).Temporary())
	be.True(t, !New(IO).Temporary())
}
