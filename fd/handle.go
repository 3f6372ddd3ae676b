package fd

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// none marks an empty descriptor slot.
const none = -1

// Handle wraps a raw descriptor. The zero value is not usable; construct
// Handles with New, FromBorrowed, Open or Pipe.
//
// A Handle must not be used from two goroutines at once without external
// synchronization. Clone and RedirectFrom are the ways to share the
// underlying kernel object between independent Handles.
type Handle struct {
	raw   int
	owned bool
}

// New takes ownership of raw. The returned Handle closes it on Close, or
// when it becomes unreachable if Close was never called.
func New(raw int) *Handle {
	h := &Handle{raw: raw, owned: true}
	runtime.SetFinalizer(h, (*Handle).finalize)
	return h
}

// FromBorrowed wraps a descriptor owned elsewhere. The Handle never closes
// raw; the caller guarantees raw stays open for as long as the Handle is
// used.
func FromBorrowed(raw int) *Handle {
	return &Handle{raw: raw}
}

// WrapBorrowed runs body with a borrowed Handle over raw and detaches the
// Handle afterwards, also when body panics.
func WrapBorrowed[T any](raw int, body func(*Handle) (T, error)) (T, error) {
	h := FromBorrowed(raw)
	defer h.Detach()
	return body(h)
}

func (h *Handle) finalize() {
	if h.raw != none && h.owned {
		unix.Close(h.raw)
	}
	h.raw = none
}

// Fd returns the raw descriptor, or -1 once the Handle is closed or
// detached. The Handle keeps ownership.
func (h *Handle) Fd() int {
	return h.raw
}

// Owned reports whether the Handle is responsible for closing its
// descriptor.
func (h *Handle) Owned() bool {
	return h.owned
}

// Detach empties the slot without closing it and returns the descriptor.
// After Detach the caller is responsible for the descriptor. A nil Handle
// detaches to -1.
func (h *Handle) Detach() int {
	if h == nil {
		return none
	}
	raw := h.raw
	h.raw = none
	runtime.SetFinalizer(h, nil)
	return raw
}

// Close closes an owned descriptor. The slot is emptied whatever the
// outcome: a failed close is never retried, since the number may already
// belong to another descriptor. Closing a borrowed Handle only detaches it.
// Calling Close again is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.raw == none {
		return nil
	}
	raw := h.Detach()
	if !h.owned {
		return nil
	}
	if err := unix.Close(raw); err != nil {
		return opError("close", raw, err)
	}
	return nil
}

// Clone duplicates the descriptor. The new owned Handle has its own
// descriptor table entry and shares the open file with h.
func (h *Handle) Clone() (*Handle, error) {
	raw, err := unix.Dup(h.raw)
	runtime.KeepAlive(h)
	if err != nil {
		return nil, opError("dup", h.raw, err)
	}
	return New(raw), nil
}

// RedirectFrom makes h's descriptor number refer to the same open file as
// source. Whatever h referred to before is closed by the kernel as part of
// the duplication.
func (h *Handle) RedirectFrom(source *Handle) error {
	got, err := dup2(source.raw, h.raw)
	runtime.KeepAlive(source)
	if err != nil {
		return opError("dup2", h.raw, err)
	}
	if got != h.raw {
		panic(fmt.Sprintf("fd: dup2 returned %d, which is neither a failure nor %d", got, h.raw))
	}
	return nil
}

// Fcntl issues fcntl(cmd, arg) on the descriptor.
func (h *Handle) Fcntl(cmd, arg int) (int, error) {
	v, err := unix.FcntlInt(uintptr(h.raw), cmd, arg)
	runtime.KeepAlive(h)
	if err != nil {
		return 0, opError("fcntl", h.raw, err)
	}
	return v, nil
}

// SetNonBlocking toggles O_NONBLOCK. The flags are only written back when
// they change.
func (h *Handle) SetNonBlocking(nonblocking bool) error {
	flags, err := h.Fcntl(unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	target := flags &^ unix.O_NONBLOCK
	if nonblocking {
		target |= unix.O_NONBLOCK
	}
	if target == flags {
		return nil
	}
	_, err = h.Fcntl(unix.F_SETFL, target)
	return err
}

// IsTerminal reports whether the descriptor refers to a terminal.
func (h *Handle) IsTerminal() bool {
	ok := term.IsTerminal(h.raw)
	runtime.KeepAlive(h)
	return ok
}

// Stat returns the descriptor's file status.
func (h *Handle) Stat() (unix.Stat_t, error) {
	var st unix.Stat_t
	err := unix.Fstat(h.raw, &st)
	runtime.KeepAlive(h)
	if err != nil {
		return st, opError("fstat", h.raw, err)
	}
	return st, nil
}

func (h *Handle) String() string {
	mode := "owned"
	if !h.owned {
		mode = "borrowed"
	}
	if h.raw == none {
		return "fd(closed)"
	}
	return fmt.Sprintf("fd(%d, %s)", h.raw, mode)
}
