package fd

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Flags accepted by Pipe2.
const (
	PipeCloexec  = unix.O_CLOEXEC
	PipeNonblock = unix.O_NONBLOCK
)

// PipeEnds is the pair of owned Handles created by one pipe call.
type PipeEnds struct {
	Read  *Handle
	Write *Handle
}

// Pipe creates a pipe.
func Pipe() (*PipeEnds, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, opError("pipe", none, err)
	}
	return FromRaw(p[0], p[1]), nil
}

// Pipe2 creates a pipe with flags applied to both ends.
func Pipe2(flags int) (*PipeEnds, error) {
	p, err := pipe2(flags)
	if err != nil {
		return nil, opError("pipe2", none, err)
	}
	return FromRaw(p[0], p[1]), nil
}

// FromRaw takes ownership of an existing pair of pipe descriptors.
func FromRaw(r, w int) *PipeEnds {
	return &PipeEnds{Read: New(r), Write: New(w)}
}

// KeepWrite consumes the pair: the read end is closed and the write end is
// returned.
func (p *PipeEnds) KeepWrite() *Handle {
	w := p.Write
	p.Read.Close()
	p.Read, p.Write = nil, nil
	return w
}

// KeepRead consumes the pair: the write end is closed and the read end is
// returned.
func (p *PipeEnds) KeepRead() *Handle {
	r := p.Read
	p.Write.Close()
	p.Read, p.Write = nil, nil
	return r
}

// Detach releases both ends without closing them. An end already handed
// out by KeepRead or KeepWrite reports -1.
func (p *PipeEnds) Detach() (r, w int) {
	return p.Read.Detach(), p.Write.Detach()
}

// Close closes whichever ends are still held.
func (p *PipeEnds) Close() error {
	return errors.Join(p.Read.Close(), p.Write.Close())
}
