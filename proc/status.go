package proc

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// WaitStatus is the packed status word reported by wait.
type WaitStatus uint32

// statusLayout describes how a platform packs the status word. All
// supported platforms use the POSIX baseline below; a platform that
// deviates gets its own value instead of branches in the decoders.
type statusLayout struct {
	sigMask   uint32 // terminating signal, 0 for a normal exit
	stopped   uint32 // low byte value marking a stopped child
	core      uint32 // core-dump flag
	codeShift uint   // exit code or stop signal position
	continued uint32 // whole word reported for WCONTINUED
}

var layout = statusLayout{
	sigMask:   0x7f,
	stopped:   0x7f,
	core:      0x80,
	codeShift: 8,
	continued: 0xffff,
}

func (s WaitStatus) low() uint32  { return uint32(s) & layout.sigMask }
func (s WaitStatus) high() uint32 { return (uint32(s) >> layout.codeShift) & 0xff }

// Exited reports whether the child terminated normally.
func (s WaitStatus) Exited() bool {
	return s.low() == 0
}

// ExitCode returns the exit code, or -1 if the child did not exit normally.
func (s WaitStatus) ExitCode() int {
	if !s.Exited() {
		return -1
	}
	return int(s.high())
}

// Signaled reports whether the child was terminated by a signal.
func (s WaitStatus) Signaled() bool {
	low := s.low()
	return low != 0 && low != layout.stopped
}

// Signal returns the terminating signal, or -1 if there is none.
func (s WaitStatus) Signal() unix.Signal {
	if !s.Signaled() {
		return -1
	}
	return unix.Signal(s.low())
}

// CoreDump reports whether a signaled child dumped core.
func (s WaitStatus) CoreDump() bool {
	return s.Signaled() && uint32(s)&layout.core != 0
}

// Stopped reports whether the child is stopped rather than terminated.
func (s WaitStatus) Stopped() bool {
	return uint32(s)&0xff == layout.stopped
}

// StopSignal returns the signal that stopped the child, or -1.
func (s WaitStatus) StopSignal() unix.Signal {
	if !s.Stopped() {
		return -1
	}
	return unix.Signal(s.high())
}

// Continued reports whether the child was resumed by SIGCONT.
func (s WaitStatus) Continued() bool {
	return uint32(s) == layout.continued
}

func (s WaitStatus) String() string {
	switch {
	case s.Continued():
		return "continued"
	case s.Exited():
		return "exit status " + strconv.Itoa(s.ExitCode())
	case s.Stopped():
		return "stopped: " + signalName(s.StopSignal())
	case s.Signaled():
		if s.CoreDump() {
			return "signal: " + signalName(s.Signal()) + " (core dumped)"
		}
		return "signal: " + signalName(s.Signal())
	}
	return "status " + strconv.FormatUint(uint64(s), 16)
}

func signalName(sig unix.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return "signal " + strconv.Itoa(int(sig))
}
