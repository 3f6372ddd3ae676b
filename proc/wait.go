package proc

import (
	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/oserr"
)

// Options for WaitPid.
const (
	// NoHang returns immediately when no child has changed state.
	NoHang = unix.WNOHANG
	// Untraced also reports stopped children.
	Untraced = unix.WUNTRACED
	// Continued also reports children resumed by SIGCONT.
	Continued = unix.WCONTINUED
)

// Waited is the outcome of a successful wait: the reporting child and its
// status word. With NoHang and no state change, Pid is 0.
type Waited struct {
	Pid    int
	Status WaitStatus
}

// Wait waits for any child.
func Wait() (Waited, error) {
	return WaitPid(-1, 0)
}

// WaitPid waits for the child pid, or as selected by waitpid(2) for pid
// values <= 0. An interrupted wait is reported, not retried.
func WaitPid(pid int, options int) (Waited, error) {
	var ws unix.WaitStatus
	got, err := unix.Wait4(pid, &ws, options, nil)
	if err != nil {
		return Waited{}, oserr.Capture(err)
	}
	return Waited{Pid: got, Status: WaitStatus(ws)}, nil
}
