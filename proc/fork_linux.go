//go:build linux && !s390x

package proc

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/oserr"
)

// Fork duplicates the calling process. It is issued as clone(SIGCHLD),
// which behaves as fork(2) on every Linux architecture, including those
// without a fork syscall.
//
// The parent holds syscall.ForkLock across the call so that no descriptor
// is half-created while the process is copied. The lock is not released in
// the child: the child must Exec or Exit.
func Fork() (ForkResult, error) {
	syscall.ForkLock.Lock()
	pid, _, errno := unix.RawSyscall6(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0, 0, 0, 0)
	if errno == 0 && pid == 0 {
		return ForkResult{child: true}, nil
	}
	syscall.ForkLock.Unlock()
	if errno != 0 {
		return ForkResult{}, oserr.FromCode(errno)
	}
	return ForkResult{pid: int(pid)}, nil
}
