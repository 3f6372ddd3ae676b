//go:build !linux

package proc

import "golang.org/x/sys/unix"

func dup2(from, to int) unix.Errno {
	_, _, errno := unix.RawSyscall(unix.SYS_DUP2, uintptr(from), uintptr(to), 0)
	return errno
}
