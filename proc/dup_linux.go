package proc

import "golang.org/x/sys/unix"

// dup2 goes through dup3, which every Linux architecture provides.
func dup2(from, to int) unix.Errno {
	_, _, errno := unix.RawSyscall(unix.SYS_DUP3, uintptr(from), uintptr(to), 0)
	return errno
}
