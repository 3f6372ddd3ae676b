package fd

import "golang.org/x/sys/unix"

// dup2 returns the descriptor the kernel reported. Linux is driven through
// dup3, the only variant on every architecture; dup3 rejects equal
// descriptors where dup2 validates oldfd and succeeds, so that case is
// handled with F_GETFL. Both paths are raw syscalls so that RedirectFrom
// stays usable in a forked child.
func dup2(oldfd, newfd int) (int, error) {
	if oldfd == newfd {
		_, _, errno := unix.RawSyscall(unix.SYS_FCNTL, uintptr(oldfd), unix.F_GETFL, 0)
		if errno != 0 {
			return -1, errno
		}
		return newfd, nil
	}
	r, _, errno := unix.RawSyscall(unix.SYS_DUP3, uintptr(oldfd), uintptr(newfd), 0)
	if errno != 0 {
		return -1, errno
	}
	return int(r), nil
}
