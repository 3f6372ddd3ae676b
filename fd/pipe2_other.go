//go:build !(linux || freebsd || netbsd || openbsd || dragonfly || solaris || illumos)

package fd

import "golang.org/x/sys/unix"

// pipe2 is emulated with pipe and fcntl. Unlike the real call the flags are
// not applied atomically.
func pipe2(flags int) ([2]int, error) {
	var p [2]int
	if flags&^(unix.O_CLOEXEC|unix.O_NONBLOCK) != 0 {
		return p, unix.EINVAL
	}
	if err := unix.Pipe(p[:]); err != nil {
		return p, err
	}
	for _, raw := range p {
		if flags&unix.O_CLOEXEC != 0 {
			unix.CloseOnExec(raw)
		}
		if flags&unix.O_NONBLOCK != 0 {
			if err := unix.SetNonblock(raw, true); err != nil {
				unix.Close(p[0])
				unix.Close(p[1])
				return p, err
			}
		}
	}
	return p, nil
}
