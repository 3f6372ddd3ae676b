//go:build linux || freebsd || netbsd || openbsd || dragonfly || solaris || illumos

package fd

import "golang.org/x/sys/unix"

func pipe2(flags int) ([2]int, error) {
	var p [2]int
	err := unix.Pipe2(p[:], flags)
	return p, err
}
