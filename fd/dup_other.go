//go:build !linux

package fd

import "golang.org/x/sys/unix"

func dup2(oldfd, newfd int) (int, error) {
	if err := unix.Dup2(oldfd, newfd); err != nil {
		return -1, err
	}
	return newfd, nil
}
