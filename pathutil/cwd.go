package pathutil

import (
	"bytes"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/fd"
	"github.com/spachava753/sysown/oserr"
)

const initialCwdBuffer = 100

// Chdir changes the working directory of the whole process.
func Chdir(path string) error {
	if err := unix.Chdir(path); err != nil {
		return pathError("chdir", path, err)
	}
	return nil
}

// Fchdir changes the working directory to the directory open in dir.
func Fchdir(dir *fd.Handle) error {
	err := unix.Fchdir(dir.Fd())
	runtime.KeepAlive(dir)
	if err != nil {
		return fdError("fchdir", dir, err)
	}
	return nil
}

// Getwd returns the working directory as the kernel reports it. The buffer
// starts small and doubles while the kernel answers ERANGE.
func Getwd() (string, error) {
	buf := make([]byte, initialCwdBuffer)
	for {
		_, err := unix.Getcwd(buf)
		if err == unix.ERANGE {
			buf = make([]byte, 2*len(buf))
			continue
		}
		if err != nil {
			return "", pathError("getcwd", "", err)
		}
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			buf = buf[:i]
		}
		return string(buf), nil
	}
}

func pathError(op, path string, err error) *fd.OpError {
	return &fd.OpError{Op: op, Fd: -1, Path: path, Err: oserr.Capture(err)}
}

func fdError(op string, h *fd.Handle, err error) *fd.OpError {
	return &fd.OpError{Op: op, Fd: h.Fd(), Err: oserr.Capture(err)}
}
