package fd

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/oserr"
)

// Open opens path with flags (unix.O_RDONLY, unix.O_WRONLY, ...). It issues
// a single open syscall and never retries.
func Open(path string, flags int) (*Handle, error) {
	return OpenMode(path, flags, 0)
}

// OpenMode is Open with the permission bits used when flags include
// O_CREAT or O_TMPFILE.
func OpenMode(path string, flags int, mode uint32) (*Handle, error) {
	raw, err := unix.Open(path, flags, mode)
	if err != nil {
		return nil, pathError("open", path, err)
	}
	return New(raw), nil
}

// OpenAt opens path relative to the directory dir. A nil dir means the
// current working directory.
func OpenAt(dir *Handle, path string, flags int, mode uint32) (*Handle, error) {
	dirfd := unix.AT_FDCWD
	if dir != nil {
		dirfd = dir.raw
	}
	raw, err := unix.Openat(dirfd, path, flags, mode)
	runtime.KeepAlive(dir)
	if err != nil {
		return nil, pathError("openat", path, err)
	}
	return New(raw), nil
}

// Create is creat(2): open for writing, creating or truncating path.
func Create(path string, mode uint32) (*Handle, error) {
	raw, err := unix.Open(path, unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC, mode)
	if err != nil {
		return nil, pathError("create", path, err)
	}
	return New(raw), nil
}

func pathError(op, path string, err error) *OpError {
	return &OpError{Op: op, Fd: none, Path: path, Err: oserr.Capture(err)}
}
