package pathutil

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/fd"
	"github.com/spachava753/sysown/oserr"
)

// Chmod sets the permission bits of path.
func Chmod(path string, mode uint32) error {
	return FchmodAt(nil, path, mode)
}

// Fchmod sets the permission bits of the file open in h.
func Fchmod(h *fd.Handle, mode uint32) error {
	r, _, errno := unix.Syscall(unix.SYS_FCHMOD, uintptr(h.Fd()), uintptr(mode), 0)
	runtime.KeepAlive(h)
	if err := checkReturn("fchmod", r, errno); err != nil {
		return fdError("fchmod", h, err)
	}
	return nil
}

// FchmodAt sets the permission bits of path relative to dir. A nil dir
// means the current working directory.
func FchmodAt(dir *fd.Handle, path string, mode uint32) error {
	dirfd := unix.AT_FDCWD
	if dir != nil {
		dirfd = dir.Fd()
	}
	p, err := unix.BytePtrFromString(path)
	if err != nil {
		return pathError("fchmodat", path, err)
	}
	r, _, errno := unix.Syscall6(unix.SYS_FCHMODAT, uintptr(dirfd), uintptr(unsafe.Pointer(p)), uintptr(mode), 0, 0, 0)
	runtime.KeepAlive(dir)
	if err := checkReturn("fchmodat", r, errno); err != nil {
		return pathError("fchmodat", path, err)
	}
	return nil
}

// checkReturn turns a raw result into an error. A success that is not 0
// breaks the syscall contract and panics.
func checkReturn(op string, r uintptr, errno unix.Errno) error {
	if errno != 0 {
		return oserr.FromCode(errno)
	}
	if r != 0 {
		panic(fmt.Sprintf("pathutil: %s returned %d, which is neither 0 nor a failure", op, r))
	}
	return nil
}
