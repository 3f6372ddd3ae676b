package proc

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/oserr"
)

const (
	defaultPath = "/bin:/usr/bin"
	shellPath   = "/bin/sh"
)

// Image is a program marshaled for execve: NUL-terminated path, argument
// and environment arrays ready to hand to the kernel. ExecErrno performs no
// allocation, so an Image prepared before Fork can be executed in the
// child.
type Image struct {
	paths     []*byte
	argv      []*byte
	envv      []*byte
	dir       *byte
	redirects []redirect

	// search enables execvp semantics: try each path in turn and fall back
	// to the shell for files without a recognised executable format.
	search    bool
	shell     *byte
	shellArgv [][]*byte
}

// Prepare marshals path, argv and env for execve. A string containing a NUL
// byte is rejected with oserr.Invalid.
func Prepare(path string, argv, env []string) (*Image, error) {
	p, err := unix.BytePtrFromString(path)
	if err != nil {
		return nil, oserr.Capture(err)
	}
	img := &Image{paths: []*byte{p}}
	if err := img.marshal(argv, env); err != nil {
		return nil, err
	}
	return img, nil
}

// PrepareSearch marshals a program the way execvp looks it up. A file
// containing a slash is used as is; otherwise each directory of the
// calling process's PATH is tried in order, /bin:/usr/bin when PATH is
// unset. An empty PATH entry means the current directory.
func PrepareSearch(file string, argv, env []string) (*Image, error) {
	if file == "" {
		return nil, oserr.New(oserr.NotFound)
	}
	var candidates []string
	if strings.Contains(file, "/") {
		candidates = []string{file}
	} else {
		searchPath, ok := os.LookupEnv("PATH")
		if !ok {
			searchPath = defaultPath
		}
		for _, dir := range strings.Split(searchPath, ":") {
			if dir == "" {
				candidates = append(candidates, file)
				continue
			}
			candidates = append(candidates, strings.TrimSuffix(dir, "/")+"/"+file)
		}
	}

	img := &Image{search: true}
	for _, c := range candidates {
		p, err := unix.BytePtrFromString(c)
		if err != nil {
			return nil, oserr.Capture(err)
		}
		img.paths = append(img.paths, p)
	}
	if err := img.marshal(argv, env); err != nil {
		return nil, err
	}

	shell, err := unix.BytePtrFromString(shellPath)
	if err != nil {
		return nil, oserr.Capture(err)
	}
	img.shell = shell
	rest := []*byte{nil}
	if len(img.argv) > 1 {
		rest = img.argv[1:]
	}
	for _, p := range img.paths {
		shArgv := make([]*byte, 0, len(rest)+2)
		shArgv = append(shArgv, shell, p)
		img.shellArgv = append(img.shellArgv, append(shArgv, rest...))
	}
	return img, nil
}

func (img *Image) marshal(argv, env []string) error {
	a, err := nulTerminated(argv)
	if err != nil {
		return err
	}
	e, err := nulTerminated(env)
	if err != nil {
		return err
	}
	img.argv, img.envv = a, e
	return nil
}

// nulTerminated converts ss to the NULL-terminated pointer array execve
// expects. An empty ss yields a single nil entry.
func nulTerminated(ss []string) ([]*byte, error) {
	out := make([]*byte, 0, len(ss)+1)
	for _, s := range ss {
		p, err := unix.BytePtrFromString(s)
		if err != nil {
			return nil, oserr.Capture(err)
		}
		out = append(out, p)
	}
	return append(out, nil), nil
}

// SetDir makes Exec change to dir before replacing the image.
func (img *Image) SetDir(dir string) error {
	if dir == "" {
		img.dir = nil
		return nil
	}
	p, err := unix.BytePtrFromString(dir)
	if err != nil {
		return oserr.Capture(err)
	}
	img.dir = p
	return nil
}

type redirect struct {
	from, to int
}

// Redirect makes Exec duplicate descriptor from onto number to before the
// program starts. The duplicate does not carry close-on-exec, also when
// from equals to. Redirects apply in the order they were added.
func (img *Image) Redirect(from, to int) {
	img.redirects = append(img.redirects, redirect{from: from, to: to})
}

// Exec replaces the calling process with img. It never returns on success,
// so the returned error is never nil.
func (img *Image) Exec() error {
	return oserr.FromCode(img.ExecErrno())
}

// ExecErrno is Exec for a fork child: it applies the redirects, changes
// directory and replaces the process, returning the raw errno of whatever
// failed. It does not allocate.
func (img *Image) ExecErrno() unix.Errno {
	for _, r := range img.redirects {
		if errno := dupTo(r.from, r.to); errno != 0 {
			return errno
		}
	}
	if img.dir != nil {
		_, _, errno := unix.RawSyscall(unix.SYS_CHDIR, uintptr(unsafe.Pointer(img.dir)), 0, 0)
		if errno != 0 {
			return errno
		}
	}
	if !img.search {
		return execve(img.paths[0], img.argv, img.envv)
	}

	sawAccess := false
	for i, path := range img.paths {
		errno := execve(path, img.argv, img.envv)
		switch errno {
		case unix.ENOEXEC:
			return execve(img.shell, img.shellArgv[i], img.envv)
		case unix.EACCES:
			sawAccess = true
		case unix.ENOENT, unix.ENOTDIR, unix.ESTALE, unix.ENODEV, unix.ETIMEDOUT:
		default:
			return errno
		}
	}
	if sawAccess {
		return unix.EACCES
	}
	return unix.ENOENT
}

// dupTo duplicates from onto to. Equal numbers only drop close-on-exec.
func dupTo(from, to int) unix.Errno {
	if from == to {
		_, _, errno := unix.RawSyscall(unix.SYS_FCNTL, uintptr(to), unix.F_SETFD, 0)
		return errno
	}
	return dup2(from, to)
}

// execve returns only on failure. A return without an errno means the
// kernel broke the execve contract, which is not a recoverable condition.
func execve(path *byte, argv, envv []*byte) unix.Errno {
	r, _, errno := unix.RawSyscall(unix.SYS_EXECVE,
		uintptr(unsafe.Pointer(path)),
		uintptr(unsafe.Pointer(&argv[0])),
		uintptr(unsafe.Pointer(&envv[0])))
	if errno == 0 {
		panic(fmt.Sprintf("proc: execve returned %d without an error", r))
	}
	return errno
}

// Exec replaces the process with path, keeping the current environment.
func Exec(path string, argv []string) error {
	return ExecEnv(path, argv, os.Environ())
}

// ExecEnv replaces the process with path running in env.
func ExecEnv(path string, argv, env []string) error {
	img, err := Prepare(path, argv, env)
	if err != nil {
		return err
	}
	return img.Exec()
}

// ExecPath looks file up like execvp and keeps the current environment.
func ExecPath(file string, argv []string) error {
	return ExecPathEnv(file, argv, os.Environ())
}

// ExecPathEnv looks file up like execvpe and runs it in env. The lookup
// uses the calling process's PATH, not the one in env.
func ExecPathEnv(file string, argv, env []string) error {
	img, err := PrepareSearch(file, argv, env)
	if err != nil {
		return err
	}
	return img.Exec()
}
