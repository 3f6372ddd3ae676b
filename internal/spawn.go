package internal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/fd"
	"github.com/spachava753/sysown/oserr"
	"github.com/spachava753/sysown/proc"
)

// spawnRequest describes a child to start. file is looked up in PATH.
type spawnRequest struct {
	file    string
	argv    []string
	env     []string
	dir     string
	capture bool
}

// spawned holds the parent's ends of a started child's standard streams.
// stdout and stderr are nil when output is not captured.
type spawned struct {
	pid    int
	stdin  *fd.Handle
	stdout *fd.Handle
	stderr *fd.Handle
}

// spawn starts a child with fork and exec. Every pipe is close-on-exec, so
// the only descriptors the program inherits are the three redirected
// streams. A status pipe reports exec failures: the child writes the errno
// and exits 127, while a successful exec closes the pipe unwritten.
func spawn(req spawnRequest) (*spawned, error) {
	img, err := proc.PrepareSearch(req.file, req.argv, req.env)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", req.file, err)
	}
	if err := img.SetDir(req.dir); err != nil {
		return nil, fmt.Errorf("working directory %s: %w", req.dir, err)
	}

	var opened []*fd.PipeEnds
	release := func() {
		for _, p := range opened {
			p.Close()
		}
	}
	pipe := func() (*fd.PipeEnds, error) {
		p, err := fd.Pipe2(fd.PipeCloexec)
		if err != nil {
			return nil, fmt.Errorf("create pipe: %w", err)
		}
		opened = append(opened, p)
		return p, nil
	}

	stdin, err := pipe()
	if err != nil {
		release()
		return nil, err
	}
	status, err := pipe()
	if err != nil {
		release()
		return nil, err
	}
	// Without capture the child writes to /dev/null.
	var stdout, stderr *fd.PipeEnds
	var outSink, errSink *fd.Handle
	if req.capture {
		if stdout, err = pipe(); err != nil {
			release()
			return nil, err
		}
		if stderr, err = pipe(); err != nil {
			release()
			return nil, err
		}
		outSink, errSink = stdout.Write, stderr.Write
	} else {
		null, err := fd.Open("/dev/null", unix.O_RDWR|unix.O_CLOEXEC)
		if err != nil {
			release()
			return nil, err
		}
		defer null.Close()
		outSink, errSink = null, null
	}

	// Everything the child touches is allocated here, before the fork.
	img.Redirect(stdin.Read.Fd(), fd.StdinFd)
	img.Redirect(outSink.Fd(), fd.StdoutFd)
	img.Redirect(errSink.Fd(), fd.StderrFd)
	report := make([]byte, 4)

	res, err := proc.Fork()
	if err != nil {
		release()
		return nil, fmt.Errorf("fork: %w", err)
	}
	if res.IsChild() {
		runChild(img, status.Write.Fd(), report)
	}

	// Parent: drop the child's ends so that end of file is observable.
	stdin.Read.Close()
	status.Write.Close()
	if req.capture {
		stdout.Write.Close()
		stderr.Write.Close()
	}

	code, err := status.Read.ReadExact(4)
	status.Read.Close()
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		// The exec closed the status pipe.
	case err == nil:
		errno := unix.Errno(binary.NativeEndian.Uint32(code))
		reap(res.Pid())
		release()
		return nil, fmt.Errorf("%w: %s: %w", ErrExecFailed, req.file, oserr.FromCode(errno))
	default:
		unix.Kill(res.Pid(), unix.SIGKILL)
		reap(res.Pid())
		release()
		return nil, fmt.Errorf("read exec status: %w", err)
	}

	s := &spawned{pid: res.Pid(), stdin: stdin.KeepWrite()}
	if req.capture {
		s.stdout = stdout.KeepRead()
		s.stderr = stderr.KeepRead()
	}
	return s, nil
}

// runChild wires the standard streams and execs. It runs between fork and
// exec, so it only issues raw syscalls on memory prepared by the parent.
func runChild(img *proc.Image, status int, report []byte) {
	errno := img.ExecErrno()
	binary.NativeEndian.PutUint32(report, uint32(errno))
	unix.RawSyscall(unix.SYS_WRITE, uintptr(status), uintptr(unsafe.Pointer(&report[0])), uintptr(len(report)))
	proc.Exit(127)
}

// reap collects a child that is known to be exiting.
func reap(pid int) {
	for {
		_, err := proc.WaitPid(pid, 0)
		if !errors.Is(err, oserr.Interrupted) {
			return
		}
	}
}
