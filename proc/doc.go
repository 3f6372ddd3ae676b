// Package proc wraps the process-control syscalls: fork, the exec family
// and wait.
//
// Fork splits the calling process. In the child only the forking thread
// survives, so the child continuation must restrict itself to raw syscalls
// (writes to a pipe, the redirects recorded with [Image.Redirect]) and end
// with [Image.ExecErrno] or [Exit]. Anything that can allocate or block on the Go
// runtime belongs before the fork; that is why exec arguments are marshaled
// up front with [Prepare] or [PrepareSearch]:
//
//	img, err := proc.Prepare("/bin/echo", []string{"echo", "hi"}, os.Environ())
//	...
//	res, err := proc.Fork()
//	...
//	if res.IsChild() {
//		img.Exec()
//		proc.Exit(127)
//	}
//	waited, err := proc.WaitPid(res.Pid(), 0)
//
// Exec never returns on success. Any return is a failure carrying an
// [oserr.Error]. Wait results carry a [WaitStatus], decoded without further
// syscalls.
package proc
