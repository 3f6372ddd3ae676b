// Package fd wraps raw OS descriptors with an explicit ownership model.
//
// A [Handle] is either owned or borrowed. Closing an owned Handle closes the
// descriptor exactly once; Close is idempotent and the slot is marked empty
// even when the close syscall fails, since the kernel may already have reused
// the number. A borrowed Handle is a temporary view of a descriptor owned
// elsewhere, typically a standard stream, and never closes it:
//
//	out, err := fd.WrapStdout(func(h *fd.Handle) (int, error) {
//		return h.WriteString("hello\n")
//	})
//
// Every operation issues the syscalls it names and nothing else: no retries,
// no buffering. Read and Write implement io.Reader and io.Writer and classify
// would-block, interrupted and broken-pipe conditions with the sentinels in
// this package; the captured [oserr.Error] is always reachable through
// errors.As.
//
// [Pipe] and [Pipe2] create linked pairs of owned Handles.
package fd
