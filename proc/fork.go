package proc

// ForkResult tells the two continuations of a successful Fork apart.
type ForkResult struct {
	child bool
	pid   int
}

// IsChild reports whether this continuation is the new process.
func (r ForkResult) IsChild() bool {
	return r.child
}

// IsParent reports whether this continuation is the original process.
func (r ForkResult) IsParent() bool {
	return !r.child && r.pid > 0
}

// Pid returns the child's process id in the parent, and 0 in the child.
func (r ForkResult) Pid() int {
	return r.pid
}
