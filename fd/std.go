package fd

// Standard stream descriptor numbers.
const (
	StdinFd  = 0
	StdoutFd = 1
	StderrFd = 2
)

// WrapStdin runs body with a borrowed Handle over standard input.
func WrapStdin[T any](body func(*Handle) (T, error)) (T, error) {
	return WrapBorrowed(StdinFd, body)
}

// WrapStdout runs body with a borrowed Handle over standard output.
func WrapStdout[T any](body func(*Handle) (T, error)) (T, error) {
	return WrapBorrowed(StdoutFd, body)
}

// WrapStderr runs body with a borrowed Handle over standard error.
func WrapStderr[T any](body func(*Handle) (T, error)) (T, error) {
	return WrapBorrowed(StderrFd, body)
}

// CloneStdin returns an owned duplicate of standard input.
func CloneStdin() (*Handle, error) {
	return WrapBorrowed(StdinFd, (*Handle).Clone)
}

// CloneStdout returns an owned duplicate of standard output.
func CloneStdout() (*Handle, error) {
	return WrapBorrowed(StdoutFd, (*Handle).Clone)
}

// CloneStderr returns an owned duplicate of standard error.
func CloneStderr() (*Handle, error) {
	return WrapBorrowed(StderrFd, (*Handle).Clone)
}
