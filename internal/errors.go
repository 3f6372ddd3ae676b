package internal

import "errors"

var (
	// ErrProcessNotFound is returned when a process ID is not found in the registry
	ErrProcessNotFound = errors.New("process not found")

	// ErrProcessNotRunning is returned when trying to interact with a non-running process
	ErrProcessNotRunning = errors.New("process is not running")

	// ErrInvalidInput is returned when parameters are invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrProcessAlreadyTerminated is returned when trying to operate on a terminated process
	ErrProcessAlreadyTerminated = errors.New("process already terminated")

	// ErrRegistryFull is returned when the process registry is full
	ErrRegistryFull = errors.New("process registry is full")

	// ErrStdinClosed is returned when writing to a process whose stdin was closed
	ErrStdinClosed = errors.New("process stdin is closed")

	// ErrExecFailed wraps the OS error reported by a child that could not exec
	ErrExecFailed = errors.New("exec failed")
)
