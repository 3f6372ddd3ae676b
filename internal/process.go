package internal

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/fd"
	"github.com/spachava753/sysown/oserr"
	"github.com/spachava753/sysown/proc"
)

// ProcessState represents the current state of a process
type ProcessState string

const (
	ProcessStateRunning    ProcessState = "running"
	ProcessStateStopped    ProcessState = "stopped"
	ProcessStateTerminated ProcessState = "terminated"
	ProcessStateError      ProcessState = "error"
)

// Process represents a managed child with its metadata and I/O handles
type Process struct {
	// Basic process information
	ID          string            `json:"id"`
	PID         int               `json:"pid"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	Shell       string            `json:"shell"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time,omitzero"`
	State       ProcessState      `json:"state"`
	ExitCode    *int              `json:"exit_code,omitempty"`
	Signal      string            `json:"signal,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	WorkingDir  string            `json:"working_dir,omitempty"`

	// The write end of the child's stdin pipe, guarded by stdinMu
	stdin   *fd.Handle
	stdinMu sync.Mutex

	outputBuf *OutputBuffer
	done      chan struct{}

	// restored marks an entry loaded from the persistence file; its child
	// belonged to an earlier server
	restored bool

	// Synchronization
	mu sync.RWMutex
}

func newProcess(id string, bufferSize int) *Process {
	return &Process{
		ID:        id,
		State:     ProcessStateRunning,
		outputBuf: NewOutputBuffer(bufferSize),
		done:      make(chan struct{}),
	}
}

// GetState returns the current state of the process (thread-safe)
func (p *Process) GetState() ProcessState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.State
}

// SetState updates the state of the process (thread-safe)
func (p *Process) SetState(state ProcessState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.State = state
}

// GetExitCode returns the exit code if the process has terminated
func (p *Process) GetExitCode() *int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ExitCode
}

// GetSignal returns the name of the terminating signal, if any
func (p *Process) GetSignal() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Signal
}

// finish records how the child ended. A signaled child reports the shell
// convention 128+signal as its exit code.
func (p *Process) finish(status proc.WaitStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	code := status.ExitCode()
	if status.Signaled() {
		code = 128 + int(status.Signal())
		p.Signal = signalName(status.Signal())
	}
	p.ExitCode = &code
	p.State = ProcessStateTerminated
	p.EndTime = time.Now()
}

// fail marks a child that could not be waited for.
func (p *Process) fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.State = ProcessStateError
	p.EndTime = time.Now()
}

// GetRuntime returns how long the process has been running, or how long it
// ran once it has ended
func (p *Process) GetRuntime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.EndTime.IsZero() {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// IsRunning reports whether the child is alive, running or stopped
func (p *Process) IsRunning() bool {
	state := p.GetState()
	return state == ProcessStateRunning || state == ProcessStateStopped
}

// Done is closed once the child has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// WriteToStdin writes all of data to the child's stdin
func (p *Process) WriteToStdin(data []byte) error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()

	if p.stdin == nil {
		return ErrStdinClosed
	}
	for len(data) > 0 {
		n, err := p.stdin.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// CloseStdin closes the child's stdin so that it reads end of file
func (p *Process) CloseStdin() error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()

	err := p.stdin.Close()
	p.stdin = nil
	return err
}

// SendSignal delivers sig to the child
func (p *Process) SendSignal(sig unix.Signal) error {
	if p.PID <= 0 {
		return ErrProcessNotFound
	}
	if !p.IsRunning() {
		return ErrProcessNotRunning
	}
	if err := unix.Kill(p.PID, sig); err != nil {
		return fmt.Errorf("kill %d with %s: %w", p.PID, signalName(sig), oserr.Capture(err))
	}
	return nil
}

// Cleanup releases the handles still held for the process. The capture
// goroutines own the output handles and close them at end of file.
func (p *Process) Cleanup() {
	p.CloseStdin()
}
