package internal

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/fd"
	"github.com/spachava753/sysown/oserr"
	"github.com/spachava753/sysown/proc"
)

// RegistryConfig holds configuration for the process registry
type RegistryConfig struct {
	MaxProcesses     int           `json:"max_processes" yaml:"max_processes" validate:"gte=1"`
	OutputBufferSize int           `json:"output_buffer_size" yaml:"output_buffer_size" validate:"gte=1024"`
	CleanupInterval  time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" validate:"gt=0"`
	ProcessTimeout   time.Duration `json:"process_timeout" yaml:"process_timeout" validate:"gte=0"`
	PersistenceFile  string        `json:"persistence_file" yaml:"persistence_file"`
	DefaultShell     string        `json:"default_shell" yaml:"default_shell" validate:"required"`
}

// DefaultRegistryConfig returns the default configuration
func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		MaxProcesses:     1000,
		OutputBufferSize: 100 * 1024 * 1024, // 100MB
		CleanupInterval:  30 * time.Second,
		ProcessTimeout:   0, // No timeout by default
		PersistenceFile:  "",
		DefaultShell:     "sh",
	}
}

// Registry manages a collection of child processes
type Registry struct {
	config    *RegistryConfig
	logger    *slog.Logger
	processes map[string]*Process
	// starting counts slots reserved by StartProcess calls still spawning
	starting  int
	mu        sync.RWMutex
	persistMu sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRegistry creates a new process registry with the given configuration.
// A nil logger discards log output.
func NewRegistry(config *RegistryConfig, logger *slog.Logger) *Registry {
	if config == nil {
		config = DefaultRegistryConfig()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	registry := &Registry{
		config:    config,
		logger:    logger.With(slog.String("component", "registry")),
		processes: make(map[string]*Process),
		ctx:       ctx,
		cancel:    cancel,
	}

	// Load persisted processes if persistence file is configured
	if config.PersistenceFile != "" {
		if err := registry.loadFromDisk(); err != nil {
			registry.logger.Warn("could not load persisted processes",
				slog.String("file", config.PersistenceFile), slog.Any("error", err))
		}
	}

	go registry.cleanupLoop()

	return registry
}

// StartRequest describes a process to start. With Args empty, Command runs
// through Shell -c; otherwise Command is the program and Args its
// arguments.
type StartRequest struct {
	Command       string
	Args          []string
	Shell         string
	Environment   map[string]string
	WorkingDir    string
	CaptureOutput bool
}

// StartProcess starts a new child and begins monitoring it
func (r *Registry) StartProcess(ctx context.Context, req StartRequest) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Command == "" {
		return nil, fmt.Errorf("%w: command cannot be empty", ErrInvalidInput)
	}

	// Reserve a slot; the fork and the exec handshake run unlocked.
	r.mu.Lock()
	if len(r.processes)+r.starting >= r.config.MaxProcesses {
		r.mu.Unlock()
		return nil, ErrRegistryFull
	}
	r.starting++
	r.mu.Unlock()

	shell := req.Shell
	if shell == "" {
		shell = r.config.DefaultShell
	}

	sr := spawnRequest{
		env:     mergeEnv(os.Environ(), req.Environment),
		dir:     req.WorkingDir,
		capture: req.CaptureOutput,
	}
	if len(req.Args) > 0 {
		// Direct command execution
		sr.file = req.Command
		sr.argv = append([]string{req.Command}, req.Args...)
	} else {
		// Shell command execution
		sr.file = shell
		sr.argv = []string{shell, "-c", req.Command}
	}

	child, err := spawn(sr)
	if err != nil {
		r.mu.Lock()
		r.starting--
		r.mu.Unlock()
		r.logger.Warn("process failed to start", slog.String("command", req.Command), slog.Any("error", err))
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	p := newProcess(uuid.New().String(), r.config.OutputBufferSize)
	p.PID = child.pid
	p.Command = req.Command
	p.Args = req.Args
	p.Shell = shell
	p.StartTime = time.Now()
	p.Environment = req.Environment
	p.WorkingDir = req.WorkingDir
	p.stdin = child.stdin

	r.mu.Lock()
	r.starting--
	r.processes[p.ID] = p
	r.mu.Unlock()
	r.logger.Info("process started",
		slog.String("id", p.ID), slog.Int("pid", p.PID), slog.String("command", p.Command))

	var capture sync.WaitGroup
	if req.CaptureOutput {
		capture.Add(2)
		go r.captureOutput(p, child.stdout, Stdout, &capture)
		go r.captureOutput(p, child.stderr, Stderr, &capture)
	}
	go func() {
		capture.Wait()
		p.outputBuf.Close()
	}()

	go r.monitorProcess(p)

	return p, nil
}

// mergeEnv overlays extra onto base, keeping the order of base and
// appending new keys sorted.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := extra[key]; !overridden {
			env = append(env, kv)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// captureOutput copies one output stream of the child into the buffer
// until end of file. It owns h and closes it.
func (r *Registry) captureOutput(p *Process, h *fd.Handle, s Stream, wg *sync.WaitGroup) {
	defer wg.Done()
	defer h.Close()

	buf := make([]byte, 32*1024)
	for {
		n, err := h.Read(buf)
		if n > 0 {
			p.outputBuf.Write(s, buf[:n])
		}
		switch {
		case err == nil:
		case errors.Is(err, fd.ErrInterrupted):
		case errors.Is(err, io.EOF):
			return
		default:
			r.logger.Warn("output capture stopped",
				slog.String("id", p.ID), slog.String("stream", s.String()), slog.Any("error", err))
			return
		}
	}
}

// monitorProcess waits for the child, tracking stop and continue
// transitions, and records how it ended
func (r *Registry) monitorProcess(p *Process) {
	defer close(p.done)

	if r.config.ProcessTimeout > 0 {
		timer := time.AfterFunc(r.config.ProcessTimeout, func() {
			r.logger.Info("process timed out", slog.String("id", p.ID), slog.Int("pid", p.PID))
			p.SendSignal(unix.SIGKILL)
		})
		defer timer.Stop()
	}

	for {
		waited, err := proc.WaitPid(p.PID, proc.Untraced|proc.Continued)
		if errors.Is(err, oserr.Interrupted) {
			continue
		}
		if err != nil {
			r.logger.Error("wait failed", slog.String("id", p.ID), slog.Int("pid", p.PID), slog.Any("error", err))
			p.fail()
			break
		}
		status := waited.Status
		if status.Stopped() {
			p.SetState(ProcessStateStopped)
			continue
		}
		if status.Continued() {
			p.SetState(ProcessStateRunning)
			continue
		}
		p.finish(status)
		r.logger.Info("process exited",
			slog.String("id", p.ID), slog.Int("pid", p.PID), slog.String("status", status.String()))
		break
	}

	// Save to disk if persistence is enabled
	r.persist()
}

// GetProcess retrieves a process by ID
func (r *Registry) GetProcess(id string) (*Process, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.processes[id]
	if !exists {
		return nil, ErrProcessNotFound
	}

	return p, nil
}

// ListProcesses returns a page of the processes in state, ordered by
// sortBy: start_time (default), pid or command
func (r *Registry) ListProcesses(state ProcessState, limit, offset int, sortBy string) ([]*Process, int, error) {
	var less func(a, b *Process) int
	switch sortBy {
	case "", "start_time":
		less = func(a, b *Process) int { return a.StartTime.Compare(b.StartTime) }
	case "pid":
		less = func(a, b *Process) int { return cmp.Compare(a.PID, b.PID) }
	case "command":
		less = func(a, b *Process) int { return cmp.Compare(a.Command, b.Command) }
	default:
		return nil, 0, fmt.Errorf("%w: unknown sort criteria %q", ErrInvalidInput, sortBy)
	}

	r.mu.RLock()
	var filtered []*Process
	for _, p := range r.processes {
		if state == "" || state == "all" || p.GetState() == state {
			filtered = append(filtered, p)
		}
	}
	r.mu.RUnlock()

	slices.SortStableFunc(filtered, func(a, b *Process) int {
		return cmp.Or(less(a, b), cmp.Compare(a.ID, b.ID))
	})

	total := len(filtered)
	start := min(max(offset, 0), total)
	end := min(start+limit, total)
	return filtered[start:end], total, nil
}

// TerminateProcess terminates a process gracefully or forcefully
func (r *Registry) TerminateProcess(id string, force bool, gracePeriod time.Duration) error {
	p, err := r.GetProcess(id)
	if err != nil {
		return err
	}

	if !p.IsRunning() {
		return ErrProcessAlreadyTerminated
	}

	if force {
		// Force kill the process
		return p.SendSignal(unix.SIGKILL)
	}

	// Graceful termination. A stopped child only acts on SIGTERM once it
	// is continued.
	if err := p.SendSignal(unix.SIGTERM); err != nil {
		return err
	}
	if p.GetState() == ProcessStateStopped {
		p.SendSignal(unix.SIGCONT)
	}

	// Wait for graceful termination or force kill after grace period
	if gracePeriod > 0 {
		go func() {
			select {
			case <-p.Done():
			case <-time.After(gracePeriod):
				r.logger.Info("grace period expired", slog.String("id", p.ID))
				p.SendSignal(unix.SIGKILL)
			}
		}()
	}

	return nil
}

// SendSignalToProcess sends a signal to a process
func (r *Registry) SendSignalToProcess(id string, sig unix.Signal) error {
	p, err := r.GetProcess(id)
	if err != nil {
		return err
	}

	return p.SendSignal(sig)
}

// SendInputToProcess sends input to a process's stdin, closing it
// afterwards when closeAfter is set
func (r *Registry) SendInputToProcess(id string, data []byte, closeAfter bool) error {
	p, err := r.GetProcess(id)
	if err != nil {
		return err
	}

	if !p.IsRunning() {
		return ErrProcessNotRunning
	}

	if len(data) > 0 {
		if err := p.WriteToStdin(data); err != nil {
			return err
		}
	}
	if closeAfter {
		return p.CloseStdin()
	}
	return nil
}

// ReadProcessOutput reads output from a process. With wait > 0 and nothing
// new at position, it blocks until output arrives, the output ends or wait
// elapses.
func (r *Registry) ReadProcessOutput(ctx context.Context, id string, s Stream, position int64, maxBytes int, wait time.Duration) ([]byte, int64, bool, error) {
	p, err := r.GetProcess(id)
	if err != nil {
		return nil, 0, false, err
	}

	var deadline <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		changed := p.outputBuf.Changed()
		data, next, more := p.outputBuf.Read(s, position, maxBytes)
		if len(data) > 0 || deadline == nil || p.outputBuf.Closed() {
			return data, next, more, nil
		}
		select {
		case <-changed:
		case <-deadline:
			return nil, next, false, nil
		case <-ctx.Done():
			return nil, 0, false, ctx.Err()
		}
	}
}

// GetProcessStatus returns detailed status information for a process
func (r *Registry) GetProcessStatus(ctx context.Context, id string) (*ProcessStatus, error) {
	p, err := r.GetProcess(id)
	if err != nil {
		return nil, err
	}

	status := &ProcessStatus{
		ID:        p.ID,
		PID:       p.PID,
		Command:   p.Command,
		Shell:     p.Shell,
		StartTime: p.StartTime.Format(time.RFC3339Nano),
		Runtime:   p.GetRuntime().String(),
		RuntimeMs: p.GetRuntime().Milliseconds(),
		State:     p.GetState(),
		ExitCode:  p.GetExitCode(),
		Signal:    p.GetSignal(),
	}

	// Resource usage is only meaningful while the child is alive
	if p.PID > 0 && p.IsRunning() {
		if sysProc, err := process.NewProcessWithContext(ctx, int32(p.PID)); err == nil {
			if cpuPercent, err := sysProc.CPUPercentWithContext(ctx); err == nil {
				status.CPUPercent = &cpuPercent
			}
			if memInfo, err := sysProc.MemoryInfoWithContext(ctx); err == nil {
				status.MemoryBytes = &memInfo.RSS
			}
			if name, err := sysProc.NameWithContext(ctx); err == nil {
				status.Name = name
			}
			if ppid, err := sysProc.PpidWithContext(ctx); err == nil {
				status.ParentPID = int(ppid)
			}
		}
	}

	// Get output buffer information
	stdoutSize, stdoutPos := p.outputBuf.Size(Stdout)
	stderrSize, stderrPos := p.outputBuf.Size(Stderr)

	status.OutputInfo = &OutputInfo{
		StdoutSize:     stdoutSize,
		StdoutPosition: stdoutPos,
		StderrSize:     stderrSize,
		StderrPosition: stderrPos,
	}

	return status, nil
}

// cleanupLoop runs periodically to clean up ended processes
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.cleanupTerminatedProcesses()
		}
	}
}

// cleanupTerminatedProcesses removes ended processes from the registry
func (r *Registry) cleanupTerminatedProcesses() {
	r.mu.Lock()
	removed := 0
	for id, p := range r.processes {
		if !p.IsRunning() {
			p.Cleanup()
			delete(r.processes, id)
			removed++
		}
	}
	r.mu.Unlock()

	if removed > 0 {
		r.logger.Debug("removed ended processes", slog.Int("count", removed))
		r.persist()
	}
}

// processRecord is the persisted form of a Process: metadata only, no
// runtime resources.
type processRecord struct {
	ID          string            `json:"id"`
	PID         int               `json:"pid"`
	Command     string            `json:"command"`
	Args        []string          `json:"args,omitempty"`
	Shell       string            `json:"shell"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time,omitzero"`
	State       ProcessState      `json:"state"`
	ExitCode    *int              `json:"exit_code,omitempty"`
	Signal      string            `json:"signal,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	WorkingDir  string            `json:"working_dir,omitempty"`
}

func (r *Registry) persist() {
	if r.config.PersistenceFile == "" {
		return
	}
	if err := r.saveToDisk(); err != nil {
		r.logger.Warn("could not persist processes",
			slog.String("file", r.config.PersistenceFile), slog.Any("error", err))
	}
}

// saveToDisk writes a snapshot of the registry to the persistence file
func (r *Registry) saveToDisk() error {
	if r.config.PersistenceFile == "" {
		return nil
	}

	r.mu.RLock()
	records := make(map[string]processRecord, len(r.processes))
	for id, p := range r.processes {
		p.mu.RLock()
		records[id] = processRecord{
			ID:          p.ID,
			PID:         p.PID,
			Command:     p.Command,
			Args:        p.Args,
			Shell:       p.Shell,
			StartTime:   p.StartTime,
			EndTime:     p.EndTime,
			State:       p.State,
			ExitCode:    p.ExitCode,
			Signal:      p.Signal,
			Environment: p.Environment,
			WorkingDir:  p.WorkingDir,
		}
		p.mu.RUnlock()
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	tmp := r.config.PersistenceFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.config.PersistenceFile)
}

// loadFromDisk loads the process registry from disk. Loaded entries are
// history: they have no handles and are not monitored.
func (r *Registry) loadFromDisk() error {
	if r.config.PersistenceFile == "" {
		return nil
	}

	data, err := os.ReadFile(r.config.PersistenceFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // File doesn't exist, that's okay
		}
		return err
	}

	var records map[string]processRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode %s: %w", r.config.PersistenceFile, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rec := range records {
		p := newProcess(id, r.config.OutputBufferSize)
		p.PID = rec.PID
		p.Command = rec.Command
		p.Args = rec.Args
		p.Shell = rec.Shell
		p.StartTime = rec.StartTime
		p.EndTime = rec.EndTime
		p.State = rec.State
		p.ExitCode = rec.ExitCode
		p.Signal = rec.Signal
		p.Environment = rec.Environment
		p.WorkingDir = rec.WorkingDir
		p.restored = true
		p.outputBuf.Close()
		close(p.done)

		// A child of a previous server is not ours to wait for. Keep it
		// listed as running only while the pid is still alive.
		if p.IsRunning() && !pidAlive(r.ctx, p.PID) {
			p.State = ProcessStateTerminated
		}

		r.processes[id] = p
	}

	return nil
}

func pidAlive(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}
	sysProc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	running, err := sysProc.IsRunningWithContext(ctx)
	return err == nil && running
}

// Shutdown stops the cleanup loop, sends SIGTERM to running children and
// releases their handles
func (r *Registry) Shutdown() error {
	// Cancel the cleanup loop
	r.cancel()

	r.mu.RLock()
	procs := slices.Collect(maps.Values(r.processes))
	r.mu.RUnlock()

	for _, p := range procs {
		if p.IsRunning() && !p.restored {
			if err := p.SendSignal(unix.SIGTERM); err != nil && !errors.Is(err, ErrProcessNotRunning) {
				r.logger.Warn("could not stop process", slog.String("id", p.ID), slog.Any("error", err))
			}
		}
		p.Cleanup()
	}

	// Save to disk one last time
	r.persist()

	return nil
}

// ProcessStatus represents the detailed status of a process
type ProcessStatus struct {
	ID          string       `json:"id" jsonschema:"unique process identifier"`
	PID         int          `json:"pid" jsonschema:"system process ID"`
	ParentPID   int          `json:"parent_pid,omitempty" jsonschema:"parent process ID as reported by the OS"`
	Name        string       `json:"name,omitempty" jsonschema:"process name as reported by the OS"`
	Command     string       `json:"command" jsonschema:"command that was started"`
	Shell       string       `json:"shell" jsonschema:"shell used for execution"`
	StartTime   string       `json:"start_time" jsonschema:"when the process started (RFC3339 format)"`
	Runtime     string       `json:"runtime" jsonschema:"how long the process has been running"`
	RuntimeMs   int64        `json:"runtime_ms" jsonschema:"runtime in milliseconds"`
	State       ProcessState `json:"state" jsonschema:"current state of the process"`
	ExitCode    *int         `json:"exit_code,omitempty" jsonschema:"exit code, or 128+signal for a signaled process"`
	Signal      string       `json:"signal,omitempty" jsonschema:"terminating signal, if any"`
	CPUPercent  *float64     `json:"cpu_percent,omitempty" jsonschema:"CPU usage percent"`
	MemoryBytes *uint64      `json:"memory_bytes,omitempty" jsonschema:"resident set size in bytes"`
	OutputInfo  *OutputInfo  `json:"output_info,omitempty" jsonschema:"captured output buffer sizes"`
}

// OutputInfo represents information about process output buffers
type OutputInfo struct {
	StdoutSize     int   `json:"stdout_size"`
	StdoutPosition int64 `json:"stdout_position"`
	StderrSize     int   `json:"stderr_size"`
	StderrPosition int64 `json:"stderr_position"`
}
