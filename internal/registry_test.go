package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/oserr"
)

func newTestRegistry(t *testing.T, config *RegistryConfig) *Registry {
	t.Helper()
	registry := NewRegistry(config, nil)
	t.Cleanup(func() { registry.Shutdown() })
	return registry
}

func startShell(t *testing.T, registry *Registry, command string) *Process {
	t.Helper()
	p, err := registry.StartProcess(context.Background(), StartRequest{
		Command:       command,
		Shell:         "sh",
		CaptureOutput: true,
	})
	be.Err(t, err, nil)
	return p
}

func waitDone(t *testing.T, p *Process) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("process %s did not exit", p.ID)
	}
}

func TestNewRegistry(t *testing.T) {
	config := DefaultRegistryConfig()
	config.MaxProcesses = 10

	registry := newTestRegistry(t, config)
	be.Equal(t, registry.config.MaxProcesses, 10)
}

func TestStartProcess(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "echo hello world")
	be.True(t, p.ID != "")
	be.True(t, p.PID > 0)
	be.Equal(t, p.Command, "echo hello world")
	be.Equal(t, p.Shell, "sh")

	waitDone(t, p)
	be.Equal(t, p.GetState(), ProcessStateTerminated)
	be.True(t, p.GetExitCode() != nil)
	be.Equal(t, *p.GetExitCode(), 0)

	data, _, _, err := registry.ReadProcessOutput(context.Background(), p.ID, Stdout, 0, 1024, time.Second)
	be.Err(t, err, nil)
	be.Equal(t, string(data), "hello world\n")
}

func TestStartProcessDefaultShell(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p, err := registry.StartProcess(context.Background(), StartRequest{Command: "exit 4"})
	be.Err(t, err, nil)
	be.Equal(t, p.Shell, "sh")

	waitDone(t, p)
	be.Equal(t, *p.GetExitCode(), 4)
}

func TestStartProcessDirectArgs(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p, err := registry.StartProcess(context.Background(), StartRequest{
		Command:       "sh",
		Args:          []string{"-c", `printf '%s' "$GREETING" >&2`},
		Environment:   map[string]string{"GREETING": "hi there"},
		CaptureOutput: true,
	})
	be.Err(t, err, nil)
	waitDone(t, p)

	data, _, _, err := registry.ReadProcessOutput(context.Background(), p.ID, Stderr, 0, 1024, time.Second)
	be.Err(t, err, nil)
	be.Equal(t, string(data), "hi there")
}

func TestStartProcessWorkingDir(t *testing.T) {
	registry := newTestRegistry(t, nil)
	dir, err := filepath.EvalSymlinks(t.TempDir())
	be.Err(t, err, nil)

	p, err := registry.StartProcess(context.Background(), StartRequest{
		Command:       "pwd -P",
		Shell:         "sh",
		WorkingDir:    dir,
		CaptureOutput: true,
	})
	be.Err(t, err, nil)
	waitDone(t, p)

	data, _, _, err := registry.ReadProcessOutput(context.Background(), p.ID, Stdout, 0, 4096, time.Second)
	be.Err(t, err, nil)
	be.Equal(t, string(data), dir+"\n")
}

func TestStartProcessExecFailure(t *testing.T) {
	registry := newTestRegistry(t, nil)

	_, err := registry.StartProcess(context.Background(), StartRequest{
		Command: "definitely-not-a-program-4d1c",
		Args:    []string{"x"},
	})
	be.Err(t, err, ErrExecFailed)
	be.Err(t, err, oserr.NotFound)

	_, err = registry.StartProcess(context.Background(), StartRequest{
		Command:    "true",
		Shell:      "sh",
		WorkingDir: filepath.Join(t.TempDir(), "missing"),
	})
	be.Err(t, err, ErrExecFailed)
	be.Err(t, err, oserr.NotFound)

	// Failed starts are not registered.
	_, total, err := registry.ListProcesses("all", 10, 0, "")
	be.Err(t, err, nil)
	be.Equal(t, total, 0)
}

func TestStartProcessEmptyCommand(t *testing.T) {
	registry := newTestRegistry(t, nil)
	_, err := registry.StartProcess(context.Background(), StartRequest{})
	be.Err(t, err, ErrInvalidInput)
}

func TestStartProcessWithLongRunningCommand(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "sleep 0.5")
	be.Equal(t, p.GetState(), ProcessStateRunning)

	// Process should still be running
	time.Sleep(100 * time.Millisecond)
	be.Equal(t, p.GetState(), ProcessStateRunning)

	waitDone(t, p)
	be.Equal(t, p.GetState(), ProcessStateTerminated)
}

func TestListProcesses(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p1 := startShell(t, registry, "echo test1")
	p2 := startShell(t, registry, "sleep 10")

	processes, total, err := registry.ListProcesses("", 10, 0, "")
	be.Err(t, err, nil)
	be.Equal(t, total, 2)
	be.Equal(t, len(processes), 2)
	be.Equal(t, processes[0].ID, p1.ID)

	waitDone(t, p1)

	running, runningTotal, err := registry.ListProcesses(ProcessStateRunning, 10, 0, "")
	be.Err(t, err, nil)
	be.Equal(t, runningTotal, 1)
	be.Equal(t, running[0].ID, p2.ID)

	page, total, err := registry.ListProcesses("all", 1, 1, "command")
	be.Err(t, err, nil)
	be.Equal(t, total, 2)
	be.Equal(t, len(page), 1)
	be.Equal(t, page[0].ID, p2.ID)

	_, _, err = registry.ListProcesses("all", 10, 0, "memory")
	be.Err(t, err, ErrInvalidInput)

	be.Err(t, registry.TerminateProcess(p2.ID, true, 0), nil)
	waitDone(t, p2)
}

func TestSendInput(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "cat")

	input := "hello world\n"
	be.Err(t, registry.SendInputToProcess(p.ID, []byte(input), false), nil)

	data, pos, _, err := registry.ReadProcessOutput(context.Background(), p.ID, Stdout, 0, 1024, 5*time.Second)
	be.Err(t, err, nil)
	be.Equal(t, string(data), input)
	be.Equal(t, pos, int64(len(input)))

	// Closing stdin ends cat.
	be.Err(t, registry.SendInputToProcess(p.ID, nil, true), nil)
	waitDone(t, p)
	be.Equal(t, *p.GetExitCode(), 0)

	err = p.WriteToStdin([]byte("late"))
	be.Err(t, err, ErrStdinClosed)
}

func TestTerminateProcess(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "sleep 10")
	be.Err(t, registry.TerminateProcess(p.ID, false, 2*time.Second), nil)

	waitDone(t, p)
	be.Equal(t, p.GetState(), ProcessStateTerminated)
	be.Equal(t, p.GetSignal(), "SIGTERM")
	be.Equal(t, *p.GetExitCode(), 128+int(unix.SIGTERM))

	err := registry.TerminateProcess(p.ID, false, 0)
	be.Err(t, err, ErrProcessAlreadyTerminated)
}

func TestSendSignal(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "sleep 10")

	be.Err(t, registry.SendSignalToProcess(p.ID, unix.SIGSTOP), nil)
	be.True(t, eventually(func() bool { return p.GetState() == ProcessStateStopped }))
	be.True(t, p.IsRunning())

	be.Err(t, registry.SendSignalToProcess(p.ID, unix.SIGCONT), nil)
	be.True(t, eventually(func() bool { return p.GetState() == ProcessStateRunning }))

	be.Err(t, registry.SendSignalToProcess(p.ID, unix.SIGKILL), nil)
	waitDone(t, p)
	be.Equal(t, p.GetSignal(), "SIGKILL")

	err := registry.SendSignalToProcess(p.ID, unix.SIGTERM)
	be.Err(t, err, ErrProcessNotRunning)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestProcessTimeout(t *testing.T) {
	config := DefaultRegistryConfig()
	config.ProcessTimeout = 100 * time.Millisecond
	registry := newTestRegistry(t, config)

	p := startShell(t, registry, "sleep 10")
	waitDone(t, p)
	be.Equal(t, p.GetSignal(), "SIGKILL")
}

func TestReadProcessOutputBlocking(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "sleep 0.2; echo late")
	data, pos, _, err := registry.ReadProcessOutput(context.Background(), p.ID, Stdout, 0, 1024, 5*time.Second)
	be.Err(t, err, nil)
	be.Equal(t, string(data), "late\n")

	// After the output ends a blocking read returns at once.
	start := time.Now()
	waitDone(t, p)
	data, _, _, err = registry.ReadProcessOutput(context.Background(), p.ID, Stdout, pos, 1024, 5*time.Second)
	be.Err(t, err, nil)
	be.Equal(t, len(data), 0)
	be.True(t, time.Since(start) < 4*time.Second)
}

func TestReadProcessOutputTimeout(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "sleep 10")
	data, pos, more, err := registry.ReadProcessOutput(context.Background(), p.ID, Stdout, 0, 1024, 50*time.Millisecond)
	be.Err(t, err, nil)
	be.Equal(t, len(data), 0)
	be.Equal(t, pos, int64(0))
	be.True(t, !more)

	be.Err(t, registry.TerminateProcess(p.ID, true, 0), nil)
}

func TestGetProcessStatus(t *testing.T) {
	registry := newTestRegistry(t, nil)

	p := startShell(t, registry, "sleep 10")

	status, err := registry.GetProcessStatus(context.Background(), p.ID)
	be.Err(t, err, nil)
	be.Equal(t, status.ID, p.ID)
	be.Equal(t, status.PID, p.PID)
	be.Equal(t, status.Command, p.Command)
	be.Equal(t, status.State, ProcessStateRunning)
	be.Equal(t, status.ParentPID, os.Getpid())
	be.True(t, status.OutputInfo != nil)

	be.Err(t, registry.TerminateProcess(p.ID, true, 0), nil)
	waitDone(t, p)

	status, err = registry.GetProcessStatus(context.Background(), p.ID)
	be.Err(t, err, nil)
	be.Equal(t, status.State, ProcessStateTerminated)
	be.Equal(t, *status.ExitCode, 128+int(unix.SIGKILL))
	be.True(t, status.CPUPercent == nil)
}

func TestRegistryShutdown(t *testing.T) {
	registry := NewRegistry(nil, nil)

	p := startShell(t, registry, "sleep 10")
	be.Err(t, registry.Shutdown(), nil)

	waitDone(t, p)
	be.Equal(t, p.GetSignal(), "SIGTERM")
}

func TestProcessNotFound(t *testing.T) {
	registry := newTestRegistry(t, nil)

	_, err := registry.GetProcess("non-existent")
	be.Equal(t, err, ErrProcessNotFound)

	err = registry.SendInputToProcess("non-existent", []byte("test"), false)
	be.Equal(t, err, ErrProcessNotFound)

	err = registry.TerminateProcess("non-existent", false, 0)
	be.Equal(t, err, ErrProcessNotFound)
}

func TestRegistryCapacityLimit(t *testing.T) {
	config := DefaultRegistryConfig()
	config.MaxProcesses = 2
	registry := newTestRegistry(t, config)

	startShell(t, registry, "sleep 1")
	startShell(t, registry, "sleep 1")

	_, err := registry.StartProcess(context.Background(), StartRequest{Command: "sleep 1", Shell: "sh"})
	be.Equal(t, err, ErrRegistryFull)
}

func TestRegistryCapacityConcurrentStarts(t *testing.T) {
	config := DefaultRegistryConfig()
	config.MaxProcesses = 3
	registry := newTestRegistry(t, config)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.StartProcess(context.Background(), StartRequest{Command: "sleep 1", Shell: "sh"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	started, full := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrRegistryFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	be.Equal(t, started, 3)
	be.Equal(t, full, 7)

	_, total, err := registry.ListProcesses("all", 10, 0, "")
	be.Err(t, err, nil)
	be.Equal(t, total, 3)
}

func TestFailedStartReleasesSlot(t *testing.T) {
	config := DefaultRegistryConfig()
	config.MaxProcesses = 1
	registry := newTestRegistry(t, config)

	_, err := registry.StartProcess(context.Background(), StartRequest{
		Command: "no-such-program-sysown",
		Args:    []string{"x"},
	})
	be.Err(t, err, ErrExecFailed)

	p := startShell(t, registry, "true")
	waitDone(t, p)
}

func TestCleanupRemovesEndedProcesses(t *testing.T) {
	registry := newTestRegistry(t, nil)

	done := startShell(t, registry, "true")
	running := startShell(t, registry, "sleep 10")
	waitDone(t, done)

	registry.cleanupTerminatedProcesses()
	_, err := registry.GetProcess(done.ID)
	be.Err(t, err, ErrProcessNotFound)
	_, err = registry.GetProcess(running.ID)
	be.Err(t, err, nil)

	be.Err(t, registry.TerminateProcess(running.ID, true, 0), nil)
}

func TestPersistence(t *testing.T) {
	config := DefaultRegistryConfig()
	config.PersistenceFile = filepath.Join(t.TempDir(), "registry.json")

	first := NewRegistry(config, nil)
	p := startShell(t, first, "exit 3")
	waitDone(t, p)
	be.Err(t, first.Shutdown(), nil)

	second := newTestRegistry(t, config)
	restored, err := second.GetProcess(p.ID)
	be.Err(t, err, nil)
	be.Equal(t, restored.PID, p.PID)
	be.Equal(t, restored.Command, "exit 3")
	be.Equal(t, restored.GetState(), ProcessStateTerminated)
	be.Equal(t, *restored.GetExitCode(), 3)
}

func TestMergeEnv(t *testing.T) {
	base := []string{"A=1", "B=2", "C=3"}
	be.Equal(t, mergeEnv(base, nil), base)
	be.Equal(t, mergeEnv(base, map[string]string{"B": "x", "D": "4", "0": "z"}),
		[]string{"A=1", "C=3", "0=z", "B=x", "D=4"})
}
