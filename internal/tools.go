package internal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sys/unix"

	"github.com/spachava753/sysown/oserr"
	"github.com/spachava753/sysown/proc"
)

const (
	defaultReadTimeout = 30 * time.Second
	maxReadTimeout     = 5 * time.Minute
)

// ProcessTools implements the MCP tool handlers over a Registry
type ProcessTools struct {
	registry *Registry
}

// NewProcessTools binds the tool handlers to registry
func NewProcessTools(registry *Registry) *ProcessTools {
	return &ProcessTools{registry: registry}
}

// jsonResult renders v as the text content of a tool result
func jsonResult(v any) *mcp.CallToolResult {
	content, _ := json.Marshal(v)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}
}

// StartProcess handles starting new processes
func (t *ProcessTools) StartProcess(ctx context.Context, req *mcp.CallToolRequest, args StartProcessArgs) (*mcp.CallToolResult, StartProcessOutput, error) {
	if args.Command == "" {
		return nil, StartProcessOutput{}, fmt.Errorf("command cannot be empty")
	}

	p, err := t.registry.StartProcess(ctx, StartRequest{
		Command:       args.Command,
		Args:          args.Args,
		Shell:         args.Shell,
		Environment:   args.Environment,
		WorkingDir:    args.WorkingDir,
		CaptureOutput: args.CaptureOutput,
	})
	if err != nil {
		return nil, StartProcessOutput{}, fmt.Errorf("failed to start process: %w", err)
	}

	result := StartProcessOutput{
		ID:      p.ID,
		PID:     p.PID,
		Command: p.Command,
		Shell:   p.Shell,
	}
	return jsonResult(result), result, nil
}

// ListProcesses handles listing processes
func (t *ProcessTools) ListProcesses(ctx context.Context, req *mcp.CallToolRequest, args ListProcessesArgs) (*mcp.CallToolResult, ListProcessesOutput, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 100
	}
	limit = min(limit, 1000)
	offset := max(args.Offset, 0)

	state := ProcessState(args.State)
	if args.State == "" {
		state = "all"
	}

	processes, total, err := t.registry.ListProcesses(state, limit, offset, args.SortBy)
	if err != nil {
		return nil, ListProcessesOutput{}, fmt.Errorf("failed to list processes: %w", err)
	}

	infos := make([]*ProcessInfo, len(processes))
	for i, p := range processes {
		infos[i] = &ProcessInfo{
			ID:        p.ID,
			PID:       p.PID,
			Command:   p.Command,
			Shell:     p.Shell,
			StartTime: p.StartTime.Format(time.RFC3339),
			Runtime:   p.GetRuntime().String(),
			State:     p.GetState(),
			ExitCode:  p.GetExitCode(),
			Signal:    p.GetSignal(),
		}
	}

	result := ListProcessesOutput{
		Processes: infos,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
	return jsonResult(result), result, nil
}

// GetProcessStatus handles getting detailed process status
func (t *ProcessTools) GetProcessStatus(ctx context.Context, req *mcp.CallToolRequest, args GetProcessStatusArgs) (*mcp.CallToolResult, ProcessStatus, error) {
	if args.ID == "" {
		return nil, ProcessStatus{}, fmt.Errorf("process ID cannot be empty")
	}

	status, err := t.registry.GetProcessStatus(ctx, args.ID)
	if err != nil {
		return nil, ProcessStatus{}, fmt.Errorf("failed to get process status: %w", err)
	}
	return jsonResult(status), *status, nil
}

// SendProcessInput handles sending input to a process
func (t *ProcessTools) SendProcessInput(ctx context.Context, req *mcp.CallToolRequest, args SendProcessInputArgs) (*mcp.CallToolResult, SendProcessInputOutput, error) {
	if args.ID == "" {
		return nil, SendProcessInputOutput{}, fmt.Errorf("process ID cannot be empty")
	}
	if args.Input == "" && !args.Close {
		return nil, SendProcessInputOutput{}, fmt.Errorf("input cannot be empty")
	}

	var inputData []byte
	if args.Binary {
		var err error
		inputData, err = base64.StdEncoding.DecodeString(args.Input)
		if err != nil {
			return nil, SendProcessInputOutput{}, fmt.Errorf("failed to decode base64 input: %w", err)
		}
	} else {
		inputData = []byte(args.Input)
		if args.Newline && len(inputData) > 0 && inputData[len(inputData)-1] != '\n' {
			inputData = append(inputData, '\n')
		}
	}

	if err := t.registry.SendInputToProcess(args.ID, inputData, args.Close); err != nil {
		return nil, SendProcessInputOutput{}, fmt.Errorf("failed to send input to process: %w", err)
	}

	result := SendProcessInputOutput{
		BytesSent:   len(inputData),
		StdinClosed: args.Close,
	}
	return jsonResult(result), result, nil
}

// ReadProcessOutput handles reading output from a process
func (t *ProcessTools) ReadProcessOutput(ctx context.Context, req *mcp.CallToolRequest, args ReadProcessOutputArgs) (*mcp.CallToolResult, ReadProcessOutputOutput, error) {
	if args.ID == "" {
		return nil, ReadProcessOutputOutput{}, fmt.Errorf("process ID cannot be empty")
	}

	stream, err := ParseStream(args.Stream)
	if err != nil {
		return nil, ReadProcessOutputOutput{}, err
	}

	maxBytes := args.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 1024
	}
	maxBytes = min(maxBytes, 1048576) // 1MB limit
	position := max(args.Position, 0)

	var wait time.Duration
	if args.Blocking {
		wait = defaultReadTimeout
		if args.Timeout > 0 {
			wait = min(time.Duration(args.Timeout)*time.Second, maxReadTimeout)
		}
	}

	data, newPos, hasMore, err := t.registry.ReadProcessOutput(ctx, args.ID, stream, position, maxBytes, wait)
	if err != nil {
		return nil, ReadProcessOutputOutput{}, fmt.Errorf("failed to read process output: %w", err)
	}

	result := ReadProcessOutputOutput{
		Data:      string(data),
		Encoding:  "utf-8",
		Position:  newPos,
		HasMore:   hasMore,
		BytesRead: len(data),
	}
	if args.Binary {
		result.Data = base64.StdEncoding.EncodeToString(data)
		result.Encoding = "base64"
	}
	return jsonResult(result), result, nil
}

// TerminateProcess handles terminating processes
func (t *ProcessTools) TerminateProcess(ctx context.Context, req *mcp.CallToolRequest, args TerminateProcessArgs) (*mcp.CallToolResult, TerminateProcessOutput, error) {
	if args.ID == "" {
		return nil, TerminateProcessOutput{}, fmt.Errorf("process ID cannot be empty")
	}

	p, err := t.registry.GetProcess(args.ID)
	if err != nil {
		return nil, TerminateProcessOutput{}, fmt.Errorf("failed to get process: %w", err)
	}
	wasRunning := p.IsRunning()

	gracePeriod := time.Duration(args.GracePeriod) * time.Second
	if args.GracePeriod == 0 {
		gracePeriod = 5 * time.Second
	}

	err = t.registry.TerminateProcess(args.ID, args.Force, gracePeriod)
	if err != nil && !errors.Is(err, ErrProcessAlreadyTerminated) {
		return nil, TerminateProcessOutput{}, fmt.Errorf("failed to terminate process: %w", err)
	}

	method := "graceful"
	if args.Force {
		method = "forced"
	}

	result := TerminateProcessOutput{
		ID:         args.ID,
		Terminated: !errors.Is(err, ErrProcessAlreadyTerminated),
		WasRunning: wasRunning,
		Method:     method,
	}
	return jsonResult(result), result, nil
}

// SendSignal handles sending signals to processes
func (t *ProcessTools) SendSignal(ctx context.Context, req *mcp.CallToolRequest, args SendSignalArgs) (*mcp.CallToolResult, SendSignalOutput, error) {
	if args.ID == "" {
		return nil, SendSignalOutput{}, fmt.Errorf("process ID cannot be empty")
	}
	if args.Signal == "" {
		return nil, SendSignalOutput{}, fmt.Errorf("signal cannot be empty")
	}

	sig, err := parseSignal(args.Signal)
	if err != nil {
		return nil, SendSignalOutput{}, err
	}

	err = t.registry.SendSignalToProcess(args.ID, sig)
	if err != nil && !errors.Is(err, ErrProcessNotFound) && !errors.Is(err, ErrProcessNotRunning) {
		return nil, SendSignalOutput{}, fmt.Errorf("failed to send signal: %w", err)
	}

	result := SendSignalOutput{
		ID:     args.ID,
		Signal: signalName(sig),
		Sent:   err == nil,
	}
	return jsonResult(result), result, nil
}

// DescribeErrno handles decoding a numeric OS error code
func DescribeErrno(ctx context.Context, req *mcp.CallToolRequest, args DescribeErrnoArgs) (*mcp.CallToolResult, DescribeErrnoOutput, error) {
	if args.Code <= 0 {
		return nil, DescribeErrnoOutput{}, fmt.Errorf("code must be positive")
	}

	e := oserr.FromCode(unix.Errno(args.Code))
	result := DescribeErrnoOutput{
		Code:      args.Code,
		Kind:      e.Kind().String(),
		Known:     e.Kind() != oserr.Unknown,
		Temporary: e.Temporary(),
	}
	if msg, err := oserr.Render(e); err == nil {
		result.Message = msg
	}
	return jsonResult(result), result, nil
}

// DecodeWaitStatus handles decoding a packed wait status word
func DecodeWaitStatus(ctx context.Context, req *mcp.CallToolRequest, args DecodeWaitStatusArgs) (*mcp.CallToolResult, DecodeWaitStatusOutput, error) {
	ws := proc.WaitStatus(args.Status)
	result := DecodeWaitStatusOutput{
		Status:      args.Status,
		Exited:      ws.Exited(),
		Signaled:    ws.Signaled(),
		CoreDumped:  ws.CoreDump(),
		Stopped:     ws.Stopped(),
		Continued:   ws.Continued(),
		Description: ws.String(),
	}
	if ws.Exited() {
		result.ExitCode = ptr(ws.ExitCode())
	}
	if ws.Signaled() {
		result.Signal = signalName(ws.Signal())
	}
	if ws.Stopped() {
		result.StopSignal = signalName(ws.StopSignal())
	}
	return jsonResult(result), result, nil
}

// Tool definitions
var StartProcessToolDef = mcp.Tool{
	Name:        "start_process",
	Description: "Start a new child process through fork and exec, optionally capturing its output",
	Annotations: &mcp.ToolAnnotations{
		DestructiveHint: ptr(true),
		OpenWorldHint:   ptr(true),
		Title:           "Start Process",
	},
}

var ListProcessesToolDef = mcp.Tool{
	Name:        "list_processes",
	Description: "List the processes in the registry with filtering, sorting and pagination",
	Annotations: &mcp.ToolAnnotations{
		ReadOnlyHint: true,
		Title:        "List Processes",
	},
}

var GetProcessStatusToolDef = mcp.Tool{
	Name:        "get_process_status",
	Description: "Get detailed status information for a specific process including resource usage",
	Annotations: &mcp.ToolAnnotations{
		ReadOnlyHint: true,
		Title:        "Get Process Status",
	},
}

var SendProcessInputToolDef = mcp.Tool{
	Name:        "send_process_input",
	Description: "Send input data to a running process's stdin stream, optionally closing it",
	Annotations: &mcp.ToolAnnotations{
		DestructiveHint: ptr(true),
		Title:           "Send Process Input",
	},
}

var ReadProcessOutputToolDef = mcp.Tool{
	Name:        "read_process_output",
	Description: "Read output data from a process's stdout or stderr stream with position tracking",
	Annotations: &mcp.ToolAnnotations{
		ReadOnlyHint: true,
		Title:        "Read Process Output",
	},
}

var TerminateProcessToolDef = mcp.Tool{
	Name:        "terminate_process",
	Description: "Terminate a running process gracefully or forcefully with configurable grace period",
	Annotations: &mcp.ToolAnnotations{
		DestructiveHint: ptr(true),
		Title:           "Terminate Process",
	},
}

var SendSignalToolDef = mcp.Tool{
	Name:        "send_signal",
	Description: "Send a Unix signal to a running process for fine-grained process control",
	Annotations: &mcp.ToolAnnotations{
		DestructiveHint: ptr(true),
		Title:           "Send Signal",
	},
}

var DescribeErrnoToolDef = mcp.Tool{
	Name:        "describe_errno",
	Description: "Describe a numeric OS error code: its named condition and OS message",
	Annotations: &mcp.ToolAnnotations{
		ReadOnlyHint: true,
		Title:        "Describe Errno",
	},
}

var DecodeWaitStatusToolDef = mcp.Tool{
	Name:        "decode_wait_status",
	Description: "Decode a packed wait status word into exit code, signal and stop information",
	Annotations: &mcp.ToolAnnotations{
		ReadOnlyHint: true,
		Title:        "Decode Wait Status",
	},
}
