package internal

// StartProcessArgs represents arguments for starting a new process
type StartProcessArgs struct {
	Command       string            `json:"command" jsonschema:"shell command to execute, or the program to run when args is set"`
	Args          []string          `json:"args,omitempty" jsonschema:"program arguments; when set, command is run directly without a shell"`
	Shell         string            `json:"shell,omitempty" jsonschema:"the shell to use (default from the server configuration)"`
	CaptureOutput bool              `json:"capture_output,omitempty" jsonschema:"whether to capture stdout/stderr"`
	Environment   map[string]string `json:"environment,omitempty" jsonschema:"environment variables to set"`
	WorkingDir    string            `json:"working_dir,omitempty" jsonschema:"working directory for the process"`
}

// StartProcessOutput represents the result of starting a process
type StartProcessOutput struct {
	ID      string `json:"id" jsonschema:"unique process identifier"`
	PID     int    `json:"pid" jsonschema:"system process ID"`
	Command string `json:"command" jsonschema:"command that was executed"`
	Shell   string `json:"shell" jsonschema:"shell used for execution"`
}

// ListProcessesArgs represents arguments for listing processes
type ListProcessesArgs struct {
	State  string `json:"state,omitempty" jsonschema:"filter processes by state (running, stopped, terminated, all)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of processes to return (default 100)"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of processes to skip (default 0)"`
	SortBy string `json:"sort,omitempty" jsonschema:"sort criteria: start_time, pid, command (default start_time)"`
}

// ListProcessesOutput represents the result of listing processes
type ListProcessesOutput struct {
	Processes []*ProcessInfo `json:"processes" jsonschema:"list of processes"`
	Total     int            `json:"total" jsonschema:"total number of matching processes"`
	Limit     int            `json:"limit" jsonschema:"limit applied to results"`
	Offset    int            `json:"offset" jsonschema:"offset applied to results"`
}

// ProcessInfo represents basic information about a process
type ProcessInfo struct {
	ID        string       `json:"id" jsonschema:"unique process identifier"`
	PID       int          `json:"pid" jsonschema:"system process ID"`
	Command   string       `json:"command" jsonschema:"command being executed"`
	Shell     string       `json:"shell" jsonschema:"shell used for execution"`
	StartTime string       `json:"start_time" jsonschema:"when the process started (RFC3339 format)"`
	Runtime   string       `json:"runtime" jsonschema:"how long the process has been running"`
	State     ProcessState `json:"state" jsonschema:"current state of the process"`
	ExitCode  *int         `json:"exit_code,omitempty" jsonschema:"exit code if process has terminated"`
	Signal    string       `json:"signal,omitempty" jsonschema:"terminating signal, if any"`
}

// GetProcessStatusArgs represents arguments for getting process status
type GetProcessStatusArgs struct {
	ID string `json:"id" jsonschema:"unique process identifier"`
}

// SendProcessInputArgs represents arguments for sending input to a process
type SendProcessInputArgs struct {
	ID      string `json:"id" jsonschema:"unique process identifier"`
	Input   string `json:"input,omitempty" jsonschema:"text to send to process stdin"`
	Binary  bool   `json:"binary,omitempty" jsonschema:"whether input is base64-encoded binary data"`
	Newline bool   `json:"newline,omitempty" jsonschema:"whether to append a newline character"`
	Close   bool   `json:"close,omitempty" jsonschema:"close stdin after sending so the process reads end of file"`
}

// SendProcessInputOutput represents the result of sending input
type SendProcessInputOutput struct {
	BytesSent   int  `json:"bytes_sent" jsonschema:"number of bytes sent to process"`
	StdinClosed bool `json:"stdin_closed" jsonschema:"whether stdin was closed"`
}

// ReadProcessOutputArgs represents arguments for reading process output
type ReadProcessOutputArgs struct {
	ID       string `json:"id" jsonschema:"unique process identifier"`
	Stream   string `json:"stream,omitempty" jsonschema:"which output stream to read: stdout or stderr (default stdout)"`
	Position int64  `json:"position,omitempty" jsonschema:"position in stream to start reading from"`
	MaxBytes int    `json:"max_bytes,omitempty" jsonschema:"maximum number of bytes to read (default 1024)"`
	Blocking bool   `json:"blocking,omitempty" jsonschema:"whether to block until data is available"`
	Timeout  int    `json:"timeout,omitempty" jsonschema:"timeout in seconds for blocking reads"`
	Binary   bool   `json:"binary,omitempty" jsonschema:"return the data base64 encoded, preserving bytes that are not valid UTF-8"`
}

// ReadProcessOutputOutput represents the result of reading process output
type ReadProcessOutputOutput struct {
	Data      string `json:"data" jsonschema:"output data from the process"`
	Encoding  string `json:"encoding" jsonschema:"encoding of data: utf-8 or base64"`
	Position  int64  `json:"position" jsonschema:"new position in the stream"`
	HasMore   bool   `json:"has_more" jsonschema:"whether there is more data available"`
	BytesRead int    `json:"bytes_read" jsonschema:"number of bytes actually read"`
}

// TerminateProcessArgs represents arguments for terminating a process
type TerminateProcessArgs struct {
	ID          string `json:"id" jsonschema:"unique process identifier"`
	Force       bool   `json:"force,omitempty" jsonschema:"whether to force kill the process (SIGKILL vs SIGTERM)"`
	GracePeriod int    `json:"grace_period,omitempty" jsonschema:"seconds to wait before force killing (default 5)"`
}

// TerminateProcessOutput represents the result of terminating a process
type TerminateProcessOutput struct {
	ID         string `json:"id" jsonschema:"unique process identifier"`
	Terminated bool   `json:"terminated" jsonschema:"whether the process was successfully terminated"`
	WasRunning bool   `json:"was_running" jsonschema:"whether the process was running before termination"`
	Method     string `json:"method" jsonschema:"termination method used (graceful/forced)"`
}

// SendSignalArgs represents arguments for sending a signal to a process
type SendSignalArgs struct {
	ID     string `json:"id" jsonschema:"unique process identifier"`
	Signal string `json:"signal" jsonschema:"signal name (SIGTERM, TERM) or number"`
}

// SendSignalOutput represents the result of sending a signal
type SendSignalOutput struct {
	ID     string `json:"id" jsonschema:"unique process identifier"`
	Signal string `json:"signal" jsonschema:"signal that was sent"`
	Sent   bool   `json:"sent" jsonschema:"whether the signal was successfully sent"`
}

// DescribeErrnoArgs represents arguments for describing an OS error code
type DescribeErrnoArgs struct {
	Code int `json:"code" jsonschema:"numeric OS error code (errno)"`
}

// DescribeErrnoOutput represents a decoded OS error code
type DescribeErrnoOutput struct {
	Code      int    `json:"code" jsonschema:"the numeric code"`
	Kind      string `json:"kind" jsonschema:"the named condition, or UNKNOWN"`
	Known     bool   `json:"known" jsonschema:"whether the code maps to a named condition"`
	Message   string `json:"message,omitempty" jsonschema:"the OS description of the code"`
	Temporary bool   `json:"temporary" jsonschema:"whether retrying may succeed"`
}

// DecodeWaitStatusArgs represents arguments for decoding a wait status word
type DecodeWaitStatusArgs struct {
	Status uint32 `json:"status" jsonschema:"packed status word as returned by wait"`
}

// DecodeWaitStatusOutput represents a decoded wait status word
type DecodeWaitStatusOutput struct {
	Status      uint32 `json:"status" jsonschema:"the packed status word"`
	Exited      bool   `json:"exited" jsonschema:"whether the child terminated normally"`
	ExitCode    *int   `json:"exit_code,omitempty" jsonschema:"exit code of a normally terminated child"`
	Signaled    bool   `json:"signaled" jsonschema:"whether a signal terminated the child"`
	Signal      string `json:"signal,omitempty" jsonschema:"terminating signal"`
	CoreDumped  bool   `json:"core_dumped" jsonschema:"whether the child dumped core"`
	Stopped     bool   `json:"stopped" jsonschema:"whether the child is stopped"`
	StopSignal  string `json:"stop_signal,omitempty" jsonschema:"signal that stopped the child"`
	Continued   bool   `json:"continued" jsonschema:"whether the child was resumed"`
	Description string `json:"description" jsonschema:"human-readable summary"`
}
