package internal

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the MCP server exposing the process tools over registry
func NewServer(version string, registry *Registry) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "sysown-mcp",
		Title:   "Process Control MCP",
		Version: version,
	}, nil)

	tools := NewProcessTools(registry)
	mcp.AddTool(server, &StartProcessToolDef, tools.StartProcess)
	mcp.AddTool(server, &ListProcessesToolDef, tools.ListProcesses)
	mcp.AddTool(server, &GetProcessStatusToolDef, tools.GetProcessStatus)
	mcp.AddTool(server, &SendProcessInputToolDef, tools.SendProcessInput)
	mcp.AddTool(server, &ReadProcessOutputToolDef, tools.ReadProcessOutput)
	mcp.AddTool(server, &TerminateProcessToolDef, tools.TerminateProcess)
	mcp.AddTool(server, &SendSignalToolDef, tools.SendSignal)
	mcp.AddTool(server, &DescribeErrnoToolDef, DescribeErrno)
	mcp.AddTool(server, &DecodeWaitStatusToolDef, DecodeWaitStatus)

	return server
}

func ptr[T any](t T) *T {
	return &t
}
