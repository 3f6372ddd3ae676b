package internal

import (
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nalgeon/be"
	"golang.org/x/sys/unix"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	registry := newTestRegistry(t, nil)
	server := NewServer("test", registry)

	_, err := server.Connect(t.Context(), serverTransport, nil)
	be.Err(t, err, nil)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "na",
	}, nil)

	clientSession, err := client.Connect(t.Context(), clientTransport, nil)
	be.Err(t, err, nil)
	t.Cleanup(func() { clientSession.Close() })
	return clientSession
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(t.Context(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	be.Err(t, err, nil)
	return result
}

func structured(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	be.True(t, !result.IsError)
	sc, ok := result.StructuredContent.(map[string]any)
	be.True(t, ok)
	return sc
}

func TestServer(t *testing.T) {
	session := connect(t)

	result, err := session.ListTools(t.Context(), nil)
	be.Err(t, err, nil)

	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, def := range []mcp.Tool{
		StartProcessToolDef, ListProcessesToolDef, GetProcessStatusToolDef,
		SendProcessInputToolDef, ReadProcessOutputToolDef, TerminateProcessToolDef,
		SendSignalToolDef, DescribeErrnoToolDef, DecodeWaitStatusToolDef,
	} {
		be.True(t, names[def.Name])
	}
}

func TestProcessTools(t *testing.T) {
	session := connect(t)

	sc := structured(t, callTool(t, session, StartProcessToolDef.Name, map[string]any{
		"command":        "read line; echo \"got $line\"; exit 2",
		"shell":          "sh",
		"capture_output": true,
	}))
	id := sc["id"].(string)
	be.True(t, sc["pid"].(float64) > 0)

	sc = structured(t, callTool(t, session, SendProcessInputToolDef.Name, map[string]any{
		"id":      id,
		"input":   "ping",
		"newline": true,
	}))
	be.Equal(t, sc["bytes_sent"].(float64), 5.0)

	sc = structured(t, callTool(t, session, ReadProcessOutputToolDef.Name, map[string]any{
		"id":       id,
		"blocking": true,
		"timeout":  5,
	}))
	be.Equal(t, sc["data"].(string), "got ping\n")

	var status map[string]any
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status = structured(t, callTool(t, session, GetProcessStatusToolDef.Name, map[string]any{"id": id}))
		if status["state"] == string(ProcessStateTerminated) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	be.Equal(t, status["state"].(string), string(ProcessStateTerminated))
	be.Equal(t, status["exit_code"].(float64), 2.0)

	sc = structured(t, callTool(t, session, ListProcessesToolDef.Name, map[string]any{"state": "terminated"}))
	be.Equal(t, sc["total"].(float64), 1.0)

	sc = structured(t, callTool(t, session, TerminateProcessToolDef.Name, map[string]any{"id": id}))
	be.True(t, !sc["terminated"].(bool))
	be.True(t, !sc["was_running"].(bool))
}

func TestSignalTools(t *testing.T) {
	session := connect(t)

	sc := structured(t, callTool(t, session, StartProcessToolDef.Name, map[string]any{
		"command": "sleep 10",
		"shell":   "sh",
	}))
	id := sc["id"].(string)

	sc = structured(t, callTool(t, session, SendSignalToolDef.Name, map[string]any{
		"id":     id,
		"signal": "kill",
	}))
	be.Equal(t, sc["signal"].(string), "SIGKILL")
	be.True(t, sc["sent"].(bool))

	result := callTool(t, session, SendSignalToolDef.Name, map[string]any{
		"id":     id,
		"signal": "NOPE",
	})
	be.True(t, result.IsError)
}

func TestStartProcessToolErrors(t *testing.T) {
	session := connect(t)

	result := callTool(t, session, StartProcessToolDef.Name, map[string]any{
		"command": "no-such-program-7f3e",
		"args":    []string{"x"},
	})
	be.True(t, result.IsError)

	result = callTool(t, session, GetProcessStatusToolDef.Name, map[string]any{"id": "missing"})
	be.True(t, result.IsError)
}

func TestDescribeErrno(t *testing.T) {
	session := connect(t)

	sc := structured(t, callTool(t, session, DescribeErrnoToolDef.Name, map[string]any{"code": 2}))
	be.Equal(t, sc["kind"].(string), "ENOENT")
	be.True(t, sc["known"].(bool))
	be.True(t, sc["message"].(string) != "")
	be.True(t, !sc["temporary"].(bool))

	sc = structured(t, callTool(t, session, DescribeErrnoToolDef.Name, map[string]any{"code": 4}))
	be.Equal(t, sc["kind"].(string), "EINTR")
	be.True(t, sc["temporary"].(bool))

	sc = structured(t, callTool(t, session, DescribeErrnoToolDef.Name, map[string]any{"code": 9999}))
	be.Equal(t, sc["kind"].(string), "UNKNOWN")
	be.True(t, !sc["known"].(bool))

	result := callTool(t, session, DescribeErrnoToolDef.Name, map[string]any{"code": 0})
	be.True(t, result.IsError)
}

func TestDecodeWaitStatus(t *testing.T) {
	session := connect(t)

	sc := structured(t, callTool(t, session, DecodeWaitStatusToolDef.Name, map[string]any{"status": 3 << 8}))
	be.True(t, sc["exited"].(bool))
	be.Equal(t, sc["exit_code"].(float64), 3.0)
	be.Equal(t, sc["description"].(string), "exit status 3")

	sc = structured(t, callTool(t, session, DecodeWaitStatusToolDef.Name, map[string]any{"status": int(unix.SIGABRT) | 0x80}))
	be.True(t, sc["signaled"].(bool))
	be.True(t, sc["core_dumped"].(bool))
	be.Equal(t, sc["signal"].(string), "SIGABRT")
	be.True(t, sc["exit_code"] == nil)

	sc = structured(t, callTool(t, session, DecodeWaitStatusToolDef.Name, map[string]any{"status": int(unix.SIGSTOP)<<8 | 0x7f}))
	be.True(t, sc["stopped"].(bool))
	be.Equal(t, sc["stop_signal"].(string), "SIGSTOP")

	sc = structured(t, callTool(t, session, DecodeWaitStatusToolDef.Name, map[string]any{"status": 0xffff}))
	be.True(t, sc["continued"].(bool))
}

func TestReadProcessOutputBinary(t *testing.T) {
	session := connect(t)

	sc := structured(t, callTool(t, session, StartProcessToolDef.Name, map[string]any{
		"command":        `printf '\377\376A'`,
		"shell":          "sh",
		"capture_output": true,
	}))
	id := sc["id"].(string)

	sc = structured(t, callTool(t, session, ReadProcessOutputToolDef.Name, map[string]any{
		"id":       id,
		"blocking": true,
		"timeout":  5,
		"binary":   true,
	}))
	be.Equal(t, sc["encoding"].(string), "base64")
	be.Equal(t, sc["data"].(string), "//5B")
	be.Equal(t, sc["bytes_read"].(float64), 3.0)
	be.Equal(t, sc["position"].(float64), 3.0)
}
