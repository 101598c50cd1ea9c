package toolio

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alp-run/alp/pkg/alperr"
)

// jsonrpcConn manages a persistent JSON-RPC 2.0 server process addressed
// over its stdin/stdout pipes, for tools that expose a long-lived
// request/response server rather than one-shot command invocation.
type jsonrpcConn struct {
	cmd    *exec.Cmd
	enc    *json.Encoder
	reader *bufio.Reader
	nextID int64
	mu     sync.Mutex
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *jsonrpcConn) close() {
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
}

func (m *Manager) callJSONRPC(ctx context.Context, t *Tool, args map[string]any) (any, error) {
	head := commandHead(nil, t.ServerCommand)
	if !m.gate.AllowToolCommand(head) {
		return nil, alperr.New(alperr.KindCapability, "jsonrpc tool %q: server command %q denied by capability gate", t.Name, head)
	}

	conn, err := m.jsonrpcConnFor(t)
	if err != nil {
		return nil, err
	}

	timeout := t.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	_, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := t.RPCMethod
	if method == "" {
		method = t.Name
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	id := atomic.AddInt64(&conn.nextID, 1)
	if err := conn.enc.Encode(jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: args}); err != nil {
		return nil, alperr.Wrap(alperr.KindTool, err, "send jsonrpc request to tool %q", t.Name)
	}

	line, err := conn.reader.ReadBytes('\n')
	if err != nil {
		return nil, alperr.Wrap(alperr.KindTool, err, "read jsonrpc response from tool %q", t.Name)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, alperr.Wrap(alperr.KindTool, err, "decode jsonrpc response from tool %q", t.Name)
	}
	if resp.Error != nil {
		return nil, alperr.New(alperr.KindTool, "jsonrpc tool %q error %d: %s", t.Name, resp.Error.Code, resp.Error.Message)
	}

	var result any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, alperr.Wrap(alperr.KindTool, err, "decode jsonrpc result from tool %q", t.Name)
		}
	}
	return result, nil
}

func (m *Manager) jsonrpcConnFor(t *Tool) (*jsonrpcConn, error) {
	m.mu.Lock()
	conn, ok := m.rpcConns[t.Name]
	m.mu.Unlock()
	if ok {
		return conn, nil
	}

	cmd := exec.Command(t.ServerCommand, t.ServerArgs...)
	cmd.Env = append(os.Environ(), t.ServerEnv...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, alperr.Wrap(alperr.KindTool, err, "open stdin pipe for tool %q", t.Name)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, alperr.Wrap(alperr.KindTool, err, "open stdout pipe for tool %q", t.Name)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, alperr.Wrap(alperr.KindTool, err, "start jsonrpc server for tool %q", t.Name)
	}

	conn = &jsonrpcConn{
		cmd:    cmd,
		enc:    json.NewEncoder(stdin),
		reader: bufio.NewReader(stdout),
	}
	m.mu.Lock()
	m.rpcConns[t.Name] = conn
	m.mu.Unlock()
	return conn, nil
}
