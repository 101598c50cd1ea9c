package toolio

import (
	"context"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/alp-run/alp/pkg/alperr"
)

// mcpConn wraps a long-lived MCP stdio client connection to a single
// server process, kept alive across calls within one program invocation.
type mcpConn struct {
	client *mcpgo.Client
}

func (c *mcpConn) close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (m *Manager) callMCP(ctx context.Context, t *Tool, args map[string]any) (any, error) {
	head := commandHead(nil, t.ServerCommand)
	if !m.gate.AllowToolCommand(head) {
		return nil, alperr.New(alperr.KindCapability, "mcp tool %q: server command %q denied by capability gate", t.Name, head)
	}

	conn, err := m.mcpConnFor(ctx, t)
	if err != nil {
		return nil, err
	}

	timeout := t.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = t.Name
	req.Params.Arguments = args

	res, err := conn.client.CallTool(callCtx, req)
	if err != nil {
		if isContextErr(callCtx) {
			return nil, timeoutOrCancel(callCtx, t.Name)
		}
		return nil, alperr.Wrap(alperr.KindTool, err, "mcp call for tool %q", t.Name)
	}
	if res.IsError {
		return nil, alperr.New(alperr.KindTool, "mcp tool %q returned an error result", t.Name)
	}

	texts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			texts = append(texts, tc.Text)
		}
	}
	return map[string]any{"content": joinLines(texts)}, nil
}

func (m *Manager) mcpConnFor(ctx context.Context, t *Tool) (*mcpConn, error) {
	m.mu.Lock()
	conn, ok := m.mcpConns[t.Name]
	m.mu.Unlock()
	if ok {
		return conn, nil
	}

	cl, err := mcpgo.NewStdioMCPClient(t.ServerCommand, t.ServerEnv, t.ServerArgs...)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindTool, err, "spawn mcp server for tool %q", t.Name)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "alp", Version: "0.1"}
	if _, err := cl.Initialize(ctx, initReq); err != nil {
		cl.Close()
		return nil, alperr.Wrap(alperr.KindTool, err, "mcp initialize handshake for tool %q", t.Name)
	}

	conn = &mcpConn{client: cl}
	m.mu.Lock()
	m.mcpConns[t.Name] = conn
	m.mu.Unlock()
	return conn, nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
