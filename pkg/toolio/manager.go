package toolio

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
)

// Manager holds every Tool declared by a loaded program and dispatches
// tool_call invocations to the matching transport. It keeps long-lived MCP
// and JSON-RPC client connections alive across calls within one process
// invocation and tears them down on Close.
type Manager struct {
	gate *capability.Gate

	mu       sync.Mutex
	tools    map[string]*Tool
	mcpConns map[string]*mcpConn
	rpcConns map[string]*jsonrpcConn
	replay   ReplaySource
}

// ReplaySource supplies a canned response for a tool call in place of its
// live transport, keyed by tool name and the call's resolved arguments.
// The bool return reports whether a canned response exists at all; a
// false skip falls through to the real transport.
type ReplaySource interface {
	ToolResponse(toolName string, args map[string]any) (result any, ok bool, err error)
}

// UseReplay installs src, making every subsequent Call consult it before
// any live transport. Passing nil restores live dispatch.
func (m *Manager) UseReplay(src ReplaySource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replay = src
}

// NewManager returns an empty Manager bound to gate.
func NewManager(gate *capability.Gate) *Manager {
	return &Manager{
		gate:     gate,
		tools:    make(map[string]*Tool),
		mcpConns: make(map[string]*mcpConn),
		rpcConns: make(map[string]*jsonrpcConn),
	}
}

// Register adds a Tool declaration.
func (m *Manager) Register(t *Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tools[t.Name]; ok {
		return alperr.New(alperr.KindDuplicate, "tool %q already registered", t.Name)
	}
	m.tools[t.Name] = t
	return nil
}

// Call invokes the named tool with the given resolved argument mapping,
// after consulting the capability gate for the tool's transport.
func (m *Manager) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	m.mu.Lock()
	t, ok := m.tools[name]
	replay := m.replay
	m.mu.Unlock()
	if !ok {
		return nil, alperr.New(alperr.KindTool, "tool %q is not registered", name)
	}
	if replay != nil {
		if result, handled, err := replay.ToolResponse(name, args); handled {
			return result, err
		}
	}

	switch t.Kind {
	case KindCommand:
		return m.callCommand(ctx, t, args)
	case KindHTTP:
		return m.callHTTP(ctx, t, args)
	case KindMCP:
		return m.callMCP(ctx, t, args)
	case KindJSONRPC:
		return m.callJSONRPC(ctx, t, args)
	default:
		return nil, alperr.New(alperr.KindTool, "tool %q has unknown transport %q", name, t.Kind)
	}
}

// Names returns every registered tool name, sorted, for diagnostics and the
// explain CLI command.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tools))
	for name := range m.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tools)
}

// Close tears down every long-lived MCP/JSON-RPC connection opened by this
// Manager.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.mcpConns {
		c.close()
	}
	for _, c := range m.rpcConns {
		c.close()
	}
}

func commandHead(argv []string, fallback string) string {
	if len(argv) > 0 {
		return filepath.Base(argv[0])
	}
	return filepath.Base(fallback)
}
