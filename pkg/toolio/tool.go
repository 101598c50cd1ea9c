// Package toolio implements the four Tool transport variants a `tool_call`
// operation may invoke: subprocess command, HTTP, MCP (Model Context
// Protocol, stdio transport), and JSON-RPC 2.0 over stdio. Every transport
// is routed through the capability gate before any process, socket, or
// pipe is opened.
package toolio

import "time"

// Kind discriminates a Tool's transport.
type Kind string

const (
	KindCommand Kind = "command"
	KindHTTP    Kind = "http"
	KindMCP     Kind = "mcp"
	KindJSONRPC Kind = "jsonrpc"
)

// Tool is a named external capability binding. The transport-specific
// fields below hold its invocation template (Argv, URL/Body, or the
// MCP/JSON-RPC server spawn spec); call arguments are substituted into
// "{arg_name}" placeholders by name at call time.
type Tool struct {
	Name    string
	Kind    Kind
	Timeout time.Duration

	// command
	Argv []string // may contain "{arg_name}" placeholders

	// http
	Method  string
	URL     string // may contain "{arg_name}" placeholders
	Headers map[string]string
	Body    string // template, optional

	// mcp / jsonrpc: both spawn a long-lived server process.
	ServerCommand string
	ServerArgs    []string
	ServerEnv     []string
	RPCMethod     string // jsonrpc method name (defaults to Name); mcp calls the server tool named Name
}

// There is no python-callable Tool kind: the loader rejects any kind other
// than the four above, and no transport consults the capability gate's
// AllowToolPython check.
