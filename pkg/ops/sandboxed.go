package ops

import (
	"context"
	"os"

	"github.com/alp-run/alp/pkg/alperr"
)

func registerSandboxed(r *Registry) {
	r.Register("read_file", HandlerFunc(opReadFile))
	r.Register("write_file", HandlerFunc(opWriteFile))
	r.Register("http", HandlerFunc(opHTTP))
	r.Register("tool_call", HandlerFunc(opToolCall))
	r.Register("read_stdin", HandlerFunc(opReadStdin))
}

func opReadFile(args map[string]any, ctx *Context) (any, error) {
	path, err := strArg(args, "path")
	if err != nil {
		return nil, err
	}
	if ctx.Gate == nil || !ctx.Gate.AllowRead(path) {
		return nil, alperr.New(alperr.KindCapability, "read_file: %q is outside the permitted I/O root", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindIO, err, "read_file: %q", path)
	}
	return string(data), nil
}

func opWriteFile(args map[string]any, ctx *Context) (any, error) {
	path, err := strArg(args, "path")
	if err != nil {
		return nil, err
	}
	content, err := strArg(args, "content")
	if err != nil {
		return nil, err
	}
	if ctx.Gate == nil || !ctx.Gate.AllowWrite(path) {
		return nil, alperr.New(alperr.KindCapability, "write_file: writing to %q is not permitted", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, alperr.Wrap(alperr.KindIO, err, "write_file: %q", path)
	}
	return true, nil
}

// opHTTP is the direct HTTP op (as distinct from tool_call against a
// declared http Tool): it issues a one-shot request described entirely by
// its arguments, gated the same way a Tool's http transport is.
func opHTTP(args map[string]any, ctx *Context) (any, error) {
	urlStr, err := strArg(args, "url")
	if err != nil {
		return nil, err
	}
	if ctx.Gate == nil || !ctx.Gate.AllowHTTP(urlStr) {
		return nil, alperr.New(alperr.KindCapability, "http: host of %q is not on the allowlist", urlStr)
	}
	method, _ := args["method"].(string)
	if method == "" {
		method = "GET"
	}
	headers, _ := args["headers"].(map[string]any)
	body, _ := args["body"].(string)
	if ctx.Tools == nil {
		return nil, alperr.New(alperr.KindOp, "http: no tool transport manager is wired into this context")
	}
	return ctx.Tools.CallInlineHTTP(context.Background(), urlStr, method, headers, body)
}

func opToolCall(args map[string]any, ctx *Context) (any, error) {
	name, err := strArg(args, "tool")
	if err != nil {
		return nil, err
	}
	toolArgs, _ := args["args"].(map[string]any)
	if ctx.Tools == nil {
		return nil, alperr.New(alperr.KindOp, "tool_call: no tool transport manager is wired into this context")
	}
	return ctx.Tools.Call(context.Background(), name, toolArgs)
}

func opReadStdin(args map[string]any, ctx *Context) (any, error) {
	if ctx.Gate == nil || !ctx.Gate.AllowStdin() {
		return nil, alperr.New(alperr.KindCapability, "read_stdin: stdin reads are not permitted")
	}
	if ctx.Stdin == nil {
		return nil, alperr.New(alperr.KindOp, "read_stdin: no stdin reader is wired into this context")
	}
	data, err := ctx.Stdin(ctx.Gate.StdinMaxBytes())
	if err != nil {
		return nil, alperr.Wrap(alperr.KindIO, err, "read_stdin")
	}
	return string(data), nil
}
