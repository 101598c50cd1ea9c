// Package loader implements the Program Loader: reads an ALP source
// (newline-delimited JSON), tolerating blank lines and "//"-prefixed
// comments, classifies each line via the Vocabulary, expands @import
// nodes (deduplicated by canonical path, resolved relative to the
// importing file and subject to the capability gate's read rule), and
// registers every declaration into the type, operation-tool, and fn
// registries in a single pass. Forward references are tolerated because
// registration is purely additive: a Fn or Flow edge naming an id not yet
// seen is only resolved when it is actually invoked, not at load time. An
// @import cycle (a file transitively importing itself) fails with
// ErrSyntax rather than being silently tolerated.
package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/flow"
	"github.com/alp-run/alp/pkg/fnexec"
	"github.com/alp-run/alp/pkg/ops"
	"github.com/alp-run/alp/pkg/toolio"
	"github.com/alp-run/alp/pkg/trace"
	"github.com/alp-run/alp/pkg/typesys"
	"github.com/alp-run/alp/pkg/vocab"
)

// Result is every registry a loaded program populates, plus its flattened
// flow edge list (the "anonymous and singular-or-concatenated" Flow node,
// per spec.md 3: every @flow line across the whole import graph appends to
// one edge list, in declaration order).
type Result struct {
	Types *typesys.Registry
	Ops   *ops.Registry
	Tools *toolio.Manager
	Fns   *fnexec.Registry
	Flow  *flow.Flow
}

// Loader accumulates a program's registries across one or more source
// files reached through @import.
type Loader struct {
	Types *typesys.Registry
	Ops   *ops.Registry
	Tools *toolio.Manager
	Fns   *fnexec.Registry
	Gate  *capability.Gate
	Trace *trace.Writer

	visited    map[string]bool
	inProgress map[string]bool
	edges      []flow.Edge
}

// New returns a Loader that registers into the given (already constructed)
// registries.
func New(types *typesys.Registry, opsReg *ops.Registry, tools *toolio.Manager, fns *fnexec.Registry, gate *capability.Gate) *Loader {
	return &Loader{
		Types:      types,
		Ops:        opsReg,
		Tools:      tools,
		Fns:        fns,
		Gate:       gate,
		visited:    make(map[string]bool),
		inProgress: make(map[string]bool),
	}
}

// LoadProgram is the common entry point: builds fresh registries, loads
// path (and everything it transitively imports), and returns the
// populated Result.
func LoadProgram(path string, gate *capability.Gate) (*Result, error) {
	types := typesys.NewRegistry()
	opsReg := ops.NewStandardRegistry()
	tools := toolio.NewManager(gate)
	fns := fnexec.NewRegistry()

	l := New(types, opsReg, tools, fns, gate)
	if err := l.LoadFile(path); err != nil {
		return nil, err
	}
	return &Result{Types: types, Ops: opsReg, Tools: tools, Fns: fns, Flow: &flow.Flow{Edges: l.edges}}, nil
}

// LoadFile reads and registers path, resolving it to an absolute canonical
// path for deduplication first. A path already fully loaded (directly or
// via an earlier @import) is silently skipped. A path still on the current
// @import call stack — i.e. a cycle — fails with ErrSyntax: spec.md 9
// requires import cycles to be detected and rejected, not silently
// tolerated.
func (l *Loader) LoadFile(path string) error {
	canon, err := filepath.Abs(path)
	if err != nil {
		return alperr.Wrap(alperr.KindIO, err, "resolve path %q", path)
	}
	canon = filepath.Clean(canon)
	if l.Gate != nil && !l.Gate.AllowRead(canon) {
		return alperr.New(alperr.KindCapability, "read %q denied by capability gate", canon)
	}
	if l.inProgress[canon] {
		return alperr.New(alperr.KindSyntax, "import cycle detected: %q is already being loaded", canon)
	}
	if l.visited[canon] {
		return nil
	}
	l.visited[canon] = true

	l.inProgress[canon] = true
	defer delete(l.inProgress, canon)

	data, err := os.ReadFile(canon)
	if err != nil {
		return alperr.Wrap(alperr.KindIO, err, "read source %q", canon)
	}
	return l.loadBytes(filepath.Dir(canon), data)
}

func (l *Loader) loadBytes(baseDir string, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return alperr.Wrap(alperr.KindSyntax, err, "parse line %d", lineNo)
		}
		if err := l.loadNode(baseDir, obj, lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return alperr.Wrap(alperr.KindIO, err, "scan source")
	}
	return nil
}

func (l *Loader) loadNode(baseDir string, obj map[string]any, lineNo int) error {
	tok, ok := vocab.TopLevelToken(obj)
	if !ok {
		return alperr.New(alperr.KindSyntax, "line %d: no recognized top-level node token", lineNo)
	}
	switch tok {
	case vocab.TokImport:
		return l.loadImport(baseDir, obj, lineNo)
	case vocab.TokShape:
		return l.loadShape(obj, lineNo)
	case vocab.TokDef:
		return l.loadDef(obj, lineNo)
	case vocab.TokTool:
		return l.loadTool(obj, lineNo)
	case vocab.TokFn:
		return l.loadFn(obj, lineNo)
	case vocab.TokFlow:
		return l.loadFlow(obj, lineNo)
	default:
		return alperr.New(alperr.KindSyntax, "line %d: unsupported top-level token %q", lineNo, tok)
	}
}

// normalizedFields builds a Token -> raw value view of obj, resolving
// every key (textual, CID alias, or bare word) through the vocabulary so
// nested node fields (@const, @op, @llm, @expect, @retry, @in, @out)
// accept the same spelling flexibility as top-level node keys.
func normalizedFields(obj map[string]any) map[vocab.Token]any {
	out := make(map[vocab.Token]any, len(obj))
	for k, v := range obj {
		if t, ok := vocab.Normalize(k); ok {
			out[t] = v
		}
	}
	return out
}

func (l *Loader) loadImport(baseDir string, obj map[string]any, lineNo int) error {
	fields := normalizedFields(obj)
	raw, ok := fields[vocab.TokImport]
	pathStr, ok2 := raw.(string)
	if !ok || !ok2 {
		return alperr.New(alperr.KindSyntax, "line %d: @import value must be a string path", lineNo)
	}
	target := pathStr
	if !filepath.IsAbs(target) {
		target = filepath.Join(baseDir, target)
	}
	if err := l.LoadFile(target); err != nil {
		return alperr.Wrap(alperr.KindSyntax, err, "line %d: @import %q", lineNo, pathStr)
	}
	return nil
}

func (l *Loader) loadShape(obj map[string]any, lineNo int) error {
	fields := normalizedFields(obj)
	name, ok := stringField(fields[vocab.TokShape])
	if !ok {
		return alperr.New(alperr.KindSyntax, "line %d: @shape value must be a string id", lineNo)
	}
	shape := &typesys.Shape{Name: name}

	fieldsRaw, _ := obj["fields"].(map[string]any)
	for _, fname := range sortedKeys(fieldsRaw) {
		exprStr, ok := fieldsRaw[fname].(string)
		if !ok {
			return alperr.New(alperr.KindSyntax, "line %d: shape %q field %q must be a type-expression string", lineNo, name, fname)
		}
		bare, optional := typesys.ParseFieldName(fname)
		expr, err := typesys.ParseTypeExpr(exprStr)
		if err != nil {
			return err
		}
		shape.Fields = append(shape.Fields, typesys.FieldSpec{Name: bare, Expr: expr, Optional: optional})
	}
	if defaults, ok := obj["defaults"].(map[string]any); ok {
		shape.Defaults = defaults
	}
	if l.Trace != nil {
		_ = l.Trace.EmitNodeLoaded("shape", name)
	}
	return l.Types.RegisterShape(shape)
}

func (l *Loader) loadDef(obj map[string]any, lineNo int) error {
	fields := normalizedFields(obj)
	name, ok := stringField(fields[vocab.TokDef])
	if !ok {
		return alperr.New(alperr.KindSyntax, "line %d: @def value must be a string id", lineNo)
	}
	def := &typesys.TypeDef{Name: name}

	switch {
	case obj["alias"] != nil:
		s, ok := obj["alias"].(string)
		if !ok {
			return alperr.New(alperr.KindSyntax, "line %d: def %q alias must be a string", lineNo, name)
		}
		expr, err := typesys.ParseTypeExpr(s)
		if err != nil {
			return err
		}
		def.Kind, def.Alias = typesys.DefAlias, expr
	case obj["union"] != nil:
		parts, ok := obj["union"].([]any)
		if !ok {
			return alperr.New(alperr.KindSyntax, "line %d: def %q union must be a list", lineNo, name)
		}
		for _, p := range parts {
			s, ok := p.(string)
			if !ok {
				return alperr.New(alperr.KindSyntax, "line %d: def %q union branch must be a string", lineNo, name)
			}
			expr, err := typesys.ParseTypeExpr(s)
			if err != nil {
				return err
			}
			def.Union = append(def.Union, expr)
		}
		def.Kind = typesys.DefUnion
	case obj["enum"] != nil:
		vals, ok := obj["enum"].([]any)
		if !ok {
			return alperr.New(alperr.KindSyntax, "line %d: def %q enum must be a list", lineNo, name)
		}
		def.EnumValues = vals
		def.Kind = typesys.DefEnum
	case obj["base"] != nil:
		base, ok := obj["base"].(string)
		if !ok {
			return alperr.New(alperr.KindSyntax, "line %d: def %q base must be a string", lineNo, name)
		}
		def.Base = base
		def.Kind = typesys.DefConstrained
		def.Constraint = parseConstraint(obj)
	default:
		return alperr.New(alperr.KindSyntax, "line %d: def %q has no alias/union/enum/base", lineNo, name)
	}
	if l.Trace != nil {
		_ = l.Trace.EmitNodeLoaded("def", name)
	}
	return l.Types.RegisterDef(def)
}

func parseConstraint(obj map[string]any) typesys.Constraint {
	var c typesys.Constraint
	if v, ok := obj["minLength"].(float64); ok {
		n := int(v)
		c.MinLength = &n
	}
	if v, ok := obj["maxLength"].(float64); ok {
		n := int(v)
		c.MaxLength = &n
	}
	if v, ok := obj["pattern"].(string); ok {
		c.Pattern = v
	}
	if v, ok := obj["min"].(float64); ok {
		c.Min = &v
	}
	if v, ok := obj["max"].(float64); ok {
		c.Max = &v
	}
	return c
}

func (l *Loader) loadTool(obj map[string]any, lineNo int) error {
	fields := normalizedFields(obj)
	name, ok := stringField(fields[vocab.TokTool])
	if !ok {
		return alperr.New(alperr.KindSyntax, "line %d: @tool value must be a string id", lineNo)
	}
	kindStr, _ := obj["kind"].(string)
	t := &toolio.Tool{Name: name, Kind: toolio.Kind(kindStr)}
	if v, ok := obj["timeout_ms"].(float64); ok {
		t.Timeout = time.Duration(v) * time.Millisecond
	}

	switch t.Kind {
	case toolio.KindCommand:
		t.Argv = stringSlice(obj["argv"])
	case toolio.KindHTTP:
		t.Method, _ = obj["method"].(string)
		t.URL, _ = obj["url"].(string)
		t.Body, _ = obj["body"].(string)
		if h, ok := obj["headers"].(map[string]any); ok {
			t.Headers = make(map[string]string, len(h))
			for k, v := range h {
				if s, ok := v.(string); ok {
					t.Headers[k] = s
				}
			}
		}
	case toolio.KindMCP, toolio.KindJSONRPC:
		t.ServerCommand, _ = obj["server_command"].(string)
		t.ServerArgs = stringSlice(obj["server_args"])
		t.ServerEnv = stringSlice(obj["server_env"])
		t.RPCMethod, _ = obj["rpc_method"].(string)
	default:
		return alperr.New(alperr.KindSyntax, "line %d: tool %q has unrecognized kind %q", lineNo, name, kindStr)
	}
	if l.Trace != nil {
		_ = l.Trace.EmitNodeLoaded("tool", name)
	}
	return l.Tools.Register(t)
}

func (l *Loader) loadFn(obj map[string]any, lineNo int) error {
	fields := normalizedFields(obj)
	name, ok := stringField(fields[vocab.TokFn])
	if !ok {
		return alperr.New(alperr.KindSyntax, "line %d: @fn value must be a string id", lineNo)
	}
	fn := &fnexec.Fn{ID: name}
	fn.In, _ = stringField(fields[vocab.TokIn])
	fn.Out, _ = stringField(fields[vocab.TokOut])
	if c, ok := fields[vocab.TokConst].(map[string]any); ok {
		fn.Const = c
	}
	if raw, ok := fields[vocab.TokOp].([]any); ok {
		steps, err := ops.ParseSteps(raw)
		if err != nil {
			return alperr.Wrap(alperr.KindSyntax, err, "line %d: fn %q @op", lineNo, name)
		}
		fn.Steps = steps
	}
	if raw, ok := fields[vocab.TokLLM].(map[string]any); ok {
		spec := &fnexec.LLMSpec{}
		spec.Task, _ = raw["task"].(string)
		spec.Input = raw["input"]
		spec.Schema, _ = raw["schema"].(string)
		spec.As, _ = raw["as"].(string)
		fn.LLM = spec
	}
	if raw, ok := fields[vocab.TokExpect].(map[string]any); ok {
		fn.Expect = raw
	}
	if raw, ok := fields[vocab.TokRetry].(map[string]any); ok {
		retry := &fnexec.RetrySpec{}
		if n, ok := raw["max_attempts"].(float64); ok {
			retry.MaxAttempts = int(n)
		}
		if n, ok := raw["backoff_ms"].(float64); ok {
			retry.BackoffMS = int(n)
		}
		for _, o := range stringSlice(raw["on"]) {
			retry.On = append(retry.On, alperr.Kind(o))
		}
		fn.Retry = retry
	}
	if l.Trace != nil {
		_ = l.Trace.EmitNodeLoaded("fn", name)
	}
	return l.Fns.Register(fn)
}

func (l *Loader) loadFlow(obj map[string]any, lineNo int) error {
	fields := normalizedFields(obj)
	raw, ok := fields[vocab.TokFlow].([]any)
	if !ok {
		return alperr.New(alperr.KindSyntax, "line %d: @flow value must be an edge list", lineNo)
	}
	for _, item := range raw {
		arr, ok := item.([]any)
		if !ok || len(arr) < 2 || len(arr) > 3 {
			return alperr.New(alperr.KindSyntax, "line %d: flow edge must be [source, dest, meta?]", lineNo)
		}
		source, ok := arr[0].(string)
		if !ok {
			return alperr.New(alperr.KindSyntax, "line %d: flow edge source must be a string", lineNo)
		}
		var dest *string
		if arr[1] != nil {
			d, ok := arr[1].(string)
			if !ok {
				return alperr.New(alperr.KindSyntax, "line %d: flow edge destination must be a string or null", lineNo)
			}
			dest = &d
		}
		var when map[string]any
		if len(arr) == 3 {
			meta, ok := arr[2].(map[string]any)
			if !ok {
				return alperr.New(alperr.KindSyntax, "line %d: flow edge metadata must be a mapping", lineNo)
			}
			if w, ok := meta["when"].(map[string]any); ok {
				when = w
			}
		}
		l.edges = append(l.edges, flow.Edge{Source: source, Dest: dest, When: when})
	}
	if l.Trace != nil {
		_ = l.Trace.EmitNodeLoaded("flow", "")
	}
	return nil
}

func stringField(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
