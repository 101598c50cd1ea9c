// Package replay implements the scenario-based replay mode: a Scenario
// loaded from YAML substitutes canned tool and LLM responses for live
// transports, enabling deterministic end-to-end tests of programs that
// call tools or an LLM adapter without performing real I/O.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/invopop/jsonschema"

	"github.com/alp-run/alp/pkg/alperr"
)

// ToolResponse is a single canned response for a tool call.
type ToolResponse struct {
	Output any    `yaml:"output,omitempty" json:"output,omitempty"`
	Error  string `yaml:"error,omitempty" json:"error,omitempty"`
}

// LLMResponse is a single canned response for an @llm call.
type LLMResponse struct {
	Output any    `yaml:"output,omitempty" json:"output,omitempty"`
	Error  string `yaml:"error,omitempty" json:"error,omitempty"`
}

// Scenario is the top-level replay document: canned tool and LLM
// responses keyed by "tool:argsDigest" and "task:inputDigest"
// respectively, each a list consumed in order (first-match,
// first-consumed), matching the teacher's replay-executor convention.
type Scenario struct {
	ToolResponses map[string][]ToolResponse `yaml:"tool_responses,omitempty" json:"tool_responses,omitempty"`
	LLMResponses  map[string][]LLMResponse  `yaml:"llm_responses,omitempty" json:"llm_responses,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindIO, err, "read scenario %q", path)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML from data.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, alperr.Wrap(alperr.KindSyntax, err, "parse scenario")
	}
	return &s, nil
}

// Digest returns a short, stable hash of v for use as part of a scenario
// response key — deterministic across runs since it is derived only from
// the call's own arguments/input, never from wall-clock time or
// randomness. Exported so a scenario author's tooling can compute the
// same digest-specific key ("tool:digest") that ToolResponse/Call match
// against.
func Digest(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

// Executor consumes a Scenario's canned tool responses, implementing
// toolio.ReplaySource.
type Executor struct {
	mu       sync.Mutex
	scenario *Scenario
	consumed map[string]int
}

// NewExecutor returns a replay Executor over scenario.
func NewExecutor(scenario *Scenario) *Executor {
	return &Executor{scenario: scenario, consumed: make(map[string]int)}
}

// ToolResponse implements toolio.ReplaySource. It first tries an
// args-digest-specific key ("tool:digest"), falling back to the bare tool
// name so a scenario author can supply one catch-all response per tool.
func (e *Executor) ToolResponse(toolName string, args map[string]any) (any, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	specific := toolName + ":" + Digest(args)
	key := specific
	responses, ok := e.scenario.ToolResponses[key]
	if !ok {
		key = toolName
		responses, ok = e.scenario.ToolResponses[key]
		if !ok {
			return nil, false, nil
		}
	}

	idx := e.consumed[key]
	if idx >= len(responses) {
		return nil, true, alperr.New(alperr.KindTool, "replay: exhausted canned responses for %q (used %d)", key, len(responses))
	}
	resp := responses[idx]
	e.consumed[key] = idx + 1

	if resp.Error != "" {
		return nil, true, alperr.New(alperr.KindTool, "replay: %s", resp.Error)
	}
	return resp.Output, true, nil
}

// LLM consumes a Scenario's canned LLM responses, implementing
// llm.Adapter without importing it: Call's signature is structurally
// identical, so LLM satisfies the interface by shape.
type LLM struct {
	mu       sync.Mutex
	scenario *Scenario
	consumed map[string]int
}

// NewLLM returns a replay LLM adapter over scenario.
func NewLLM(scenario *Scenario) *LLM {
	return &LLM{scenario: scenario, consumed: make(map[string]int)}
}

// Call returns the next canned response keyed by "task:inputDigest",
// falling back to the bare task name. schema is accepted only to satisfy
// llm.Adapter's signature; canned responses are trusted as-is and are not
// re-validated against it here (the caller's own schema validation still
// runs on the returned value).
func (l *LLM) Call(_ context.Context, task string, input any, _ *jsonschema.Schema) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	specific := task + ":" + Digest(input)
	key := specific
	responses, ok := l.scenario.LLMResponses[key]
	if !ok {
		key = task
		responses, ok = l.scenario.LLMResponses[key]
		if !ok {
			return nil, alperr.New(alperr.KindLLM, "replay: no canned response for task %q", task)
		}
	}

	idx := l.consumed[key]
	if idx >= len(responses) {
		return nil, alperr.New(alperr.KindLLM, "replay: exhausted canned responses for %q (used %d)", key, len(responses))
	}
	resp := responses[idx]
	l.consumed[key] = idx + 1

	if resp.Error != "" {
		return nil, alperr.New(alperr.KindLLM, "replay: %s", resp.Error)
	}
	return resp.Output, nil
}
