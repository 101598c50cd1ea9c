// Package trace implements the kernel's append-only JSONL audit trail:
// every program invocation emits a record of its run/node/op/flow/
// capability lifecycle, independent of and complementary to the error
// source-location chain.
package trace

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alp-run/alp/pkg/alperr"
)

// EventType enumerates every ALP trace event.
type EventType string

const (
	EventRunStart           EventType = "run_start"
	EventRunComplete        EventType = "run_complete"
	EventNodeLoaded         EventType = "node_loaded"
	EventFnEnter            EventType = "fn_enter"
	EventOpStep             EventType = "op_step"
	EventLLMCall            EventType = "llm_call"
	EventFnExit             EventType = "fn_exit"
	EventFlowEdge           EventType = "flow_edge"
	EventCapabilityDecision EventType = "capability_decision"
	EventRetryAttempt       EventType = "retry_attempt"
)

// Event is a single JSONL trace record.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer writes trace events to an append-only JSONL stream, redacting
// the current values of the environment variables named through
// SetSecretEnvVars before each event is written. Until SetSecretEnvVars is
// called, events are written unredacted.
type Writer struct {
	mu      sync.Mutex
	enc     *json.Encoder
	runID   string
	secrets []string
	closer  io.Closer
}

// NewWriter returns a Writer appending events to w under runID.
func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{enc: json.NewEncoder(w), runID: runID}
}

// NewFileWriter opens (or creates) path for append and wraps it in a Writer.
func NewFileWriter(path, runID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindIO, err, "open trace file %q", path)
	}
	w := NewWriter(f, runID)
	w.closer = f
	return w, nil
}

// Close releases the underlying file, if this Writer owns one (built via
// NewFileWriter). A Writer built over an arbitrary io.Writer via NewWriter
// has nothing to close and this is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// SetSecretEnvVars configures the environment variable names whose current
// values should be redacted out of every subsequently emitted event.
func (w *Writer) SetSecretEnvVars(names []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.secrets = names
}

func (w *Writer) redact(data map[string]any) map[string]any {
	if len(w.secrets) == 0 {
		return data
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = w.redactValue(v)
	}
	return out
}

func (w *Writer) redactValue(v any) any {
	switch t := v.(type) {
	case string:
		for _, name := range w.secrets {
			secret := os.Getenv(name)
			if secret != "" {
				t = strings.ReplaceAll(t, secret, "<REDACTED>")
			}
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = w.redactValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = w.redactValue(vv)
		}
		return out
	default:
		return v
	}
}

// Emit writes a single event of the given type.
func (w *Writer) Emit(eventType EventType, data map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	evt := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     w.runID,
		Data:      w.redact(data),
	}
	if err := w.enc.Encode(evt); err != nil {
		return alperr.Wrap(alperr.KindIO, err, "write trace event %s", eventType)
	}
	return nil
}

func (w *Writer) EmitRunStart(programPath string, inbound any) error {
	return w.Emit(EventRunStart, map[string]any{"program": programPath, "inbound": inbound})
}

func (w *Writer) EmitRunComplete(status string, duration time.Duration, outbound any, failErr error) error {
	data := map[string]any{"status": status, "duration": duration.String()}
	if outbound != nil {
		data["outbound"] = outbound
	}
	if failErr != nil {
		data["error"] = failErr.Error()
	}
	return w.Emit(EventRunComplete, data)
}

func (w *Writer) EmitNodeLoaded(kind, id string) error {
	return w.Emit(EventNodeLoaded, map[string]any{"kind": kind, "id": id})
}

func (w *Writer) EmitFnEnter(fnID string, in any) error {
	return w.Emit(EventFnEnter, map[string]any{"fn": fnID, "in": in})
}

func (w *Writer) EmitFnExit(fnID string, out any, fnErr error) error {
	data := map[string]any{"fn": fnID}
	if out != nil {
		data["out"] = out
	}
	if fnErr != nil {
		data["error"] = fnErr.Error()
	}
	return w.Emit(EventFnExit, data)
}

func (w *Writer) EmitOpStep(fnID string, index int, op string, args map[string]any, stepErr error) error {
	data := map[string]any{"fn": fnID, "step": index, "op": op, "args": args}
	if stepErr != nil {
		data["error"] = stepErr.Error()
	}
	return w.Emit(EventOpStep, data)
}

func (w *Writer) EmitLLMCall(fnID, task string, schema string, callErr error) error {
	data := map[string]any{"fn": fnID, "task": task, "schema": schema}
	if callErr != nil {
		data["error"] = callErr.Error()
	}
	return w.Emit(EventLLMCall, data)
}

func (w *Writer) EmitFlowEdge(source, dest string, matched bool) error {
	return w.Emit(EventFlowEdge, map[string]any{"source": source, "dest": dest, "matched": matched})
}

func (w *Writer) EmitCapabilityDecision(kind, target string, permitted bool) error {
	return w.Emit(EventCapabilityDecision, map[string]any{"kind": kind, "target": target, "permitted": permitted})
}

func (w *Writer) EmitRetryAttempt(fnID string, attempt, maxAttempts int, backoff time.Duration, causeErr error) error {
	data := map[string]any{"fn": fnID, "attempt": attempt, "max_attempts": maxAttempts, "backoff": backoff.String()}
	if causeErr != nil {
		data["cause"] = causeErr.Error()
	}
	return w.Emit(EventRetryAttempt, data)
}
