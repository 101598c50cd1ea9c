package llm

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/invopop/jsonschema"
)

// Mock is the deterministic LLM adapter: it never calls out to a network
// and synthesizes a schema-conformant value purely as a function of
// (task, input, schema), so the same program run twice produces the same
// result. This is the default provider and the one the replay/test
// harness runs against.
type Mock struct{}

// NewMock returns the mock provider.
func NewMock() *Mock { return &Mock{} }

// Call synthesizes a value matching schema, seeded from task and a string
// rendering of input so distinct calls with distinct inputs diverge.
func (m *Mock) Call(_ context.Context, task string, input any, schema *jsonschema.Schema) (any, error) {
	seed := fmt.Sprintf("%s|%v", task, input)
	return synth(schema, seed), nil
}

func seedHash(seed string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return h.Sum32()
}

func synth(schema *jsonschema.Schema, seed string) any {
	if schema == nil {
		return nil
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[int(seedHash(seed))%len(schema.Enum)]
	}
	if len(schema.OneOf) > 0 {
		branch := schema.OneOf[int(seedHash(seed))%len(schema.OneOf)]
		return synth(branch, seed+"#oneof")
	}
	switch schema.Type {
	case "object":
		out := make(map[string]any)
		if schema.Properties != nil {
			for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
				out[pair.Key] = synth(pair.Value, seed+"."+pair.Key)
			}
		}
		return out
	case "array":
		if schema.Items == nil {
			return []any{}
		}
		return []any{synth(schema.Items, seed+"[0]")}
	case "string":
		return fmt.Sprintf("mock-%d", seedHash(seed))
	case "integer":
		return int(seedHash(seed) % 1000)
	case "number":
		return float64(seedHash(seed)%1000) / 10.0
	case "boolean":
		return seedHash(seed)%2 == 0
	default:
		return nil
	}
}
