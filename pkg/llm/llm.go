// Package llm implements the ALP LLM adapter contract: a single
// call(task, input, schema) -> value operation backed by a pluggable
// provider. The mock provider synthesizes deterministically from its
// inputs so programs and their tests never depend on a live model; the
// openai and anthropic providers wrap their respective SDKs and constrain
// output to the caller's schema.
package llm

import (
	"context"

	"github.com/invopop/jsonschema"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
)

// Adapter is the LLM call contract used by the function executor's @llm
// step: given a task description, an input value, and the JSON Schema the
// result must validate against, it returns a schema-conformant value.
type Adapter interface {
	Call(ctx context.Context, task string, input any, schema *jsonschema.Schema) (any, error)
}

// New resolves a provider name (per capability.Config.ModelProvider) to a
// concrete Adapter. Unrecognized providers are an ErrCapability: the
// program asked for a model no gate was configured to grant.
func New(cfg capability.Config) (Adapter, error) {
	switch cfg.ModelProvider {
	case "", "mock":
		return NewMock(), nil
	case "openai":
		return NewOpenAI(cfg)
	case "anthropic":
		return NewAnthropic(cfg)
	default:
		return nil, alperr.New(alperr.KindCapability, "unrecognized model_provider %q", cfg.ModelProvider)
	}
}
