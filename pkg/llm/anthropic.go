package llm

import (
	"context"
	"encoding/json"
	"os"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/invopop/jsonschema"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
)

const anthropicResultTool = "emit_alp_result"

// Anthropic wraps the Messages API, forcing a single tool call whose input
// schema is the caller's output schema: the model's only way to respond is
// to call the tool with schema-conformant arguments, which become the
// returned value.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic builds the Anthropic provider from ANTHROPIC_API_KEY/
// ANTHROPIC_MODEL.
func NewAnthropic(_ capability.Config) (*Anthropic, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, alperr.New(alperr.KindCapability, "ANTHROPIC_API_KEY not set for model_provider=anthropic")
	}
	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	return &Anthropic{
		client: anthropic.NewClient(anthropicopt.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (a *Anthropic) Call(ctx context.Context, task string, input any, schema *jsonschema.Schema) (any, error) {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindLLM, err, "marshal llm input")
	}
	schemaProps, err := schemaToToolInput(schema)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindLLM, err, "convert output schema to tool input schema")
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(task + "\n\nInput:\n" + string(inputJSON))),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        anthropicResultTool,
					Description: anthropic.String("Emit the structured result for this task."),
					InputSchema: schemaProps,
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: anthropicResultTool},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutOrCancel(ctx)
		}
		return nil, alperr.Wrap(alperr.KindLLM, err, "anthropic messages.new")
	}

	for _, block := range resp.Content {
		if use := block.AsToolUse(); use.Name == anthropicResultTool {
			var out any
			if err := json.Unmarshal(use.Input, &out); err != nil {
				return nil, alperr.Wrap(alperr.KindLLM, err, "decode anthropic tool_use input")
			}
			return out, nil
		}
	}
	return nil, alperr.New(alperr.KindLLM, "anthropic response contained no %s tool call", anthropicResultTool)
}

// schemaToToolInput adapts an invopop/jsonschema document (object type,
// named properties) to the plain map shape the Anthropic tool-input schema
// field expects.
func schemaToToolInput(schema *jsonschema.Schema) (anthropic.ToolInputSchemaParam, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return anthropic.ToolInputSchemaParam{}, err
	}
	var decoded struct {
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return anthropic.ToolInputSchemaParam{}, err
	}
	return anthropic.ToolInputSchemaParam{
		Properties: decoded.Properties,
		Required:   decoded.Required,
	}, nil
}
