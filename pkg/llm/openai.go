package llm

import (
	"context"
	"encoding/json"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/invopop/jsonschema"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
)

// OpenAI wraps an OpenAI-compatible chat-completions client, constraining
// its output to the caller's schema via the API's JSON-schema structured
// output mode.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the OpenAI provider from OPENAI_API_KEY/OPENAI_MODEL.
func NewOpenAI(_ capability.Config) (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, alperr.New(alperr.KindCapability, "OPENAI_API_KEY not set for model_provider=openai")
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}, nil
}

func (o *OpenAI) Call(ctx context.Context, task string, input any, schema *jsonschema.Schema) (any, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindLLM, err, "marshal output schema")
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, alperr.Wrap(alperr.KindLLM, err, "marshal llm input")
	}

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Respond only with JSON conforming to the provided schema."},
			{Role: openai.ChatMessageRoleUser, Content: task + "\n\nInput:\n" + string(inputJSON)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "alp_result",
				Schema: json.RawMessage(schemaJSON),
				Strict: true,
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, timeoutOrCancel(ctx)
		}
		return nil, alperr.Wrap(alperr.KindLLM, err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, alperr.New(alperr.KindLLM, "openai returned no choices")
	}

	var out any
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, alperr.Wrap(alperr.KindLLM, err, "decode openai structured output")
	}
	return out, nil
}

func timeoutOrCancel(ctx context.Context) error {
	if ctx.Err() == context.Canceled {
		return alperr.New(alperr.KindCancelled, "llm call cancelled")
	}
	return alperr.New(alperr.KindTimeout, "llm call timed out")
}
