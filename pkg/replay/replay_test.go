package replay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/replay"
)

func TestParseScenario(t *testing.T) {
	yamlDoc := `
tool_responses:
  "http_fetch:abc":
    - output: {"status": 200}
llm_responses:
  classify:
    - output: {"label": "spam"}
`
	s, err := replay.ParseScenario([]byte(yamlDoc))
	require.NoError(t, err)
	require.Len(t, s.ToolResponses["http_fetch:abc"], 1)
	require.Len(t, s.LLMResponses["classify"], 1)
}

func TestExecutor_ToolResponse_ByNameFallback(t *testing.T) {
	s := &replay.Scenario{
		ToolResponses: map[string][]replay.ToolResponse{
			"my-tool": {
				{Output: map[string]any{"status": "ok"}},
				{Error: "unavailable"},
			},
		},
	}
	ex := replay.NewExecutor(s)

	out, handled, err := ex.ToolResponse("my-tool", map[string]any{"x": 1})
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"status": "ok"}, out)

	_, handled, err = ex.ToolResponse("my-tool", map[string]any{"x": 2})
	require.True(t, handled)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindTool))

	_, handled, err = ex.ToolResponse("my-tool", map[string]any{"x": 3})
	require.True(t, handled)
	require.Error(t, err)
}

func TestExecutor_ToolResponse_NoMatchIsUnhandled(t *testing.T) {
	ex := replay.NewExecutor(&replay.Scenario{})
	_, handled, err := ex.ToolResponse("unknown", nil)
	require.False(t, handled)
	require.NoError(t, err)
}

func TestExecutor_ToolResponse_DigestSpecificKeyTakesPriority(t *testing.T) {
	args := map[string]any{"q": "weather"}
	key := "search:" + replay.Digest(args)
	s := &replay.Scenario{
		ToolResponses: map[string][]replay.ToolResponse{
			key:      {{Output: "specific"}},
			"search": {{Output: "generic"}},
		},
	}
	ex := replay.NewExecutor(s)
	out, handled, err := ex.ToolResponse("search", args)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "specific", out)
}

func TestLLM_Call_ConsumesInOrder(t *testing.T) {
	s := &replay.Scenario{
		LLMResponses: map[string][]replay.LLMResponse{
			"classify": {
				{Output: map[string]any{"label": "spam"}},
				{Output: map[string]any{"label": "ham"}},
			},
		},
	}
	l := replay.NewLLM(s)

	out, err := l.Call(context.Background(), "classify", "buy now", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"label": "spam"}, out)

	out, err = l.Call(context.Background(), "classify", "buy now", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"label": "ham"}, out)
}

func TestLLM_Call_NoCannedResponseIsErrLLM(t *testing.T) {
	l := replay.NewLLM(&replay.Scenario{})
	_, err := l.Call(context.Background(), "missing", nil, nil)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindLLM))
}
