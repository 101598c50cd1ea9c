package toolio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/toolio"
)

func TestCallCommand_DeniedWithoutAllowlist(t *testing.T) {
	cfg := capability.Default()
	gate, err := capability.NewGate(cfg)
	require.NoError(t, err)

	m := toolio.NewManager(gate)
	require.NoError(t, m.Register(&toolio.Tool{Name: "echoer", Kind: toolio.KindCommand, Argv: []string{"echo", "{msg}"}}))

	_, err = m.Call(context.Background(), "echoer", map[string]any{"msg": "hi"})
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindCapability))
}

func TestCallCommand_RunsWhenAllowed(t *testing.T) {
	cfg := capability.Default()
	cfg.ToolAllowCommands = []string{"echo"}
	gate, err := capability.NewGate(cfg)
	require.NoError(t, err)

	m := toolio.NewManager(gate)
	require.NoError(t, m.Register(&toolio.Tool{Name: "echoer", Kind: toolio.KindCommand, Argv: []string{"echo", "{msg}"}}))

	out, err := m.Call(context.Background(), "echoer", map[string]any{"msg": "hello"})
	require.NoError(t, err)
	m2 := out.(map[string]any)
	require.Equal(t, float64(0), m2["exit_code"])
}

func TestCallHTTP_DeniedWithoutAllowlist(t *testing.T) {
	cfg := capability.Default()
	gate, err := capability.NewGate(cfg)
	require.NoError(t, err)

	m := toolio.NewManager(gate)
	require.NoError(t, m.Register(&toolio.Tool{Name: "fetcher", Kind: toolio.KindHTTP, Method: "GET", URL: "http://example.com/{path}"}))

	_, err = m.Call(context.Background(), "fetcher", map[string]any{"path": "x"})
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindCapability))
}

func TestCall_UnregisteredTool(t *testing.T) {
	cfg := capability.Default()
	gate, err := capability.NewGate(cfg)
	require.NoError(t, err)
	m := toolio.NewManager(gate)

	_, err = m.Call(context.Background(), "nope", nil)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindTool))
}
