package capability_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/capability"
)

func TestGate_AllowReadWithinRoot(t *testing.T) {
	dir := t.TempDir()
	cfg := capability.Default()
	cfg.IORoot = dir
	g, err := capability.NewGate(cfg)
	require.NoError(t, err)

	require.True(t, g.AllowRead(filepath.Join(dir, "a.txt")))
	require.False(t, g.AllowRead(filepath.Join(dir, "..", "outside.txt")))
}

func TestGate_AllowWriteRequiresFlag(t *testing.T) {
	dir := t.TempDir()
	cfg := capability.Default()
	cfg.IORoot = dir
	g, err := capability.NewGate(cfg)
	require.NoError(t, err)

	require.False(t, g.AllowWrite(filepath.Join(dir, "a.txt")))

	cfg.IOAllowWrite = true
	g, err = capability.NewGate(cfg)
	require.NoError(t, err)
	require.True(t, g.AllowWrite(filepath.Join(dir, "a.txt")))
}

func TestGate_AllowHTTP_AllowlistAndLocalBlock(t *testing.T) {
	cfg := capability.Default()
	cfg.HTTPAllowlist = []string{"api.example.com"}
	g, err := capability.NewGate(cfg)
	require.NoError(t, err)

	require.True(t, g.AllowHTTP("api.example.com"))
	require.False(t, g.AllowHTTP("evil.example.com"))

	cfg.HTTPAllowlist = []string{"localhost"}
	g, err = capability.NewGate(cfg)
	require.NoError(t, err)
	require.False(t, g.AllowHTTP("localhost"))
}

func TestGate_AllowToolCommandAndPython(t *testing.T) {
	cfg := capability.Default()
	cfg.ToolAllowCommands = []string{"curl"}
	cfg.ToolPythonModules = []string{"json"}
	g, err := capability.NewGate(cfg)
	require.NoError(t, err)

	require.True(t, g.AllowToolCommand("curl"))
	require.False(t, g.AllowToolCommand("rm"))
	require.True(t, g.AllowToolPython("json"))
	require.False(t, g.AllowToolPython("os"))
}

func TestGate_AllowStdin(t *testing.T) {
	cfg := capability.Default()
	g, err := capability.NewGate(cfg)
	require.NoError(t, err)
	require.False(t, g.AllowStdin())

	cfg.StdinAllow = true
	g, err = capability.NewGate(cfg)
	require.NoError(t, err)
	require.True(t, g.AllowStdin())
}
