// Package capability implements the Capability Gate: the single authority
// that permits or denies every privileged operation, and the configuration
// loading that feeds it.
package capability

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alp-run/alp/pkg/alperr"
)

// Config is the immutable, process-wide configuration recognized by the
// kernel (spec.md section 6's configuration table), loadable from an
// alp.config.yaml file and overridable by environment variables.
type Config struct {
	IORoot            string   `yaml:"io_root"`
	IOAllowWrite      bool     `yaml:"io_allow_write"`
	HTTPAllowlist     []string `yaml:"http_allowlist"`
	HTTPBlockLocal    bool     `yaml:"http_block_local"`
	StdinAllow        bool     `yaml:"stdin_allow"`
	StdinMaxBytes     int64    `yaml:"stdin_max_bytes"`
	ToolAllowCommands []string `yaml:"tool_allow_commands"`
	ToolPythonModules []string `yaml:"tool_python_modules"`
	ModelProvider     string   `yaml:"model_provider"`
	Explain           bool     `yaml:"explain"`

	// Governance (SPEC_FULL.md 4.9) and logging (4.11) are deployment-level
	// ambient extensions, not spec.md-core configuration inputs.
	Governance GovernanceConfig `yaml:"governance"`
	LogLevel   string           `yaml:"log_level"`
}

// GovernanceConfig maps risk tiers to an approval decision; see
// pkg/governance.
type GovernanceConfig struct {
	Low      string `yaml:"low"`
	Medium   string `yaml:"medium"`
	High     string `yaml:"high"`
	Critical string `yaml:"critical"`
}

// Default returns the configuration that matches spec.md section 6's stated
// defaults exactly.
func Default() Config {
	return Config{
		IORoot:         ".",
		IOAllowWrite:   false,
		HTTPBlockLocal: true,
		StdinAllow:     false,
		StdinMaxBytes:  1 << 20,
		ModelProvider:  "mock",
		Explain:        false,
	}
}

// LoadFile reads and strict-decodes a YAML configuration file on top of
// Default(), rejecting unknown fields the way the rest of this ecosystem's
// config loaders do.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, alperr.Wrap(alperr.KindIO, err, "read config file %q", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, alperr.Wrap(alperr.KindSyntax, err, "parse config file %q", path)
	}
	return cfg, nil
}

// ApplyEnvOverrides mutates cfg in place from ALP_-prefixed environment
// variables, applied after file loading so the environment always wins.
func ApplyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("ALP_IO_ROOT"); ok {
		cfg.IORoot = v
	}
	if v, ok := os.LookupEnv("ALP_IO_ALLOW_WRITE"); ok {
		cfg.IOAllowWrite = parseBool(v, cfg.IOAllowWrite)
	}
	if v, ok := os.LookupEnv("ALP_HTTP_ALLOWLIST"); ok {
		cfg.HTTPAllowlist = splitCSV(v)
	}
	if v, ok := os.LookupEnv("ALP_HTTP_BLOCK_LOCAL"); ok {
		cfg.HTTPBlockLocal = parseBool(v, cfg.HTTPBlockLocal)
	}
	if v, ok := os.LookupEnv("ALP_STDIN_ALLOW"); ok {
		cfg.StdinAllow = parseBool(v, cfg.StdinAllow)
	}
	if v, ok := os.LookupEnv("ALP_STDIN_MAX_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.StdinMaxBytes = n
		}
	}
	if v, ok := os.LookupEnv("ALP_TOOL_ALLOW_COMMANDS"); ok {
		cfg.ToolAllowCommands = splitCSV(v)
	}
	if v, ok := os.LookupEnv("ALP_TOOL_PYTHON_MODULES"); ok {
		cfg.ToolPythonModules = splitCSV(v)
	}
	if v, ok := os.LookupEnv("ALP_MODEL_PROVIDER"); ok {
		cfg.ModelProvider = v
	}
	if v, ok := os.LookupEnv("ALP_EXPLAIN"); ok {
		cfg.Explain = parseBool(v, cfg.Explain)
	}
	if v, ok := os.LookupEnv("ALP_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
