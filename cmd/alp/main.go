// Command alp runs, validates, and introspects ALP programs: NDJSON
// vocabulary/shape/tool/fn/flow declarations executed by pkg/alp's
// composition root.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alp-run/alp/pkg/alp"
	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/capability"
	"github.com/alp-run/alp/pkg/loader"
	"github.com/alp-run/alp/pkg/replay"
	"github.com/alp-run/alp/pkg/typesys"
)

func main() {
	loadDotEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// loadDotEnv reads a .env file from the working directory and sets any
// variables not already present in the environment. Comments (#) and blanks
// are skipped. The file is gitignored so secrets never reach source control.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// exitCodeFor maps a propagated kernel error to a process exit code: 2 for
// capability/governance denial, 3 for a program load/syntax error, 1 for
// every other runtime failure.
func exitCodeFor(err error) int {
	if kind, ok := alperr.KindOf(err); ok {
		switch kind {
		case alperr.KindCapability:
			return 2
		case alperr.KindSyntax, alperr.KindType, alperr.KindUnresolved, alperr.KindDuplicate:
			return 3
		}
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "alp",
	Short: "Run and inspect Artificial Logic Protocol programs",
	Long:  "alp — load, validate, run, and introspect ALP programs: a sandboxed, capability-gated function and flow kernel driven by an NDJSON vocabulary.",
}

// --- shared config flags, mirrored across run/validate/explain ---

var (
	flagIORoot         string
	flagIOAllowWrite   bool
	flagHTTPAllowlist  []string
	flagHTTPBlockLocal bool
	flagStdinAllow     bool
	flagToolCommands   []string
	flagModelProvider  string
	flagExplain        bool
	flagLogLevel       string
	flagConfigFile     string
)

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagConfigFile, "config", "", "Path to a capability config YAML file (overridden by other flags and ALP_* env vars)")
	cmd.Flags().StringVar(&flagIORoot, "io-root", ".", "Root directory read_file/write_file are sandboxed to")
	cmd.Flags().BoolVar(&flagIOAllowWrite, "io-allow-write", false, "Allow write_file within io-root")
	cmd.Flags().StringSliceVar(&flagHTTPAllowlist, "http-allow", nil, "Host allowlist for the http op (repeatable)")
	cmd.Flags().BoolVar(&flagHTTPBlockLocal, "http-block-local", true, "Block http requests to loopback/link-local addresses")
	cmd.Flags().BoolVar(&flagStdinAllow, "stdin-allow", false, "Allow the read_stdin op")
	cmd.Flags().StringSliceVar(&flagToolCommands, "tool-allow-command", nil, "Command tool executables allowed to run (repeatable)")
	cmd.Flags().StringVar(&flagModelProvider, "model-provider", "mock", "LLM provider: mock, openai, or anthropic")
	cmd.Flags().BoolVar(&flagExplain, "explain", false, "Emit human-readable reasoning alongside structured logs")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "Logger level: debug, info, warn, error")
}

func buildConfig() (capability.Config, error) {
	cfg := capability.Default()
	if flagConfigFile != "" {
		var err error
		cfg, err = capability.LoadFile(flagConfigFile)
		if err != nil {
			return cfg, err
		}
	}
	cfg.IORoot = flagIORoot
	cfg.IOAllowWrite = flagIOAllowWrite
	if len(flagHTTPAllowlist) > 0 {
		cfg.HTTPAllowlist = flagHTTPAllowlist
	}
	cfg.HTTPBlockLocal = flagHTTPBlockLocal
	cfg.StdinAllow = flagStdinAllow
	if len(flagToolCommands) > 0 {
		cfg.ToolAllowCommands = flagToolCommands
	}
	cfg.ModelProvider = flagModelProvider
	cfg.Explain = flagExplain
	cfg.LogLevel = flagLogLevel
	capability.ApplyEnvOverrides(&cfg)
	return cfg, nil
}

// --- run ---

var (
	runScenario string
	runTrace    string
	runFn       string
)

var runCmd = &cobra.Command{
	Use:   "run [program.alp]",
	Short: "Load and run an ALP program",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	opts := alp.Options{TracePath: runTrace}
	if runScenario != "" {
		scenario, err := replay.LoadScenario(runScenario)
		if err != nil {
			return err
		}
		opts.Scenario = scenario
	}

	prog, err := alp.LoadWithOptions(path, cfg, opts)
	if err != nil {
		return err
	}
	defer prog.Close()

	inbound, err := readInbound(cmd)
	if err != nil {
		return err
	}

	var out any
	if runFn != "" {
		out, err = prog.RunFn(runFn, inbound)
	} else {
		out, err = prog.Run(inbound)
	}
	if err != nil {
		return err
	}
	return printJSON(out)
}

// readInbound reads a single JSON value from stdin for the program's
// inbound input. A closed or empty stdin (no piped input, interactive
// terminal) is treated as "no inbound value": nil.
func readInbound(cmd *cobra.Command) (any, error) {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, nil
	}
	dec := json.NewDecoder(os.Stdin)
	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, alperr.Wrap(alperr.KindSyntax, err, "decode inbound JSON from stdin")
	}
	return v, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [program.alp]",
	Short: "Load a program and report syntax/type/resolution errors without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	gate, err := capability.NewGate(cfg)
	if err != nil {
		return err
	}
	res, err := loader.LoadProgram(path, gate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		return err
	}
	fmt.Printf("ok: %d shape(s)/def(s), %d fn(s), %d tool(s), %d flow edge(s)\n",
		res.Types.Len(), len(res.Fns.IDs()), res.Tools.Len(), len(res.Flow.Edges))
	return nil
}

// --- explain ---

var explainFn string

var explainCmd = &cobra.Command{
	Use:   "explain [program.alp]",
	Short: "Describe a loaded program's fns, tools, and flow without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	gate, err := capability.NewGate(cfg)
	if err != nil {
		return err
	}
	res, err := loader.LoadProgram(path, gate)
	if err != nil {
		return err
	}

	if explainFn != "" {
		fn, ok := res.Fns.Get(explainFn)
		if !ok {
			return alperr.New(alperr.KindUnresolved, "no such fn %q", explainFn)
		}
		return printJSON(fn)
	}

	fmt.Printf("fns:\n")
	for _, id := range res.Fns.IDs() {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("tools:\n")
	for _, name := range res.Tools.Names() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("entry nodes:\n")
	for _, id := range res.Flow.EntryNodes() {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Export JSON Schema for a program's registered shapes and types",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export [program.alp] [name]",
	Short: "Export the named shape or type def as JSON Schema",
	Args:  cobra.ExactArgs(2),
	RunE:  runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	path, name := args[0], args[1]
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	gate, err := capability.NewGate(cfg)
	if err != nil {
		return err
	}
	res, err := loader.LoadProgram(path, gate)
	if err != nil {
		return err
	}
	schema, err := typesys.ExportSchema(res.Types, name)
	if err != nil {
		return err
	}
	return printJSON(schema)
}

// --- version ---

var (
	version = "dev"
	commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the alp build version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("alp %s (%s)\n", version, commit)
		return nil
	},
}

func init() {
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "Path to a scenario YAML file; enables replay mode")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "Path to write a JSONL audit trace to")
	runCmd.Flags().StringVar(&runFn, "fn", "", "Run a single fn directly, bypassing flow traversal")

	addConfigFlags(validateCmd)

	addConfigFlags(explainCmd)
	explainCmd.Flags().StringVar(&explainFn, "fn", "", "Print only the named fn's declaration")

	addConfigFlags(schemaExportCmd)
	schemaCmd.AddCommand(schemaExportCmd)

	rootCmd.AddCommand(runCmd, validateCmd, explainCmd, schemaCmd, versionCmd)
}
