// planmcp: versioned planning documents over MCP
//
// An MCP server that keeps a project's planning documents (overview,
// roadmap, components and goals) versioned, tells the assistant which
// documents a change affects and can roll a document back to an earlier
// version.
//
// Usage:
//
//	planmcp serve     # Start MCP server (stdio transport)
//	planmcp config    # Print the effective configuration
//	planmcp version   # Print the version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/HendryAvila/planmcp/internal/config"
	"github.com/HendryAvila/planmcp/internal/logging"
	"github.com/HendryAvila/planmcp/internal/metrics"
	planserver "github.com/HendryAvila/planmcp/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := printConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("planmcp v%s\n", planserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// flags are shared by serve and config.
type flags struct {
	set        *pflag.FlagSet
	root       string
	configPath string
	dataDir    string
	logLevel   string
	logPretty  bool
	metrics    string
}

func parseFlags(name string, args []string) (*flags, error) {
	f := &flags{set: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	f.set.StringVar(&f.root, "root", "", "project root (default: discovered from the working directory)")
	f.set.StringVar(&f.configPath, "config", "", "project config file (default: <root>/"+config.ProjectFileName+")")
	f.set.StringVar(&f.dataDir, "data-dir", "", "where snapshots and sessions are stored")
	f.set.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	f.set.BoolVar(&f.logPretty, "log-pretty", false, "human-readable logs on stderr")
	f.set.StringVar(&f.metrics, "metrics-addr", "", "serve /metrics and /health on this address, e.g. 127.0.0.1:9464")
	if err := f.set.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// overrides returns only the flags given on the command line.
func (f *flags) overrides() config.Overrides {
	var o config.Overrides
	if f.set.Changed("root") {
		o.ProjectRoot = &f.root
	}
	if f.set.Changed("data-dir") {
		o.DataDir = &f.dataDir
	}
	if f.set.Changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if f.set.Changed("log-pretty") {
		o.LogPretty = &f.logPretty
	}
	if f.set.Changed("metrics-addr") {
		o.MetricsAddr = &f.metrics
	}
	return o
}

func loadConfig(name string, args []string) (config.Config, config.Sources, error) {
	f, err := parseFlags(name, args)
	if err != nil {
		return config.Config{}, config.Sources{}, err
	}
	workDir := f.root
	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return config.Config{}, config.Sources{}, fmt.Errorf("getting working directory: %w", err)
		}
		workDir = config.FindProjectRoot(cwd)
	}
	return config.Load(config.LoadOptions{
		WorkDir:    workDir,
		ConfigPath: f.configPath,
		Env:        os.Environ(),
		Overrides:  f.overrides(),
	})
}

func run(args []string) error {
	cfg, sources, err := loadConfig("serve", args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Debug().
		Str("global", sources.Global).
		Str("project", sources.Project).
		Str("dotenv", sources.DotEnv).
		Msg("config loaded")

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		ms := metrics.NewServer(cfg.MetricsAddr, m, logging.Component(log, "metrics"))
		ms.Start()
		defer ms.Shutdown()
	}

	s, cleanup, err := planserver.New(cfg, log, m)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdio := server.NewStdioServer(s)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func printConfig(args []string) error {
	cfg, sources, err := loadConfig("config", args)
	if err != nil {
		return err
	}
	out, err := config.Format(cfg)
	if err != nil {
		return err
	}
	fmt.Println(out)
	for _, src := range []struct{ label, path string }{
		{"global", sources.Global},
		{"project", sources.Project},
		{".env", sources.DotEnv},
	} {
		if src.path != "" {
			fmt.Fprintf(os.Stderr, "loaded %s config: %s\n", src.label, src.path)
		}
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `planmcp v%s: versioned planning documents over MCP

Usage:
  planmcp serve [flags]    Start the MCP server (stdio transport)
  planmcp config [flags]   Print the effective configuration
  planmcp version          Print the version

Flags:
  --root DIR               Project root (default: discovered)
  --config FILE            Project config file (default: <root>/%s)
  --data-dir DIR           Snapshot and session storage
  --log-level LEVEL        debug, info, warn or error
  --log-pretty             Human-readable logs on stderr
  --metrics-addr ADDR      Serve /metrics and /health, e.g. 127.0.0.1:9464

Environment:
  %sPROJECT_ROOT, %sDATA_DIR, %sLOG_LEVEL, %sSESSION_TTL, ... override config files.

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "planmcp": {
        "command": "planmcp",
        "args": ["serve"]
      }
    }
  }
`, planserver.Version, config.ProjectFileName,
		config.EnvPrefix, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
}
