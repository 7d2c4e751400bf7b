package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/mcp"
	"github.com/hpungsan/triage/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "chat": true, "cases": true, "case": true,
	"export": true, "symptoms": true, "kb": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _
  | |_ _ __(_) __ _  __ _  ___
  | __| '__| |/ _' |/ _' |/ _ \
  | |_| |  | | (_| | (_| |  __/
   \__|_|  |_|\__,_|\__, |\___|
                    |___/

  Symptom triage assistant (not medical advice)

  Usage: triage <command> [options]
         triage --help

  MCP server mode requires piped input.`)
}

// loadConfig reads ~/.triage and the nearest project .triage, then .env
// files and environment overrides.
func loadConfig(baseDir string) (*config.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs a text slog handler on stderr. stdout stays
// reserved for command output and MCP stdio.
func setupLogging(cfg *config.Config) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadKnowledgeBase returns the configured knowledge base, or the built-in one.
func loadKnowledgeBase(cfg *config.Config) (*kb.KnowledgeBase, error) {
	if cfg.KBPath == "" {
		return kb.Default(), nil
	}
	k, err := kb.LoadFile(cfg.KBPath, kb.DefaultParseOptions())
	if err != nil {
		return nil, err
	}
	slog.Info("knowledge base loaded", "path", cfg.KBPath, "symptoms", k.Len())
	return k, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".triage")

	cfg, err := loadConfig(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	setupLogging(cfg)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		slog.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	knowledge, err := loadKnowledgeBase(cfg)
	if err != nil {
		fatal("failed to load knowledge base: %v", err)
	}

	repo, err := store.Open(context.Background(), cfg, baseDir)
	if err != nil {
		fatal("failed to open case storage: %v", err)
	}
	defer repo.Close()

	env := &appEnv{cfg: cfg, kb: knowledge, repo: repo}

	args := os.Args
	if !isCLIMode(args) {
		// Unknown argument + terminal → show error (don't start MCP server)
		if len(args) >= 2 && isTerminal() {
			fmt.Fprintf(os.Stderr, "error: unknown command %q\n", args[1])
			fmt.Fprintf(os.Stderr, "Run 'triage --help' for usage.\n")
			repo.Close()
			os.Exit(1)
		}
		// MCP server mode (default)
		args = []string{args[0], "mcp"}
	}

	app := newCLIApp(env)
	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		repo.Close()
		os.Exit(1)
	}
}
