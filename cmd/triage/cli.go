package main

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/engine"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/mcp"
	"github.com/hpungsan/triage/internal/report"
	"github.com/hpungsan/triage/internal/scoring"
	"github.com/hpungsan/triage/internal/session"
	"github.com/hpungsan/triage/internal/store"
	"github.com/hpungsan/triage/internal/web"
)

// appEnv holds what commands need once configuration is loaded.
type appEnv struct {
	cfg  *config.Config
	kb   *kb.KnowledgeBase
	repo store.Repository
}

// newEngine builds a triage engine persisting into the environment's repository.
func (e *appEnv) newEngine() *engine.Engine {
	return engine.New(e.kb, session.NewStore(), e.repo, engine.Options{
		Thresholds: scoring.Thresholds{
			RedFlag: e.cfg.RedFlagThreshold,
			Reason:  e.cfg.ReasonThreshold,
		},
		FuzzyThreshold: e.cfg.FuzzyThreshold,
	})
}

// flush saves every open session, logging the count.
func flush(ctx context.Context, eng *engine.Engine) error {
	n, err := eng.Flush(ctx)
	if err != nil {
		return err
	}
	slog.Info("sessions flushed", "cases", n)
	return nil
}

// newCLIApp creates the CLI application with all commands. env may be nil
// when only help or version output is needed.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "triage",
		Usage:   "Deterministic symptom triage assistant (not medical advice)",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(env),
			chatCmd(env),
			casesCmd(env),
			caseCmd(env),
			exportCmd(env),
			symptomsCmd(env),
			kbCmd(),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Finished web sessions are dropped from memory after sessionIdle.
const (
	janitorInterval = time.Minute
	sessionIdle     = 30 * time.Minute
)

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP chat API and web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Listen address (overrides config bind)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (overrides config port)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := env.cfg.Bind, env.cfg.Port
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}

			eng := env.newEngine()
			srv := web.NewServer(web.Deps{
				Engine:  eng,
				Repo:    env.repo,
				KB:      env.kb,
				Config:  env.cfg,
				Version: Version,
			}, bind, port)

			janitorCtx, stopJanitor := context.WithCancel(c.Context)
			defer stopJanitor()
			go eng.RunJanitor(janitorCtx, janitorInterval, sessionIdle)

			err := web.Run(c.Context, srv, func(ctx context.Context) error {
				return flush(ctx, eng)
			})
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// chatCmd creates the chat command: an interactive session on stdin.
func chatCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with the triage assistant on stdin (Ctrl-D to quit)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Session id (default: new anonymous session)"},
			&cli.BoolFlag{Name: "json", Usage: "Print each reply as a JSON line"},
		},
		Action: func(c *cli.Context) error {
			sid := strings.TrimSpace(c.String("session"))
			if sid == "" {
				sid = session.NewAnonymousID()
			}
			asJSON := c.Bool("json")
			out := c.App.Writer

			eng := env.newEngine()
			if !asJSON {
				fmt.Fprintln(c.App.ErrWriter, "Describe your symptoms. Ctrl-D to quit.")
			}

			err := chatLoop(c.Context, eng, sid, c.App.Reader, func(reply *engine.Reply) error {
				if asJSON {
					return json.NewEncoder(out).Encode(reply)
				}
				return printReply(out, reply)
			})
			if ferr := flush(context.WithoutCancel(c.Context), eng); ferr != nil && err == nil {
				err = ferr
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// chatLoop feeds each input line to the engine until EOF.
func chatLoop(ctx context.Context, eng *engine.Engine, sessionID string, in io.Reader, emit func(*engine.Reply) error) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		reply, err := eng.Handle(ctx, sessionID, scanner.Text())
		if err != nil {
			return err
		}
		reply.SessionID = sessionID
		if err := emit(reply); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// printReply writes a reply for a human reader.
func printReply(w io.Writer, reply *engine.Reply) error {
	if _, err := fmt.Fprintf(w, "triage> %s\n", reply.Text); err != nil {
		return err
	}
	if len(reply.Options) > 0 {
		if _, err := fmt.Fprintf(w, "         [%s]\n", strings.Join(reply.Options, " | ")); err != nil {
			return err
		}
	}
	return nil
}

// casesCmd creates the cases command.
func casesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "cases",
		Usage: "List stored cases, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum cases (default: config history_limit)"},
		},
		Action: func(c *cli.Context) error {
			limit := env.cfg.HistoryLimit
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}
			if limit < 0 {
				return outputError(errors.NewInvalidRequest("limit must not be negative"))
			}

			items, err := env.repo.ListCases(c.Context, limit)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{
				"cases": items,
				"count": len(items),
			})
		},
	}
}

// caseCmd creates the case command.
func caseCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "case",
		Usage:     "Show one case as a markdown report",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the stored record as JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("case id is required"))
			}

			rec, err := env.repo.GetCase(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(c.App.Writer, rec)
			}
			_, err = io.WriteString(c.App.Writer, report.Markdown(rec))
			return err
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export cases to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"o"}, Required: true, Usage: "Output file (.jsonl)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum cases, newest first (default: all)"},
		},
		Action: func(c *cli.Context) error {
			output, err := store.ExportFile(c.Context, env.repo, c.String("path"), c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// symptomsCmd creates the symptoms command.
func symptomsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "symptoms",
		Usage: "List the knowledge base",
		Action: func(c *cli.Context) error {
			symptoms := env.kb.Symptoms()
			return outputJSON(c.App.Writer, map[string]any{
				"symptoms": symptoms,
				"count":    len(symptoms),
			})
		},
	}
}

// kbCmd creates the kb command group.
func kbCmd() *cli.Command {
	return &cli.Command{
		Name:  "kb",
		Usage: "Knowledge base tools",
		Subcommands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Validate a knowledge base file (.json, .yaml, .yml)",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(errors.NewInvalidRequest("file is required"))
					}
					path := c.Args().First()

					if err := kb.ValidateFile(path); err != nil {
						return outputError(err)
					}
					k, err := kb.LoadFile(path, kb.DefaultParseOptions())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c.App.Writer, map[string]any{
						"path":     path,
						"valid":    true,
						"symptoms": k.Len(),
					})
				},
			},
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP tool server on stdio",
		Action: func(c *cli.Context) error {
			eng := env.newEngine()
			h := mcp.NewHandlers(eng, env.repo, env.kb, env.cfg.HistoryLimit)

			err := mcp.Run(h, env.cfg, Version)
			if ferr := flush(context.WithoutCancel(c.Context), eng); ferr != nil && err == nil {
				err = ferr
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var tErr *errors.TriageError
	if stderrors.As(err, &tErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
