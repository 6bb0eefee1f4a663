package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/formulary/internal/config"
	"github.com/hpungsan/formulary/internal/db"
	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/gemini"
	"github.com/hpungsan/formulary/internal/logging"
	"github.com/hpungsan/formulary/internal/mcp"
	"github.com/hpungsan/formulary/internal/ops"
	"github.com/hpungsan/formulary/internal/recorder"
	"github.com/hpungsan/formulary/internal/web"
)

// drainTimeout bounds how long shutdown waits for queued exchanges.
const drainTimeout = 10 * time.Second

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "formulary",
		Usage:   "Formula, problem, and Gemini exchange store",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides DB_PATH)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP listen port (overrides PORT)"},
			&cli.StringFlag{Name: "log-mode", Usage: "dev|prod (overrides LOG_MODE)"},
		},
		Commands: []*cli.Command{
			serveCmd(),
			mcpCmd(),
			formulasCmd(),
			problemsCmd(),
			contentCmd(),
			askCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(c *cli.Context) error {
			env, err := setup(c)
			if err != nil {
				return outputError(err)
			}
			defer env.close()

			if env.cfg.ExposeGeminiKey && env.cfg.HasGeminiKey() {
				env.log.Warn("GET /api/config returns the Gemini API key to any caller; set EXPOSE_GEMINI_KEY=false to withhold it")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			gen, err := newGenerator(ctx, env.cfg)
			if err != nil {
				return outputError(errors.NewConfiguration(err.Error()))
			}
			if gen == nil {
				env.log.Warn("GEMINI_API_KEY is not set; /api/call-gemini will return 400")
			}

			rec := recorder.New(env.db, env.log, env.cfg.RecorderQueueSize)
			srv := web.NewServer(env.db, env.cfg, gen, rec, env.log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				rec.Run()
				return nil
			})
			g.Go(func() error {
				defer rec.Close()
				return web.Run(gctx, srv, env.log)
			})
			if err := g.Wait(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			env.log.Info("stopped")
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the same operations as MCP tools over stdio",
		Action: func(c *cli.Context) error {
			env, err := setup(c)
			if err != nil {
				return outputError(err)
			}
			defer env.close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			gen, err := newGenerator(ctx, env.cfg)
			if err != nil {
				return outputError(errors.NewConfiguration(err.Error()))
			}

			rec := recorder.New(env.db, env.log, env.cfg.RecorderQueueSize)
			s := mcp.NewServer(env.db, gen, rec, Version)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				rec.Run()
				return nil
			})
			g.Go(func() error {
				defer rec.Close()
				return mcp.Run(gctx, s, c.App.Reader, c.App.Writer)
			})
			if err := g.Wait(); err != nil && !stderrors.Is(err, context.Canceled) {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// formulasCmd creates the formulas command.
func formulasCmd() *cli.Command {
	return &cli.Command{
		Name:  "formulas",
		Usage: "List formulas sorted by key, or show one with --key",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Formula key"},
		},
		Action: func(c *cli.Context) error {
			env, err := setup(c)
			if err != nil {
				return outputError(err)
			}
			defer env.close()

			if key := c.String("key"); key != "" {
				f, err := ops.GetFormula(c.Context, env.db, key)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, f)
			}

			items, err := ops.ListFormulas(c.Context, env.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, items)
		},
	}
}

// problemsCmd creates the problems command.
func problemsCmd() *cli.Command {
	return &cli.Command{
		Name:  "problems",
		Usage: "List problems, newest first",
		Action: func(c *cli.Context) error {
			env, err := setup(c)
			if err != nil {
				return outputError(err)
			}
			defer env.close()

			items, err := ops.ListProblems(c.Context, env.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, items)
		},
	}
}

// contentCmd creates the content command.
func contentCmd() *cli.Command {
	return &cli.Command{
		Name:  "content",
		Usage: "List saved exchanges, newest first, or show one with --id",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Usage: "Exchange id"},
		},
		Action: func(c *cli.Context) error {
			env, err := setup(c)
			if err != nil {
				return outputError(err)
			}
			defer env.close()

			if id := c.Int64("id"); id > 0 {
				item, err := ops.GetContent(c.Context, env.db, id)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c.App.Writer, item)
			}

			items, err := ops.ListContent(c.Context, env.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, items)
		},
	}
}

// askCmd creates the ask command.
func askCmd() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a prompt to Gemini (args or stdin) and print the reply",
		ArgsUsage: "[prompt...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schema", Aliases: []string{"s"}, Usage: "JSON response schema file"},
		},
		Action: func(c *cli.Context) error {
			env, err := setup(c)
			if err != nil {
				return outputError(err)
			}
			defer env.close()

			prompt := strings.Join(c.Args().Slice(), " ")
			if prompt == "" {
				prompt, err = readAll(c.App.Reader)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}

			input := ops.CallModelInput{Prompt: prompt}
			if path := c.String("schema"); path != "" {
				raw, err := os.ReadFile(path)
				if err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("read schema: %v", err)))
				}
				if !json.Valid(raw) {
					return outputError(errors.NewInvalidRequest("schema file is not valid JSON"))
				}
				input.Schema = raw
			}

			gen, err := newGenerator(c.Context, env.cfg)
			if err != nil {
				return outputError(errors.NewConfiguration(err.Error()))
			}

			rec := recorder.New(env.db, env.log, 1)
			go rec.Run()
			defer func() {
				rec.Close()
				ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
				defer cancel()
				_ = rec.Wait(ctx)
			}()

			text, err := ops.CallModel(c.Context, gen, rec, input)
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprintln(c.App.Writer, text)
			return err
		},
	}
}

// Helper functions

// cmdEnv holds the resources shared by every command.
type cmdEnv struct {
	cfg *config.Config
	log *logging.Logger
	db  *sql.DB
}

func (e *cmdEnv) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	e.log.Sync()
}

// setup loads configuration, applies global flag overrides, and opens the database.
func setup(c *cli.Context) (*cmdEnv, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, errors.NewConfiguration(err.Error())
	}
	if path := c.String("db"); path != "" {
		cfg.DBPath = path
	}
	if port := c.Int("port"); port != 0 {
		cfg.Port = port
	}
	if mode := c.String("log-mode"); mode != "" {
		cfg.LogMode = mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfiguration(err.Error())
	}

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	db.ConfigurePool(database, cfg)

	return &cmdEnv{cfg: cfg, log: log, db: database}, nil
}

// newGenerator returns nil when no API key is configured.
func newGenerator(ctx context.Context, cfg *config.Config) (ops.Generator, error) {
	if !cfg.HasGeminiKey() {
		return nil, nil
	}
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	appErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", appErr.Code, appErr.Message), 1)
}

// readAll reads r and trims surrounding whitespace.
func readAll(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
