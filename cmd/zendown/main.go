package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/mk12/zendown/internal"
	"github.com/mk12/zendown/internal/build"
	"github.com/mk12/zendown/internal/project"
)

var version = "dev"

// openProject finds the project above the working directory and opens it
// with a logger at the configured level, unless --log-level overrides it.
func openProject(cmd *cli.Command) (*project.Project, *slog.Logger, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	root, err := project.Find(cwd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := project.LoadConfig(filepath.Join(root, project.ConfigFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}
	level := cfg.LogLevel
	if s := cmd.String("log-level"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	p := project.New(root, cfg, logger)
	if err := p.ScanArticles(); err != nil {
		return nil, nil, err
	}
	return p, logger, nil
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		name = "html"
	}
	t, err := build.Lookup(name)
	if err != nil {
		return err
	}
	p, _, err := openProject(cmd)
	if err != nil {
		return err
	}
	env, err := build.NewEnv(p, build.Options{
		IgnoreErrors: cmd.Bool("ignore-errors"),
		Stdout:       cmd.Bool("stdout"),
	})
	if err != nil {
		return err
	}
	res, err := build.Run(ctx, t, env)
	if err != nil {
		return err
	}
	if !env.Options.Stdout && name != "links" {
		fmt.Fprintln(os.Stderr, res)
	}
	return nil
}

func runList(_ context.Context, cmd *cli.Command) error {
	return listTargets(cmd.Root().Writer)
}

func listTargets(w io.Writer) error {
	for _, t := range build.Targets() {
		if _, err := fmt.Fprintf(w, "%-6s %s\n", t.Name(), t.Description()); err != nil {
			return err
		}
	}
	return nil
}

func runTree(_ context.Context, cmd *cli.Command) error {
	p, _, err := openProject(cmd)
	if err != nil {
		return err
	}
	return p.ArticleTree().Dump(cmd.Root().Writer, func(a *project.Article) string {
		return a.Title()
	})
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	p, logger, err := openProject(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx,
		internal.WithProject(p),
		internal.WithLogger(logger),
		internal.WithPort(int(cmd.Int("port"))),
	); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	p, logger, err := openProject(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithProject(p),
		internal.WithLogger(logger),
		internal.WithVersion(version),
	)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "zendown",
		Usage:   "Build documentation sites from Zendown Markdown articles",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error); defaults to log_level in zendown.yml",
				Sources: cli.EnvVars("ZENDOWN_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Build a target (html by default)",
				ArgsUsage: "[target]",
				Action:    runBuild,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "ignore-errors",
						Aliases: []string{"k"},
						Usage:   "Succeed even when articles render with errors",
					},
					&cli.BoolFlag{
						Name:  "stdout",
						Usage: "Write single-file output to stdout",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List build targets",
				Action: runList,
			},
			{
				Name:   "tree",
				Usage:  "Print the article tree",
				Action: runTree,
			},
			{
				Name:   "links",
				Usage:  "Update the link index and print the cross-reference report",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					p, _, err := openProject(cmd)
					if err != nil {
						return err
					}
					env, err := build.NewEnv(p, build.Options{IgnoreErrors: true})
					if err != nil {
						return err
					}
					_, err = build.Run(ctx, build.NewLinks(), env)
					return err
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the html build with live reload",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Port to listen on; defaults to serve.port in zendown.yml",
						Sources: cli.EnvVars("ZENDOWN_PORT"),
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: runMCP,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
