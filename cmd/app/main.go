package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/theoria/internal"
	"github.com/starford/theoria/internal/browser"
	"github.com/starford/theoria/internal/client"
	"github.com/starford/theoria/internal/termview"
	pkgconfig "github.com/starford/theoria/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}

	return nil
}

func browse(ctx context.Context, cmd *cli.Command) error {
	topic := cmd.String("topic")
	path := strings.Trim(cmd.String("path"), "/")

	c := client.New(
		client.Session{BaseURL: cmd.String("api"), Token: cmd.String("token")},
		client.WithTimeout(cmd.Duration("timeout")),
	)
	// Diagnostics go to stderr so the page can be piped.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sess := browser.NewSession(browser.NewResolver(c, browser.WithLogger(logger)))

	sess.Load(ctx)
	if path != "" {
		sess.Select(ctx, path)
		sess.Wait()
	}

	printer, err := termview.New(termview.WithStyle(cmd.String("style")), termview.WithWordWrap(int(cmd.Int("width"))))
	if err != nil {
		return err
	}
	return printer.Print(os.Stdout, topic, sess.Snapshot())
}

func main() {
	cmd := &cli.Command{
		Name:    "theoria",
		Usage:   "Machine learning theory browser with Markdown content, search and live updates",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: mcp,
			},
			{
				Name:   "browse",
				Usage:  "Print a topic and, optionally, one document from a running server",
				Action: browse,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "topic",
						Aliases:  []string{"t"},
						Usage:    "Topic id, e.g. supervised",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Content path inside the topic, e.g. supervised/01-linear-regression",
					},
					&cli.StringFlag{
						Name:    "api",
						Usage:   "Base URL of the content API",
						Value:   "http://localhost:8080",
						Sources: cli.EnvVars("THEORIA_API_URL"),
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Bearer token for the content API",
						Sources: cli.EnvVars("THEORIA_API_TOKEN"),
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Request timeout",
						Value: client.DefaultTimeout,
					},
					&cli.StringFlag{
						Name:  "style",
						Usage: "Glamour style: dark, light, notty or empty for auto",
					},
					&cli.IntFlag{
						Name:  "width",
						Usage: "Content wrap width",
						Value: 80,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
