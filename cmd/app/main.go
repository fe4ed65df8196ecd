package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/glamour"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/modeltree/internal"
	pkgconfig "github.com/starford/modeltree/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")
	load := pkgconfig.Load[internal.Config]
	// The default path may be absent; an explicit one must exist.
	if !cmd.IsSet("config") {
		load = pkgconfig.LoadOptional[internal.Config]
	}
	if err := load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if dir := cmd.String("models"); dir != "" {
		cfg.Models.Dir = dir
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	err = internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func show(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// A one-shot render should not leave journal entries behind.
	cfg.Journal.Enabled = false

	svc, cleanup, err := internal.LoadTree(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}
	defer cleanup()

	switch format := cmd.String("format"); format {
	case "mermaid":
		_, err := io.WriteString(os.Stdout, svc.Mermaid(ctx))
		return err
	case "outline":
		return writeMarkdown(os.Stdout, svc.Outline(ctx), cmd.Bool("plain"))
	default:
		return fmt.Errorf("unknown format %q (want outline or mermaid)", format)
	}
}

// writeMarkdown styles md for a terminal and writes it raw otherwise.
func writeMarkdown(out *os.File, md string, plain bool) error {
	fd := int(out.Fd())
	if plain || !term.IsTerminal(fd) {
		_, err := io.WriteString(out, md)
		return err
	}

	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render outline: %w", err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func main() {
	cmd := &cli.Command{
		Name:    "modeltree",
		Usage:   "Shared-node model tree with reference counting, served over HTTP and MCP",
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
			&cli.StringFlag{
				Name:    "models",
				Aliases: []string{"m"},
				Usage:   "Model directory, overrides models.dir",
				Sources: cli.EnvVars("MODELTREE_MODELS_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: serveMCP,
			},
			{
				Name:  "show",
				Usage: "Print the loaded tree and exit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "outline or mermaid",
						Value:   "outline",
					},
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Skip terminal styling",
					},
				},
				Action: show,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
