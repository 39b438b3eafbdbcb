package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/writeup/internal"
	"github.com/starford/writeup/internal/models"
	pkgconfig "github.com/starford/writeup/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	found, err := pkgconfig.ReadIfExists(configPath, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if !found && cmd.IsSet("config") {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	if err := applyArgs(cmd, cfg); err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	if err := pkgconfig.Validate(cfg); err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// applyArgs maps the four positional arguments onto cfg. With no arguments
// the paths come from the config file alone.
func applyArgs(cmd *cli.Command, cfg *internal.Config) error {
	args := cmd.Args().Slice()
	switch len(args) {
	case 0:
		return nil
	case 4:
		cfg.Source.Path = args[0]
		cfg.Source.Attachments = args[1]
		cfg.Target.Path = args[2]
		cfg.Target.Attachments = args[3]
		return nil
	}
	return fmt.Errorf("expected 4 arguments (%s), got %d", cmd.ArgsUsage, len(args))
}

// applyFlags overrides config values with flags that were set explicitly.
func applyFlags(cmd *cli.Command, cfg *internal.Config) {
	if cmd.IsSet("mode") {
		cfg.Conversion.Mode = cmd.String("mode")
	}
	if cmd.IsSet("url-prefix") {
		cfg.Conversion.URLPrefix = cmd.String("url-prefix")
	}
	if cmd.IsSet("asset-prefix") {
		cfg.Target.AssetPrefix = cmd.String("asset-prefix")
	}
	if cmd.IsSet("add-prefix") {
		cfg.Conversion.AddPrefix = cmd.String("add-prefix")
	}
	if cmd.IsSet("remove-prefix") {
		cfg.Conversion.RemovePrefix = cmd.String("remove-prefix")
	}
	if cmd.IsSet("combined-name") {
		cfg.Target.CombinedName = cmd.String("combined-name")
	}
	if cmd.IsSet("no-attachments") {
		cfg.Conversion.NoAttachments = cmd.Bool("no-attachments")
	}
	if cmd.IsSet("no-contents") {
		cfg.Conversion.Contents = !cmd.Bool("no-contents")
	}
	if cmd.IsSet("html") {
		cfg.Conversion.HTML = cmd.Bool("html")
	}
	if cmd.IsSet("watch") {
		cfg.App.Watch = cmd.Bool("watch")
	}
	if cmd.Bool("verbose") {
		cfg.App.LogLevel = slog.LevelDebug
	}
}

func modeNames() string {
	names := make([]string, len(models.Modes))
	for i, m := range models.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "writeup",
		Usage:     "Copy wikilink notes and their attachments into portable Markdown for PDFs or websites",
		ArgsUsage: "SOURCE SOURCE_ATTACHMENTS TARGET TARGET_ATTACHMENTS",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "writeup.yaml",
				Value:       "writeup.yaml",
				Sources:     cli.EnvVars("WRITEUP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Output format: " + modeNames(),
				Sources: cli.EnvVars("WRITEUP_MODE"),
			},
			&cli.StringFlag{
				Name:    "url-prefix",
				Aliases: []string{"u"},
				Usage:   "Prefix added to links when converting to PDF format",
				Sources: cli.EnvVars("WRITEUP_URL_PREFIX"),
			},
			&cli.StringFlag{
				Name:    "asset-prefix",
				Aliases: []string{"l"},
				Usage:   "Relative path for site assets, e.g. /assets/images/blog (defaults to TARGET_ATTACHMENTS)",
				Sources: cli.EnvVars("WRITEUP_ASSET_PREFIX"),
			},
			&cli.StringFlag{
				Name:    "add-prefix",
				Aliases: []string{"a"},
				Usage:   "Prefix to add to all attachment file names",
			},
			&cli.StringFlag{
				Name:    "remove-prefix",
				Aliases: []string{"r"},
				Usage:   "Prefix to remove from all attachment file names",
			},
			&cli.StringFlag{
				Name:  "combined-name",
				Usage: "Output file name in combined mode",
			},
			&cli.BoolFlag{
				Name:    "no-attachments",
				Aliases: []string{"n"},
				Usage:   "Don't copy attachments, just the notes",
			},
			&cli.BoolFlag{
				Name:  "no-contents",
				Usage: "Don't prepend a table of contents",
			},
			&cli.BoolFlag{
				Name:  "html",
				Usage: "Also render every output to an HTML page",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Convert again whenever a note or attachment changes",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every file read, copied and written",
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
