package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/frontedit/internal"
	pkgconfig "github.com/starford/frontedit/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Project.Root = root
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func infer(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("infer: file path is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	in, err := internal.NewInspector(cfg)
	if err != nil {
		return err
	}
	fields, err := in.Fields(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(fields)
}

func validateFile(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("validate: file path is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	in, err := internal.NewInspector(cfg)
	if err != nil {
		return err
	}
	errs, err := in.Validate(path)
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		fmt.Println("valid")
		return nil
	}
	for _, e := range errs {
		fmt.Println(e)
	}
	return cli.Exit("", 2)
}

func main() {
	cmd := &cli.Command{
		Name:   "frontedit",
		Usage:  "Form-based editor for Markdown front matter and JSON data files",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml, .json, .jsonc or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root, overrides project.root",
				Sources: cli.EnvVars("FRONTEDIT_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP editor server",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "infer",
				Usage:     "Print the form fields inferred from a file as JSON",
				ArgsUsage: "<file>",
				Action:    infer,
			},
			{
				Name:      "validate",
				Usage:     "Check a file against its configured schemas",
				ArgsUsage: "<file>",
				Action:    validateFile,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
