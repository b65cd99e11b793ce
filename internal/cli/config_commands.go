package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/locsync/internal/config"
	"github.com/klauern/locsync/internal/resource"
	"github.com/klauern/locsync/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and modify the project configuration",
		Commands: []*cli.Command{
			configShowCommand(),
			configSetCommand(),
			configUnsetCommand(),
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a default config file in the project directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Resource file format (json, i18next, resx, toml)",
			},
			&cli.StringFlag{
				Name:  "resources",
				Usage: "Directory of per-language resource files",
				Value: "locales",
			},
			&cli.StringFlag{
				Name:  "remote",
				Usage: "Remote store base URL",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			projectDir, err := filepath.Abs(cmd.String("project"))
			if err != nil {
				return fmt.Errorf("failed to resolve project directory: %w", err)
			}

			path := config.Path(projectDir)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}

			cfg := config.Default()
			cfg.Project.ResourcesPath = cmd.String("resources")
			cfg.Remote.BaseURL = cmd.String("remote")

			if format := cmd.String("format"); format != "" {
				if !resource.Format(format).IsValid() {
					return fmt.Errorf("unknown format %q (valid: %v)", format, resource.AllFormats())
				}
				cfg.Project.Format = format
			}

			if err := config.Save(projectDir, cfg); err != nil {
				return err
			}
			fmt.Println(ui.StatusSuccess("wrote " + path))
			return nil
		},
	}
}

func configShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print the effective configuration",
		Action: func(_ context.Context, cmd *cli.Command) error {
			projectDir, err := filepath.Abs(cmd.String("project"))
			if err != nil {
				return fmt.Errorf("failed to resolve project directory: %w", err)
			}

			cfg, err := config.Load(projectDir)
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			fmt.Print(string(out))

			if len(cfg.Settings) > 0 {
				fmt.Println()
				fmt.Println(ui.Header("Synced settings"))
				paths := make([]string, 0, len(cfg.Settings))
				for path := range cfg.Settings {
					paths = append(paths, path)
				}
				sort.Strings(paths)
				for _, path := range paths {
					fmt.Printf("  %s = %s\n", path, cfg.Settings[path])
				}
			}
			return nil
		},
	}
}

func configSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a synced project property",
		UsageText: "locsync config set <path> <value>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("set requires exactly 2 arguments: <path> <value>")
			}
			path, value := cmd.Args().Get(0), cmd.Args().Get(1)
			if path == "" {
				return errors.New("property path must not be empty")
			}

			projectDir, err := filepath.Abs(cmd.String("project"))
			if err != nil {
				return fmt.Errorf("failed to resolve project directory: %w", err)
			}

			cfg, err := config.Load(projectDir)
			if err != nil {
				return err
			}
			cfg.ApplySettings(map[string]string{path: value}, nil)
			if err := config.Save(projectDir, cfg); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("%s = %s", path, value)))
			return nil
		},
	}
}

func configUnsetCommand() *cli.Command {
	return &cli.Command{
		Name:      "unset",
		Usage:     "Remove a synced project property",
		UsageText: "locsync config unset <path>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("unset requires exactly one property path")
			}
			path := cmd.Args().Get(0)

			projectDir, err := filepath.Abs(cmd.String("project"))
			if err != nil {
				return fmt.Errorf("failed to resolve project directory: %w", err)
			}

			cfg, err := config.Load(projectDir)
			if err != nil {
				return err
			}
			if _, ok := cfg.Settings[path]; !ok {
				return fmt.Errorf("no synced property %q", path)
			}
			cfg.ApplySettings(nil, []string{path})
			if err := config.Save(projectDir, cfg); err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess("removed " + path))
			return nil
		},
	}
}
