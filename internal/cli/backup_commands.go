package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/locsync/internal/backup"
	"github.com/klauern/locsync/internal/config"
	"github.com/klauern/locsync/internal/resource"
	"github.com/klauern/locsync/internal/ui"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage resource file snapshots",
		Commands: []*cli.Command{
			backupListCommand(),
			backupCreateCommand(),
			backupRestoreCommand(),
			backupVerifyCommand(),
			backupPruneCommand(),
		},
	}
}

func backupManager(cmd *cli.Command) (*backup.Manager, string, error) {
	projectDir, err := filepath.Abs(cmd.String("project"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return backup.NewManager(projectDir), projectDir, nil
}

func backupListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List available snapshots, newest first",
		Action: func(_ context.Context, cmd *cli.Command) error {
			mgr, _, err := backupManager(cmd)
			if err != nil {
				return err
			}

			backups, err := mgr.List()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Println("No snapshots found")
				return nil
			}

			fmt.Println(ui.Header(fmt.Sprintf("%-28s %-22s %8s  %s", "ID", "CREATED", "FILES", "REASON")))
			for _, b := range backups {
				fmt.Printf("%-28s %-22s %8d  %s\n",
					b.ID,
					b.CreatedAt.Format(time.RFC3339),
					len(b.Files),
					b.Reason,
				)
			}
			return nil
		},
	}
}

func backupCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Snapshot the current resource files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "reason",
				Usage: "Note recorded with the snapshot",
				Value: "manual snapshot",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			mgr, projectDir, err := backupManager(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.Load(projectDir)
			if err != nil {
				return err
			}
			resourcesDir := filepath.Join(projectDir, cfg.Project.ResourcesPath)

			var backend resource.Backend
			if cfg.Project.Format != "" {
				backend, err = resource.New(resource.Format(cfg.Project.Format))
			} else {
				backend, err = resource.Detect(resourcesDir)
			}
			if err != nil {
				return err
			}

			langs, err := backend.DiscoverLanguages(resourcesDir)
			if err != nil {
				return err
			}

			var files []string
			for _, lang := range langs {
				path := backend.FilePath(resourcesDir, lang)
				if _, err := os.Stat(path); err == nil {
					files = append(files, path)
				}
			}
			if len(files) == 0 {
				return errors.New("no resource files to snapshot")
			}

			meta, err := mgr.Create(files, cmd.String("reason"))
			if err != nil {
				return err
			}

			fmt.Println(ui.StatusSuccess(fmt.Sprintf("created snapshot %s (%d files)", meta.ID, len(meta.Files))))
			return nil
		},
	}
}

func backupRestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore files from a snapshot, overwriting current content",
		UsageText: "locsync backup restore <id>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("restore requires exactly one snapshot ID")
			}
			id := cmd.Args().Get(0)

			mgr, _, err := backupManager(cmd)
			if err != nil {
				return err
			}

			if err := mgr.Restore(id); err != nil {
				return err
			}
			fmt.Println(ui.StatusSuccess("restored snapshot " + id))
			return nil
		},
	}
}

func backupVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check a snapshot archive against its recorded checksum",
		UsageText: "locsync backup verify <id>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("verify requires exactly one snapshot ID")
			}
			id := cmd.Args().Get(0)

			mgr, _, err := backupManager(cmd)
			if err != nil {
				return err
			}

			if err := mgr.Verify(id); err != nil {
				return err
			}
			fmt.Println(ui.StatusSuccess("snapshot " + id + " is intact"))
			return nil
		},
	}
}

func backupPruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete old snapshots per the retention settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Show what would be deleted without deleting",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			mgr, projectDir, err := backupManager(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.Load(projectDir)
			if err != nil {
				return err
			}

			opts := backup.DefaultCleanupOptions()
			if cfg.Backup.MaxBackups > 0 {
				opts.MaxBackups = cfg.Backup.MaxBackups
			}
			if cfg.Backup.MaxAgeDays > 0 {
				opts.MaxAge = time.Duration(cfg.Backup.MaxAgeDays) * 24 * time.Hour
			}
			opts.DryRun = cmd.Bool("dry-run")

			deleted, err := mgr.Prune(opts)
			if err != nil {
				return err
			}
			if len(deleted) == 0 {
				fmt.Println("Nothing to prune")
				return nil
			}

			verb := "deleted"
			if opts.DryRun {
				verb = "would delete"
			}
			fmt.Printf("%s %d snapshot(s):\n", verb, len(deleted))
			for _, id := range deleted {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}
}
