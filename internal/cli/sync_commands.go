package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/klauern/locsync/internal/api"
	"github.com/klauern/locsync/internal/backup"
	"github.com/klauern/locsync/internal/config"
	"github.com/klauern/locsync/internal/resource"
	"github.com/klauern/locsync/internal/sync"
	"github.com/klauern/locsync/internal/ui"
	"github.com/klauern/locsync/internal/ui/tui"
)

func pullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Pull remote translations into the local resource files",
		Description: `Fetch the remote store, merge it against the local files using the
   last synced baseline, and write auto-merged changes. Conflicts are
   resolved per the --policy flag.

   Examples:
     locsync pull
     locsync pull --dry-run
     locsync pull --policy remote`,
		Flags: syncFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(cmd)
			if err != nil {
				return err
			}

			opts, err := syncOptions(cmd, env)
			if err != nil {
				return err
			}

			summary, err := env.engine.Pull(ctx, opts)
			return reportOutcome("pull", summary, err)
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Push local translation changes to the remote store",
		Description: `Upload entries that changed locally since the last sync. Entries the
   remote also changed are conflicts and resolve per the --policy flag.
   Push never modifies local resource files.

   Examples:
     locsync push
     locsync push --dry-run`,
		Flags: syncFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(cmd)
			if err != nil {
				return err
			}

			opts, err := syncOptions(cmd, env)
			if err != nil {
				return err
			}

			summary, err := env.engine.Push(ctx, opts)
			return reportOutcome("push", summary, err)
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show pending changes in both directions without applying anything",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(cmd)
			if err != nil {
				return err
			}

			// Interactive policy with no resolver leaves conflicts in place,
			// which is exactly what a status preview wants.
			opts := sync.Options{DryRun: true, Policy: sync.PolicyInteractive}

			pull, err := env.engine.Pull(ctx, opts)
			if err != nil {
				return err
			}
			push, err := env.engine.Push(ctx, opts)
			if err != nil {
				return err
			}

			fmt.Println(ui.Header("Incoming (pull)"))
			printCounts(pull)
			fmt.Println()
			fmt.Println(ui.Header("Outgoing (push)"))
			printCounts(push)

			conflicts := len(pull.Conflicts) + len(pull.ConfigConflicts)
			if conflicts > 0 {
				fmt.Println()
				fmt.Println(ui.StatusConflict(fmt.Sprintf("%d conflict(s) need resolution:", conflicts)))
				for i := range pull.Conflicts {
					fmt.Printf("  %s\n", pull.Conflicts[i].Summary())
				}
				for i := range pull.ConfigConflicts {
					fmt.Printf("  %s\n", pull.ConfigConflicts[i].Summary())
				}
			}
			return nil
		},
	}
}

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"d"},
			Usage:   "Preview changes without modifying anything",
		},
		&cli.StringFlag{
			Name:    "policy",
			Aliases: []string{"p"},
			Usage:   "Conflict resolution policy (interactive, local, remote, abort)",
		},
		&cli.BoolFlag{
			Name:  "skip-backup",
			Usage: "Skip the automatic snapshot before writing (pull only)",
		},
	}
}

// env bundles the wired engine with the config it was built from.
type env struct {
	projectDir string
	cfg        *config.Config
	engine     *sync.Engine
}

// buildEnv loads the project config and wires the sync engine.
func buildEnv(cmd *cli.Command) (*env, error) {
	projectDir, err := filepath.Abs(cmd.String("project"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}

	if cfg.Remote.BaseURL == "" {
		return nil, errors.New("no remote configured: set remote.base_url in " + config.FileName + " or LOCSYNC_REMOTE_URL")
	}

	resourcesDir := filepath.Join(projectDir, cfg.Project.ResourcesPath)

	var backend resource.Backend
	if cfg.Project.Format != "" {
		backend, err = resource.New(resource.Format(cfg.Project.Format))
	} else {
		backend, err = resource.Detect(resourcesDir)
	}
	if err != nil {
		return nil, err
	}

	client := api.NewHTTPClient(api.Config{
		BaseURL: cfg.Remote.BaseURL,
		APIKey:  cfg.Remote.APIKey,
		Timeout: cfg.Remote.Timeout(),
	})

	retention := backup.DefaultCleanupOptions()
	if cfg.Backup.MaxBackups > 0 {
		retention.MaxBackups = cfg.Backup.MaxBackups
	}
	if cfg.Backup.MaxAgeDays > 0 {
		retention.MaxAge = time.Duration(cfg.Backup.MaxAgeDays) * 24 * time.Hour
	}

	engine := sync.NewEngine(sync.Params{
		ProjectDir:    projectDir,
		ResourcesDir:  resourcesDir,
		Backend:       backend,
		Client:        client,
		Settings:      cfg.Settings,
		SettingsStore: &settingsStore{projectDir: projectDir, cfg: cfg},
		Retention:     retention,
	})

	return &env{projectDir: projectDir, cfg: cfg, engine: engine}, nil
}

// syncOptions resolves flags and config defaults into engine options,
// picking the right interactive resolver for the terminal.
func syncOptions(cmd *cli.Command, e *env) (sync.Options, error) {
	policy := sync.Policy(cmd.String("policy"))
	if policy == "" {
		policy = sync.Policy(e.cfg.Sync.DefaultPolicy)
	}
	if policy == "" {
		policy = sync.PolicyInteractive
	}
	if !policy.IsValid() {
		return sync.Options{}, fmt.Errorf("unknown policy %q (valid: %v)", policy, sync.AllPolicies())
	}

	opts := sync.Options{
		DryRun:     cmd.Bool("dry-run"),
		Policy:     policy,
		SkipBackup: cmd.Bool("skip-backup") || !e.cfg.Sync.AutoBackupEnabled(),
	}

	if policy == sync.PolicyInteractive {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			opts.Resolver = tui.Resolver{}
		} else {
			opts.Resolver = NewConflictResolver()
		}
	}

	return opts, nil
}

// settingsStore adapts the config file to the engine's settings contract.
type settingsStore struct {
	projectDir string
	cfg        *config.Config
}

func (s *settingsStore) Apply(updates map[string]string, removals []string) error {
	s.cfg.ApplySettings(updates, removals)
	return config.Save(s.projectDir, s.cfg)
}

func (s *settingsStore) Path() string {
	return config.Path(s.projectDir)
}

// reportOutcome prints the operation result and maps user-chosen aborts to a
// clean exit.
func reportOutcome(op string, summary *sync.Summary, err error) error {
	if err != nil {
		if errors.Is(err, sync.ErrSyncAborted) {
			fmt.Println(ui.StatusSkipped(op + " aborted, nothing was changed"))
			return nil
		}
		if summary != nil && errors.Is(err, sync.ErrUnresolvedConflicts) {
			printConflicts(summary)
		}
		return err
	}

	if summary.FirstPull && op == "pull" {
		fmt.Println(ui.Info("No previous sync state, accepting all remote entries"))
	}
	if summary.StateRecovered {
		fmt.Println(ui.StatusWarning("sync state was corrupted and has been rebuilt"))
	}
	if summary.Migrated {
		fmt.Println(ui.Info("migrated sync state from a previous schema version"))
	}
	for _, w := range summary.Warnings {
		fmt.Println(ui.StatusWarning(w))
	}

	if summary.DryRun {
		fmt.Println(ui.Bold("Dry run, nothing changed:"))
		printCounts(summary)
		printConflicts(summary)
		return nil
	}

	printCounts(summary)
	if summary.BackupID != "" {
		fmt.Println(ui.Dim("snapshot " + summary.BackupID))
	}
	fmt.Println(ui.StatusSuccess(op + " complete"))
	return nil
}

func printCounts(s *sync.Summary) {
	fmt.Printf("  %d written, %d deleted, %d auto-merged, %d unchanged\n",
		s.Written, s.Deleted, s.AutoMerged, s.Unchanged)
	if s.ConfigWritten > 0 || s.ConfigDeleted > 0 {
		fmt.Printf("  config: %d written, %d removed\n", s.ConfigWritten, s.ConfigDeleted)
	}
}

func printConflicts(s *sync.Summary) {
	total := len(s.Conflicts) + len(s.ConfigConflicts)
	if total == 0 {
		return
	}
	fmt.Println(ui.StatusConflict(fmt.Sprintf("%d unresolved conflict(s):", total)))
	for i := range s.Conflicts {
		fmt.Printf("  %s\n", s.Conflicts[i].Summary())
	}
	for i := range s.ConfigConflicts {
		fmt.Printf("  %s\n", s.ConfigConflicts[i].Summary())
	}
}
