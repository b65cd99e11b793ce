package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/klauern/locsync/internal/api"
	"github.com/klauern/locsync/internal/backup"
	"github.com/klauern/locsync/internal/logging"
	"github.com/klauern/locsync/internal/model"
	"github.com/klauern/locsync/internal/resource"
	"github.com/klauern/locsync/internal/state"
)

// ErrUnresolvedConflicts is returned when conflicts remain after the policy
// or resolver ran. Nothing has been written when it is returned.
var ErrUnresolvedConflicts = errors.New("unresolved conflicts")

// Resolver produces resolutions for conflicts by whatever means the caller
// chooses: prompting, scripting, or policy. The engine never prompts.
type Resolver interface {
	Resolve(entries []EntryConflict, configs []ConfigConflict) ([]ConflictResolution, error)
}

// SettingsStore lets the engine persist merged config properties without
// owning the config file format.
type SettingsStore interface {
	// Apply folds property updates and removals into the local config file.
	Apply(updates map[string]string, removals []string) error

	// Path returns the config file location, for backup inclusion.
	Path() string
}

// Options configures a single pull or push operation.
type Options struct {
	// DryRun previews the merge without touching any file or the remote.
	DryRun bool

	// Policy resolves conflicts non-interactively. PolicyInteractive defers
	// to Resolver.
	Policy Policy

	// Resolver handles conflicts when Policy is PolicyInteractive.
	Resolver Resolver

	// SkipBackup disables the pre-write snapshot. The default is to always
	// snapshot; disabling trades the rollback guarantee for speed.
	SkipBackup bool
}

// Summary reports the outcome of a pull or push.
type Summary struct {
	FirstPull      bool
	StateRecovered bool
	Migrated       bool

	AutoMerged int
	Unchanged  int

	// Pull: entries written/deleted locally. Push: entries uploaded/deleted remotely.
	Written int
	Deleted int

	ConfigWritten int
	ConfigDeleted int

	// Conflicts left unresolved; populated on dry runs and conflict aborts.
	Conflicts       []EntryConflict
	ConfigConflicts []ConfigConflict

	Warnings []string
	BackupID string
	DryRun   bool
}

// Params wires an Engine's collaborators.
type Params struct {
	// ProjectDir is the project root; it is the unit of exclusivity.
	ProjectDir string

	// ResourcesDir is the directory of per-language resource files.
	ResourcesDir string

	// Backend provides format-specific resource file access.
	Backend resource.Backend

	// Client talks to the remote sync store.
	Client api.Client

	// Settings are the local scalar config properties in the sync namespace.
	Settings map[string]string

	// SettingsStore persists merged config properties. Optional; without it
	// config changes are merged but not written.
	SettingsStore SettingsStore

	// Retention configures backup pruning after successful pulls.
	Retention backup.CleanupOptions
}

// Engine runs pull and push operations for one project directory. One
// operation runs start to finish with no internal parallelism; callers must
// not run concurrent operations against the same directory.
type Engine struct {
	params       Params
	merger       *Merger
	configMerger *ConfigMerger
	extractor    *Extractor
	regenerator  *Regenerator
	states       *state.Store
	backups      *backup.Manager
}

// NewEngine creates an engine from wired collaborators.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:       params,
		merger:       NewMerger(),
		configMerger: NewConfigMerger(),
		extractor:    NewExtractor(params.Backend),
		regenerator:  NewRegenerator(params.Backend),
		states:       state.NewStore(params.ProjectDir),
		backups:      backup.NewManager(params.ProjectDir),
	}
}

// Pull reconciles remote changes into the local resource files.
func (e *Engine) Pull(ctx context.Context, opts Options) (*Summary, error) {
	defer logging.Timer("pull")()

	prep, err := e.prepare(ctx, opts, "pull")
	if err != nil {
		return prep.summaryOrNil(), err
	}
	summary := prep.summary

	entryRes := e.merger.Merge(prep.local, prep.remote.Entries, prep.baseline)
	configRes := e.configMerger.Merge(prep.localConfig, prep.remoteConfig, prep.baseline)

	entryRes, configRes, err = e.resolve(entryRes, configRes, prep.localIndex, prep.localConfig, opts)
	if err != nil {
		return summary, err
	}
	summary.record(entryRes, configRes)

	if entryRes.HasConflicts() || configRes.HasConflicts() {
		summary.Conflicts = entryRes.Conflicts
		summary.ConfigConflicts = configRes.Conflicts
		if opts.DryRun {
			return summary, nil
		}
		return summary, fmt.Errorf("%w: %d entries, %d config properties",
			ErrUnresolvedConflicts, len(entryRes.Conflicts), len(configRes.Conflicts))
	}

	if opts.DryRun {
		return summary, nil
	}

	// Cooperative cancellation ends here: once the backup starts, the
	// operation runs to a consistent end state, applied or rolled back.
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if entryRes.HasChanges() || configRes.HasChanges() {
		if err := e.applyLocal(entryRes, configRes, opts, summary); err != nil {
			return summary, err
		}
	}

	if err := e.saveBaseline(entryRes, configRes); err != nil {
		return summary, fmt.Errorf("merge applied but baseline save failed: %w", err)
	}

	if pruned, err := e.backups.Prune(e.params.Retention); err != nil {
		logging.Warn("backup pruning failed", logging.Err(err))
	} else if len(pruned) > 0 {
		logging.Debug("pruned old backups", logging.Count(len(pruned)))
	}

	return summary, nil
}

// Push uploads local changes to the remote store. Push writes nothing
// locally except the refreshed baseline, so no backup is needed.
func (e *Engine) Push(ctx context.Context, opts Options) (*Summary, error) {
	defer logging.Timer("push")()

	prep, err := e.prepare(ctx, opts, "push")
	if err != nil {
		return prep.summaryOrNil(), err
	}
	summary := prep.summary

	entryRes := e.merger.MergeForPush(prep.local, prep.remote.Entries, prep.baseline)
	configRes := e.configMerger.MergeForPush(prep.localConfig, prep.remoteConfig, prep.baseline)

	entryRes, configRes, err = e.resolve(entryRes, configRes, prep.localIndex, prep.localConfig, opts)
	if err != nil {
		return summary, err
	}
	summary.record(entryRes, configRes)

	if entryRes.HasConflicts() || configRes.HasConflicts() {
		summary.Conflicts = entryRes.Conflicts
		summary.ConfigConflicts = configRes.Conflicts
		if opts.DryRun {
			return summary, nil
		}
		return summary, fmt.Errorf("%w: %d entries, %d config properties",
			ErrUnresolvedConflicts, len(entryRes.Conflicts), len(configRes.Conflicts))
	}

	if opts.DryRun {
		return summary, nil
	}

	if entryRes.HasChanges() || configRes.HasChanges() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		req := api.PushRequest{Entries: entryRes.ToWrite}
		for _, ref := range entryRes.ToDelete {
			req.Deleted = append(req.Deleted, api.DeletedRef{Key: ref.Key, Lang: ref.Lang})
		}
		if len(configRes.ToWrite) > 0 {
			req.Config = make(map[string]string, len(configRes.ToWrite))
			for _, p := range configRes.ToWrite {
				req.Config[p.Path] = p.Value
			}
		}
		req.ConfigDeleted = append([]string(nil), configRes.ToDelete...)

		ack, err := e.params.Client.Push(ctx, req)
		if err != nil {
			return summary, fmt.Errorf("push failed, nothing changed locally: %w", err)
		}
		logging.Info("pushed local changes",
			logging.Operation("push"),
			slog.Int("accepted", ack.Accepted),
		)
	}

	if err := e.saveBaseline(entryRes, configRes); err != nil {
		return summary, fmt.Errorf("push accepted but baseline save failed: %w", err)
	}
	return summary, nil
}

// prepared carries everything both directions need.
type prepared struct {
	summary      *Summary
	baseline     *state.State
	local        []model.Entry
	localIndex   map[EntryRef]model.Entry
	localConfig  map[string]model.ConfigProperty
	remote       *api.PullResponse
	remoteConfig map[string]model.ConfigProperty
}

func (p prepared) summaryOrNil() *Summary {
	return p.summary
}

// prepare loads the baseline, extracts local entries, and fetches the remote
// view. It performs no writes.
func (e *Engine) prepare(ctx context.Context, opts Options, op string) (prepared, error) {
	summary := &Summary{DryRun: opts.DryRun}
	prep := prepared{summary: summary}

	loaded, err := e.states.Load()
	if err != nil {
		return prep, err
	}
	prep.baseline = loaded.State
	summary.FirstPull = loaded.State == nil
	summary.StateRecovered = loaded.WasCorrupted
	summary.Migrated = loaded.NeedsMigration

	if loaded.WasCorrupted {
		logging.Warn("sync state was corrupted, falling back to first-pull semantics",
			logging.Operation(op),
		)
	}

	local, langs, err := e.extractor.Extract(e.params.ResourcesDir)
	if err != nil {
		return prep, fmt.Errorf("failed to extract local entries: %w", err)
	}
	prep.local = local
	prep.localIndex = indexLocal(local)
	prep.localConfig = ConfigProperties(e.params.Settings)

	logging.Debug("local snapshot ready",
		logging.Operation(op),
		logging.Count(len(local)),
		slog.Int("languages", len(langs)),
	)

	if err := ctx.Err(); err != nil {
		return prep, err
	}

	remote, err := e.params.Client.Pull(ctx)
	if err != nil {
		return prep, fmt.Errorf("failed to fetch remote entries: %w", err)
	}
	prep.remote = remote
	prep.remoteConfig = ConfigProperties(remote.Config)

	return prep, nil
}

// resolve runs the policy or resolver over outstanding conflicts and folds
// the resolutions into both results.
func (e *Engine) resolve(entryRes *MergeResult, configRes *ConfigMergeResult, localIndex map[EntryRef]model.Entry, localConfig map[string]model.ConfigProperty, opts Options) (*MergeResult, *ConfigMergeResult, error) {
	if !entryRes.HasConflicts() && !configRes.HasConflicts() {
		return entryRes, configRes, nil
	}

	var resolutions []ConflictResolution
	var err error
	if opts.Policy == PolicyInteractive && opts.Resolver != nil {
		resolutions, err = opts.Resolver.Resolve(entryRes.Conflicts, configRes.Conflicts)
	} else {
		resolutions, err = opts.Policy.Resolve(entryRes.Conflicts, configRes.Conflicts)
	}
	if err != nil {
		return entryRes, configRes, err
	}
	if len(resolutions) == 0 {
		return entryRes, configRes, nil
	}

	entryRes, err = e.merger.ApplyResolutions(entryRes, resolutions, localIndex)
	if err != nil {
		return entryRes, configRes, err
	}
	configRes, err = e.configMerger.ApplyResolutions(configRes, resolutions, localConfig)
	if err != nil {
		return entryRes, configRes, err
	}
	return entryRes, configRes, nil
}

// applyLocal snapshots the current files, writes the merge result, and rolls
// back on failure. Cancellation is ignored for the duration.
func (e *Engine) applyLocal(entryRes *MergeResult, configRes *ConfigMergeResult, opts Options, summary *Summary) error {
	var backupID string
	if !opts.SkipBackup {
		files := e.filesToSnapshot(configRes.HasChanges())
		if len(files) > 0 {
			meta, err := e.backups.Create(files, "pre-pull snapshot")
			if err != nil {
				return fmt.Errorf("backup failed, aborting before any write: %w", err)
			}
			backupID = meta.ID
			summary.BackupID = backupID
		}
	}

	report := e.regenerator.Apply(e.params.ResourcesDir, entryRes)
	if !report.Success() {
		return e.rollback(backupID, report.Err())
	}

	if configRes.HasChanges() && e.params.SettingsStore != nil {
		updates := make(map[string]string, len(configRes.ToWrite))
		for _, p := range configRes.ToWrite {
			updates[p.Path] = p.Value
		}
		if err := e.params.SettingsStore.Apply(updates, configRes.ToDelete); err != nil {
			return e.rollback(backupID, fmt.Errorf("failed to update local config: %w", err))
		}
	}

	return nil
}

// rollback restores the pre-operation snapshot and reports one aggregate
// failure, never a partial success.
func (e *Engine) rollback(backupID string, cause error) error {
	if backupID == "" {
		return cause
	}
	if err := e.backups.Restore(backupID); err != nil {
		return fmt.Errorf("%w (rollback also failed: %v)", cause, err)
	}
	logging.Warn("apply failed, local files restored from backup",
		logging.Backup(backupID),
		logging.Err(cause),
	)
	return fmt.Errorf("%w (local files restored from backup %s)", cause, backupID)
}

// filesToSnapshot lists every existing resource file, plus the config file
// when it will be modified.
func (e *Engine) filesToSnapshot(configChanges bool) []string {
	var files []string
	langs, err := e.params.Backend.DiscoverLanguages(e.params.ResourcesDir)
	if err != nil {
		langs = nil
	}
	for _, lang := range langs {
		path := e.params.Backend.FilePath(e.params.ResourcesDir, lang)
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	if configChanges && e.params.SettingsStore != nil {
		if path := e.params.SettingsStore.Path(); path != "" {
			if _, err := os.Stat(path); err == nil {
				files = append(files, path)
			}
		}
	}
	return files
}

// saveBaseline rebuilds the state from the merged hashes and persists it
// atomically, replacing the previous baseline wholesale.
func (e *Engine) saveBaseline(entryRes *MergeResult, configRes *ConfigMergeResult) error {
	next := state.New()
	for ref, h := range entryRes.NewHashes {
		next.SetEntryHash(ref.Key, ref.Lang, h)
	}
	for path, h := range configRes.NewHashes {
		next.ConfigProperties[path] = h
	}
	return e.states.Save(next)
}

// record copies merge counters into the summary.
func (s *Summary) record(entryRes *MergeResult, configRes *ConfigMergeResult) {
	s.AutoMerged = entryRes.AutoMerged + configRes.AutoMerged
	s.Unchanged = entryRes.Unchanged + configRes.Unchanged
	s.Written = len(entryRes.ToWrite)
	s.Deleted = len(entryRes.ToDelete)
	s.ConfigWritten = len(configRes.ToWrite)
	s.ConfigDeleted = len(configRes.ToDelete)
	s.Warnings = append(append([]string(nil), entryRes.Warnings...), configRes.Warnings...)
}
