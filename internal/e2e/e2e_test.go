package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitCreatesConfig(t *testing.T) {
	h := NewHarness(t)

	res := h.Run("init", "--format", "json")
	RequireSuccess(t, res)
	RequireContains(t, res, "wrote")

	if _, err := os.Stat(filepath.Join(h.ProjectDir(), ".locsync", "config.yaml")); err != nil {
		t.Errorf("config file missing: %v", err)
	}

	// A second init must refuse to overwrite.
	res = h.Run("init", "--format", "json")
	RequireFailure(t, res)
}

func TestFirstPullAcceptsEverything(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))

	h.Remote.SetEntry("app.title", "en", "Title")
	h.Remote.SetEntry("app.title", "de", "Titel")

	res := h.Run("pull")
	RequireSuccess(t, res)
	RequireContains(t, res, "No previous sync state")
	RequireContains(t, res, "pull complete")

	if got := h.ResourceValue("en", "app.title"); got != "Title" {
		t.Errorf("en value = %q", got)
	}
	if got := h.ResourceValue("de", "app.title"); got != "Titel" {
		t.Errorf("de value = %q", got)
	}

	// The baseline makes the second pull a no-op.
	res = h.Run("pull")
	RequireSuccess(t, res)
	if strings.Contains(res.Stdout, "No previous sync state") {
		t.Error("second pull should not be a first pull")
	}
	RequireContains(t, res, "0 written")
}

func TestPushUploadsLocalEdits(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "Title")
	RequireSuccess(t, h.Run("pull"))

	h.WriteResource("en", map[string]string{"app.title": "Edited locally"})

	res := h.Run("push")
	RequireSuccess(t, res)
	RequireContains(t, res, "push complete")

	if got, _ := h.Remote.Entry("app.title", "en"); got != "Edited locally" {
		t.Errorf("remote value = %q", got)
	}
	if h.Remote.PushCount() != 1 {
		t.Errorf("PushCount = %d", h.Remote.PushCount())
	}

	// Nothing left to upload.
	res = h.Run("push")
	RequireSuccess(t, res)
	if h.Remote.PushCount() != 1 {
		t.Error("a no-op push must not hit the remote")
	}
}

func TestPushPropagatesLocalDeletion(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("keep", "en", "stays")
	h.Remote.SetEntry("gone", "en", "deleted locally")
	RequireSuccess(t, h.Run("pull"))

	h.WriteResource("en", map[string]string{"keep": "stays"})
	RequireSuccess(t, h.Run("push"))

	if _, exists := h.Remote.Entry("gone", "en"); exists {
		t.Error("deleted entry still on the remote")
	}
	if v, _ := h.Remote.Entry("keep", "en"); v != "stays" {
		t.Errorf("untouched entry changed: %q", v)
	}
}

func TestConflictPolicyRemote(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "v1")
	RequireSuccess(t, h.Run("pull"))

	h.WriteResource("en", map[string]string{"app.title": "local v2"})
	h.Remote.SetEntry("app.title", "en", "remote v2")

	res := h.Run("pull", "--policy", "remote")
	RequireSuccess(t, res)
	if got := h.ResourceValue("en", "app.title"); got != "remote v2" {
		t.Errorf("value = %q, want the remote side", got)
	}
	RequireContains(t, res, "snapshot")
}

func TestConflictPolicyAbortLeavesFilesAlone(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "v1")
	RequireSuccess(t, h.Run("pull"))

	h.WriteResource("en", map[string]string{"app.title": "local v2"})
	h.Remote.SetEntry("app.title", "en", "remote v2")

	res := h.Run("pull", "--policy", "abort")
	RequireSuccess(t, res)
	RequireContains(t, res, "aborted, nothing was changed")

	if got := h.ResourceValue("en", "app.title"); got != "local v2" {
		t.Errorf("aborted pull modified the file: %q", got)
	}
}

func TestInteractiveConflictPrompt(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "v1")
	RequireSuccess(t, h.Run("pull"))

	h.WriteResource("en", map[string]string{"app.title": "local v2"})
	h.Remote.SetEntry("app.title", "en", "remote v2")

	// Captured stdout is not a terminal, so the plain prompt runs. Choice 2
	// takes the remote version.
	res := h.RunWithStdin("2\n", "pull")
	RequireSuccess(t, res)
	RequireContains(t, res, "Conflict Resolution")
	RequireContains(t, res, "resolved with: remote")

	if got := h.ResourceValue("en", "app.title"); got != "remote v2" {
		t.Errorf("value = %q", got)
	}
}

func TestInteractiveSkipAbortsSync(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "v1")
	RequireSuccess(t, h.Run("pull"))

	h.WriteResource("en", map[string]string{"app.title": "local v2"})
	h.Remote.SetEntry("app.title", "en", "remote v2")

	res := h.RunWithStdin("4\n", "pull")
	RequireSuccess(t, res)
	RequireContains(t, res, "aborted, nothing was changed")

	if got := h.ResourceValue("en", "app.title"); got != "local v2" {
		t.Errorf("skip must not modify files: %q", got)
	}
}

func TestDryRunPreviews(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "Title")

	res := h.Run("pull", "--dry-run")
	RequireSuccess(t, res)
	RequireContains(t, res, "Dry run, nothing changed")
	RequireContains(t, res, "1 written")

	if _, err := os.Stat(filepath.Join(h.ProjectDir(), "locales", "en.json")); !os.IsNotExist(err) {
		t.Error("dry run wrote a resource file")
	}
}

func TestStatusShowsBothDirections(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "v1")
	RequireSuccess(t, h.Run("pull"))

	h.WriteResource("en", map[string]string{
		"app.title": "v1",
		"app.new":   "added locally",
	})
	h.Remote.SetEntry("app.remote", "en", "added remotely")

	res := h.Run("status")
	RequireSuccess(t, res)
	RequireContains(t, res, "Incoming (pull)")
	RequireContains(t, res, "Outgoing (push)")

	// Status never writes.
	values := h.ReadResource("en")
	if len(values) != 2 {
		t.Errorf("status modified the resource file: %v", values)
	}
	if h.Remote.PushCount() != 0 {
		t.Error("status pushed to the remote")
	}
}

func TestBackupLifecycle(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "v1")
	RequireSuccess(t, h.Run("pull"))

	// A destructive pull over existing files records a snapshot.
	h.Remote.SetEntry("app.title", "en", "v2")
	RequireSuccess(t, h.Run("pull"))

	res := h.Run("backup", "list")
	RequireSuccess(t, res)
	RequireContains(t, res, "pre-pull snapshot")

	// Manual snapshot, then restore it over a local edit.
	res = h.Run("backup", "create", "--reason", "before experiment")
	RequireSuccess(t, res)

	fields := strings.Fields(res.Stdout)
	var id string
	for i, f := range fields {
		if f == "snapshot" && i+1 < len(fields) {
			id = fields[i+1]
			break
		}
	}
	if id == "" {
		t.Fatalf("could not find snapshot ID in output:\n%s", res.Stdout)
	}

	h.WriteResource("en", map[string]string{"app.title": "scratch edit"})
	RequireSuccess(t, h.Run("backup", "restore", id))
	if got := h.ResourceValue("en", "app.title"); got != "v2" {
		t.Errorf("restore did not bring back the snapshot content: %q", got)
	}

	RequireSuccess(t, h.Run("backup", "verify", id))
}

func TestConfigPropertySyncRoundTrip(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetConfig("project.name", "Shared Name")

	RequireSuccess(t, h.Run("pull"))

	res := h.Run("config", "show")
	RequireSuccess(t, res)
	RequireContains(t, res, "project.name = Shared Name")

	// A local property set pushes back to the remote.
	RequireSuccess(t, h.Run("config", "set", "project.owner", "l10n team"))
	RequireSuccess(t, h.Run("push"))

	if v, _ := h.Remote.Config("project.owner"); v != "l10n team" {
		t.Errorf("remote config = %q", v)
	}
}

func TestConfigPropertyUnsetPropagates(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetConfig("project.name", "Shared Name")
	RequireSuccess(t, h.Run("pull"))

	RequireSuccess(t, h.Run("config", "unset", "project.name"))
	RequireSuccess(t, h.Run("push"))

	if _, ok := h.Remote.Config("project.name"); ok {
		t.Fatal("push must remove the property from the remote store")
	}

	// The removal must stick: a later pull can no longer see the property
	// anywhere, so it must not come back.
	RequireSuccess(t, h.Run("pull"))
	res := h.Run("config", "show")
	RequireSuccess(t, res)
	if strings.Contains(res.Stdout, "project.name") {
		t.Error("removed property came back on the next pull")
	}
}

func TestCorruptedStateRecovers(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("app.title", "en", "v1")
	RequireSuccess(t, h.Run("pull"))

	statePath := filepath.Join(h.ProjectDir(), ".locsync", "state.json")
	if err := os.WriteFile(statePath, []byte("{broken"), 0o640); err != nil {
		t.Fatal(err)
	}

	res := h.Run("pull")
	RequireSuccess(t, res)
	RequireContains(t, res, "corrupted")

	// State is rebuilt; the pull after that is clean.
	res = h.Run("pull")
	RequireSuccess(t, res)
	if strings.Contains(res.Stdout, "corrupted") {
		t.Error("state should have been rebuilt")
	}
}

func TestUnknownPolicyRejected(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	h.Remote.SetEntry("k", "en", "v")

	res := h.Run("pull", "--policy", "yolo")
	RequireFailure(t, res)
}

func TestMissingRemoteConfigFails(t *testing.T) {
	h := NewHarness(t)
	RequireSuccess(t, h.Run("init", "--format", "json"))
	t.Setenv("LOCSYNC_REMOTE_URL", "")

	res := h.Run("pull")
	RequireFailure(t, res)
	if res.Err == nil || !strings.Contains(res.Err.Error(), "no remote configured") {
		t.Errorf("err = %v", res.Err)
	}
}
