package sync

import (
	"errors"
	"testing"
)

func TestPolicyIsValid(t *testing.T) {
	for _, p := range AllPolicies() {
		if !p.IsValid() {
			t.Errorf("policy %q should be valid", p)
		}
	}
	if Policy("merge-randomly").IsValid() {
		t.Error("unknown policy should be invalid")
	}
}

func TestPolicyResolvePreferRemote(t *testing.T) {
	entries := []EntryConflict{
		{Key: "a", Lang: "en", LocalValue: StrPtr("l"), RemoteValue: StrPtr("r")},
	}
	configs := []ConfigConflict{
		{Path: "p", LocalValue: StrPtr("l"), RemoteValue: StrPtr("r")},
	}

	resolutions, err := PolicyPreferRemote.Resolve(entries, configs)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolutions) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(resolutions))
	}
	for _, res := range resolutions {
		if res.Resolution != ResolutionRemote {
			t.Errorf("expected remote choice, got %q", res.Resolution)
		}
	}
}

func TestPolicyResolvePreferLocalSkipsDeletions(t *testing.T) {
	entries := []EntryConflict{
		{Key: "modified", Lang: "en", LocalValue: StrPtr("l"), RemoteValue: StrPtr("r")},
		{Key: "deleted-remotely", Lang: "en", LocalValue: StrPtr("l"), RemoteValue: nil},
	}

	resolutions, err := PolicyPreferLocal.Resolve(entries, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolutions) != 1 || resolutions[0].Key != "modified" {
		t.Errorf("delete/modify collisions must stay unresolved, got %+v", resolutions)
	}
}

func TestPolicyResolveAbort(t *testing.T) {
	_, err := PolicyAbort.Resolve([]EntryConflict{{Key: "a", Lang: "en"}}, nil)
	if !errors.Is(err, ErrSyncAborted) {
		t.Errorf("expected ErrSyncAborted, got %v", err)
	}

	if _, err := PolicyAbort.Resolve(nil, nil); err != nil {
		t.Errorf("no conflicts should not abort: %v", err)
	}
}

func TestPolicyResolveInteractiveDefersToCaller(t *testing.T) {
	resolutions, err := PolicyInteractive.Resolve([]EntryConflict{{Key: "a", Lang: "en"}}, nil)
	if err != nil || resolutions != nil {
		t.Errorf("interactive policy resolves nothing itself: %v, %v", resolutions, err)
	}
}
