package sync

import "fmt"

// Policy defines the non-interactive behavior for resolving conflicts.
// Interactive resolution is layered above the engine by the caller.
type Policy string

const (
	// PolicyInteractive defers every conflict to a caller-supplied resolver.
	PolicyInteractive Policy = "interactive"

	// PolicyPreferLocal resolves every conflict toward the local value.
	PolicyPreferLocal Policy = "local"

	// PolicyPreferRemote resolves every conflict toward the remote value.
	PolicyPreferRemote Policy = "remote"

	// PolicyAbort cancels the operation if any conflict exists.
	PolicyAbort Policy = "abort"
)

// IsValid returns true if the policy is recognized.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyInteractive, PolicyPreferLocal, PolicyPreferRemote, PolicyAbort:
		return true
	default:
		return false
	}
}

// AllPolicies returns all supported resolution policies.
func AllPolicies() []Policy {
	return []Policy{PolicyInteractive, PolicyPreferLocal, PolicyPreferRemote, PolicyAbort}
}

// String returns the string representation of the policy.
func (p Policy) String() string {
	return string(p)
}

// Description returns a human-readable description of the policy.
func (p Policy) Description() string {
	switch p {
	case PolicyInteractive:
		return "Prompt for each conflict interactively"
	case PolicyPreferLocal:
		return "Keep the local value for every conflict"
	case PolicyPreferRemote:
		return "Accept the remote value for every conflict"
	case PolicyAbort:
		return "Abort if any conflict exists"
	default:
		return "Unknown policy"
	}
}

// Resolve produces resolutions for the given conflicts according to the
// policy. Delete/modify collisions have no canonical default and are left
// unresolved by the prefer-* policies; callers must resolve them explicitly.
// PolicyInteractive returns nothing: the caller owns prompting.
func (p Policy) Resolve(entries []EntryConflict, configs []ConfigConflict) ([]ConflictResolution, error) {
	switch p {
	case PolicyInteractive:
		return nil, nil

	case PolicyAbort:
		if len(entries) > 0 || len(configs) > 0 {
			return nil, fmt.Errorf("%w: %d unresolved conflicts", ErrSyncAborted, len(entries)+len(configs))
		}
		return nil, nil

	case PolicyPreferLocal, PolicyPreferRemote:
		choice := ResolutionLocal
		if p == PolicyPreferRemote {
			choice = ResolutionRemote
		}

		var resolutions []ConflictResolution
		for i := range entries {
			if entries[i].IsDeletion() {
				continue
			}
			resolutions = append(resolutions, ConflictResolution{
				Key:        entries[i].Key,
				Lang:       entries[i].Lang,
				TargetType: TargetEntry,
				Resolution: choice,
			})
		}
		for i := range configs {
			if configs[i].LocalValue == nil || configs[i].RemoteValue == nil {
				continue
			}
			resolutions = append(resolutions, ConflictResolution{
				Key:        configs[i].Path,
				TargetType: TargetConfigProperty,
				Resolution: choice,
			})
		}
		return resolutions, nil

	default:
		return nil, fmt.Errorf("unsupported policy %q", p)
	}
}
