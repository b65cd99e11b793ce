package state

import "strings"

// legacySeparator joins key and language in the v1 flat entry map
// ("Greeting:en" -> hash).
const legacySeparator = ":"

// migrateLegacy maps a v1 state into the current key-level scheme on a
// best-effort basis. The v1 schema recorded a flat map of "key:lang" entry
// hashes plus whole-file hashes; whole-file hashes carry no key-level
// information and are dropped. Unmappable entries get no baseline, which
// makes them conflict-prone on the next cycle rather than silently wrong.
func migrateLegacy(old *State) (migrated *State, mapped, dropped int) {
	migrated = New()
	migrated.Timestamp = old.Timestamp

	for composite, h := range old.LegacyEntries {
		idx := strings.LastIndex(composite, legacySeparator)
		if idx <= 0 || idx == len(composite)-1 || h == "" {
			dropped++
			continue
		}
		key, lang := composite[:idx], composite[idx+1:]
		migrated.SetEntryHash(key, lang, h)
		mapped++
	}

	for path, h := range old.ConfigProperties {
		if path == "" || h == "" {
			dropped++
			continue
		}
		migrated.ConfigProperties[path] = h
		mapped++
	}

	dropped += len(old.LegacyFiles)

	return migrated, mapped, dropped
}
