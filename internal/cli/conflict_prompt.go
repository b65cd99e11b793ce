package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/klauern/locsync/internal/sync"
	"github.com/klauern/locsync/internal/ui"
)

// ConflictResolver prompts for conflict resolutions on plain stdin/stdout.
// It is the fallback when the terminal cannot host the full-screen UI.
type ConflictResolver struct {
	reader *bufio.Reader
}

// NewConflictResolver creates a new prompt-based conflict resolver.
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Resolve walks every conflict and asks for a choice. Choosing skip returns
// immediately; the engine aborts before writing anything.
func (cr *ConflictResolver) Resolve(entries []sync.EntryConflict, configs []sync.ConfigConflict) ([]sync.ConflictResolution, error) {
	total := len(entries) + len(configs)
	fmt.Printf("\n=== Conflict Resolution ===\n")
	fmt.Printf("Found %d conflict(s) that require resolution.\n\n", total)

	resolutions := make([]sync.ConflictResolution, 0, total)
	n := 0

	for i := range entries {
		n++
		c := &entries[i]
		fmt.Printf("--- Conflict %d of %d ---\n", n, total)
		fmt.Println(c.Summary())
		cr.showSides(c.LocalValue, c.RemoteValue)

		res, err := cr.promptChoice(sync.TargetEntry, c.Key, c.Lang, c.LocalValue, c.RemoteValue)
		if err != nil {
			return nil, err
		}
		if res.Resolution == sync.ResolutionSkip {
			return []sync.ConflictResolution{res}, nil
		}
		resolutions = append(resolutions, res)
		fmt.Printf("%s\n\n", ui.StatusSuccess(fmt.Sprintf("%s resolved with: %s", c.Key, res.Resolution)))
	}

	for i := range configs {
		n++
		c := &configs[i]
		fmt.Printf("--- Conflict %d of %d ---\n", n, total)
		fmt.Println(c.Summary())
		cr.showSides(c.LocalValue, c.RemoteValue)

		res, err := cr.promptChoice(sync.TargetConfigProperty, c.Path, "", c.LocalValue, c.RemoteValue)
		if err != nil {
			return nil, err
		}
		if res.Resolution == sync.ResolutionSkip {
			return []sync.ConflictResolution{res}, nil
		}
		resolutions = append(resolutions, res)
		fmt.Printf("%s\n\n", ui.StatusSuccess(fmt.Sprintf("%s resolved with: %s", c.Path, res.Resolution)))
	}

	return resolutions, nil
}

// showSides prints both versions, marking a deleted side.
func (cr *ConflictResolver) showSides(local, remote *string) {
	fmt.Println(strings.Repeat("-", 50))
	if local != nil {
		fmt.Printf("  %s %s\n", ui.Local("local: "), *local)
	} else {
		fmt.Printf("  %s %s\n", ui.Local("local: "), ui.Dim("(deleted)"))
	}
	if remote != nil {
		fmt.Printf("  %s %s\n", ui.Remote("remote:"), *remote)
	} else {
		fmt.Printf("  %s %s\n", ui.Remote("remote:"), ui.Dim("(deleted)"))
	}
	fmt.Println(strings.Repeat("-", 50))
}

// promptChoice asks how to resolve one conflict.
func (cr *ConflictResolver) promptChoice(target sync.TargetType, key, lang string, local, remote *string) (sync.ConflictResolution, error) {
	fmt.Println("\nHow would you like to resolve this conflict?")
	fmt.Println("  1. Keep local version")
	fmt.Println("  2. Take remote version")
	fmt.Println("  3. Enter a merged value")
	fmt.Println("  4. Skip (aborts the whole sync)")
	fmt.Print("\nEnter choice [1-4]: ")

	res := sync.ConflictResolution{Key: key, Lang: lang, TargetType: target}

	for {
		response, err := cr.reader.ReadString('\n')
		if err != nil {
			return res, fmt.Errorf("failed to read input: %w", err)
		}

		choice, err := strconv.Atoi(strings.TrimSpace(response))
		if err != nil || choice < 1 || choice > 4 {
			fmt.Print("Invalid choice. Enter 1-4: ")
			continue
		}

		switch choice {
		case 1:
			res.Resolution = sync.ResolutionLocal
		case 2:
			res.Resolution = sync.ResolutionRemote
		case 3:
			edited, err := cr.promptEdit(remote, local)
			if err != nil {
				return res, err
			}
			res.Resolution = sync.ResolutionEdit
			res.EditedValue = edited
		case 4:
			res.Resolution = sync.ResolutionSkip
		}
		return res, nil
	}
}

// promptEdit reads a replacement value, defaulting to the remote side when
// the user enters nothing.
func (cr *ConflictResolver) promptEdit(remote, local *string) (string, error) {
	seed := ""
	if remote != nil {
		seed = *remote
	} else if local != nil {
		seed = *local
	}

	fmt.Printf("Enter merged value (empty keeps %q): ", seed)
	line, err := cr.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if line == "" {
		return seed, nil
	}
	return line, nil
}
