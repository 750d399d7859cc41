// Package prompts holds the backend instructions: one search prompt per
// batch and the system prompt sent with every batch. They are JSON files
// embedded at compile time so they can be edited without touching code.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
)

//go:embed batches.json system.json
var files embed.FS

// SystemSearchNotices is the key of the system prompt in system.json
const SystemSearchNotices = "search-notices"

// table maps prompt keys to prompt text for one embedded file
type table map[string]string

func (t table) lookup(file, key string) (string, error) {
	p, ok := t[key]
	if !ok || p == "" {
		return "", fmt.Errorf("prompt %q not found in %s", key, file)
	}
	return p, nil
}

func readTable(file string) (table, error) {
	data, err := files.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", file, err)
	}
	var t table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", file, err)
	}
	return t, nil
}

var (
	batches = sync.OnceValues(func() (table, error) { return readTable("batches.json") })
	system  = sync.OnceValues(func() (table, error) { return readTable("system.json") })
)

// Batch returns the search prompt for a batch prompt key
func Batch(key string) (string, error) {
	t, err := batches()
	if err != nil {
		return "", err
	}
	return t.lookup("batches.json", key)
}

// BatchKeys lists the batch prompt keys, sorted
func BatchKeys() []string {
	t, err := batches()
	if err != nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t))
}

// System returns the system prompt. The embedded file is part of the binary,
// so a missing prompt is a build defect and panics.
func System() string {
	t, err := system()
	if err == nil {
		var p string
		if p, err = t.lookup("system.json", SystemSearchNotices); err == nil {
			return p
		}
	}
	panic(fmt.Sprintf("failed to load system prompt: %v", err))
}
