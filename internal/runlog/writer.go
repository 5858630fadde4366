package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Write serializes rec as pretty-printed JSON with a trailing newline,
// creating parent directories as needed.
func Write(path string, rec Record) error {
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("run log: marshal: %w", err)
	}
	raw = append(raw, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("run log: create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("run log: write %s: %w", path, err)
	}
	return nil
}

// Load reads a previously written run log.
func Load(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("run log: read %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("run log: parse %s: %w", path, err)
	}
	return rec, nil
}
