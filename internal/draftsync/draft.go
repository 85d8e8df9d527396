// Package draftsync turns a local JSON file into an editing surface: every
// write to the file becomes a snapshot for the auto-save scheduler.
package draftsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andressep95/session-service/internal/autosave"
	"github.com/google/uuid"
)

// DraftFile is the on-disk shape of a draft. Tags may be an array or a
// comma-separated string, like the API accepts.
type DraftFile struct {
	Title       string          `json:"title"`
	Tags        json.RawMessage `json:"tags,omitempty"`
	JSONFileURL string          `json:"json_file_url"`
	ConfigURL   string          `json:"config_url,omitempty"`
}

// ReadDraft loads the draft at path as a snapshot, trimmed the same way the
// server trims it.
func ReadDraft(path string) (autosave.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return autosave.Snapshot{}, fmt.Errorf("failed to read draft: %w", err)
	}
	return ParseDraft(raw)
}

func ParseDraft(raw []byte) (autosave.Snapshot, error) {
	var f DraftFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return autosave.Snapshot{}, fmt.Errorf("failed to parse draft: %w", err)
	}

	tags, err := parseTags(f.Tags)
	if err != nil {
		return autosave.Snapshot{}, err
	}

	url := f.JSONFileURL
	if url == "" {
		url = f.ConfigURL
	}

	return autosave.Snapshot{
		Title:     strings.TrimSpace(f.Title),
		Tags:      tags,
		ConfigURL: strings.TrimSpace(url),
	}, nil
}

func parseTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}

	var parts []string
	if err := json.Unmarshal(raw, &parts); err != nil {
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil, errors.New("failed to parse draft: tags must be an array or a comma-separated string")
		}
		parts = strings.Split(joined, ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// State remembers which server session a draft file is synced to. It lives
// next to the draft as "<draft>.sync.json".
type State struct {
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

func StatePath(draftPath string) string {
	return draftPath + ".sync.json"
}

// LoadState returns an empty state when the draft was never synced.
func LoadState(draftPath string) (State, error) {
	raw, err := os.ReadFile(StatePath(draftPath))
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read sync state: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("failed to parse sync state: %w", err)
	}
	return st, nil
}

// SaveState writes atomically so a crash never leaves a half-written file.
func SaveState(draftPath string, st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}

	path := StatePath(draftPath)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sync-*")
	if err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	return nil
}
