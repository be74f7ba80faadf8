package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// cachedState is what survives a restart: the joined user, nothing else.
// Counts are always refetched.
type cachedState struct {
	CurrentUser *Entry `json:"current_user,omitempty"`
}

func loadCacheFile(path string) (*cachedState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cachedState{}, nil
		}
		return nil, err
	}

	var state cachedState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt cache file is discarded, not fatal.
		return &cachedState{}, nil
	}
	return &state, nil
}

func saveCacheFile(path string, state *cachedState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, raw, 0o600)
}
