package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSidecarPath(t *testing.T) {
	tests := []struct {
		stateFile string
		want      string
	}{
		{"./browser-state.json", "./browser-state-fingerprint.json"},
		{"/tmp/state.json", "/tmp/state-fingerprint.json"},
		{"state", "state-fingerprint.json"},
	}
	for _, tt := range tests {
		if got := SidecarPath(tt.stateFile); got != tt.want {
			t.Errorf("SidecarPath(%q) = %q, want %q", tt.stateFile, got, tt.want)
		}
	}
}

func TestStore_LoadMissingFiles(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	storageState, state := store.Load()
	if storageState != "" {
		t.Errorf("expected empty storage state path, got %q", storageState)
	}
	if state == nil || state.Fingerprint != nil || state.GoogleDomain != "" {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	store := NewStore(statePath)

	saved := &State{
		Fingerprint: &Config{
			DeviceName:    "Desktop Chrome",
			Locale:        "en-GB",
			TimezoneID:    "Europe/London",
			ColorScheme:   "dark",
			ReducedMotion: "no-preference",
			ForcedColors:  "none",
		},
		GoogleDomain: "https://www.google.co.uk",
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Load only reports a storage state when the state file itself exists.
	if err := os.WriteFile(statePath, []byte(`{"cookies":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	storageState, loaded := store.Load()
	if storageState != statePath {
		t.Errorf("storage state path = %q, want %q", storageState, statePath)
	}
	if loaded.GoogleDomain != saved.GoogleDomain {
		t.Errorf("domain = %q, want %q", loaded.GoogleDomain, saved.GoogleDomain)
	}
	if loaded.Fingerprint == nil || *loaded.Fingerprint != *saved.Fingerprint {
		t.Errorf("fingerprint = %+v, want %+v", loaded.Fingerprint, saved.Fingerprint)
	}
}

func TestStore_LoadCorruptSidecar(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	if err := os.WriteFile(statePath, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(SidecarPath(statePath), []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(statePath)
	storageState, state := store.Load()
	if storageState != statePath {
		t.Errorf("corrupt sidecar must not discard the state file, got %q", storageState)
	}
	if state.Fingerprint != nil {
		t.Errorf("expected fresh state after corrupt sidecar, got %+v", state)
	}
}

func TestStore_SaveCreatesParentDirs(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")
	store := NewStore(statePath)

	if err := store.Save(&State{GoogleDomain: "https://www.google.com"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(store.SidecarFile); err != nil {
		t.Errorf("sidecar not written: %v", err)
	}
}
