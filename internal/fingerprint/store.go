package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/serpforge/serpforge/internal/logger"
)

// Store loads and saves the fingerprint sidecar next to a browser
// storage-state file. The sidecar path is the state path with its ".json"
// suffix replaced by "-fingerprint.json".
type Store struct {
	StateFile   string
	SidecarFile string
}

// NewStore creates a store for the given storage-state file path.
func NewStore(stateFile string) *Store {
	return &Store{
		StateFile:   stateFile,
		SidecarFile: SidecarPath(stateFile),
	}
}

// SidecarPath derives the fingerprint sidecar path from a state-file path.
func SidecarPath(stateFile string) string {
	if strings.HasSuffix(stateFile, ".json") {
		return strings.TrimSuffix(stateFile, ".json") + "-fingerprint.json"
	}
	return stateFile + "-fingerprint.json"
}

// Load returns the storage-state path when a state file exists (empty
// otherwise) and the saved session state. A missing or unparsable sidecar
// yields an empty state rather than an error: a corrupt sidecar only costs
// us a fresh fingerprint.
func (s *Store) Load() (storageState string, state *State) {
	lock := lockFor(s.StateFile)
	lock.Lock()
	defer lock.Unlock()

	state = &State{}

	if _, err := os.Stat(s.StateFile); err != nil {
		logger.Info("no browser state file found, starting a fresh session", "path", s.StateFile)
		return "", state
	}

	logger.Info("found browser state file, reusing saved session", "path", s.StateFile)
	storageState = s.StateFile

	data, err := os.ReadFile(s.SidecarFile)
	if err != nil {
		return storageState, state
	}
	if err := json.Unmarshal(data, state); err != nil {
		logger.Warn("could not parse fingerprint sidecar, a new fingerprint will be created",
			"path", s.SidecarFile, "error", err)
		return storageState, &State{}
	}

	logger.Info("loaded saved fingerprint configuration", "path", s.SidecarFile)
	return storageState, state
}

// Save serializes the session state to the sidecar file, creating parent
// directories as needed. Callers treat a failure as non-fatal.
func (s *Store) Save(state *State) error {
	lock := lockFor(s.StateFile)
	lock.Lock()
	defer lock.Unlock()

	if dir := filepath.Dir(s.SidecarFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sidecar directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprint state: %w", err)
	}
	if err := os.WriteFile(s.SidecarFile, data, 0o644); err != nil {
		return fmt.Errorf("write fingerprint sidecar: %w", err)
	}

	logger.Info("fingerprint configuration saved", "path", s.SidecarFile)
	return nil
}

// Sidecar writes race under concurrent searches against the same state
// path. A per-path mutex serializes read-modify-write within the process;
// cross-process locking is out of scope.
var (
	pathLocksMu sync.Mutex
	pathLocks   = map[string]*sync.Mutex{}
)

func lockFor(path string) *sync.Mutex {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()
	if l, ok := pathLocks[abs]; ok {
		return l
	}
	l := &sync.Mutex{}
	pathLocks[abs] = l
	return l
}
