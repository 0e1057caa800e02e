package paths

import (
	"sync"

	"github.com/untoldecay/devlog/internal/fsutil"
)

// The pending-project registry is a JSON array of project paths. Hooks are
// producers, the daemon is the sole consumer. Cross-process races are
// tolerated: a registration lost to a concurrent rewrite is re-added on the
// next hook turn, and duplicates are deduplicated by the daemon's in-memory
// project set.

var registryMu sync.Mutex

// RegisterProject adds projectPath to the pending registry if absent.
func RegisterProject(projectPath string) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	var pending []string
	if _, err := fsutil.ReadJSON(PendingProjectsFile(), &pending); err != nil {
		// Corrupt registry: start over rather than blocking hooks forever.
		pending = nil
	}
	for _, p := range pending {
		if p == projectPath {
			return nil
		}
	}
	pending = append(pending, projectPath)
	if err := EnsureGlobalDir(); err != nil {
		return err
	}
	return fsutil.WriteJSONAtomic(PendingProjectsFile(), pending)
}

// ConsumePendingProjects reads the registry and resets it to an empty array.
func ConsumePendingProjects() ([]string, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	var pending []string
	found, err := fsutil.ReadJSON(PendingProjectsFile(), &pending)
	if err != nil {
		return nil, err
	}
	if !found || len(pending) == 0 {
		return nil, nil
	}
	if err := fsutil.WriteJSONAtomic(PendingProjectsFile(), []string{}); err != nil {
		return nil, err
	}
	return pending, nil
}
