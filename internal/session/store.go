package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/untoldecay/devlog/internal/debug"
	"github.com/untoldecay/devlog/internal/fsutil"
	"github.com/untoldecay/devlog/internal/paths"
)

// Store persists session accumulators as session-<id>.json files in the
// project working directory. Writes go through a temp file and rename, so a
// reader sees either the previous snapshot or the new one.
type Store struct {
	projectPath string
}

// NewStore returns a store for one project.
func NewStore(projectPath string) *Store {
	return &Store{projectPath: projectPath}
}

func (s *Store) filePath(sessionID string) string {
	return filepath.Join(paths.WorkingDir(s.projectPath), "session-"+sessionID+".json")
}

// Read loads one session by id. A missing file is "not present", not an error.
func (s *Store) Read(sessionID string) (*Accumulator, bool, error) {
	var acc Accumulator
	found, err := fsutil.ReadJSON(s.filePath(sessionID), &acc)
	if err != nil || !found {
		return nil, false, err
	}
	return &acc, true, nil
}

// Persist writes the accumulator atomically, creating the working dir on the
// first per-project write.
func (s *Store) Persist(acc *Accumulator) error {
	if err := paths.EnsureProjectDirs(s.projectPath); err != nil {
		return fsutil.WriteErr(paths.WorkingDir(s.projectPath), err)
	}
	return fsutil.WriteJSONAtomic(s.filePath(acc.SessionID), acc)
}

// GetOrCreate resolves a session id to its accumulator, creating and
// persisting an empty one when nothing matches. The "unknown" sentinel
// continues the most recently active session if any is still active.
func (s *Store) GetOrCreate(sessionID string) (*Accumulator, error) {
	if sessionID == UnknownSessionID {
		if acc := s.mostRecentActive(); acc != nil {
			return acc, nil
		}
		sessionID = NewID("sess")
	} else {
		acc, found, err := s.Read(sessionID)
		if err != nil {
			return nil, err
		}
		if found {
			return acc, nil
		}
	}

	acc := NewAccumulator(sessionID, s.projectPath)
	if err := s.Persist(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// mostRecentActive scans the working dir for the active session with the
// newest last-activity stamp. Unreadable files are skipped.
func (s *Store) mostRecentActive() *Accumulator {
	sessions, err := s.List()
	if err != nil {
		return nil
	}
	var best *Accumulator
	for _, acc := range sessions {
		if acc.Status != StatusActive {
			continue
		}
		if best == nil || acc.LastActivity.After(best.LastActivity) {
			best = acc
		}
	}
	return best
}

// AppendSignal loads or creates the session, applies the signal, and
// persists the result.
func (s *Store) AppendSignal(sessionID string, sig Signal) (*Accumulator, error) {
	acc, err := s.GetOrCreate(sessionID)
	if err != nil {
		return nil, err
	}
	acc.Append(sig)
	if err := s.Persist(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// List returns every deserializable session in the working dir, sorted by
// session id for deterministic iteration. Parse failures are skipped (the
// offending file stays on disk until repaired) and reported via debug output.
func (s *Store) List() ([]*Accumulator, error) {
	dir := paths.WorkingDir(s.projectPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fsutil.ReadErr(dir, err)
	}

	var sessions []*Accumulator
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		var acc Accumulator
		found, err := fsutil.ReadJSON(filepath.Join(dir, name), &acc)
		if err != nil {
			debug.Logf("Debug: skipping unreadable session file %s: %v\n", name, err)
			continue
		}
		if found {
			sessions = append(sessions, &acc)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SessionID < sessions[j].SessionID
	})
	return sessions, nil
}

// FindStale returns active sessions whose last activity is older than
// timeout.
func (s *Store) FindStale(timeout time.Duration) ([]*Accumulator, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var stale []*Accumulator
	for _, acc := range sessions {
		if acc.Status == StatusActive && now.Sub(acc.LastActivity) > timeout {
			stale = append(stale, acc)
		}
	}
	return stale, nil
}

// FindToConsolidate returns sessions already finalized and awaiting
// consolidation.
func (s *Store) FindToConsolidate() ([]*Accumulator, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	var pending []*Accumulator
	for _, acc := range sessions {
		if acc.Status == StatusConsolidating {
			pending = append(pending, acc)
		}
	}
	return pending, nil
}

// Finalize transitions an active session to consolidating. Idempotent for
// sessions in any other status, and a no-op for missing sessions.
func (s *Store) Finalize(sessionID string) error {
	acc, found, err := s.Read(sessionID)
	if err != nil || !found {
		return err
	}
	if acc.Status != StatusActive {
		return nil
	}
	acc.Status = StatusConsolidating
	return s.Persist(acc)
}

// Archive removes the session file. With keep set, the file is rewritten
// with status closed instead of being deleted.
func (s *Store) Archive(sessionID string, keep bool) error {
	if keep {
		acc, found, err := s.Read(sessionID)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		acc.Status = StatusClosed
		return s.Persist(acc)
	}
	if err := os.Remove(s.filePath(sessionID)); err != nil && !os.IsNotExist(err) {
		return fsutil.WriteErr(s.filePath(sessionID), err)
	}
	return nil
}
