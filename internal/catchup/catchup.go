// Package catchup maintains the precomputed "what happened recently" state
// for a project: rolling recent-session summaries, the prose summary served
// to the developer, and the dirty flag driving debounced regeneration.
package catchup

import (
	"path/filepath"
	"time"

	"github.com/untoldecay/devlog/internal/fsutil"
	"github.com/untoldecay/devlog/internal/paths"
)

// SummaryStatus is the lifecycle state of the precomputed summary.
type SummaryStatus string

const (
	StatusFresh     SummaryStatus = "fresh"
	StatusStale     SummaryStatus = "stale"
	StatusComputing SummaryStatus = "computing"
)

// PrecomputedSummary is the stored catch-up artifact. When regeneration
// fails, the previous prose is kept with StatusStale and LastError so
// consumers can show both.
type PrecomputedSummary struct {
	SourceHash  string        `json:"source_hash"`
	Summary     string        `json:"summary"`
	GeneratedAt time.Time     `json:"generated_at"`
	Status      SummaryStatus `json:"status"`
	LastError   string        `json:"last_error,omitempty"`
}

// State is the dirty flag. DirtySince is present iff Dirty, and marks the
// first clean-to-dirty transition; further MarkDirty calls preserve it.
type State struct {
	Dirty      bool       `json:"dirty"`
	DirtySince *time.Time `json:"dirty_since,omitempty"`
}

// RecentSessionSummary is the snapshot saved at consolidation time.
type RecentSessionSummary struct {
	SessionID      string    `json:"session_id"`
	ProjectPath    string    `json:"project_path"`
	StartedAt      time.Time `json:"started_at"`
	ConsolidatedAt time.Time `json:"consolidated_at"`
	Goal           string    `json:"goal,omitempty"`
	KeySignals     []string  `json:"key_signals,omitempty"`
	FilesTouched   []string  `json:"files_touched,omitempty"`
}

// Store persists the three catch-up files in a project's working dir.
type Store struct {
	projectPath string
}

// NewStore returns a catch-up store for one project.
func NewStore(projectPath string) *Store {
	return &Store{projectPath: projectPath}
}

func (s *Store) summariesPath() string {
	return filepath.Join(paths.WorkingDir(s.projectPath), "recent-summaries.json")
}

func (s *Store) precomputedPath() string {
	return filepath.Join(paths.WorkingDir(s.projectPath), "catch-up-summary.json")
}

func (s *Store) statePath() string {
	return filepath.Join(paths.WorkingDir(s.projectPath), "catch-up-state.json")
}

// ReadPrecomputed returns the stored summary, or nil when none exists yet.
func (s *Store) ReadPrecomputed() (*PrecomputedSummary, error) {
	var sum PrecomputedSummary
	found, err := fsutil.ReadJSON(s.precomputedPath(), &sum)
	if err != nil || !found {
		return nil, err
	}
	return &sum, nil
}

// WritePrecomputed stores the summary atomically.
func (s *Store) WritePrecomputed(sum *PrecomputedSummary) error {
	if err := paths.EnsureProjectDirs(s.projectPath); err != nil {
		return fsutil.WriteErr(s.precomputedPath(), err)
	}
	return fsutil.WriteJSONAtomic(s.precomputedPath(), sum)
}

// ReadState returns the dirty state, or nil when never written.
func (s *Store) ReadState() (*State, error) {
	var st State
	found, err := fsutil.ReadJSON(s.statePath(), &st)
	if err != nil || !found {
		return nil, err
	}
	return &st, nil
}

// MarkDirty flips the dirty flag. The original dirty-since stamp survives
// repeated calls while the state stays dirty, so the max-stale rule measures
// from the first unprocessed change.
func (s *Store) MarkDirty() error {
	st, err := s.ReadState()
	if err != nil {
		return err
	}
	if st != nil && st.Dirty && st.DirtySince != nil {
		return nil // already dirty; preserve dirty_since
	}
	now := time.Now().UTC()
	if err := paths.EnsureProjectDirs(s.projectPath); err != nil {
		return fsutil.WriteErr(s.statePath(), err)
	}
	return fsutil.WriteJSONAtomic(s.statePath(), &State{Dirty: true, DirtySince: &now})
}

// ClearDirty resets both fields after a successful regeneration.
func (s *Store) ClearDirty() error {
	if err := paths.EnsureProjectDirs(s.projectPath); err != nil {
		return fsutil.WriteErr(s.statePath(), err)
	}
	return fsutil.WriteJSONAtomic(s.statePath(), &State{})
}

// ReadSummaries returns the recent-session summaries, newest first.
func (s *Store) ReadSummaries() ([]RecentSessionSummary, error) {
	var list []RecentSessionSummary
	if _, err := fsutil.ReadJSON(s.summariesPath(), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SaveSummary prepends a consolidation snapshot to the recent list.
func (s *Store) SaveSummary(sum RecentSessionSummary) error {
	list, err := s.ReadSummaries()
	if err != nil {
		return err
	}
	list = append([]RecentSessionSummary{sum}, list...)
	if err := paths.EnsureProjectDirs(s.projectPath); err != nil {
		return fsutil.WriteErr(s.summariesPath(), err)
	}
	return fsutil.WriteJSONAtomic(s.summariesPath(), list)
}

// PruneToLimit keeps only the newest n summaries.
func (s *Store) PruneToLimit(n int) error {
	list, err := s.ReadSummaries()
	if err != nil {
		return err
	}
	if len(list) <= n {
		return nil
	}
	return fsutil.WriteJSONAtomic(s.summariesPath(), list[:n])
}

// ShouldRecompute is the debounce predicate. A clean state never recomputes.
// A dirty state with no stamp recomputes immediately (legacy files). A dirty
// state recomputes once the first change is debounce old; maxStale wins even
// while changes keep arriving, preventing indefinite postponement.
func ShouldRecompute(st *State, now time.Time, debounce, maxStale time.Duration) bool {
	if st == nil || !st.Dirty {
		return false
	}
	if st.DirtySince == nil {
		return true
	}
	elapsed := now.Sub(*st.DirtySince)
	return elapsed >= maxStale || elapsed >= debounce
}
