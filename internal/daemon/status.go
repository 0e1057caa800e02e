package daemon

import (
	"os"
	"time"

	"github.com/untoldecay/devlog/internal/fsutil"
	"github.com/untoldecay/devlog/internal/paths"
)

// ProjectStats is the per-project counter block in the status snapshot.
type ProjectStats struct {
	EventsProcessed   int       `json:"events_processed"`
	MemoriesExtracted int       `json:"memories_extracted"`
	LastActivity      time.Time `json:"last_activity"`
}

// StatusSnapshot is the JSON persisted at <global>/daemon.status, rewritten
// at the end of each loop and on shutdown.
type StatusSnapshot struct {
	Running            bool                     `json:"running"`
	PID                int                      `json:"pid"`
	StartedAt          time.Time                `json:"started_at"`
	SessionsProcessed  int                      `json:"sessions_processed"`
	LastConsolidation  *time.Time               `json:"last_consolidation,omitempty"`
	LastStalenessCheck *time.Time               `json:"last_staleness_check,omitempty"`
	Projects           map[string]*ProjectStats `json:"projects"`
}

// ReadStatus loads the last persisted snapshot, or nil when none exists.
func ReadStatus() (*StatusSnapshot, error) {
	var snap StatusSnapshot
	found, err := fsutil.ReadJSON(paths.DaemonStatusFile(), &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

func (d *Daemon) writeStatus() {
	snap := StatusSnapshot{
		Running:            d.running,
		PID:                os.Getpid(),
		StartedAt:          d.startedAt,
		SessionsProcessed:  d.sessionsProcessed,
		LastConsolidation:  d.lastConsolidation,
		LastStalenessCheck: d.lastStalenessCheck,
		Projects:           d.projects,
	}
	if err := fsutil.WriteJSONAtomic(paths.DaemonStatusFile(), &snap); err != nil {
		d.logf("Warning: failed to write status snapshot: %v", err)
	}
}

// restoreProjects reloads the tracked project set from the previous run,
// filtering out projects whose memory root has since disappeared.
func (d *Daemon) restoreProjects() {
	snap, err := ReadStatus()
	if err != nil || snap == nil {
		return
	}
	for path, stats := range snap.Projects {
		if !paths.HasMemory(path) {
			d.logf("Dropping stale project %s (working dir gone)", path)
			continue
		}
		if stats == nil {
			stats = &ProjectStats{}
		}
		d.projects[path] = stats
	}
	d.sessionsProcessed = snap.SessionsProcessed
	if len(d.projects) > 0 {
		d.logf("Restored %d project(s) from previous status", len(d.projects))
	}
}
