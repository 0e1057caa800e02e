// Package session implements the per-session accumulator: an append-only
// buffer of lightweight signals written during assistant turns, persisted as
// one JSON file per session under <project>/.memory/working/.
package session

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// SignalType discriminates the two signal kinds hooks emit per turn.
type SignalType string

const (
	SignalFileTouched SignalType = "file_touched"
	SignalTurnContext SignalType = "turn_context"
)

// Signal is one immutable observation appended to a session buffer.
// TurnNumber is a turn-arrival timestamp in milliseconds; it is monotone per
// session for all practical purposes and cheap to produce from hooks.
type Signal struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	TurnNumber int64      `json:"turn_number"`
	Type       SignalType `json:"signal_type"`
	Content    string     `json:"content"`
	Files      []string   `json:"files,omitempty"`
}

// Status is the session lifecycle state.
type Status string

const (
	StatusActive        Status = "active"
	StatusConsolidating Status = "consolidating"
	StatusClosed        Status = "closed"
)

// Accumulator is the per-session buffer.
// FilesTouchedAll is the union of Files across all signals, deduplicated,
// in first-insertion order.
type Accumulator struct {
	SessionID       string    `json:"session_id"`
	ProjectPath     string    `json:"project_path"`
	StartedAt       time.Time `json:"started_at"`
	LastActivity    time.Time `json:"last_activity"`
	TurnCount       int64     `json:"turn_count"`
	Signals         []Signal  `json:"signals"`
	FilesTouchedAll []string  `json:"files_touched_all"`
	Status          Status    `json:"status"`
}

// UnknownSessionID is the sentinel hooks pass when the host assistant did not
// provide a session identifier. GetOrCreate resolves it to any still-active
// session, or synthesizes a fresh one.
const UnknownSessionID = "unknown"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns an id like "sess-1724500000000-x9k2" for the given prefix.
func NewID(prefix string) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = base36[rand.Intn(len(base36))]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, strconv.FormatInt(time.Now().UnixMilli(), 10), suffix)
}

// NewAccumulator creates an empty active accumulator for a session.
func NewAccumulator(sessionID, projectPath string) *Accumulator {
	now := time.Now().UTC()
	return &Accumulator{
		SessionID:       sessionID,
		ProjectPath:     projectPath,
		StartedAt:       now,
		LastActivity:    now,
		Signals:         []Signal{},
		FilesTouchedAll: []string{},
		Status:          StatusActive,
	}
}

// Append records a signal: pushes it, bumps last-activity and turn count, and
// extends the deduplicated file set.
func (a *Accumulator) Append(sig Signal) {
	a.Signals = append(a.Signals, sig)
	a.LastActivity = time.Now().UTC()
	if sig.TurnNumber > a.TurnCount {
		a.TurnCount = sig.TurnNumber
	}
	a.FilesTouchedAll = mergeFiles(a.FilesTouchedAll, sig.Files)
}

// mergeFiles extends existing with add, preserving first-insertion order and
// dropping duplicates.
func mergeFiles(existing, add []string) []string {
	if len(add) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[f] = true
	}
	for _, f := range add {
		if !seen[f] {
			existing = append(existing, f)
			seen[f] = true
		}
	}
	return existing
}
