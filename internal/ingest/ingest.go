// Package ingest converts one assistant turn into session signals. It is the
// only writer of session buffers on the hook side, and it must never block or
// fail the host assistant: every error is logged and swallowed.
package ingest

import (
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/untoldecay/devlog/internal/catchup"
	"github.com/untoldecay/devlog/internal/debug"
	"github.com/untoldecay/devlog/internal/paths"
	"github.com/untoldecay/devlog/internal/session"
)

// Turn is the per-turn context the hook layer supplies.
type Turn struct {
	SessionID         string   `json:"session_id"`
	ProjectPath       string   `json:"project_path"`
	UserPrompt        string   `json:"user_prompt"`
	AssistantResponse string   `json:"assistant_response"`
	FilesTouched      []string `json:"files_touched"`
}

// minContextChars is the non-whitespace threshold below which a turn side is
// considered noise (bare acknowledgements, empty tool turns).
const minContextChars = 10

// Ingest appends this turn's signals to the session buffer, marks the
// project's catch-up state dirty, and registers the project for daemon
// discovery. Always returns nil-equivalent behavior to the caller: the hook
// command ignores the error and exits 0 regardless.
func Ingest(turn Turn) error {
	// Feedback-loop guard: when the daemon's own consolidation LLM call is in
	// flight it may trigger assistant turns; the marker file suppresses them.
	if markerPresent() {
		debug.Logf("Debug: extraction marker present; skipping turn ingest\n")
		return nil
	}

	signals := ExtractSignals(turn)
	if len(signals) == 0 {
		return nil
	}

	sessionID := turn.SessionID
	if sessionID == "" {
		sessionID = session.UnknownSessionID
	}

	store := session.NewStore(turn.ProjectPath)
	acc, err := store.GetOrCreate(sessionID)
	if err != nil {
		return err
	}
	for _, sig := range signals {
		if acc, err = store.AppendSignal(acc.SessionID, sig); err != nil {
			return err
		}
	}

	if err := catchup.NewStore(turn.ProjectPath).MarkDirty(); err != nil {
		debug.Logf("Debug: mark dirty failed: %v\n", err)
	}
	if err := paths.RegisterProject(turn.ProjectPath); err != nil {
		debug.Logf("Debug: project registration failed: %v\n", err)
	}
	return nil
}

// ExtractSignals applies the extraction rule: one file_touched signal
// carrying the deduplicated file list when any files changed, and one
// turn_context signal when either side of the exchange has substance.
func ExtractSignals(turn Turn) []session.Signal {
	now := time.Now().UTC()
	turnNumber := now.UnixMilli()
	var signals []session.Signal

	if files := dedupe(turn.FilesTouched); len(files) > 0 {
		signals = append(signals, session.Signal{
			ID:         session.NewID("sig"),
			Timestamp:  now,
			TurnNumber: turnNumber,
			Type:       session.SignalFileTouched,
			Content:    strings.Join(files, "\n"),
			Files:      files,
		})
	}

	if countNonWhitespace(turn.UserPrompt) > minContextChars ||
		countNonWhitespace(turn.AssistantResponse) > minContextChars {
		signals = append(signals, session.Signal{
			ID:         session.NewID("sig"),
			Timestamp:  now,
			TurnNumber: turnNumber,
			Type:       session.SignalTurnContext,
			Content:    "User: " + turn.UserPrompt + "\n\nAssistant: " + turn.AssistantResponse,
		})
	}

	return signals
}

func markerPresent() bool {
	_, err := os.Stat(paths.ExtractionMarkerFile())
	return err == nil
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func dedupe(files []string) []string {
	if len(files) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(files))
	var out []string
	for _, f := range files {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
