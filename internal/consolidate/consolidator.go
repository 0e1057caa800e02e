// Package consolidate turns a finalized session's signals into a knowledge
// mutation: load context, ask the LLM collaborator for a decision, apply it,
// and leave a recent-session snapshot behind for the catch-up pipeline.
package consolidate

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/untoldecay/devlog/internal/catchup"
	"github.com/untoldecay/devlog/internal/config"
	"github.com/untoldecay/devlog/internal/debug"
	"github.com/untoldecay/devlog/internal/knowledge"
	"github.com/untoldecay/devlog/internal/llm"
	"github.com/untoldecay/devlog/internal/paths"
	"github.com/untoldecay/devlog/internal/session"
)

// Result reports one consolidation: the decision that was applied, whether
// it came from the deterministic fallback, and what it did to the store.
type Result struct {
	Decision     *knowledge.Decision
	Applied      knowledge.ApplyResult
	UsedFallback bool
}

// Consolidator runs consolidations for any project. It is stateless apart
// from its collaborator; callers provide per-project serialization.
type Consolidator struct {
	client      llm.Client
	timeout     time.Duration
	recentLimit int
	logf        func(format string, args ...interface{})
}

// New builds a consolidator around an LLM client.
func New(client llm.Client) *Consolidator {
	timeout := config.GetDuration("consolidation.timeout")
	if timeout <= 0 {
		timeout = config.DefaultConsolidateTimeout
	}
	limit := config.GetInt("catchup.recent-limit")
	if limit <= 0 {
		limit = config.DefaultRecentLimit
	}
	return &Consolidator{
		client:      client,
		timeout:     timeout,
		recentLimit: limit,
		logf:        debug.Logf,
	}
}

// SetLogger redirects progress output (the daemon points this at its log).
func (c *Consolidator) SetLogger(logf func(format string, args ...interface{})) {
	c.logf = logf
}

// Run consolidates one session that is already in consolidating status.
// The session file is removed as soon as the decision is applied, before any
// catch-up bookkeeping, so a bookkeeping failure cannot leave the session
// queued for a second application of the same decision. Call under the
// project lock.
func (c *Consolidator) Run(ctx context.Context, acc *session.Accumulator) (*Result, error) {
	kstore := knowledge.NewStore(acc.ProjectPath)

	known, err := kstore.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading knowledge context: %w", err)
	}

	decision, usedFallback := c.decide(ctx, known, acc)

	applied, err := kstore.ApplyDecision(decision)
	if err != nil {
		return nil, fmt.Errorf("applying decision: %w", err)
	}
	if applied.Action == knowledge.ActionFlagContradiction {
		c.logf("Session %s flagged a contradiction: %s\n", acc.SessionID, decision.Reasoning)
	}

	sstore := session.NewStore(acc.ProjectPath)
	if err := sstore.Archive(acc.SessionID, false); err != nil {
		return nil, err
	}

	cstore := catchup.NewStore(acc.ProjectPath)
	if err := cstore.SaveSummary(buildSnapshot(acc)); err != nil {
		c.logf("Warning: saving snapshot for session %s: %v\n", acc.SessionID, err)
	} else if err := cstore.PruneToLimit(c.recentLimit); err != nil {
		c.logf("Warning: pruning recent summaries: %v\n", err)
	}

	if applied.KnowledgeUpdated {
		if err := kstore.UpdateIndex(); err != nil {
			c.logf("Warning: index regeneration failed: %v\n", err)
		}
	}

	return &Result{Decision: decision, Applied: applied, UsedFallback: usedFallback}, nil
}

// decide asks the collaborator for a decision, holding the extraction marker
// for the duration of the call. Any failure along the way degrades to the
// deterministic fallback; consolidation itself never fails on the LLM.
func (c *Consolidator) decide(ctx context.Context, known map[knowledge.Category][]knowledge.Section, acc *session.Accumulator) (*knowledge.Decision, bool) {
	prompt, err := BuildConsolidationPrompt(known, acc)
	if err != nil {
		c.logf("Warning: prompt build failed, using fallback: %v\n", err)
		return FallbackDecision(acc.Signals), true
	}

	if err := WriteMarker(); err != nil {
		c.logf("Warning: could not write extraction marker: %v\n", err)
	}
	defer RemoveMarker()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if !c.client.Available(callCtx) {
		c.logf("LLM provider %s unreachable for session %s, using fallback\n", c.client.Name(), acc.SessionID)
		return FallbackDecision(acc.Signals), true
	}

	response, err := c.client.Summarize(callCtx, prompt)
	if err != nil {
		c.logf("LLM call failed for session %s, using fallback: %v\n", acc.SessionID, err)
		return FallbackDecision(acc.Signals), true
	}

	decision, err := ParseDecision(response)
	if err != nil {
		c.logf("Unparsable LLM response for session %s, using fallback: %v\n", acc.SessionID, err)
		return FallbackDecision(acc.Signals), true
	}
	return decision, false
}

// buildSnapshot derives the recent-session summary saved for catch-up.
func buildSnapshot(acc *session.Accumulator) catchup.RecentSessionSummary {
	return catchup.RecentSessionSummary{
		SessionID:      acc.SessionID,
		ProjectPath:    acc.ProjectPath,
		StartedAt:      acc.StartedAt,
		ConsolidatedAt: time.Now().UTC(),
		Goal:           deriveGoal(acc.Signals),
		KeySignals:     keySignals(acc.Signals),
		FilesTouched:   acc.FilesTouchedAll,
	}
}

// deriveGoal takes the first user prompt of the session as its goal.
func deriveGoal(signals []session.Signal) string {
	for _, sig := range signals {
		if sig.Type != session.SignalTurnContext {
			continue
		}
		text := strings.TrimPrefix(sig.Content, "User: ")
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return truncate(text, 120)
		}
	}
	return ""
}

// keySignals keeps a filtered preview of up to five signals.
func keySignals(signals []session.Signal) []string {
	var keys []string
	for _, sig := range signals {
		if sig.Type != session.SignalTurnContext {
			continue
		}
		keys = append(keys, truncate(strings.ReplaceAll(sig.Content, "\n", " "), 100))
		if len(keys) == 5 {
			break
		}
	}
	return keys
}

var (
	markerMu    sync.Mutex
	markerHolds int
)

// WriteMarker takes a hold on the extraction marker, creating the file with
// the current pid on the first hold. Concurrent consolidations in one process
// share the marker. Hooks skip ingestion while it exists; see internal/ingest.
func WriteMarker() error {
	markerMu.Lock()
	defer markerMu.Unlock()
	markerHolds++
	if markerHolds > 1 {
		return nil
	}
	return os.WriteFile(paths.ExtractionMarkerFile(), []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

// RemoveMarker releases one hold; the file is deleted when the last hold is
// released. Safe to call without a matching hold.
func RemoveMarker() {
	markerMu.Lock()
	defer markerMu.Unlock()
	if markerHolds > 0 {
		markerHolds--
	}
	if markerHolds == 0 {
		_ = os.Remove(paths.ExtractionMarkerFile())
	}
}
