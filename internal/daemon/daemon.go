// Package daemon runs the background consolidation loop: discover projects
// registered by hooks, finalize idle sessions, consolidate them into the
// knowledge base, sweep for decayed knowledge, and keep catch-up summaries
// precomputed.
package daemon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/untoldecay/devlog/internal/catchup"
	"github.com/untoldecay/devlog/internal/config"
	"github.com/untoldecay/devlog/internal/consolidate"
	"github.com/untoldecay/devlog/internal/knowledge"
	"github.com/untoldecay/devlog/internal/llm"
	"github.com/untoldecay/devlog/internal/lockfile"
	"github.com/untoldecay/devlog/internal/paths"
	"github.com/untoldecay/devlog/internal/projlock"
	"github.com/untoldecay/devlog/internal/session"
)

// Daemon owns the consolidation loop. All mutable state is touched only from
// the loop goroutine; consolidations fan out per project but report back
// through a channel drained by the loop.
type Daemon struct {
	logger       *log.Logger
	logCloser    *lumberjack.Logger
	lock         *lockfile.DaemonLock
	client       llm.Client
	consolidator *consolidate.Consolidator
	locks        *projlock.Locks

	pollInterval      time.Duration
	sessionTimeout    time.Duration
	stalenessInterval time.Duration
	decayDays         int
	reviewDays        int
	debounce          time.Duration
	maxStale          time.Duration
	summarizeTimeout  time.Duration

	running            bool
	startedAt          time.Time
	sessionsProcessed  int
	lastConsolidation  *time.Time
	lastStalenessCheck *time.Time
	projects           map[string]*ProjectStats

	discoverNow chan struct{}
}

// New builds a daemon from the global config. The LLM client is constructed
// up front; an unreachable backend is not an error here because every
// consolidation degrades to the deterministic fallback.
func New() (*Daemon, error) {
	if err := paths.EnsureGlobalDir(); err != nil {
		return nil, fmt.Errorf("creating global dir: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   paths.DaemonLogFile(),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
	}
	logger := log.New(rotator, "", log.LstdFlags)

	client, err := llm.FromConfig()
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		logger:            logger,
		logCloser:         rotator,
		client:            client,
		consolidator:      consolidate.New(client),
		locks:             projlock.New(),
		pollInterval:      config.PollInterval(),
		sessionTimeout:    config.SessionTimeout(),
		stalenessInterval: durationOr("staleness-check-interval", config.DefaultStalenessInterval),
		decayDays:         intOr("decay-threshold-days", config.DefaultDecayThresholdDays),
		reviewDays:        intOr("review-threshold-days", config.DefaultReviewThresholdDays),
		debounce:          durationOr("catchup.debounce", config.DefaultCatchUpDebounce),
		maxStale:          durationOr("catchup.max-stale", config.DefaultCatchUpMaxStale),
		summarizeTimeout:  durationOr("summarize.timeout", config.DefaultSummarizeTimeout),
		projects:          make(map[string]*ProjectStats),
		discoverNow:       make(chan struct{}, 1),
	}
	d.consolidator.SetLogger(d.logf)
	return d, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := config.GetDuration(key); v > 0 {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := config.GetInt(key); v > 0 {
		return v
	}
	return fallback
}

func (d *Daemon) logf(format string, args ...interface{}) {
	d.logger.Printf(format, args...)
}

// Run acquires the singleton lock and loops until ctx is canceled or a
// SIGINT/SIGTERM arrives. A second daemon instance fails fast with
// lockfile.ErrAlreadyRunning.
func (d *Daemon) Run(ctx context.Context) error {
	lock, err := lockfile.Acquire(paths.DaemonLockFile(), paths.DaemonPIDFile())
	if err != nil {
		return err
	}
	d.lock = lock
	defer func() {
		if err := d.lock.Release(); err != nil {
			d.logf("Warning: releasing daemon lock: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d.running = true
	d.startedAt = time.Now().UTC()
	d.restoreProjects()
	d.logf("Daemon started (pid %d), polling every %s", os.Getpid(), d.pollInterval)

	watcher, err := newRegistryWatcher(func() {
		select {
		case d.discoverNow <- struct{}{}:
		default:
		}
	})
	if err != nil {
		d.logf("Registry watcher unavailable, relying on poll: %v", err)
	} else {
		watcher.start(ctx, d.logf)
		defer watcher.close()
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return nil
		case <-d.discoverNow:
			d.discover()
			d.writeStatus()
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Daemon) shutdown() {
	d.logf("Daemon stopping (processed %d sessions)", d.sessionsProcessed)
	d.running = false
	d.writeStatus()
	_ = d.logCloser.Close()
}

// tick runs one pass of the control loop. Each phase is independent; a
// failure in one is logged and does not stop the others.
func (d *Daemon) tick(ctx context.Context) {
	d.discover()
	d.finalizeStale()
	d.consolidateAll(ctx)
	d.decaySweep()
	d.recomputeCatchUp(ctx)
	d.writeStatus()
}

// discover drains the pending-project registry into the tracked set.
func (d *Daemon) discover() {
	pending, err := paths.ConsumePendingProjects()
	if err != nil {
		d.logf("Warning: reading pending projects: %v", &Error{Kind: ErrQueue, Err: err})
		return
	}
	for _, p := range pending {
		if _, ok := d.projects[p]; ok {
			continue
		}
		if !paths.HasMemory(p) {
			d.logf("Warning: ignoring pending project %s: no memory root", p)
			continue
		}
		d.projects[p] = &ProjectStats{}
		d.logf("Tracking project %s", p)
	}
}

// finalizeStale moves idle active sessions to consolidating.
func (d *Daemon) finalizeStale() {
	for project := range d.projects {
		store := session.NewStore(project)
		stale, err := store.FindStale(d.sessionTimeout)
		if err != nil {
			d.logf("Warning: scanning %s for stale sessions: %v", project, err)
			continue
		}
		for _, acc := range stale {
			if err := store.Finalize(acc.SessionID); err != nil {
				d.logf("Warning: finalizing session %s: %v", acc.SessionID, err)
				continue
			}
			d.logf("Session %s idle for %s, queued for consolidation", acc.SessionID, d.sessionTimeout)
		}
	}
}

type consolidateOutcome struct {
	project string
	results int
	updated int
	err     error
}

// consolidateAll processes every consolidating session. Projects run in
// parallel; sessions within a project run serially under the project lock.
// A failed consolidation leaves the session in consolidating and is retried
// on the next tick.
func (d *Daemon) consolidateAll(ctx context.Context) {
	outcomes := make(chan consolidateOutcome, len(d.projects))
	launched := 0

	for project := range d.projects {
		pending, err := session.NewStore(project).FindToConsolidate()
		if err != nil {
			d.logf("Warning: listing sessions for %s: %v", project, err)
			continue
		}
		if len(pending) == 0 {
			continue
		}

		launched++
		go func(project string, pending []*session.Accumulator) {
			out := consolidateOutcome{project: project}
			out.err = d.locks.With(project, func() error {
				for _, acc := range pending {
					res, err := d.consolidator.Run(ctx, acc)
					if err != nil {
						d.logf("Consolidation of %s failed, will retry: %v", acc.SessionID, &Error{Kind: ErrExtraction, Err: err})
						continue
					}
					out.results++
					if res.Applied.KnowledgeUpdated {
						out.updated++
					}
					if res.UsedFallback {
						d.logf("Session %s consolidated via fallback heuristic (%s)", acc.SessionID, res.Applied.Action)
					} else {
						d.logf("Session %s consolidated: %s", acc.SessionID, res.Applied.Action)
					}
				}
				return nil
			})
			outcomes <- out
		}(project, pending)
	}

	for i := 0; i < launched; i++ {
		out := <-outcomes
		if out.err != nil {
			d.logf("Warning: consolidating %s: %v", out.project, out.err)
		}
		if out.results > 0 {
			d.sessionsProcessed += out.results
			now := time.Now().UTC()
			d.lastConsolidation = &now
			stats := d.projects[out.project]
			stats.EventsProcessed += out.results
			stats.MemoriesExtracted += out.updated
			stats.LastActivity = now
		}
	}
}

// decaySweep runs the staleness pass at most once per staleness interval.
func (d *Daemon) decaySweep() {
	now := time.Now().UTC()
	if d.lastStalenessCheck != nil && now.Sub(*d.lastStalenessCheck) < d.stalenessInterval {
		return
	}
	d.lastStalenessCheck = &now

	for project := range d.projects {
		store := knowledge.NewStore(project)
		entries, err := store.FindStale(d.decayDays, d.reviewDays)
		if err != nil {
			d.logf("Warning: staleness scan for %s: %v", project, &Error{Kind: ErrDecay, Err: err})
			continue
		}
		changed := 0
		for _, entry := range entries {
			res, err := store.ApplyDecay(entry)
			if err != nil {
				d.logf("Warning: decaying %s/%s: %v", entry.Category, entry.Section.ID, err)
				continue
			}
			if res.Action != knowledge.DecayActionSkipped {
				changed++
				d.logf("Knowledge %s: %s (%d days since confirmation)", res.SectionID, res.Action, entry.DaysSinceConfirmed)
			}
		}
		if changed > 0 {
			if err := store.UpdateIndex(); err != nil {
				d.logf("Warning: index regeneration for %s: %v", project, err)
			}
		}
	}
}

// recomputeCatchUp regenerates the precomputed summary for each project whose
// dirty state has cleared the debounce window. On LLM failure the previous
// prose is kept, marked stale, and the dirty flag stays set for a retry.
func (d *Daemon) recomputeCatchUp(ctx context.Context) {
	now := time.Now().UTC()
	for project := range d.projects {
		store := catchup.NewStore(project)
		st, err := store.ReadState()
		if err != nil {
			d.logf("Warning: reading catch-up state for %s: %v", project, err)
			continue
		}
		if !catchup.ShouldRecompute(st, now, d.debounce, d.maxStale) {
			continue
		}
		if err := d.regenerateSummary(ctx, project, store); err != nil {
			d.logf("Catch-up regeneration for %s failed, keeping stale summary: %v", project, err)
		}
	}
}

func (d *Daemon) regenerateSummary(ctx context.Context, project string, store *catchup.Store) error {
	recent, err := store.ReadSummaries()
	if err != nil {
		return err
	}
	active, err := activeSessions(project)
	if err != nil {
		return err
	}

	hash := sourceHash(recent, active)
	if prev, err := store.ReadPrecomputed(); err == nil && prev != nil && prev.SourceHash == hash && prev.Status == catchup.StatusFresh {
		// Inputs unchanged since the last successful run; just clear the flag.
		return store.ClearDirty()
	}

	prompt, err := consolidate.BuildCatchUpPrompt(project, recent, active)
	if err != nil {
		return err
	}

	if !d.client.Available(ctx) {
		err := fmt.Errorf("llm provider %s unreachable", d.client.Name())
		d.markSummaryStale(store, err)
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, d.summarizeTimeout)
	summary, err := d.client.Summarize(callCtx, prompt)
	cancel()
	if err != nil {
		d.markSummaryStale(store, err)
		return err
	}

	if err := store.WritePrecomputed(&catchup.PrecomputedSummary{
		SourceHash:  hash,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
		Status:      catchup.StatusFresh,
	}); err != nil {
		return err
	}
	d.logf("Catch-up summary for %s regenerated", project)
	return store.ClearDirty()
}

// markSummaryStale rewrites the previous summary with stale status and the
// error, preserving the old prose. With no prior summary there is nothing
// worth serving, so nothing is written. The dirty flag is left set so the
// next eligible tick retries.
func (d *Daemon) markSummaryStale(store *catchup.Store, cause error) {
	prev, err := store.ReadPrecomputed()
	if err != nil || prev == nil {
		return
	}
	prev.Status = catchup.StatusStale
	prev.LastError = cause.Error()
	if err := store.WritePrecomputed(prev); err != nil {
		d.logf("Warning: marking summary stale: %v", err)
	}
}

func activeSessions(project string) ([]*session.Accumulator, error) {
	sessions, err := session.NewStore(project).List()
	if err != nil {
		return nil, err
	}
	var active []*session.Accumulator
	for _, acc := range sessions {
		if acc.Status == session.StatusActive {
			active = append(active, acc)
		}
	}
	return active, nil
}

// sourceHash fingerprints the catch-up inputs so an unchanged input set can
// skip the LLM call entirely.
func sourceHash(recent []catchup.RecentSessionSummary, active []*session.Accumulator) string {
	h := sha256.New()
	for _, r := range recent {
		fmt.Fprintf(h, "r:%s:%d\n", r.SessionID, r.ConsolidatedAt.UnixMilli())
	}
	ids := make([]string, 0, len(active))
	byID := make(map[string]*session.Accumulator, len(active))
	for _, acc := range active {
		ids = append(ids, acc.SessionID)
		byID[acc.SessionID] = acc
	}
	sort.Strings(ids)
	for _, id := range ids {
		acc := byID[id]
		fmt.Fprintf(h, "a:%s:%d:%d\n", id, acc.LastActivity.UnixMilli(), len(acc.Signals))
	}
	return hex.EncodeToString(h.Sum(nil))
}
