package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/untoldecay/devlog/internal/paths"
)

func TestPersistAndRead(t *testing.T) {
	project := t.TempDir()
	store := NewStore(project)

	acc := NewAccumulator("sess-100-aaaa", project)
	acc.Append(Signal{Type: SignalTurnContext, TurnNumber: 1, Content: "hello"})
	if err := store.Persist(acc); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, found, err := store.Read("sess-100-aaaa")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !found {
		t.Fatal("session not found after Persist")
	}
	if got.SessionID != acc.SessionID || len(got.Signals) != 1 {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestReadMissingIsNotError(t *testing.T) {
	store := NewStore(t.TempDir())
	_, found, err := store.Read("sess-nope")
	if err != nil {
		t.Fatalf("Read of missing session errored: %v", err)
	}
	if found {
		t.Error("found = true for missing session")
	}
}

func TestGetOrCreateUnknownContinuesActiveSession(t *testing.T) {
	project := t.TempDir()
	store := NewStore(project)

	older := NewAccumulator("sess-100-aaaa", project)
	older.LastActivity = time.Now().Add(-2 * time.Minute)
	newer := NewAccumulator("sess-200-bbbb", project)
	newer.LastActivity = time.Now().Add(-30 * time.Second)
	for _, acc := range []*Accumulator{older, newer} {
		if err := store.Persist(acc); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}

	got, err := store.GetOrCreate(UnknownSessionID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.SessionID != "sess-200-bbbb" {
		t.Errorf("unknown resolved to %q, want the most recently active sess-200-bbbb", got.SessionID)
	}
}

func TestGetOrCreateUnknownWithNoActiveSynthesizes(t *testing.T) {
	project := t.TempDir()
	store := NewStore(project)

	closed := NewAccumulator("sess-100-aaaa", project)
	closed.Status = StatusClosed
	if err := store.Persist(closed); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := store.GetOrCreate(UnknownSessionID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.SessionID == UnknownSessionID || got.SessionID == "sess-100-aaaa" {
		t.Errorf("expected a synthesized id, got %q", got.SessionID)
	}
	if got.Status != StatusActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
}

func TestFindStale(t *testing.T) {
	project := t.TempDir()
	store := NewStore(project)

	stale := NewAccumulator("sess-100-aaaa", project)
	stale.LastActivity = time.Now().Add(-10 * time.Minute)
	fresh := NewAccumulator("sess-200-bbbb", project)
	consolidating := NewAccumulator("sess-300-cccc", project)
	consolidating.LastActivity = time.Now().Add(-10 * time.Minute)
	consolidating.Status = StatusConsolidating
	for _, acc := range []*Accumulator{stale, fresh, consolidating} {
		if err := store.Persist(acc); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}

	got, err := store.FindStale(5 * time.Minute)
	if err != nil {
		t.Fatalf("FindStale: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "sess-100-aaaa" {
		t.Errorf("FindStale returned %d sessions, want exactly the idle active one", len(got))
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	project := t.TempDir()
	store := NewStore(project)

	acc := NewAccumulator("sess-100-aaaa", project)
	if err := store.Persist(acc); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.Finalize("sess-100-aaaa"); err != nil {
			t.Fatalf("Finalize #%d: %v", i+1, err)
		}
	}
	got, _, err := store.Read("sess-100-aaaa")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Status != StatusConsolidating {
		t.Errorf("Status = %q, want consolidating", got.Status)
	}

	// Finalizing a missing session is a no-op.
	if err := store.Finalize("sess-missing"); err != nil {
		t.Errorf("Finalize of missing session errored: %v", err)
	}
}

func TestArchive(t *testing.T) {
	project := t.TempDir()
	store := NewStore(project)

	acc := NewAccumulator("sess-100-aaaa", project)
	if err := store.Persist(acc); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	if err := store.Archive("sess-100-aaaa", true); err != nil {
		t.Fatalf("Archive keep: %v", err)
	}
	got, _, err := store.Read("sess-100-aaaa")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Status != StatusClosed {
		t.Errorf("Status after keep = %q, want closed", got.Status)
	}

	if err := store.Archive("sess-100-aaaa", false); err != nil {
		t.Fatalf("Archive delete: %v", err)
	}
	path := filepath.Join(paths.WorkingDir(project), "session-sess-100-aaaa.json")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file still present after delete")
	}

	// Deleting again is a no-op.
	if err := store.Archive("sess-100-aaaa", false); err != nil {
		t.Errorf("second Archive delete errored: %v", err)
	}
}

func TestListSkipsCorruptFiles(t *testing.T) {
	project := t.TempDir()
	store := NewStore(project)

	good := NewAccumulator("sess-100-aaaa", project)
	if err := store.Persist(good); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	bad := filepath.Join(paths.WorkingDir(project), "session-sess-999-zzzz.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	got, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "sess-100-aaaa" {
		t.Errorf("List returned %d sessions, want only the readable one", len(got))
	}
	if _, err := os.Stat(bad); err != nil {
		t.Error("corrupt file should stay on disk")
	}
}
