package catchup

import (
	"fmt"
	"testing"
	"time"
)

func TestShouldRecompute(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	debounce := 30 * time.Second
	maxStale := 5 * time.Minute

	at := func(age time.Duration) *State {
		since := now.Add(-age)
		return &State{Dirty: true, DirtySince: &since}
	}

	tests := []struct {
		name string
		st   *State
		want bool
	}{
		{"nil state", nil, false},
		{"clean state", &State{}, false},
		{"dirty without stamp", &State{Dirty: true}, true},
		{"just dirtied", at(0), false},
		{"one ms before debounce", at(debounce - time.Millisecond), false},
		{"exactly debounce", at(debounce), true},
		{"past debounce", at(time.Minute), true},
		{"past max stale", at(maxStale + time.Millisecond), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldRecompute(tt.st, now, debounce, maxStale)
			if got != tt.want {
				t.Errorf("ShouldRecompute = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkDirtyPreservesFirstStamp(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.MarkDirty(); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}
	first, err := store.ReadState()
	if err != nil || first == nil || first.DirtySince == nil {
		t.Fatalf("state after first MarkDirty: %+v, %v", first, err)
	}

	time.Sleep(2 * time.Millisecond)
	if err := store.MarkDirty(); err != nil {
		t.Fatalf("second MarkDirty: %v", err)
	}
	second, err := store.ReadState()
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if !second.DirtySince.Equal(*first.DirtySince) {
		t.Errorf("DirtySince moved from %v to %v", first.DirtySince, second.DirtySince)
	}
}

func TestClearDirty(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.MarkDirty(); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}
	if err := store.ClearDirty(); err != nil {
		t.Fatalf("ClearDirty: %v", err)
	}
	st, err := store.ReadState()
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if st.Dirty || st.DirtySince != nil {
		t.Errorf("state after clear: %+v", st)
	}
}

func TestSaveSummaryPrependsAndPrunes(t *testing.T) {
	store := NewStore(t.TempDir())

	for i := 1; i <= 4; i++ {
		err := store.SaveSummary(RecentSessionSummary{
			SessionID:      fmt.Sprintf("sess-%d", i),
			ConsolidatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("SaveSummary #%d: %v", i, err)
		}
	}

	list, err := store.ReadSummaries()
	if err != nil {
		t.Fatalf("ReadSummaries: %v", err)
	}
	if len(list) != 4 || list[0].SessionID != "sess-4" {
		t.Fatalf("summaries not newest-first: %+v", list)
	}

	if err := store.PruneToLimit(2); err != nil {
		t.Fatalf("PruneToLimit: %v", err)
	}
	list, err = store.ReadSummaries()
	if err != nil {
		t.Fatalf("ReadSummaries: %v", err)
	}
	if len(list) != 2 || list[0].SessionID != "sess-4" || list[1].SessionID != "sess-3" {
		t.Errorf("pruned list = %+v", list)
	}
}

func TestReadPrecomputedMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	sum, err := store.ReadPrecomputed()
	if err != nil {
		t.Fatalf("ReadPrecomputed: %v", err)
	}
	if sum != nil {
		t.Errorf("sum = %+v, want nil for a fresh project", sum)
	}
}

func TestWriteReadPrecomputed(t *testing.T) {
	store := NewStore(t.TempDir())
	in := &PrecomputedSummary{
		SourceHash:  "abc123",
		Summary:     "Two sessions touched the config layer.",
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Status:      StatusFresh,
	}
	if err := store.WritePrecomputed(in); err != nil {
		t.Fatalf("WritePrecomputed: %v", err)
	}
	out, err := store.ReadPrecomputed()
	if err != nil {
		t.Fatalf("ReadPrecomputed: %v", err)
	}
	if out.SourceHash != in.SourceHash || out.Summary != in.Summary || out.Status != StatusFresh {
		t.Errorf("round trip: %+v", out)
	}
}
