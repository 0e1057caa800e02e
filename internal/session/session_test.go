package session

import (
	"strings"
	"testing"
	"time"
)

func TestNewAccumulator(t *testing.T) {
	acc := NewAccumulator("sess-1", "/tmp/proj")
	if acc.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", acc.SessionID, "sess-1")
	}
	if acc.Status != StatusActive {
		t.Errorf("Status = %q, want %q", acc.Status, StatusActive)
	}
	if acc.StartedAt.IsZero() {
		t.Error("StartedAt not set")
	}
	if len(acc.Signals) != 0 {
		t.Errorf("new accumulator has %d signals, want 0", len(acc.Signals))
	}
}

func TestAppendMergesFilesInOrder(t *testing.T) {
	acc := NewAccumulator("sess-1", "/tmp/proj")

	acc.Append(Signal{Type: SignalFileTouched, Files: []string{"a.go", "b.go"}})
	acc.Append(Signal{Type: SignalFileTouched, Files: []string{"b.go", "c.go", "a.go"}})
	acc.Append(Signal{Type: SignalFileTouched, Files: []string{"c.go", "d.go"}})

	got := strings.Join(acc.FilesTouchedAll, ",")
	want := "a.go,b.go,c.go,d.go"
	if got != want {
		t.Errorf("FilesTouchedAll = %q, want %q", got, want)
	}
}

func TestAppendUpdatesActivityAndTurnCount(t *testing.T) {
	acc := NewAccumulator("sess-1", "/tmp/proj")
	before := acc.LastActivity

	time.Sleep(2 * time.Millisecond)
	acc.Append(Signal{Type: SignalTurnContext, TurnNumber: 7, Content: "did a thing"})

	if !acc.LastActivity.After(before) {
		t.Error("LastActivity not advanced by Append")
	}
	if acc.TurnCount != 7 {
		t.Errorf("TurnCount = %d, want 7", acc.TurnCount)
	}

	// A lower turn number must not move the count backwards.
	acc.Append(Signal{Type: SignalTurnContext, TurnNumber: 3})
	if acc.TurnCount != 7 {
		t.Errorf("TurnCount after lower turn = %d, want 7", acc.TurnCount)
	}
	if len(acc.Signals) != 2 {
		t.Errorf("Signals len = %d, want 2", len(acc.Signals))
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID("sess")
	if !strings.HasPrefix(id, "sess-") {
		t.Errorf("id %q missing prefix", id)
	}
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("id %q has %d parts, want 3", id, len(parts))
	}
	if len(parts[2]) != 4 {
		t.Errorf("random suffix %q has length %d, want 4", parts[2], len(parts[2]))
	}
}
