package consolidate

import (
	"strings"
	"testing"
	"time"

	"github.com/untoldecay/devlog/internal/catchup"
	"github.com/untoldecay/devlog/internal/knowledge"
	"github.com/untoldecay/devlog/internal/session"
)

func TestBuildConsolidationPrompt(t *testing.T) {
	known := map[knowledge.Category][]knowledge.Section{
		knowledge.CategoryDecisions: {{
			ID:           "deci-11111111",
			Title:        "JSON config",
			Content:      strings.Repeat("x", 200),
			Confidence:   knowledge.ConfidenceEstablished,
			Observations: 12,
		}},
	}
	acc := session.NewAccumulator("sess-100-aaaa", "/proj/a")
	acc.Append(session.Signal{
		Type:      session.SignalTurnContext,
		Timestamp: time.Now(),
		Content:   "User: hi\n\nAssistant: we decided on yaml",
	})

	prompt, err := BuildConsolidationPrompt(known, acc)
	if err != nil {
		t.Fatalf("BuildConsolidationPrompt: %v", err)
	}

	for _, want := range []string{
		"[deci-11111111] JSON config (established, 12 observations)",
		"sess-100-aaaa",
		"we decided on yaml",
		`"action"`,
		"Output ONLY a single valid JSON object",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Long section content is previewed, not quoted in full.
	if strings.Contains(prompt, strings.Repeat("x", 200)) {
		t.Error("prompt contains unpreviewed section content")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 150)) {
		t.Error("prompt missing the 150-char preview")
	}

	// Empty categories render as placeholders rather than vanishing.
	if !strings.Contains(prompt, "## conventions") || !strings.Contains(prompt, "(empty)") {
		t.Error("empty categories not rendered")
	}
}

func TestFormatSignalTruncates(t *testing.T) {
	sig := session.Signal{
		Type:      session.SignalTurnContext,
		Timestamp: time.Now(),
		Content:   strings.Repeat("y", 3000),
	}
	got := formatSignal(sig)
	if len(got) > 2200 {
		t.Errorf("formatted signal length = %d, want truncated", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("truncated signal missing ellipsis")
	}
}

func TestBuildCatchUpPrompt(t *testing.T) {
	recent := []catchup.RecentSessionSummary{{
		SessionID:      "sess-1",
		ConsolidatedAt: time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC),
		Goal:           "wire the retry loop",
		FilesTouched:   []string{"llm/anthropic.go"},
	}}
	active := []*session.Accumulator{{
		SessionID:       "sess-2",
		LastActivity:    time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		Signals:         []session.Signal{{Type: session.SignalTurnContext}},
		FilesTouchedAll: []string{"daemon/daemon.go"},
	}}

	prompt, err := BuildCatchUpPrompt("/proj/a", recent, active)
	if err != nil {
		t.Fatalf("BuildCatchUpPrompt: %v", err)
	}
	for _, want := range []string{
		"/proj/a",
		"wire the retry loop",
		"sess-2: 1 signals",
		"3-6 sentences",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildCatchUpPromptEmpty(t *testing.T) {
	prompt, err := BuildCatchUpPrompt("/proj/a", nil, nil)
	if err != nil {
		t.Fatalf("BuildCatchUpPrompt: %v", err)
	}
	if strings.Count(prompt, "(none)") != 2 {
		t.Errorf("empty prompt should mark both lists (none):\n%s", prompt)
	}
}
