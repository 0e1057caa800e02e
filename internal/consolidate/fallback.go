package consolidate

import (
	"strings"

	"github.com/untoldecay/devlog/internal/knowledge"
	"github.com/untoldecay/devlog/internal/session"
)

// Heuristic keyword sets for the deterministic fallback. Deliberately
// conservative: without LLM judgment no section id can be trusted, so the
// fallback only ever creates a fresh tentative section or skips.
var (
	decisionKeywords = []string{"decided", "decision", "we chose", "chose to", "instead of", "switched to", "settled on", "agreed to"}
	gotchaKeywords   = []string{"gotcha", "workaround", "careful", "watch out", "tricky", "pitfall", "footgun", "caveat"}
)

// FallbackDecision derives a decision from the signals alone, used when the
// LLM is unreachable or returned an unparsable response.
func FallbackDecision(signals []session.Signal) *knowledge.Decision {
	if line, ok := findKeywordLine(signals, decisionKeywords); ok {
		return fallbackCreate(knowledge.CategoryDecisions, line)
	}
	if line, ok := findKeywordLine(signals, gotchaKeywords); ok {
		return fallbackCreate(knowledge.CategoryGotchas, line)
	}
	return &knowledge.Decision{
		Action:    knowledge.ActionSkip,
		Reasoning: "fallback: no conservative signal matched",
	}
}

func fallbackCreate(cat knowledge.Category, line string) *knowledge.Decision {
	return &knowledge.Decision{
		Action:   knowledge.ActionCreateSection,
		Category: string(cat),
		NewSection: &knowledge.DecisionDraft{
			Title:   truncate(line, 60),
			Content: line,
			Tags:    []string{"auto-extracted"},
		},
		Reasoning: "fallback: keyword heuristic (LLM unavailable)",
	}
}

// findKeywordLine scans turn-context signals line by line for the first line
// containing any of the keywords.
func findKeywordLine(signals []session.Signal, keywords []string) (string, bool) {
	for _, sig := range signals {
		if sig.Type != session.SignalTurnContext {
			continue
		}
		for _, line := range strings.Split(sig.Content, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			lower := strings.ToLower(line)
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					return line, true
				}
			}
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
