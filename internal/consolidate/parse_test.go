package consolidate

import (
	"testing"

	"github.com/untoldecay/devlog/internal/knowledge"
)

func TestParseDecisionPlainJSON(t *testing.T) {
	d, err := ParseDecision(`{"action": "confirm_pattern", "category": "conventions", "section_id": "conv-12345678"}`)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionConfirmPattern || d.SectionID != "conv-12345678" {
		t.Errorf("decision = %+v", d)
	}
}

func TestParseDecisionWithThinkBlockAndFence(t *testing.T) {
	response := "<think>\nLet me reason about {braces} here.\n</think>\n" +
		"Here is my decision:\n```json\n" +
		`{"action": "create_section", "category": "gotchas", "new_section": {"title": "T", "content": "C"}}` +
		"\n```\n"
	d, err := ParseDecision(response)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionCreateSection || d.NewSection == nil || d.NewSection.Title != "T" {
		t.Errorf("decision = %+v", d)
	}
}

func TestParseDecisionBracesInsideStrings(t *testing.T) {
	d, err := ParseDecision(`{"action": "skip", "reasoning": "code was just `+"`if x { y }`"+` noise"}`)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionSkip {
		t.Errorf("Action = %q", d.Action)
	}
}

func TestParseDecisionUnknownActionBecomesSkip(t *testing.T) {
	d, err := ParseDecision(`{"action": "hallucinate_wildly", "category": "decisions"}`)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionSkip {
		t.Errorf("Action = %q, want skip", d.Action)
	}
}

func TestParseDecisionInvalidCategoryBecomesSkip(t *testing.T) {
	d, err := ParseDecision(`{"action": "create_section", "category": "wisdom", "new_section": {"title": "T", "content": "C"}}`)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionSkip || d.Category != "" {
		t.Errorf("decision = %+v, want skip with cleared category", d)
	}
}

func TestParseDecisionActionCaseFolded(t *testing.T) {
	d, err := ParseDecision(`{"action": " Confirm_Pattern ", "category": "decisions", "section_id": "deci-00000001"}`)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionConfirmPattern {
		t.Errorf("Action = %q", d.Action)
	}
}

func TestParseDecisionNoJSON(t *testing.T) {
	if _, err := ParseDecision("I could not decide, sorry."); err == nil {
		t.Error("prose-only response accepted")
	}
	if _, err := ParseDecision(`{"action": "skip"`); err == nil {
		t.Error("unbalanced JSON accepted")
	}
}
