package knowledge

import (
	"fmt"
	"strings"
)

// Decision actions form a closed set. Unknown actions are applied as a
// harmless no-op so a creative LLM response can never corrupt the store.
const (
	ActionSkip              = "skip"
	ActionCreateSection     = "create_section"
	ActionExtendSection     = "extend_section"
	ActionAddExample        = "add_example"
	ActionConfirmPattern    = "confirm_pattern"
	ActionFlagContradiction = "flag_contradiction"
)

// Decision is the consolidation verdict for one session, normally produced
// by the LLM collaborator and occasionally by the deterministic fallback.
type Decision struct {
	Action     string         `json:"action"`
	Category   string         `json:"category,omitempty"`
	SectionID  string         `json:"section_id,omitempty"`
	NewSection *DecisionDraft `json:"new_section,omitempty"`
	Extension  *Extension     `json:"extension,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// DecisionDraft carries the fields for a create_section decision.
type DecisionDraft struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	Examples []string `json:"examples,omitempty"`
}

// Extension carries the payload for extend_section and add_example.
type Extension struct {
	AdditionalContent string   `json:"additional_content,omitempty"`
	NewExamples       []string `json:"new_examples,omitempty"`
}

// DecisionError reports a decision whose preconditions are not met.
type DecisionError struct {
	Action  string
	Missing string
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("decision %q missing %s", e.Action, e.Missing)
}

// ApplyResult reports what a decision did to the store.
type ApplyResult struct {
	Action           string
	Category         Category
	SectionID        string
	KnowledgeUpdated bool
}

// ApplyDecision executes one consolidation decision against the store.
// skip and flag_contradiction never mutate; unknown actions succeed as
// {Action: "unknown"} without touching anything.
func (s *Store) ApplyDecision(d *Decision) (ApplyResult, error) {
	switch d.Action {
	case ActionSkip, ActionFlagContradiction:
		// flag_contradiction is log-only; the caller records the reasoning.
		return ApplyResult{Action: d.Action}, nil

	case ActionCreateSection:
		if d.Category == "" || d.NewSection == nil {
			return ApplyResult{}, &DecisionError{Action: d.Action, Missing: "category or new_section"}
		}
		if !ValidCategory(d.Category) {
			return ApplyResult{}, &DecisionError{Action: d.Action, Missing: "valid category"}
		}
		if strings.TrimSpace(d.NewSection.Title) == "" || strings.TrimSpace(d.NewSection.Content) == "" {
			return ApplyResult{}, &DecisionError{Action: d.Action, Missing: "new_section.title or new_section.content"}
		}
		cat := Category(d.Category)
		sec, err := s.AddSection(cat, Section{
			Title:    d.NewSection.Title,
			Content:  d.NewSection.Content,
			Tags:     d.NewSection.Tags,
			Examples: d.NewSection.Examples,
		})
		if err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: d.Action, Category: cat, SectionID: sec.ID, KnowledgeUpdated: true}, nil

	case ActionExtendSection:
		cat, err := d.requireTarget()
		if err != nil {
			return ApplyResult{}, err
		}
		if d.Extension == nil || strings.TrimSpace(d.Extension.AdditionalContent) == "" {
			return ApplyResult{}, &DecisionError{Action: d.Action, Missing: "extension.additional_content"}
		}
		sections, err := s.Load(cat)
		if err != nil {
			return ApplyResult{}, err
		}
		idx := indexOf(sections, d.SectionID)
		if idx < 0 {
			return ApplyResult{}, fmt.Errorf("%w: %s in %s", ErrSectionNotFound, d.SectionID, cat)
		}
		extended := sections[idx].Content + "\n\n" + d.Extension.AdditionalContent
		if _, err := s.UpdateSection(cat, d.SectionID, SectionUpdate{Content: &extended}); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: d.Action, Category: cat, SectionID: d.SectionID, KnowledgeUpdated: true}, nil

	case ActionAddExample:
		cat, err := d.requireTarget()
		if err != nil {
			return ApplyResult{}, err
		}
		if d.Extension == nil || len(d.Extension.NewExamples) == 0 {
			return ApplyResult{}, &DecisionError{Action: d.Action, Missing: "extension.new_examples"}
		}
		sections, err := s.Load(cat)
		if err != nil {
			return ApplyResult{}, err
		}
		idx := indexOf(sections, d.SectionID)
		if idx < 0 {
			return ApplyResult{}, fmt.Errorf("%w: %s in %s", ErrSectionNotFound, d.SectionID, cat)
		}
		examples := append(append([]string{}, sections[idx].Examples...), d.Extension.NewExamples...)
		if _, err := s.UpdateSection(cat, d.SectionID, SectionUpdate{Examples: examples}); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: d.Action, Category: cat, SectionID: d.SectionID, KnowledgeUpdated: true}, nil

	case ActionConfirmPattern:
		cat, err := d.requireTarget()
		if err != nil {
			return ApplyResult{}, err
		}
		if _, err := s.ConfirmSection(cat, d.SectionID); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: d.Action, Category: cat, SectionID: d.SectionID, KnowledgeUpdated: true}, nil
	}

	return ApplyResult{Action: "unknown"}, nil
}

// requireTarget validates the category + section_id preconditions shared by
// extend, add_example, and confirm decisions.
func (d *Decision) requireTarget() (Category, error) {
	if d.Category == "" || d.SectionID == "" {
		return "", &DecisionError{Action: d.Action, Missing: "category or section_id"}
	}
	if !ValidCategory(d.Category) {
		return "", &DecisionError{Action: d.Action, Missing: "valid category"}
	}
	return Category(d.Category), nil
}
