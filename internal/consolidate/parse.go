package consolidate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/untoldecay/devlog/internal/knowledge"
)

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ParseDecision extracts the first balanced JSON object from an LLM response
// and coerces it into a valid decision. Reasoning-model preambles
// (<think> blocks, markdown fences, prose) are tolerated. Unknown actions
// degrade to skip; an invalid category on a mutating action also degrades to
// skip rather than guessing.
func ParseDecision(response string) (*knowledge.Decision, error) {
	cleaned := thinkTagRe.ReplaceAllString(response, "")
	objText, ok := firstJSONObject(cleaned)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var d knowledge.Decision
	if err := json.Unmarshal([]byte(objText), &d); err != nil {
		return nil, fmt.Errorf("failed to parse decision json: %w", err)
	}

	d.Action = strings.TrimSpace(strings.ToLower(d.Action))
	switch d.Action {
	case knowledge.ActionSkip, knowledge.ActionCreateSection, knowledge.ActionExtendSection,
		knowledge.ActionAddExample, knowledge.ActionConfirmPattern, knowledge.ActionFlagContradiction:
	default:
		d.Action = knowledge.ActionSkip
	}

	if d.Category != "" && !knowledge.ValidCategory(d.Category) {
		d.Action = knowledge.ActionSkip
		d.Category = ""
	}

	return &d, nil
}

// firstJSONObject scans for the first balanced {...} span, tracking string
// literals and escapes so braces inside values don't break the balance.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
