package consolidate

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/untoldecay/devlog/internal/catchup"
	"github.com/untoldecay/devlog/internal/knowledge"
	"github.com/untoldecay/devlog/internal/session"
)

// contentPreviewLen limits how much of each known section the prompt quotes.
const contentPreviewLen = 150

type promptSection struct {
	ID           string
	Title        string
	Preview      string
	Confidence   string
	Observations int
}

type promptCategory struct {
	Name     string
	Sections []promptSection
}

type consolidationData struct {
	Categories   []promptCategory
	SessionID    string
	ProjectPath  string
	TurnCount    int64
	FilesTouched string
	Signals      []string
}

var consolidationTmpl = template.Must(template.New("consolidation").Parse(consolidationPromptTemplate))

// BuildConsolidationPrompt renders the fixed consolidation template: existing
// knowledge summary, session metadata, and the formatted signal list.
func BuildConsolidationPrompt(known map[knowledge.Category][]knowledge.Section, acc *session.Accumulator) (string, error) {
	data := consolidationData{
		SessionID:    acc.SessionID,
		ProjectPath:  acc.ProjectPath,
		TurnCount:    acc.TurnCount,
		FilesTouched: strings.Join(acc.FilesTouchedAll, ", "),
	}

	for _, cat := range knowledge.Categories() {
		pc := promptCategory{Name: string(cat)}
		for _, sec := range known[cat] {
			preview := sec.Content
			if len(preview) > contentPreviewLen {
				preview = preview[:contentPreviewLen]
			}
			pc.Sections = append(pc.Sections, promptSection{
				ID:           sec.ID,
				Title:        sec.Title,
				Preview:      preview,
				Confidence:   string(sec.Confidence),
				Observations: sec.Observations,
			})
		}
		data.Categories = append(data.Categories, pc)
	}

	for _, sig := range acc.Signals {
		data.Signals = append(data.Signals, formatSignal(sig))
	}

	var b strings.Builder
	if err := consolidationTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render consolidation prompt: %w", err)
	}
	return b.String(), nil
}

func formatSignal(sig session.Signal) string {
	content := sig.Content
	if len(content) > 2000 {
		content = content[:2000] + "…"
	}
	return fmt.Sprintf("[%s %s] %s", sig.Timestamp.Format(time.RFC3339), sig.Type, content)
}

const consolidationPromptTemplate = `You are a knowledge curator for a software project. A coding session has
ended; decide how it should update the project's knowledge base.

Existing knowledge:
{{range .Categories}}
## {{.Name}}
{{- if .Sections}}
{{- range .Sections}}
- [{{.ID}}] {{.Title}} ({{.Confidence}}, {{.Observations}} observations): {{.Preview}}
{{- end}}
{{- else}}
(empty)
{{- end}}
{{end}}
Session {{.SessionID}} in {{.ProjectPath}} ({{.TurnCount}} turns).
Files touched: {{.FilesTouched}}

Signals:
{{range .Signals}}{{.}}
{{end}}
RULES:
1. Output ONLY a single valid JSON object, no prose before or after.
2. "action" MUST be one of: "skip", "create_section", "extend_section",
   "add_example", "confirm_pattern", "flag_contradiction".
3. "category" MUST be one of: "conventions", "architecture", "decisions",
   "gotchas".
4. Use "create_section" only for knowledge not already present; prefer
   "confirm_pattern" or "extend_section" when an existing section covers it.
5. When unsure, use "skip".

Required output format:
{
  "action": "create_section",
  "category": "decisions",
  "section_id": "deci-12345678",
  "new_section": {"title": "...", "content": "...", "tags": ["..."], "examples": ["..."]},
  "extension": {"additional_content": "...", "new_examples": ["..."]},
  "reasoning": "one sentence"
}`

type catchUpData struct {
	ProjectPath string
	Recent      []string
	Active      []string
}

var catchUpTmpl = template.Must(template.New("catchup").Parse(catchUpPromptTemplate))

// BuildCatchUpPrompt renders the catch-up summarization prompt from recent
// consolidated sessions and the still-active session buffers.
func BuildCatchUpPrompt(projectPath string, recent []catchup.RecentSessionSummary, active []*session.Accumulator) (string, error) {
	data := catchUpData{ProjectPath: projectPath}

	for _, r := range recent {
		line := fmt.Sprintf("%s (consolidated %s)", r.SessionID, r.ConsolidatedAt.Format(time.RFC3339))
		if r.Goal != "" {
			line += ": " + r.Goal
		}
		if len(r.FilesTouched) > 0 {
			line += " [files: " + strings.Join(r.FilesTouched, ", ") + "]"
		}
		data.Recent = append(data.Recent, line)
	}
	for _, acc := range active {
		data.Active = append(data.Active, fmt.Sprintf("%s: %d signals, last active %s, files: %s",
			acc.SessionID, len(acc.Signals), acc.LastActivity.Format(time.RFC3339),
			strings.Join(acc.FilesTouchedAll, ", ")))
	}

	var b strings.Builder
	if err := catchUpTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render catch-up prompt: %w", err)
	}
	return b.String(), nil
}

const catchUpPromptTemplate = `You are summarizing recent work on the project at {{.ProjectPath}} for a
developer who has been away. Write 3-6 sentences of plain prose covering what
was worked on, what changed, and anything left in flight. No headings, no
bullet lists, no JSON.

Recently consolidated sessions (newest first):
{{- if .Recent}}
{{range .Recent}}- {{.}}
{{end}}
{{- else}}
(none)
{{- end}}
Sessions still in progress:
{{- if .Active}}
{{range .Active}}- {{.}}
{{end}}
{{- else}}
(none)
{{- end}}`
