package knowledge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML header summarizing a category file.
type frontMatter struct {
	Category     string `yaml:"category"`
	SectionCount int    `yaml:"sectionCount"`
	LastUpdated  string `yaml:"lastUpdated"`
}

var sectionHeadingRe = regexp.MustCompile(`^## \[([^\]]+)\] (.*)$`)

// serializeCategory renders a category file: front matter, a heading, then
// one block per section separated by horizontal rules. Every stored field is
// rendered as a bolded-key line so parseCategory can round-trip it.
func serializeCategory(cat Category, sections []Section, now time.Time) []byte {
	var b strings.Builder

	fm := frontMatter{
		Category:     string(cat),
		SectionCount: len(sections),
		LastUpdated:  now.UTC().Format(time.RFC3339),
	}
	fmData, _ := yaml.Marshal(&fm)
	b.WriteString("---\n")
	b.Write(fmData)
	b.WriteString("---\n\n")
	b.WriteString("# " + titleCase(string(cat)) + "\n\n")

	for _, sec := range sections {
		b.WriteString(fmt.Sprintf("## [%s] %s\n\n", sec.ID, sec.Title))
		if content := strings.TrimSpace(sec.Content); content != "" {
			b.WriteString(content + "\n\n")
		}
		if len(sec.Examples) > 0 {
			b.WriteString("### Examples\n\n")
			for _, ex := range sec.Examples {
				b.WriteString("- " + ex + "\n")
			}
			b.WriteString("\n")
		}
		b.WriteString("**Confidence**: " + string(sec.Confidence) + "\n")
		b.WriteString("**First observed**: " + sec.FirstObserved + "\n")
		b.WriteString("**Last updated**: " + sec.LastUpdated.UTC().Format(time.RFC3339) + "\n")
		b.WriteString("**Observations**: " + strconv.Itoa(sec.Observations) + "\n")
		if len(sec.RelatedFiles) > 0 {
			quoted := make([]string, len(sec.RelatedFiles))
			for i, f := range sec.RelatedFiles {
				quoted[i] = "`" + f + "`"
			}
			b.WriteString("**Related files**: " + strings.Join(quoted, ", ") + "\n")
		}
		if len(sec.Tags) > 0 {
			b.WriteString("**Tags**: " + strings.Join(sec.Tags, ", ") + "\n")
		}
		if sec.LastReferenced != nil {
			b.WriteString("**Last referenced**: " + sec.LastReferenced.UTC().Format(time.RFC3339) + "\n")
		}
		if sec.LastConfirmed != nil {
			b.WriteString("**Last confirmed**: " + sec.LastConfirmed.UTC().Format(time.RFC3339) + "\n")
		}
		if sec.FlaggedForReview != nil {
			b.WriteString("**Flagged for review**: " + sec.FlaggedForReview.UTC().Format(time.RFC3339) + "\n")
		}
		b.WriteString("\n---\n\n")
	}

	return []byte(b.String())
}

// parseCategory reads a category file back into sections. Unknown lines in a
// section body count as content, including bolded keys the serializer never
// emits, so hand-written prose survives a round-trip.
func parseCategory(data []byte) ([]Section, error) {
	body, err := stripFrontMatter(string(data))
	if err != nil {
		return nil, err
	}

	var sections []Section
	var cur *Section
	var contentLines []string
	inExamples := false

	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.TrimSpace(strings.Join(contentLines, "\n"))
		sections = append(sections, *cur)
		cur = nil
		contentLines = nil
		inExamples = false
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimRight(line, " \t")

		if m := sectionHeadingRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			cur = &Section{ID: m[1], Title: m[2], Confidence: ConfidenceTentative, Observations: 1}
			continue
		}
		if cur == nil {
			continue // preamble (category heading, blank lines)
		}

		switch {
		case trimmed == "---":
			flush()
		case trimmed == "### Examples":
			inExamples = true
		case strings.HasPrefix(trimmed, "**") && strings.Contains(trimmed, "**: "):
			key := trimmed[2:strings.Index(trimmed, "**: ")]
			value := trimmed[strings.Index(trimmed, "**: ")+4:]
			if !applyField(cur, key, value) {
				contentLines = append(contentLines, line)
				continue
			}
			inExamples = false
		case inExamples && strings.HasPrefix(trimmed, "- "):
			cur.Examples = append(cur.Examples, strings.TrimPrefix(trimmed, "- "))
		case inExamples && trimmed == "":
			// blank line inside the examples list
		default:
			contentLines = append(contentLines, line)
		}
	}
	flush()

	return sections, nil
}

// stripFrontMatter returns the markdown body after the YAML header. Files
// without a header are accepted whole.
func stripFrontMatter(text string) (string, error) {
	if !strings.HasPrefix(text, "---\n") {
		return text, nil
	}
	rest := text[4:]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return "", fmt.Errorf("unterminated front matter")
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return "", fmt.Errorf("invalid front matter: %w", err)
	}
	return rest[end+5:], nil
}

// applyField sets a known metadata field and reports whether the key was one
// of ours. Unknown keys belong to the content.
func applyField(sec *Section, key, value string) bool {
	switch key {
	case "Confidence":
		sec.Confidence = Confidence(value)
	case "First observed":
		sec.FirstObserved = value
	case "Last updated":
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			sec.LastUpdated = t
		}
	case "Observations":
		if n, err := strconv.Atoi(value); err == nil {
			sec.Observations = n
		}
	case "Related files":
		for _, f := range strings.Split(value, ", ") {
			f = strings.Trim(f, "`")
			if f != "" {
				sec.RelatedFiles = append(sec.RelatedFiles, f)
			}
		}
	case "Tags":
		for _, tag := range strings.Split(value, ", ") {
			if tag != "" {
				sec.Tags = append(sec.Tags, tag)
			}
		}
	case "Last referenced":
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			sec.LastReferenced = &t
		}
	case "Last confirmed":
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			sec.LastConfirmed = &t
		}
	case "Flagged for review":
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			sec.FlaggedForReview = &t
		}
	default:
		return false
	}
	return true
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
