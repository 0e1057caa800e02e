package knowledge

import (
	"fmt"
	"strings"
	"time"

	"github.com/untoldecay/devlog/internal/fsutil"
	"github.com/untoldecay/devlog/internal/paths"
)

// UpdateIndex regenerates <memory>/index.md, a table of contents over all
// knowledge categories. Regeneration is idempotent; the daemon calls it
// whenever a consolidation or decay pass changed any section.
func (s *Store) UpdateIndex() error {
	var b strings.Builder
	b.WriteString("# Knowledge Index\n\n")
	b.WriteString("Auto-generated. Do not edit; changes are overwritten.\n\n")
	b.WriteString("Updated: " + time.Now().UTC().Format(time.RFC3339) + "\n\n")

	total := 0
	for _, cat := range Categories() {
		sections, err := s.Load(cat)
		if err != nil {
			return err
		}
		b.WriteString(fmt.Sprintf("## %s (%d)\n\n", titleCase(string(cat)), len(sections)))
		if len(sections) == 0 {
			b.WriteString("_No sections yet._\n\n")
			continue
		}
		for _, sec := range sections {
			flag := ""
			if sec.FlaggedForReview != nil {
				flag = ", flagged for review"
			}
			b.WriteString(fmt.Sprintf("- `[%s]` %s (%s, %d observations%s)\n",
				sec.ID, sec.Title, sec.Confidence, sec.Observations, flag))
		}
		b.WriteString("\n")
		total += len(sections)
	}

	b.WriteString(fmt.Sprintf("Total: %d sections\n", total))
	return fsutil.WriteFileAtomic(paths.IndexFile(s.projectPath), []byte(b.String()), 0644)
}
