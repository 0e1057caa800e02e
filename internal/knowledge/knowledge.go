// Package knowledge persists the durable project knowledge base: one
// markdown file per category under <project>/.memory/knowledge/, each with a
// YAML front-matter header and one "## [id] Title" block per section.
//
// The markdown format round-trips: parsing a file and re-serializing it
// yields the same sections. This keeps the store compatible with files
// hand-edited by the developer.
package knowledge

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Category is the closed set of knowledge files.
type Category string

const (
	CategoryConventions  Category = "conventions"
	CategoryArchitecture Category = "architecture"
	CategoryDecisions    Category = "decisions"
	CategoryGotchas      Category = "gotchas"
)

// Categories lists all categories in their on-disk order.
func Categories() []Category {
	return []Category{CategoryConventions, CategoryArchitecture, CategoryDecisions, CategoryGotchas}
}

// ValidCategory reports whether s names a known category.
func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryConventions, CategoryArchitecture, CategoryDecisions, CategoryGotchas:
		return true
	}
	return false
}

// Confidence is the section confidence level. Tentative, developing, and
// established form an ordered ladder; canonical is a terminal state that is
// never decayed or downgraded.
type Confidence string

const (
	ConfidenceTentative   Confidence = "tentative"
	ConfidenceDeveloping  Confidence = "developing"
	ConfidenceEstablished Confidence = "established"
	ConfidenceCanonical   Confidence = "canonical"
)

// rank orders the ladder confidences; canonical sits outside the ladder.
func rank(c Confidence) int {
	switch c {
	case ConfidenceTentative:
		return 0
	case ConfidenceDeveloping:
		return 1
	case ConfidenceEstablished:
		return 2
	case ConfidenceCanonical:
		return 3
	}
	return -1
}

// Section is one unit of project knowledge.
type Section struct {
	ID               string
	Title            string
	Content          string
	Confidence       Confidence
	FirstObserved    string // date, 2006-01-02
	LastUpdated      time.Time
	Observations     int
	Tags             []string
	Examples         []string
	RelatedFiles     []string
	LastReferenced   *time.Time
	LastConfirmed    *time.Time
	FlaggedForReview *time.Time
}

// categoryPrefix maps a category to its 4-char section id prefix.
func categoryPrefix(cat Category) string {
	s := string(cat)
	if len(s) > 4 {
		s = s[:4]
	}
	return s
}

// NewSectionID generates an id like "deci-9f3a01bc".
func NewSectionID(cat Category) string {
	return fmt.Sprintf("%s-%08x", categoryPrefix(cat), rand.Uint32())
}

// CategoryForID resolves a section id back to its category via the 4-char
// prefix.
func CategoryForID(id string) (Category, bool) {
	for _, cat := range Categories() {
		if strings.HasPrefix(id, categoryPrefix(cat)+"-") {
			return cat, true
		}
	}
	return "", false
}

// confirmThresholds for the confidence upgrade rule in ConfirmSection.
const (
	establishedObservations = 10
	developingObservations  = 5
)
