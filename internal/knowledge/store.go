package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/untoldecay/devlog/internal/fsutil"
	"github.com/untoldecay/devlog/internal/paths"
)

// ErrSectionNotFound is returned when an operation names a section id that is
// not present in its category file.
var ErrSectionNotFound = fmt.Errorf("section not found")

// Store reads and writes the knowledge files for one project.
type Store struct {
	projectPath string
}

// NewStore returns a knowledge store rooted at the project path.
func NewStore(projectPath string) *Store {
	return &Store{projectPath: projectPath}
}

func (s *Store) categoryPath(cat Category) string {
	return filepath.Join(paths.KnowledgeDir(s.projectPath), string(cat)+".md")
}

// Load returns all sections of a category. A missing file is an empty
// category, not an error.
func (s *Store) Load(cat Category) ([]Section, error) {
	path := s.categoryPath(cat)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fsutil.ReadErr(path, err)
	}
	sections, err := parseCategory(data)
	if err != nil {
		return nil, fsutil.ParseErr(path, err)
	}
	return sections, nil
}

// save rewrites a category file atomically.
func (s *Store) save(cat Category, sections []Section) error {
	if err := paths.EnsureProjectDirs(s.projectPath); err != nil {
		return fsutil.WriteErr(paths.KnowledgeDir(s.projectPath), err)
	}
	data := serializeCategory(cat, sections, time.Now())
	return fsutil.WriteFileAtomic(s.categoryPath(cat), data, 0644)
}

// AddSection appends a new section to a category. The id, first-observed
// date, last-updated stamp, and observation count are generated here;
// confidence defaults to tentative when unset.
func (s *Store) AddSection(cat Category, partial Section) (*Section, error) {
	sections, err := s.Load(cat)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sec := partial
	sec.ID = NewSectionID(cat)
	sec.FirstObserved = now.Format("2006-01-02")
	sec.LastUpdated = now
	sec.Observations = 1
	if sec.Confidence == "" {
		sec.Confidence = ConfidenceTentative
	}

	sections = append(sections, sec)
	if err := s.save(cat, sections); err != nil {
		return nil, err
	}
	return &sec, nil
}

// SectionUpdate is a partial update; nil fields are left untouched.
type SectionUpdate struct {
	Title            *string
	Content          *string
	Confidence       *Confidence
	Observations     *int
	Tags             []string
	Examples         []string
	RelatedFiles     []string
	LastConfirmed    *time.Time
	LastReferenced   *time.Time
	FlaggedForReview *time.Time
}

// UpdateSection merges fields into a section and always refreshes its
// last-updated stamp.
func (s *Store) UpdateSection(cat Category, id string, update SectionUpdate) (*Section, error) {
	sections, err := s.Load(cat)
	if err != nil {
		return nil, err
	}

	idx := indexOf(sections, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrSectionNotFound, id, cat)
	}

	sec := sections[idx]
	if update.Title != nil {
		sec.Title = *update.Title
	}
	if update.Content != nil {
		sec.Content = *update.Content
	}
	if update.Confidence != nil {
		sec.Confidence = *update.Confidence
	}
	if update.Observations != nil {
		sec.Observations = *update.Observations
	}
	if update.Tags != nil {
		sec.Tags = update.Tags
	}
	if update.Examples != nil {
		sec.Examples = update.Examples
	}
	if update.RelatedFiles != nil {
		sec.RelatedFiles = update.RelatedFiles
	}
	if update.LastConfirmed != nil {
		sec.LastConfirmed = update.LastConfirmed
	}
	if update.LastReferenced != nil {
		sec.LastReferenced = update.LastReferenced
	}
	if update.FlaggedForReview != nil {
		sec.FlaggedForReview = update.FlaggedForReview
	}
	sec.LastUpdated = time.Now().UTC()

	sections[idx] = sec
	if err := s.save(cat, sections); err != nil {
		return nil, err
	}
	return &sec, nil
}

// ConfirmSection increments a section's observation count and refreshes its
// confirmation stamps. Confidence upgrades apply after the increment:
// 10+ observations promote to established; 5+ promote tentative to
// developing. Canonical sections are never altered here.
func (s *Store) ConfirmSection(cat Category, id string) (*Section, error) {
	sections, err := s.Load(cat)
	if err != nil {
		return nil, err
	}

	idx := indexOf(sections, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrSectionNotFound, id, cat)
	}

	sec := sections[idx]
	now := time.Now().UTC()
	sec.Observations++
	sec.LastUpdated = now
	sec.LastConfirmed = &now

	if sec.Confidence != ConfidenceCanonical {
		if sec.Observations >= establishedObservations && rank(sec.Confidence) < rank(ConfidenceEstablished) {
			sec.Confidence = ConfidenceEstablished
		} else if sec.Observations >= developingObservations && rank(sec.Confidence) < rank(ConfidenceDeveloping) {
			sec.Confidence = ConfidenceDeveloping
		}
	}

	sections[idx] = sec
	if err := s.save(cat, sections); err != nil {
		return nil, err
	}
	return &sec, nil
}

// DeleteSection removes a section from its category file. Deletion is a user
// operation; the daemon never calls this.
func (s *Store) DeleteSection(cat Category, id string) error {
	sections, err := s.Load(cat)
	if err != nil {
		return err
	}

	idx := indexOf(sections, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s in %s", ErrSectionNotFound, id, cat)
	}
	sections = append(sections[:idx], sections[idx+1:]...)
	return s.save(cat, sections)
}

// FindSectionByTitle returns the first section with an exact
// (case-insensitive) title match.
func (s *Store) FindSectionByTitle(cat Category, title string) (*Section, error) {
	sections, err := s.Load(cat)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		if strings.EqualFold(sections[i].Title, title) {
			return &sections[i], nil
		}
	}
	return nil, nil
}

// SearchHit pairs a matched section with its category.
type SearchHit struct {
	Category Category
	Section  Section
}

// Search scans title, content, and tags of every section across all
// categories for a case-insensitive substring match.
func (s *Store) Search(query string) ([]SearchHit, error) {
	needle := strings.ToLower(query)
	var hits []SearchHit
	for _, cat := range Categories() {
		sections, err := s.Load(cat)
		if err != nil {
			return nil, err
		}
		for _, sec := range sections {
			if matchesQuery(sec, needle) {
				hits = append(hits, SearchHit{Category: cat, Section: sec})
			}
		}
	}
	return hits, nil
}

func matchesQuery(sec Section, needle string) bool {
	if strings.Contains(strings.ToLower(sec.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(sec.Content), needle) {
		return true
	}
	for _, tag := range sec.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// RecordReference stamps a section's last-referenced time. Fire-and-forget: a
// missing section is not an error.
func (s *Store) RecordReference(cat Category, id string) error {
	sections, err := s.Load(cat)
	if err != nil {
		return err
	}
	idx := indexOf(sections, id)
	if idx < 0 {
		return nil
	}
	now := time.Now().UTC()
	sections[idx].LastReferenced = &now
	sections[idx].LastUpdated = now
	return s.save(cat, sections)
}

// LoadAll returns every category's sections keyed by category. Used by the
// consolidator to build the prompt context.
func (s *Store) LoadAll() (map[Category][]Section, error) {
	all := make(map[Category][]Section, len(Categories()))
	for _, cat := range Categories() {
		sections, err := s.Load(cat)
		if err != nil {
			return nil, err
		}
		all[cat] = sections
	}
	return all, nil
}

func indexOf(sections []Section, id string) int {
	for i := range sections {
		if sections[i].ID == id {
			return i
		}
	}
	return -1
}
