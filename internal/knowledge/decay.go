package knowledge

import (
	"sort"
	"time"
)

// StaleEntry is a non-canonical section with its staleness assessment.
type StaleEntry struct {
	Category           Category
	Section            Section
	DaysSinceConfirmed int
	EligibleForDecay   bool
	EligibleForReview  bool
}

// DecayAction reports what ApplyDecay did.
type DecayAction string

const (
	DecayActionDecayed DecayAction = "decayed"
	DecayActionFlagged DecayAction = "flagged_for_review"
	DecayActionSkipped DecayAction = "skipped"
)

// DecayResult describes one decay application.
type DecayResult struct {
	Action    DecayAction
	Category  Category
	SectionID string
}

// FindStale assesses every non-canonical section. Age is measured from the
// last confirmation, falling back to the last update. Entries come back
// sorted oldest first.
func (s *Store) FindStale(decayDays, reviewDays int) ([]StaleEntry, error) {
	now := time.Now().UTC()
	var entries []StaleEntry

	for _, cat := range Categories() {
		sections, err := s.Load(cat)
		if err != nil {
			return nil, err
		}
		for _, sec := range sections {
			if sec.Confidence == ConfidenceCanonical {
				continue
			}
			ref := sec.LastUpdated
			if sec.LastConfirmed != nil {
				ref = *sec.LastConfirmed
			}
			days := int(now.Sub(ref).Hours() / 24)
			entries = append(entries, StaleEntry{
				Category:           cat,
				Section:            sec,
				DaysSinceConfirmed: days,
				EligibleForDecay:   days >= decayDays,
				EligibleForReview:  days >= reviewDays,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DaysSinceConfirmed > entries[j].DaysSinceConfirmed
	})
	return entries, nil
}

// ApplyDecay applies the decay policy to one stale entry:
//
//   - canonical: skipped (safety net; FindStale never emits these)
//   - established or developing, eligible for decay: drop to tentative
//   - tentative, eligible for review: flag for review, preserving the first
//     flag time if already set
//   - otherwise: skipped
func (s *Store) ApplyDecay(entry StaleEntry) (DecayResult, error) {
	result := DecayResult{
		Action:    DecayActionSkipped,
		Category:  entry.Category,
		SectionID: entry.Section.ID,
	}

	sec := entry.Section
	switch {
	case sec.Confidence == ConfidenceCanonical:
		return result, nil

	case (sec.Confidence == ConfidenceEstablished || sec.Confidence == ConfidenceDeveloping) && entry.EligibleForDecay:
		tentative := ConfidenceTentative
		if _, err := s.UpdateSection(entry.Category, sec.ID, SectionUpdate{Confidence: &tentative}); err != nil {
			return result, err
		}
		result.Action = DecayActionDecayed
		return result, nil

	case sec.Confidence == ConfidenceTentative && entry.EligibleForReview:
		if sec.FlaggedForReview == nil {
			now := time.Now().UTC()
			if _, err := s.UpdateSection(entry.Category, sec.ID, SectionUpdate{FlaggedForReview: &now}); err != nil {
				return result, err
			}
		}
		result.Action = DecayActionFlagged
		return result, nil
	}

	return result, nil
}
