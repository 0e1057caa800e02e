package knowledge

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAddSectionDefaults(t *testing.T) {
	store := NewStore(t.TempDir())

	sec, err := store.AddSection(CategoryConventions, Section{
		Title:   "Tabs for indentation",
		Content: "Go files are gofmt-formatted.",
	})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if !strings.HasPrefix(sec.ID, "conv-") || len(sec.ID) != len("conv-")+8 {
		t.Errorf("ID = %q, want conv-<8 hex>", sec.ID)
	}
	if sec.Confidence != ConfidenceTentative {
		t.Errorf("Confidence = %q, want tentative", sec.Confidence)
	}
	if sec.Observations != 1 {
		t.Errorf("Observations = %d, want 1", sec.Observations)
	}
	if sec.FirstObserved != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("FirstObserved = %q", sec.FirstObserved)
	}

	loaded, err := store.Load(CategoryConventions)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != sec.ID {
		t.Errorf("stored section not loadable: %+v", loaded)
	}
}

func TestConfirmSectionUpgrades(t *testing.T) {
	tests := []struct {
		name         string
		confidence   Confidence
		observations int
		want         Confidence
	}{
		{"tentative below threshold", ConfidenceTentative, 3, ConfidenceTentative},
		{"tentative reaches developing", ConfidenceTentative, 4, ConfidenceDeveloping},
		{"developing reaches established", ConfidenceDeveloping, 9, ConfidenceEstablished},
		{"tentative jumps to established", ConfidenceTentative, 9, ConfidenceEstablished},
		{"developing stays put", ConfidenceDeveloping, 5, ConfidenceDeveloping},
		{"canonical untouched", ConfidenceCanonical, 50, ConfidenceCanonical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			sec, err := store.AddSection(CategoryDecisions, Section{Title: "X", Confidence: tt.confidence})
			if err != nil {
				t.Fatalf("AddSection: %v", err)
			}
			obs := tt.observations
			if _, err := store.UpdateSection(CategoryDecisions, sec.ID, SectionUpdate{Observations: &obs}); err != nil {
				t.Fatalf("UpdateSection: %v", err)
			}

			got, err := store.ConfirmSection(CategoryDecisions, sec.ID)
			if err != nil {
				t.Fatalf("ConfirmSection: %v", err)
			}
			if got.Observations != tt.observations+1 {
				t.Errorf("Observations = %d, want %d", got.Observations, tt.observations+1)
			}
			if got.Confidence != tt.want {
				t.Errorf("Confidence = %q, want %q", got.Confidence, tt.want)
			}
			if got.LastConfirmed == nil {
				t.Error("LastConfirmed not stamped")
			}
		})
	}
}

func TestUpdateSectionMergesFields(t *testing.T) {
	store := NewStore(t.TempDir())
	sec, err := store.AddSection(CategoryArchitecture, Section{Title: "Layering", Content: "old"})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	content := "cmd depends on internal, never the reverse"
	got, err := store.UpdateSection(CategoryArchitecture, sec.ID, SectionUpdate{
		Content: &content,
		Tags:    []string{"structure"},
	})
	if err != nil {
		t.Fatalf("UpdateSection: %v", err)
	}
	if got.Content != content {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Title != "Layering" {
		t.Errorf("Title changed to %q", got.Title)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "structure" {
		t.Errorf("Tags = %v", got.Tags)
	}
}

func TestUpdateSectionMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.UpdateSection(CategoryGotchas, "gotc-ffffffff", SectionUpdate{})
	if !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("err = %v, want ErrSectionNotFound", err)
	}
}

func TestDeleteSection(t *testing.T) {
	store := NewStore(t.TempDir())
	sec, err := store.AddSection(CategoryGotchas, Section{Title: "Gone soon"})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	if err := store.DeleteSection(CategoryGotchas, sec.ID); err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	loaded, err := store.Load(CategoryGotchas)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("section still present after delete: %+v", loaded)
	}
	if err := store.DeleteSection(CategoryGotchas, sec.ID); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("second delete err = %v, want ErrSectionNotFound", err)
	}
}

func TestSearchAcrossCategories(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.AddSection(CategoryConventions, Section{Title: "Error wrapping", Content: "use %w"}); err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if _, err := store.AddSection(CategoryGotchas, Section{Title: "Silent failure", Tags: []string{"errors"}}); err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if _, err := store.AddSection(CategoryDecisions, Section{Title: "Unrelated"}); err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	hits, err := store.Search("ERROR")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search returned %d hits, want 2", len(hits))
	}
}

func TestRecordReference(t *testing.T) {
	store := NewStore(t.TempDir())
	sec, err := store.AddSection(CategoryDecisions, Section{Title: "Referenced"})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	if err := store.RecordReference(CategoryDecisions, sec.ID); err != nil {
		t.Fatalf("RecordReference: %v", err)
	}
	loaded, err := store.Load(CategoryDecisions)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded[0].LastReferenced == nil {
		t.Error("LastReferenced not stamped")
	}

	// Missing ids are ignored.
	if err := store.RecordReference(CategoryDecisions, "deci-ffffffff"); err != nil {
		t.Errorf("RecordReference of missing id errored: %v", err)
	}
}

func TestFindSectionByTitle(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.AddSection(CategoryConventions, Section{Title: "Table Driven Tests"}); err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	sec, err := store.FindSectionByTitle(CategoryConventions, "table driven tests")
	if err != nil {
		t.Fatalf("FindSectionByTitle: %v", err)
	}
	if sec == nil {
		t.Fatal("case-insensitive title match not found")
	}
	missing, err := store.FindSectionByTitle(CategoryConventions, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing title: got %+v, %v", missing, err)
	}
}
