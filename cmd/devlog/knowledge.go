package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/untoldecay/devlog/internal/config"
	"github.com/untoldecay/devlog/internal/knowledge"
	"github.com/untoldecay/devlog/internal/paths"
)

var (
	knowledgeProject string
	knowledgeCat     string
	staleSince       string
	deleteYes        bool
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Inspect and curate the project knowledge base",
}

func knowledgeStore() (*knowledge.Store, string, error) {
	project := knowledgeProject
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		project = cwd
	}
	project, err := absPath(project)
	if err != nil {
		return nil, "", err
	}
	if !paths.HasMemory(project) {
		return nil, "", fmt.Errorf("no memory root at %s (run 'devlog init' first)", project)
	}
	return knowledge.NewStore(project), project, nil
}

func selectedCategories() ([]knowledge.Category, error) {
	if knowledgeCat == "" {
		return knowledge.Categories(), nil
	}
	if !knowledge.ValidCategory(knowledgeCat) {
		return nil, fmt.Errorf("unknown category %q (want one of conventions, architecture, decisions, gotchas)", knowledgeCat)
	}
	return []knowledge.Category{knowledge.Category(knowledgeCat)}, nil
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge sections by category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := knowledgeStore()
		if err != nil {
			return err
		}
		cats, err := selectedCategories()
		if err != nil {
			return err
		}

		type listed struct {
			Category string              `json:"category"`
			Sections []knowledge.Section `json:"sections"`
		}
		var all []listed
		for _, cat := range cats {
			sections, err := store.Load(cat)
			if err != nil {
				return err
			}
			all = append(all, listed{Category: string(cat), Sections: sections})
		}

		if jsonOutput {
			outputJSON(all)
			return nil
		}
		total := 0
		for _, l := range all {
			if len(l.Sections) == 0 {
				continue
			}
			fmt.Println(heading(titleWord(l.Category)))
			for _, sec := range l.Sections {
				extra := ""
				if sec.FlaggedForReview != nil {
					extra = " " + warn("[needs review]")
				}
				fmt.Printf("  %s  %s %s%s\n", styledID(sec.ID), sec.Title,
					muted(fmt.Sprintf("(%s, %d obs)", sec.Confidence, sec.Observations)), extra)
				total++
			}
		}
		if total == 0 {
			fmt.Println("No knowledge recorded yet.")
		}
		return nil
	},
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search titles, content, and tags across all categories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := knowledgeStore()
		if err != nil {
			return err
		}
		hits, err := store.Search(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(hits)
			return nil
		}
		if len(hits) == 0 {
			fmt.Printf("No matches for %q.\n", args[0])
			return nil
		}
		for _, hit := range hits {
			fmt.Printf("%s  %s %s\n", styledID(hit.Section.ID), hit.Section.Title,
				muted("("+string(hit.Category)+")"))
		}
		return nil
	},
}

var knowledgeShowCmd = &cobra.Command{
	Use:   "show <section-id>",
	Short: "Show one section in full and record the reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := knowledgeStore()
		if err != nil {
			return err
		}
		cat, sec, err := findSection(store, args[0])
		if err != nil {
			return err
		}

		// Reading counts as a reference; this feeds the decay clock's
		// last-referenced signal without confirming the pattern.
		if err := store.RecordReference(cat, sec.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record reference: %v\n", err)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{"category": cat, "section": sec})
			return nil
		}
		fmt.Print(renderMarkdown(sectionMarkdown(cat, sec)))
		return nil
	},
}

var knowledgeStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List sections eligible for decay or review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := knowledgeStore()
		if err != nil {
			return err
		}

		decayDays := config.GetInt("decay-threshold-days")
		if decayDays <= 0 {
			decayDays = config.DefaultDecayThresholdDays
		}
		reviewDays := config.GetInt("review-threshold-days")
		if reviewDays <= 0 {
			reviewDays = config.DefaultReviewThresholdDays
		}
		if staleSince != "" {
			days, err := parseSinceDays(staleSince)
			if err != nil {
				return err
			}
			decayDays = days
		}

		entries, err := store.FindStale(decayDays, reviewDays)
		if err != nil {
			return err
		}
		var eligible []knowledge.StaleEntry
		for _, e := range entries {
			if e.EligibleForDecay || e.EligibleForReview {
				eligible = append(eligible, e)
			}
		}

		if jsonOutput {
			outputJSON(eligible)
			return nil
		}
		if len(eligible) == 0 {
			fmt.Printf("Nothing older than %d days.\n", decayDays)
			return nil
		}
		for _, e := range eligible {
			state := "decay-eligible"
			if e.EligibleForReview {
				state = "review-eligible"
			}
			fmt.Printf("%s  %s %s\n", styledID(e.Section.ID), e.Section.Title,
				muted(fmt.Sprintf("(%s, %d days, %s)", e.Section.Confidence, e.DaysSinceConfirmed, state)))
		}
		return nil
	},
}

// parseSinceDays turns natural-language input like "2 weeks ago" into an age
// threshold in days.
func parseSinceDays(input string) (int, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	now := time.Now()
	res, err := w.Parse(input, now)
	if err != nil || res == nil {
		return 0, fmt.Errorf("could not parse %q as a time expression", input)
	}
	days := int(now.Sub(res.Time).Hours() / 24)
	if days <= 0 {
		return 0, fmt.Errorf("%q resolves to the future or today; want a past time like \"2 weeks ago\"", input)
	}
	return days, nil
}

var knowledgeDeleteCmd = &cobra.Command{
	Use:   "delete <section-id>",
	Short: "Remove a section from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := knowledgeStore()
		if err != nil {
			return err
		}
		cat, sec, err := findSection(store, args[0])
		if err != nil {
			return err
		}

		if !deleteYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to delete without confirmation; pass --yes")
			}
			var confirmed bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %q (%s)?", sec.Title, sec.ID)).
					Description("This removes the section permanently.").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil || !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := store.DeleteSection(cat, sec.ID); err != nil {
			return err
		}
		if err := store.UpdateIndex(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: index regeneration failed: %v\n", err)
		}
		fmt.Printf("Deleted %s from %s.\n", sec.ID, cat)
		return nil
	},
}

// findSection resolves a section id to its category and section, using the id
// prefix first and falling back to a scan of all categories.
func findSection(store *knowledge.Store, id string) (knowledge.Category, *knowledge.Section, error) {
	scan := knowledge.Categories()
	if cat, ok := knowledge.CategoryForID(id); ok {
		scan = []knowledge.Category{cat}
	}
	for _, cat := range scan {
		sections, err := store.Load(cat)
		if err != nil {
			return "", nil, err
		}
		for i := range sections {
			if sections[i].ID == id {
				return cat, &sections[i], nil
			}
		}
	}
	return "", nil, fmt.Errorf("no section with id %q", id)
}

func sectionMarkdown(cat knowledge.Category, sec *knowledge.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sec.Title)
	fmt.Fprintf(&b, "%s\n\n", sec.Content)
	if len(sec.Examples) > 0 {
		b.WriteString("## Examples\n\n")
		for _, ex := range sec.Examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Category**: %s | **Confidence**: %s | **Observations**: %d\n",
		cat, sec.Confidence, sec.Observations)
	if len(sec.RelatedFiles) > 0 {
		fmt.Fprintf(&b, "**Related files**: %s\n", strings.Join(sec.RelatedFiles, ", "))
	}
	if sec.FlaggedForReview != nil {
		fmt.Fprintf(&b, "**Flagged for review**: %s\n", sec.FlaggedForReview.Local().Format("2006-01-02"))
	}
	return b.String()
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	knowledgeCmd.PersistentFlags().StringVarP(&knowledgeProject, "project", "p", "", "Project path (defaults to the current directory)")
	knowledgeListCmd.Flags().StringVarP(&knowledgeCat, "category", "c", "", "Limit to one category")
	knowledgeStaleCmd.Flags().StringVar(&staleSince, "since", "", "Age threshold as a natural phrase, e.g. \"2 weeks ago\"")
	knowledgeDeleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "Skip the confirmation prompt")

	knowledgeCmd.AddCommand(knowledgeListCmd)
	knowledgeCmd.AddCommand(knowledgeSearchCmd)
	knowledgeCmd.AddCommand(knowledgeShowCmd)
	knowledgeCmd.AddCommand(knowledgeStaleCmd)
	knowledgeCmd.AddCommand(knowledgeDeleteCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
