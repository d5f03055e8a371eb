// Package catalog is the built-in template library shown on the Templates tab.
package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kingrea/strata/internal/domain"
)

// Entry is one template in the library.
type Entry struct {
	ID       string
	Title    string
	Category string
	Summary  string
	Sections []string
}

var entries = []Entry{
	{
		ID: "strategy-one-pager", Title: "Strategy One-Pager", Category: "Strategy",
		Summary:  "Single-page framing of a strategic priority for leadership review.",
		Sections: []string{"Problem statement", "Desired outcome", "Measures of success", "Key risks", "Owner"},
	},
	{
		ID: "strategy-okrs", Title: "Objectives and Key Results", Category: "Strategy",
		Summary:  "Quarterly objectives with three to five measurable key results each.",
		Sections: []string{"Objective", "Key results", "Baseline", "Target", "Confidence"},
	},
	{
		ID: "strategy-swot", Title: "SWOT Analysis", Category: "Strategy",
		Summary:  "Strengths, weaknesses, opportunities and threats for a priority.",
		Sections: []string{"Strengths", "Weaknesses", "Opportunities", "Threats"},
	},
	{
		ID: "project-charter", Title: "Project Charter", Category: "Project",
		Summary:  "Scope, stakeholders and milestones agreed before work starts.",
		Sections: []string{"Purpose", "Scope", "Out of scope", "Stakeholders", "Milestones", "Budget"},
	},
	{
		ID: "project-raci", Title: "RACI Matrix", Category: "Project",
		Summary:  "Who is responsible, accountable, consulted and informed per deliverable.",
		Sections: []string{"Deliverable", "Responsible", "Accountable", "Consulted", "Informed"},
	},
	{
		ID: "project-retro", Title: "Project Retrospective", Category: "Project",
		Summary:  "What went well, what did not, and what to change next time.",
		Sections: []string{"Went well", "Did not go well", "Actions"},
	},
	{
		ID: "comm-status-update", Title: "Status Update Email", Category: "Communication",
		Summary:  "Weekly progress note for stakeholders.",
		Sections: []string{"Highlights", "Progress by workstream", "Risks and issues", "Next week"},
	},
	{
		ID: "comm-kickoff", Title: "Kickoff Announcement", Category: "Communication",
		Summary:  "Announces a new initiative, its goals and how to get involved.",
		Sections: []string{"What is starting", "Why it matters", "Timeline", "Contacts"},
	},
}

// Entries returns every entry in library order.
func Entries() []Entry {
	return append([]Entry(nil), entries...)
}

// ByCategory filters entries by category name, ignoring case. An empty name
// returns everything.
func ByCategory(category string) []Entry {
	category = strings.TrimSpace(category)
	if category == "" {
		return Entries()
	}
	var out []Entry
	for _, e := range entries {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}

// Search ranks entries whose title fuzzy-matches term, best first.
func Search(term string) []Entry {
	term = strings.TrimSpace(term)
	if term == "" {
		return Entries()
	}
	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = e.Title
	}
	ranks := fuzzy.RankFindNormalizedFold(term, titles)
	sort.Sort(ranks)
	out := make([]Entry, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, entries[r.OriginalIndex])
	}
	return out
}

// Categories merges the built-in category names with the organization's
// own, built-ins first, dropping case-insensitive duplicates.
func Categories(custom []domain.TemplateType) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, name)
	}
	for _, name := range domain.DefaultTemplateTypes {
		add(name)
	}
	for _, t := range custom {
		add(t.Name)
	}
	return out
}
