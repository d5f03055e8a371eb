package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/strata/internal/domain"
)

func TestByCategoryIgnoresCase(t *testing.T) {
	projects := ByCategory("project")
	require.NotEmpty(t, projects)
	for _, e := range projects {
		assert.Equal(t, "Project", e.Category)
	}
	assert.Len(t, ByCategory(""), len(Entries()))
	assert.Empty(t, ByCategory("Finance"))
}

func TestSearchRanksTitles(t *testing.T) {
	got := Search("charter")
	require.NotEmpty(t, got)
	assert.Equal(t, "project-charter", got[0].ID)
}

func TestCategoriesMergeBuiltIns(t *testing.T) {
	got := Categories([]domain.TemplateType{{Name: "project"}, {Name: "Finance"}, {Name: " "}})
	assert.Equal(t, []string{"Strategy", "Project", "Communication", "Finance"}, got)
}

func TestEveryEntryHasKnownCategory(t *testing.T) {
	known := map[string]bool{}
	for _, c := range domain.DefaultTemplateTypes {
		known[c] = true
	}
	for _, e := range Entries() {
		assert.True(t, known[e.Category], e.ID)
	}
}
