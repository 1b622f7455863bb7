package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_NestsByLevel(t *testing.T) {
	b := NewBuilder("Tender")
	b.Text("Preamble.")
	b.Heading(1, "1 General")
	b.Text("General terms.")
	b.Heading(2, "1.1 Definitions")
	b.Text("Defs.")
	b.Heading(1, "2 Scope")
	b.Text("Scope one.")
	b.Text("Scope two.")
	tree := b.Tree()

	require.Len(t, tree.Children, 3)
	assert.Equal(t, "", tree.Children[0].Title)
	assert.Equal(t, "Preamble.", tree.Children[0].Text)

	general := tree.Children[1]
	assert.Equal(t, "1 General", general.Title)
	assert.Equal(t, "General terms.", general.Text)
	require.Len(t, general.Children, 1)
	assert.Equal(t, "1.1 Definitions", general.Children[0].Title)

	assert.Equal(t, "Scope one.\n\nScope two.", tree.Children[2].Text)
}

func TestBuilder_RecordsPages(t *testing.T) {
	b := NewBuilder("doc")
	b.SetPage(3)
	b.Heading(1, "A")
	b.SetPage(5)
	b.Heading(1, "B")
	tree := b.Tree()
	assert.Equal(t, 3, tree.Children[0].Page)
	assert.Equal(t, 5, tree.Children[1].Page)
}

func TestNumberedHeading(t *testing.T) {
	cases := []struct {
		line  string
		level int
		ok    bool
	}{
		{"1 GENERAL PROVISIONS", 1, true},
		{"2.1 Deliverables", 2, true},
		{"3.4.1 Penalties", 3, true},
		{"4. Payment", 1, true},
		{"1.5 million dollars will be paid within thirty days.", 0, false},
		{"Introduction", 0, false},
		{"2024", 0, false},
	}
	for _, c := range cases {
		level, _, ok := NumberedHeading(c.line)
		assert.Equal(t, c.ok, ok, c.line)
		assert.Equal(t, c.level, level, c.line)
	}
}

func TestMarkdown_RendersHeadingDepth(t *testing.T) {
	tree := &DocTree{
		Title: "Tender",
		Children: []*DocNode{
			{Text: "Lead."},
			{Title: "1 General", Text: "Body.", Children: []*DocNode{{Title: "1.1 Defs", Text: "Defs."}}},
		},
	}
	want := "# Tender\n\nLead.\n\n## 1 General\n\nBody.\n\n### 1.1 Defs\n\nDefs.\n"
	assert.Equal(t, want, Markdown(tree))
}

func TestChunk_SectionLabel(t *testing.T) {
	assert.Equal(t, "1 General > 1.1 Defs", Chunk{Breadcrumb: []string{"1 General", "1.1 Defs"}}.SectionLabel())
	assert.Equal(t, "", Chunk{}.SectionLabel())
}
