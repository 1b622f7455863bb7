package doctree

import (
	"regexp"
	"strings"
)

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for untitled text)
	Text     string     // Body text directly under the heading
	Page     int        // Source page of the heading (0 if N/A)
	Children []*DocNode // Subsections
}

// Chunk is a sized text segment with its heading path.
type Chunk struct {
	Text       string   // Chunk text content
	Index      int      // Sequence number within document
	Breadcrumb []string // Heading hierarchy, e.g. ["2 Scope", "2.1 Deliverables"]
	PageStart  int
	PageEnd    int
}

// BreadcrumbSep joins breadcrumb entries into a section label.
const BreadcrumbSep = " > "

// SectionLabel is the chunk's breadcrumb as a single label.
func (c Chunk) SectionLabel() string {
	return strings.Join(c.Breadcrumb, BreadcrumbSep)
}

type stackEntry struct {
	node  *DocNode
	level int
}

// Builder assembles a DocTree from a flat stream of headings and text. A
// heading nests under the closest preceding heading of a lower level.
type Builder struct {
	title   string
	root    *DocNode
	stack   []stackEntry
	pending strings.Builder
	page    int
}

func NewBuilder(title string) *Builder {
	root := &DocNode{Title: title}
	return &Builder{title: title, root: root, stack: []stackEntry{{node: root, level: 0}}}
}

// SetPage records the source page for subsequent headings.
func (b *Builder) SetPage(page int) { b.page = page }

// Heading opens a section at level (1 is outermost).
func (b *Builder) Heading(level int, title string) {
	b.flush()
	if level < 1 {
		level = 1
	}
	n := &DocNode{Title: title, Page: b.page}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, stackEntry{node: n, level: level})
}

// Text adds a block of body text to the open section.
func (b *Builder) Text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if b.pending.Len() > 0 {
		b.pending.WriteString("\n\n")
	}
	b.pending.WriteString(t)
}

func (b *Builder) flush() {
	t := b.pending.String()
	b.pending.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// Tree finishes the document. Text before the first heading becomes an
// untitled leading section.
func (b *Builder) Tree() *DocTree {
	b.flush()
	tree := &DocTree{Title: b.title, Children: b.root.Children}
	if b.root.Text != "" {
		lead := &DocNode{Text: b.root.Text, Page: firstPage(b.root)}
		tree.Children = append([]*DocNode{lead}, tree.Children...)
	}
	return tree
}

func firstPage(n *DocNode) int {
	if len(n.Children) > 0 {
		return n.Children[0].Page
	}
	return n.Page
}

var numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(\S.*)$`)

// NumberedHeading recognizes lines such as "2.1 Deliverables" or
// "3. GENERAL TERMS" in unstructured text. The level is the depth of the
// number. Long lines and lines ending in sentence punctuation are body text.
func NumberedHeading(line string) (level int, title string, ok bool) {
	line = strings.TrimSpace(line)
	if len(line) > 120 || strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") || strings.HasSuffix(line, ";") {
		return 0, "", false
	}
	m := numberedHeading.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	return strings.Count(m[1], ".") + 1, line, true
}

// Markdown renders the tree with one '#' per nesting level.
func Markdown(tree *DocTree) string {
	var sb strings.Builder
	if tree.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(tree.Title)
		sb.WriteString("\n\n")
	}
	for _, n := range tree.Children {
		renderNode(&sb, n, 2)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderNode(sb *strings.Builder, n *DocNode, depth int) {
	if n.Title != "" {
		sb.WriteString(strings.Repeat("#", min(depth, 6)))
		sb.WriteString(" ")
		sb.WriteString(n.Title)
		sb.WriteString("\n\n")
	}
	if n.Text != "" {
		sb.WriteString(n.Text)
		sb.WriteString("\n\n")
	}
	for _, c := range n.Children {
		renderNode(sb, c, depth+1)
	}
}
