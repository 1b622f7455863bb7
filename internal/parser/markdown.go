package parser

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docsum/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	b := doctree.NewBuilder(titleFromFilename(filename))

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			b.Heading(h.Level, blockText(h, src))
			continue
		}
		b.Text(blockText(n, src))
	}
	return b.Tree(), nil
}

// blockText returns the source text of a block. Leaf blocks keep their raw
// lines so inline markup survives; lists are re-bulleted.
func blockText(n ast.Node, src []byte) string {
	if n.Kind() == ast.KindList {
		list := n.(*ast.List)
		var items []string
		i := list.Start
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			marker := "- "
			if list.IsOrdered() {
				marker = strconv.Itoa(i) + ". "
				i++
			}
			items = append(items, marker+blockText(c, src))
		}
		return strings.Join(items, "\n")
	}

	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}

	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
