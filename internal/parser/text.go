package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docsum/internal/doctree"
)

// TextParser handles plain text files. Numbered lines such as "2.1 Scope"
// open sections; everything else is grouped into paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b := doctree.NewBuilder(titleFromFilename(filename))
	var current strings.Builder
	for scanner.Scan() {
		addLine(b, &current, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	b.Text(current.String())
	return b.Tree(), nil
}

// addLine feeds one line of unstructured text into b. Blank lines end a
// paragraph.
func addLine(b *doctree.Builder, current *strings.Builder, line string) {
	if strings.TrimSpace(line) == "" {
		b.Text(current.String())
		current.Reset()
		return
	}
	if level, title, ok := doctree.NumberedHeading(line); ok {
		b.Text(current.String())
		current.Reset()
		b.Heading(level, title)
		return
	}
	if current.Len() > 0 {
		current.WriteString("\n")
	}
	current.WriteString(line)
}
