// Package splitter cuts oversized text into token-bounded pieces without
// overlap. Concatenating the pieces reproduces the input exactly.
//
// Paragraphs (blank-line separated) are tried first. A paragraph that alone
// exceeds the budget is cut at sentence boundaries. A single sentence over
// budget is emitted whole; the sentence is the smallest unit ever produced.
package splitter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docsum/internal/tokenizer"
)

// Split breaks text into ordered pieces of at most budget tokens each.
// Text already within budget is returned as a single piece. Empty text
// yields no pieces.
func Split(text string, budget int, counter tokenizer.Counter) []string {
	if text == "" {
		return nil
	}
	if budget <= 0 || counter.Count(text) <= budget {
		return []string{text}
	}

	var units []string
	for _, para := range paragraphs(text) {
		if counter.Count(para) > budget {
			units = append(units, sentences(para)...)
			continue
		}
		units = append(units, para)
	}
	return pack(units, budget, counter)
}

// pack greedily merges consecutive units while the merged piece stays within
// budget.
func pack(units []string, budget int, counter tokenizer.Counter) []string {
	var out []string
	var current strings.Builder

	for _, u := range units {
		if current.Len() > 0 && counter.Count(current.String()+u) > budget {
			out = append(out, current.String())
			current.Reset()
		}
		current.WriteString(u)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

// paragraphs splits on runs of blank lines. Each separator stays attached to
// the paragraph before it.
func paragraphs(text string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		if text[i] != '\n' {
			i++
			continue
		}
		// Find the extent of this newline run, including interleaved spaces.
		j := i
		newlines := 0
		for j < len(text) && (text[j] == '\n' || text[j] == ' ' || text[j] == '\t' || text[j] == '\r') {
			if text[j] == '\n' {
				newlines++
			}
			j++
		}
		if newlines >= 2 && j < len(text) {
			out = append(out, text[start:j])
			start = j
		}
		i = j
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// sentences splits after terminal punctuation or a line break, keeping the
// trailing whitespace with the sentence it follows.
func sentences(text string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if i >= len(text) {
			break
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if r != '\n' && (!isTerminal(r) || !unicode.IsSpace(next)) {
			continue
		}
		for i < len(text) {
			ws, n := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(ws) {
				break
			}
			i += n
		}
		if i < len(text) {
			out = append(out, text[start:i])
			start = i
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':':
		return true
	}
	return false
}
