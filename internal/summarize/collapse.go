package summarize

import (
	"regexp"
	"strings"
)

// BreadcrumbSep joins heading titles in a section label.
const BreadcrumbSep = " > "

// ignoreKey is the single group used at LevelIgnore.
const ignoreKey = "document"

var sectionNumber = regexp.MustCompile(`^\s*(\d+)(?:\.\d+)*\.?(?:\s|$)`)

// SubsectionKey groups chunks that carry the same section label.
func SubsectionKey(label string) string {
	return strings.TrimSpace(label)
}

// SectionKey groups chunks under their top-level section: the first
// breadcrumb component, or its leading integer when it is numbered, so
// "2.3 Payment" belongs to section "2".
func SectionKey(label string) string {
	parts := splitLabel(label)
	if len(parts) == 0 {
		return ""
	}
	if m := sectionNumber.FindStringSubmatch(parts[0]); m != nil {
		return m[1]
	}
	return parts[0]
}

func splitLabel(label string) []string {
	raw := strings.Split(label, strings.TrimSpace(BreadcrumbSep))
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// GroupKey returns the grouping key of label at level.
func GroupKey(label string, level CollapseLevel) string {
	switch level {
	case LevelSubsection:
		return SubsectionKey(label)
	case LevelSection:
		return SectionKey(label)
	case LevelIgnore:
		return ignoreKey
	}
	return label
}

// Collapse advances level by one and regroups chunks by the key of the new
// level. Groups keep the order in which their first member appears. Each
// group becomes a chunk whose fragments are the members' summaries, ready to
// be reduced again. Input at LevelIgnore is returned unchanged.
func Collapse(chunks []Chunk, level CollapseLevel) ([]Chunk, CollapseLevel) {
	if level >= LevelIgnore {
		return chunks, LevelIgnore
	}
	next := level.Next()

	var order []string
	groups := make(map[string][]Chunk)
	for _, c := range chunks {
		key := GroupKey(c.SectionID, next)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	out := make([]Chunk, 0, len(order))
	for _, key := range order {
		members := groups[key]
		subs := make([]SubChunk, 0, len(members))
		texts := make([]string, 0, len(members))
		for _, m := range members {
			prior := m.Text
			if m.Summary != nil {
				prior = *m.Summary
			}
			subs = append(subs, SubChunk{Text: prior})
			texts = append(texts, prior)
		}
		out = append(out, Chunk{
			Text:      strings.Join(texts, "\n\n"),
			SubChunks: subs,
			SectionID: key,
		})
	}
	return out, next
}
