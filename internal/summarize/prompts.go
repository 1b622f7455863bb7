package summarize

import (
	"fmt"
	"strings"
)

// MapPrompt instructs the model to summarize one fragment.
const MapPrompt = `Summarize the following section of a document. Capture the points a reader must not miss, such as names, locations, quantities, amounts, dates and obligations, when present.
This is a summary, not an explanation: the goal is to shorten the text while keeping the key information.`

// ReducePrompt merges the fragment summaries of one chunk.
const ReducePrompt = `Combine the following summaries of consecutive parts of a document into a single coherent summary. Keep every important point they mention, such as names, locations, quantities, amounts, dates and obligations.
This is a consolidated summary, not an explanation: the goal is to shorten the text while keeping the key information. Do not repeat points that appear in more than one input summary.`

// FinalPrompt writes the document summary from the chunk summaries.
const FinalPrompt = `Write a comprehensive summary of a document from the section summaries below, which appear in document order.
Organize the result with markdown headings that follow the structure of the document. Keep concrete details such as names, amounts, dates, deadlines and requirements. Do not invent information that is not present in the summaries.`

// ExecutivePrompt summarizes a whole document in one call.
const ExecutivePrompt = `Write a concise executive summary of the following document. Focus on the strategic and business aspects that matter most for decision making.

Keep it brief (under one page) and cover, when the document contains them:

- **Main objective**: what the document is for
- **Scope and key requirements**: what is requested or described
- **Budget and financial terms**: amounts, payment terms, guarantees
- **Critical dates**: deadlines and durations
- **Risks and constraints**: restrictions, penalties, special requirements
- **Evaluation criteria**: how outcomes will be judged

Include other aspects if the document calls for them and leave out sections with no information. Keep a professional, direct tone.`

// steering appends the caller's instructions. Every chain of a run receives
// the same text.
func steering(sb *strings.Builder, query string) {
	if strings.TrimSpace(query) == "" {
		return
	}
	sb.WriteString("\n\nADDITIONAL USER INSTRUCTIONS:\n")
	sb.WriteString(query)
}

// BuildMapPrompt renders the prompt for one fragment.
func BuildMapPrompt(text, query string) string {
	var sb strings.Builder
	sb.WriteString(MapPrompt)
	steering(&sb, query)
	sb.WriteString("\n\nInput:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nOutput:\n")
	return sb.String()
}

// BuildReducePrompt renders the prompt merging the summaries of one chunk.
func BuildReducePrompt(summaries []string, query string) string {
	var sb strings.Builder
	sb.WriteString(ReducePrompt)
	steering(&sb, query)
	sb.WriteString("\n\nInput:\n")
	sb.WriteString(FormatSummaries(summaries))
	sb.WriteString("\n\nOutput:\n")
	return sb.String()
}

// BuildFinalPrompt renders the prompt merging all chunk summaries.
func BuildFinalPrompt(summaries []string, query string) string {
	var sb strings.Builder
	sb.WriteString(FinalPrompt)
	steering(&sb, query)
	sb.WriteString("\n\nSection summaries:\n")
	sb.WriteString(FormatSummaries(summaries))
	sb.WriteString("\n\nSummary:\n")
	return sb.String()
}

// BuildExecutivePrompt renders the single-pass prompt over a whole document.
func BuildExecutivePrompt(document, query string) string {
	var sb strings.Builder
	sb.WriteString(ExecutivePrompt)
	steering(&sb, query)
	sb.WriteString("\n\nDocument:\n")
	sb.WriteString(document)
	sb.WriteString("\n\nExecutive summary:\n")
	return sb.String()
}

// FormatSummaries numbers summaries from 1 and separates them with blank
// lines.
func FormatSummaries(summaries []string) string {
	var sb strings.Builder
	for i, s := range summaries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("Summary %d:\n%s", i+1, s))
	}
	return sb.String()
}
