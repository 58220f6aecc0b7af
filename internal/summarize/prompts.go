package summarize

import (
	"fmt"
	"strings"

	"github.com/RSinthu/QuizGenerator/internal/documents"
)

// StuffPrompt asks for a structured summary of pages in one call.
func StuffPrompt(pages []documents.Page) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			texts = append(texts, fmt.Sprintf("[Page %d]\n%s", p.Number, p.Text))
		}
	}

	parts := []string{
		"Please provide a comprehensive summary of the following document.",
		"Include insights from both text content and any visual elements.",
		"",
		"Structure your summary with:",
		"1. Main Topic/Overview",
		"2. Key Points",
		"3. Important Details",
		"4. Visual Elements (if any)",
		"5. Conclusion",
		"",
		"Document Content:",
		strings.Join(texts, "\n"),
	}
	return strings.Join(parts, "\n")
}

// CombinePrompt merges section summaries into the final one.
func CombinePrompt(sections []string) string {
	numbered := make([]string, len(sections))
	for i, s := range sections {
		numbered[i] = fmt.Sprintf("Section %d: %s", i+1, s)
	}
	return "Based on these section summaries, create a comprehensive final summary:\n\n" +
		strings.Join(numbered, "\n\n") +
		"\n\nProvide a well-structured final summary that combines all sections."
}

// InitialPrompt summarises the first transcript window.
func InitialPrompt(text string) string {
	return fmt.Sprintf("Write a concise summary of the following:\n\n\n\"%s\"\n\n\nCONCISE SUMMARY:", text)
}

// RefinePrompt folds one more window into an existing summary.
func RefinePrompt(existing, text string) string {
	parts := []string{
		"Your job is to produce a final summary.",
		"We have provided an existing summary up to a certain point: " + existing,
		"We have the opportunity to refine the existing summary (only if needed) with some more context below.",
		"------------",
		text,
		"------------",
		"Given the new context, refine the original summary.",
		"If the context isn't useful, return the original summary.",
	}
	return strings.Join(parts, "\n")
}
