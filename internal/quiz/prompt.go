package quiz

import (
	"fmt"
	"strings"
)

// PDFPrompt returns the instructions for a document quiz. The retrieved
// context is appended after the final line.
func PDFPrompt(req Request) string {
	parts := []string{
		"You are a quiz generation bot. Generate a properly formatted JSON array of quiz questions.",
		"",
	}
	parts = append(parts, constraints(req)...)
	parts = append(parts, "")
	parts = append(parts, format(req, false)...)
	parts = append(parts,
		"",
		"Do not include any other text, explanation, or formatting outside the JSON array.",
		"Create the question based on provided context:",
		"",
	)
	return strings.Join(parts, "\n")
}

// VideoPrompt returns the full prompt for a video quiz over context.
func VideoPrompt(req Request, context string) string {
	parts := []string{
		"You are a quiz generation bot. Generate a properly formatted JSON array of quiz questions.",
		"",
	}
	parts = append(parts, constraints(req)...)
	parts = append(parts, "", "Context:", context, "")
	parts = append(parts, format(req, true)...)
	parts = append(parts,
		"",
		"Do not include any other text, explanation, or formatting outside the JSON array.",
	)
	return strings.Join(parts, "\n")
}

// VideoQuery is the retrieval query used to pick transcript windows.
func VideoQuery(req Request) string {
	return fmt.Sprintf("Generate %d quiz questions about %s at %s difficulty", req.Count, req.Topic, req.Difficulty)
}

func constraints(req Request) []string {
	return []string{
		"Constraints:",
		"- Topic: " + req.Topic,
		fmt.Sprintf("- Number of Questions: %d", req.Count),
		"- Difficulty: " + req.Difficulty,
	}
}

func format(req Request, twoExamples bool) []string {
	lines := []string{
		"IMPORTANT: Your response must be ONLY a JSON array in this exact format with no additional text:",
		"[",
	}
	lines = append(lines, example(1, "Question text here", 0, req.Difficulty)...)
	if twoExamples {
		lines[len(lines)-1] += ","
		lines = append(lines, example(2, "Next question here", 1, req.Difficulty)...)
	}
	return append(lines, "]")
}

func example(id int, text string, correct int, difficulty string) []string {
	return []string{
		"  {",
		fmt.Sprintf(`    "id": %d,`, id),
		fmt.Sprintf(`    "question": %q,`, text),
		`    "options": ["Option A", "Option B", "Option C", "Option D"],`,
		fmt.Sprintf(`    "correct": %d,`, correct),
		fmt.Sprintf(`    "difficulty": %q`, difficulty),
		"  }",
	}
}
