// Package quiz generates multiple-choice quizzes from documents and videos.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/RSinthu/QuizGenerator/internal/validation"
)

// ErrInvalidQuiz is returned when a model reply is not a usable quiz.
var ErrInvalidQuiz = errors.New("invalid quiz")

// MaxQuestions bounds the number of questions per request.
const MaxQuestions = 50

// Difficulty levels.
const (
	Easy   = "easy"
	Medium = "medium"
	Hard   = "hard"
)

// Question is one multiple-choice question. Correct indexes Options.
type Question struct {
	ID         int      `json:"id"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Correct    int      `json:"correct"`
	Difficulty string   `json:"difficulty"`
}

// Quiz is the response body of every quiz endpoint.
type Quiz struct {
	Quiz []Question `json:"quiz"`
}

// Request describes the quiz to generate.
type Request struct {
	Topic      string `json:"specificArea" form:"specificArea" validate:"required"`
	Count      int    `json:"no" form:"no" validate:"min=1,max=50"`
	Difficulty string `json:"difficulty" form:"difficulty" validate:"oneof=easy medium hard"`
}

// Normalize trims the request and lower-cases the difficulty.
func (r *Request) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))
}

// Validate normalizes and checks the request.
func (r *Request) Validate() error {
	r.Normalize()
	return validation.Struct(r)
}

// VideoRequest is a quiz request for a YouTube video.
type VideoRequest struct {
	URL string `json:"url" validate:"required,url"`
	Request
}

// Validate normalizes and checks the request.
func (r *VideoRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.Normalize()
	return validation.Struct(r)
}

// ParseQuestions extracts the JSON array of questions from a model reply.
// Code fences and a leading "json" tag are stripped and anything outside
// the outermost brackets is ignored.
func ParseQuestions(raw string) ([]Question, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.Trim(text, "`")
		text = strings.TrimSpace(text)
		if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = strings.TrimSpace(text[4:])
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: model did not return a JSON array", ErrInvalidQuiz)
	}

	var questions []Question
	if err := json.Unmarshal([]byte(text[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidQuiz)
	}
	for i, q := range questions {
		if err := q.check(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrInvalidQuiz, i+1, err)
		}
	}
	return questions, nil
}

func (q Question) check() error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("empty question text")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%d options", len(q.Options))
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("correct index %d out of range", q.Correct)
	}
	return nil
}

// Review is one wrongly answered question.
type Review struct {
	Question string `json:"question"`
	Given    string `json:"given"`
	Correct  string `json:"correct"`
}

// Result is the score of a played quiz.
type Result struct {
	Correct    int      `json:"correct"`
	Total      int      `json:"total"`
	Percentage int      `json:"percentage"`
	Wrong      []Review `json:"wrong"`
}

// Score grades answers against questions. answers[i] is the chosen option
// of questions[i]; a missing or negative answer counts as wrong.
func Score(questions []Question, answers []int) Result {
	res := Result{Total: len(questions), Wrong: []Review{}}
	for i, q := range questions {
		given := -1
		if i < len(answers) {
			given = answers[i]
		}
		if given == q.Correct {
			res.Correct++
			continue
		}
		r := Review{Question: q.Question, Correct: option(q, q.Correct)}
		if given >= 0 {
			r.Given = option(q, given)
		}
		res.Wrong = append(res.Wrong, r)
	}
	if res.Total > 0 {
		res.Percentage = int(math.Round(float64(res.Correct) * 100 / float64(res.Total)))
	}
	return res
}

func option(q Question, i int) string {
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	return q.Options[i]
}
