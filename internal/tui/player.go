// Package tui is an interactive terminal quiz player.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RSinthu/QuizGenerator/internal/quiz"
)

// LoadFunc produces the questions to play.
type LoadFunc func(ctx context.Context) ([]quiz.Question, error)

var errNoQuestions = errors.New("no questions were generated")

type phase int

const (
	phaseLoading phase = iota
	phaseAsking
	phaseAnswered
	phaseFinished
	phaseFailed
)

type questionsMsg struct {
	questions []quiz.Question
	err       error
}

// Player shows one question at a time, reveals the answer after each choice
// and ends with the score and a review of the wrong answers.
type Player struct {
	ctx   context.Context
	title string
	load  LoadFunc

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	questions []quiz.Question
	answers   []int
	current   int
	cursor    int
	phase     phase
	result    quiz.Result
	err       error
	width     int
}

// NewPlayer creates a player that loads its questions on Init.
func NewPlayer(ctx context.Context, title string, load LoadFunc) *Player {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle
	return &Player{
		ctx:     ctx,
		title:   title,
		load:    load,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		width:   80,
	}
}

// NewPlayerWithQuestions creates a player over questions already in hand.
func NewPlayerWithQuestions(title string, questions []quiz.Question) *Player {
	p := NewPlayer(context.Background(), title, nil)
	p.start(questions)
	return p
}

func (p *Player) Init() tea.Cmd {
	if p.phase != phaseLoading {
		return nil
	}
	return tea.Batch(p.spinner.Tick, p.fetch)
}

func (p *Player) fetch() tea.Msg {
	qs, err := p.load(p.ctx)
	return questionsMsg{questions: qs, err: err}
}

func (p *Player) start(questions []quiz.Question) {
	if len(questions) == 0 {
		p.fail(errNoQuestions)
		return
	}
	p.questions = questions
	p.answers = make([]int, len(questions))
	for i := range p.answers {
		p.answers[i] = -1
	}
	p.current = 0
	p.cursor = 0
	p.phase = phaseAsking
}

func (p *Player) fail(err error) {
	p.err = err
	p.phase = phaseFailed
}

func (p *Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.help.Width = msg.Width
		return p, nil

	case questionsMsg:
		if msg.err != nil {
			p.fail(msg.err)
			return p, nil
		}
		p.start(msg.questions)
		return p, nil

	case spinner.TickMsg:
		if p.phase != phaseLoading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return p, nil
}

func (p *Player) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, p.keys.Quit):
		return p, tea.Quit
	case key.Matches(msg, p.keys.Help):
		p.help.ShowAll = !p.help.ShowAll
		return p, nil
	}

	switch p.phase {
	case phaseAsking:
		options := len(p.questions[p.current].Options)
		switch {
		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
		case key.Matches(msg, p.keys.Down):
			if p.cursor < options-1 {
				p.cursor++
			}
		case key.Matches(msg, p.keys.Select):
			p.answers[p.current] = p.cursor
			p.phase = phaseAnswered
		}

	case phaseAnswered:
		if key.Matches(msg, p.keys.Select) {
			p.next()
		}

	case phaseFinished, phaseFailed:
		if key.Matches(msg, p.keys.Select) {
			return p, tea.Quit
		}
	}
	return p, nil
}

func (p *Player) next() {
	p.current++
	p.cursor = 0
	if p.current < len(p.questions) {
		p.phase = phaseAsking
		return
	}
	p.result = quiz.Score(p.questions, p.answers)
	p.phase = phaseFinished
}

// Result returns the score once every question has been answered.
func (p *Player) Result() (quiz.Result, bool) {
	return p.result, p.phase == phaseFinished
}

// Err returns the error that stopped the quiz from loading.
func (p *Player) Err() error { return p.err }

func (p *Player) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.title))
	b.WriteString("\n\n")

	switch p.phase {
	case phaseLoading:
		fmt.Fprintf(&b, "%s Generating questions...\n", p.spinner.View())
	case phaseFailed:
		b.WriteString(errorStyle.Render("Error: " + p.err.Error()))
		b.WriteString("\n")
	case phaseAsking, phaseAnswered:
		b.WriteString(p.renderQuestion())
	case phaseFinished:
		b.WriteString(p.renderResult())
	}

	b.WriteString("\n")
	b.WriteString(p.help.View(p.keys))
	return b.String()
}

func (p *Player) renderQuestion() string {
	q := p.questions[p.current]
	var b strings.Builder

	b.WriteString(progressStyle.Render(fmt.Sprintf("Question %d of %d · %s", p.current+1, len(p.questions), q.Difficulty)))
	b.WriteString("\n")
	b.WriteString(questionStyle.Render(q.Question))
	b.WriteString("\n")

	for i, opt := range q.Options {
		line := fmt.Sprintf("%c) %s", 'A'+rune(i), opt)
		prefix := "  "
		switch {
		case p.phase == phaseAnswered && i == q.Correct:
			line = correctStyle.Render(line + "  ✓")
		case p.phase == phaseAnswered && i == p.answers[p.current]:
			line = wrongStyle.Render(line + "  ✗")
		case p.phase == phaseAsking && i == p.cursor:
			prefix = cursorStyle.Render("> ")
			line = cursorStyle.Render(line)
		}
		b.WriteString(prefix + line + "\n")
	}

	if p.phase == phaseAnswered {
		b.WriteString("\n")
		if p.answers[p.current] == q.Correct {
			b.WriteString(correctStyle.Render("Correct!"))
		} else {
			b.WriteString(wrongStyle.Render("Incorrect. The answer is " + q.Options[q.Correct]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (p *Player) renderResult() string {
	r := p.result
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d/%d (%d%%)\n", r.Correct, r.Total, r.Percentage)

	if len(r.Wrong) == 0 {
		b.WriteString(correctStyle.Render("Perfect score!"))
		b.WriteString("\n")
		return b.String()
	}

	var review strings.Builder
	for i, w := range r.Wrong {
		if i > 0 {
			review.WriteString("\n\n")
		}
		review.WriteString(questionStyle.UnsetMarginBottom().Render(w.Question))
		review.WriteString("\n")
		review.WriteString(wrongStyle.Render("  yours:   " + w.Given))
		review.WriteString("\n")
		review.WriteString(correctStyle.Render("  correct: " + w.Correct))
	}
	b.WriteString("\n")
	b.WriteString(boxStyle.Width(max(20, p.width-4)).Render(review.String()))
	b.WriteString("\n")
	return b.String()
}

// Run plays a quiz in the terminal and returns its result. A nil result
// with a nil error means the user quit before finishing.
func Run(ctx context.Context, title string, load LoadFunc) (*quiz.Result, error) {
	p := NewPlayer(ctx, title, load)
	final, err := tea.NewProgram(p, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("quiz player: %w", err)
	}
	fp := final.(*Player)
	if fp.err != nil {
		return nil, fp.err
	}
	if res, ok := fp.Result(); ok {
		return &res, nil
	}
	return nil, nil
}
