// Package tui is the interactive chat front end.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
)

// Engine is the chat-facing subset of the session.
type Engine interface {
	Ask(ctx context.Context, question string, topK int) (*entities.Answer, error)
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	subtitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type answerMsg struct {
	answer *entities.Answer
	err    error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	engine   Engine
	topK     int
	subtitle string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	transcript []string
	waiting    bool
	ready      bool
}

// New creates a chat model. subtitle is shown under the title, e.g. the corpus summary.
func New(ctx context.Context, engine Engine, topK int, subtitle string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question (quit, exit or q to leave)"
	ti.Focus()
	ti.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		engine:   engine,
		topK:     topK,
		subtitle: subtitle,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, spinner and answer messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 + th
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.transcript = append(m.transcript, errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			m.transcript = append(m.transcript, FormatAnswer(msg.answer))
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}

	question := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if question == "" {
		return m, nil
	}
	if IsQuit(question) {
		return m, tea.Quit
	}

	m.waiting = true
	m.transcript = append(m.transcript, questionStyle.Render("Question: "+question))
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, askCmd(m.ctx, m.engine, question, m.topK))
}

func askCmd(ctx context.Context, engine Engine, question string, topK int) tea.Cmd {
	return func() tea.Msg {
		answer, err := engine.Ask(ctx, question, topK)
		return answerMsg{answer: answer, err: err}
	}
}

func (m *Model) refresh() {
	if len(m.transcript) == 0 {
		m.viewport.SetContent("No questions yet.")
		return
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.transcript, "\n\n")))
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := statusStyle.Render("Enter to ask, PgUp/PgDn to scroll, Ctrl+C to quit")
	if m.waiting {
		status = m.spinner.View() + " Thinking..."
	}

	return titleStyle.Render("RAG Question Answering") + "\n" +
		subtitleStyle.Render(m.subtitle) + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

// Run starts the chat screen and blocks until the user quits or ctx is done.
func Run(ctx context.Context, engine Engine, topK int, subtitle string) error {
	p := tea.NewProgram(New(ctx, engine, topK, subtitle), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
