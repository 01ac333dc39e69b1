package chatcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/promptgate/pkg/gateway"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

// chrome is the number of lines around the viewport: header, status, input, help.
const chrome = 4

type completeFunc func(ctx context.Context, prompt string) gateway.Result

// resultMsg carries a finished completion back to the update loop.
type resultMsg struct {
	result gateway.Result
}

type entry struct {
	role string
	text string
	err  bool
}

type model struct {
	ctx      context.Context
	complete completeFunc
	header   string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries []entry
	waiting bool
	width   int
}

func newModel(ctx context.Context, complete completeFunc, provider, modelName string) model {
	input := textinput.New()
	input.Placeholder = "Send a message"
	input.Prompt = "> "
	input.Focus()

	return model{
		ctx:      ctx,
		complete: complete,
		header:   fmt.Sprintf("promptgate · %s · %s", provider, modelName),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:    80,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			return m.send()
		}

	case resultMsg:
		m.waiting = false
		if msg.result.OK() {
			m.entries = append(m.entries, entry{role: "assistant", text: msg.result.Text})
		} else {
			m.entries = append(m.entries, entry{role: "assistant", text: msg.result.Display(), err: true})
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

// send submits the current input. Only one completion is in flight at a time.
func (m model) send() (tea.Model, tea.Cmd) {
	prompt := m.input.Value()
	if m.waiting || strings.TrimSpace(prompt) == "" {
		return m, nil
	}

	m.entries = append(m.entries, entry{role: "user", text: prompt})
	m.input.Reset()
	m.waiting = true
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, m.ask(prompt))
}

func (m model) ask(prompt string) tea.Cmd {
	ctx, complete := m.ctx, m.complete
	return func() tea.Msg {
		return resultMsg{result: complete(ctx, prompt)}
	}
}

func (m *model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m model) transcript() string {
	body := lipgloss.NewStyle().Width(max(m.width-2, 1))

	var b strings.Builder
	for _, e := range m.entries {
		switch {
		case e.role == "user":
			b.WriteString(userStyle.Render("You"))
		default:
			b.WriteString(assistantStyle.Render("Model"))
		}
		b.WriteString("\n")
		if e.err {
			b.WriteString(errorStyle.Inherit(body).Render(e.text))
		} else {
			b.WriteString(body.Render(e.text))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m model) View() string {
	status := ""
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}

	return strings.Join([]string{
		headerStyle.Render(ansi.Truncate(m.header, m.width, "…")),
		m.viewport.View(),
		status,
		m.input.View(),
		helpStyle.Render("enter send · pgup/pgdn scroll · esc quit"),
	}, "\n")
}
