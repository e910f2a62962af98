package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the operator leaves a prompt with esc or
// ctrl+c.
var ErrCancelled = errors.New("cancelled")

type promptModel struct {
	title     string
	input     textinput.Model
	done      bool
	cancelled bool
}

func newPromptModel(title string, secret bool) promptModel {
	ti := textinput.New()
	ti.Prompt = "> "
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()
	return promptModel{title: title, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.done = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return titleStyle.Render(m.title) + "\n" + m.input.View() + "\n" +
		helpStyle.Render("  Enter: confirm  Esc: cancel") + "\n"
}

func (m promptModel) value() (string, error) {
	if m.cancelled {
		return "", ErrCancelled
	}
	return strings.TrimSpace(m.input.Value()), nil
}

// Prompt asks for one line of input. With secret set the typed characters
// are masked.
func Prompt(ctx context.Context, title string, secret bool) (string, error) {
	p := tea.NewProgram(newPromptModel(title, secret), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return "", programError(err)
	}
	return final.(promptModel).value()
}

// programError maps a program killed by its context (SIGINT, SIGTERM) to
// ErrCancelled.
func programError(err error) error {
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return err
}
