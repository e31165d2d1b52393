package status

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/greetreply/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// summaryMsg carries the finished summary back into the program.
type summaryMsg string

type summaryModel struct {
	render tea.Cmd
	text   string
}

func (m summaryModel) Init() tea.Cmd { return m.render }

func (m summaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if text, ok := msg.(summaryMsg); ok {
		m.text = string(text)
		return m, tea.Quit
	}
	return m, nil
}

func (m summaryModel) View() string {
	return m.text
}

// Render produces the end-of-run summary for stats.
func Render(stats application.Stats, opts RenderOptions) (string, error) {
	render := func() tea.Msg {
		return summaryMsg(renderView(stats, opts, newStyles()))
	}
	program := tea.NewProgram(summaryModel{render: render}, tea.WithInput(nil), tea.WithOutput(io.Discard))

	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("render run summary: %w", err)
	}

	summary, ok := final.(summaryModel)
	if !ok {
		return "", fmt.Errorf("%w: %T", ErrUnexpectedRenderModel, final)
	}
	return summary.View(), nil
}
