package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	probeSpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	probeElapsedStyle = lipgloss.NewStyle().Faint(true)
)

type probeResultMsg struct {
	err error
}

// probeModel animates while a single probe command is in flight.
type probeModel struct {
	spin    spinner.Model
	label   string
	check   tea.Cmd
	started time.Time
	elapsed time.Duration
	result  *probeResultMsg
}

func (m probeModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.check)
}

func (m probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case probeResultMsg:
		m.result = &msg
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	case spinner.TickMsg:
		m.elapsed = time.Since(m.started)
		var tick tea.Cmd
		m.spin, tick = m.spin.Update(msg)
		return m, tick
	}
	return m, nil
}

func (m probeModel) View() string {
	if m.result != nil {
		return ""
	}

	line := m.spin.View() + " " + m.label
	if secs := int(m.elapsed / time.Second); secs > 0 {
		line += probeElapsedStyle.Render(fmt.Sprintf(" (%ds)", secs))
	}
	return line
}

// runProbeSpinner shows label with a spinner while probe runs and returns
// probe's error. The spinner is cleared once the probe finishes.
func runProbeSpinner(ctx context.Context, output io.Writer, label string, probe func(context.Context) error) error {
	m := probeModel{
		spin:    spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(probeSpinnerStyle)),
		label:   label,
		started: time.Now(),
		check: func() tea.Msg {
			return probeResultMsg{err: probe(ctx)}
		},
	}

	final, err := tea.NewProgram(m, tea.WithInput(nil), tea.WithOutput(output), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("run probe spinner: %w", err)
	}

	done, ok := final.(probeModel)
	if !ok || done.result == nil {
		return fmt.Errorf("probe spinner ended without a result (%T)", final)
	}
	return done.result.err
}
