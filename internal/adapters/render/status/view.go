package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/greetreply/internal/application"
	"github.com/bnema/greetreply/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 24

type RenderOptions struct {
	StartedAt  time.Time
	FinishedAt time.Time
}

func renderView(stats application.Stats, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Greeting Auto-Reply Summary"),
		s.header.Render(headerLine(stats, opts)),
	}

	if stats.Cycles == 0 {
		lines = append(lines, s.empty.Render("No cycles ran."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(outcomeBlock(stats, s)))

	if last := lastLine(stats, s); last != "" {
		lines = append(lines, s.section.Render(last))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(stats application.Stats, opts RenderOptions) string {
	header := fmt.Sprintf("cycles: %d", stats.Cycles)
	if !opts.StartedAt.IsZero() && !opts.FinishedAt.IsZero() && opts.FinishedAt.After(opts.StartedAt) {
		header += fmt.Sprintf(" in %s", formatElapsed(opts.FinishedAt.Sub(opts.StartedAt)))
	}

	return header
}

func outcomeBlock(stats application.Stats, s styles) string {
	replyPercent := percentOf(stats.Replies, stats.Cycles)
	replied := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.label.Render("replied:"),
		" ",
		renderProgressBar(replyPercent, barWidth, s),
		" ",
		s.value.Render(fmt.Sprintf("%d", stats.Replies)),
		" ",
		s.header.Render(fmt.Sprintf("(%2.0f%% of cycles, %d contacts)", replyPercent, stats.Contacts)),
	)

	rows := []string{replied}
	for _, row := range []struct {
		name  string
		count int
		warn  bool
	}{
		{"cancelled", stats.Cancelled, false},
		{"idle", stats.Idle, false},
		{"no window", stats.NoWindow, stats.NoWindow == stats.Cycles},
		{"switch failed", stats.SwitchFailed, stats.SwitchFailed > 0},
		{"errors", stats.Errors, stats.Errors > 0},
	} {
		line := s.label.Render(row.name+":") + " " + fmt.Sprintf("%d", row.count)
		if row.warn {
			line += " " + s.warning.Render("[!]")
		}
		rows = append(rows, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func lastLine(stats application.Stats, s styles) string {
	parts := make([]string, 0, 2)
	if stats.LastRepliedTo != "" {
		parts = append(parts, s.label.Render("last reply to:")+" "+s.value.Render(string(stats.LastRepliedTo)))
	}
	if stats.LastOutcome.Kind != "" {
		outcome := stats.LastOutcome.String()
		if stats.LastOutcome.Kind == domain.OutcomeError {
			outcome = s.warning.Render(outcome)
		}
		parts = append(parts, s.label.Render("last outcome:")+" "+outcome)
	}

	return strings.Join(parts, "\n")
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func percentOf(part, total int) float64 {
	if total <= 0 {
		return 0
	}

	return clampPercent(float64(part) * 100 / float64(total))
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	return d.Round(time.Second).String()
}
