package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type BannerInfo struct {
	Version     string
	Model       string
	WindowClass string
	Surface     string
	CancelKeys  []string
	Interval    [2]time.Duration
}

// Banner prints the startup block shown before the first cycle.
func Banner(out io.Writer, info BannerInfo) error {
	s := newStyles()

	rows := []string{
		s.banner.Render("greetreply " + info.Version),
		field(s, "model", info.Model),
		field(s, "window class", info.WindowClass),
		field(s, "surface", info.Surface),
		field(s, "check every", fmt.Sprintf("%s to %s", info.Interval[0], info.Interval[1])),
		field(s, "cancel a reply", s.hotkey.Render(HotkeyLabel(info.CancelKeys))),
		s.meta.Render("press Ctrl+C to stop"),
	}

	block := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("241")).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

	_, err := fmt.Fprintln(out, block)
	return err
}

func field(s styles, name, value string) string {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}

	return s.meta.Render(name+":") + " " + value
}
