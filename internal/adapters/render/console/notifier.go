package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	banner  lipgloss.Style
	meta    lipgloss.Style
	pending lipgloss.Style
	contact lipgloss.Style
	message lipgloss.Style
	hotkey  lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
}

func newStyles() styles {
	return styles{
		banner:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		pending: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		contact: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		message: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		hotkey:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

// Notifier prints operator notices for the send protocol.
type Notifier struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(out io.Writer) *Notifier {
	if out == nil {
		out = io.Discard
	}

	return &Notifier{out: out, styles: newStyles()}
}

func (n *Notifier) PendingSend(contact domain.ContactID, message string, cancelWindow time.Duration, cancelKeys []string) {
	s := n.styles
	n.println(
		s.pending.Render("about to reply to")+" "+s.contact.Render(string(contact))+": "+s.message.Render(message),
		s.meta.Render(fmt.Sprintf("press %s within %s to cancel", s.hotkey.Render(HotkeyLabel(cancelKeys)), cancelWindow)),
	)
}

func (n *Notifier) SendCancelled(contact domain.ContactID) {
	n.println(n.styles.warning.Render("reply cancelled") + " " + n.styles.contact.Render(string(contact)))
}

func (n *Notifier) Sent(contact domain.ContactID) {
	n.println(n.styles.ok.Render("replied to") + " " + n.styles.contact.Render(string(contact)))
}

// Notice prints a single informational line.
func (n *Notifier) Notice(text string) {
	n.println(n.styles.meta.Render(text))
}

func (n *Notifier) println(lines ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, line := range lines {
		_, _ = fmt.Fprintln(n.out, line)
	}
}

// HotkeyLabel renders a key chord as "Ctrl+Q".
func HotkeyLabel(keys []string) string {
	if len(keys) == 0 {
		return "(none)"
	}

	labels := make([]string, 0, len(keys))
	for _, key := range keys {
		switch strings.ToLower(key) {
		case "control", "ctrl":
			labels = append(labels, "Ctrl")
		case "menu", "alt":
			labels = append(labels, "Alt")
		case "shift":
			labels = append(labels, "Shift")
		default:
			labels = append(labels, strings.ToUpper(key))
		}
	}

	return strings.Join(labels, "+")
}
