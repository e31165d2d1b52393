package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierPrintsSendProtocol(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(&out)

	n.PendingSend("小明", "谢谢！祝您蛇年大吉", 3*time.Second, []string{"Control", "Q"})
	n.SendCancelled("小明")
	n.Sent("小红")

	text := out.String()
	assert.Contains(t, text, "about to reply to 小明: 谢谢！祝您蛇年大吉")
	assert.Contains(t, text, "press Ctrl+Q within 3s to cancel")
	assert.Contains(t, text, "reply cancelled 小明")
	assert.Contains(t, text, "replied to 小红")
	assert.Equal(t, 4, strings.Count(text, "\n"))
}

func TestNewNotifierWithoutWriterDiscards(t *testing.T) {
	n := NewNotifier(nil)
	assert.NotPanics(t, func() {
		n.Sent("小明")
		n.Notice("stopping")
	})
}

func TestHotkeyLabel(t *testing.T) {
	tests := []struct {
		keys []string
		want string
	}{
		{keys: []string{"Control", "Q"}, want: "Ctrl+Q"},
		{keys: []string{"alt", "shift", "x"}, want: "Alt+Shift+X"},
		{keys: nil, want: "(none)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, HotkeyLabel(tt.keys))
		})
	}
}

func TestBanner(t *testing.T) {
	var out bytes.Buffer

	err := Banner(&out, BannerInfo{
		Version:     "v1.2.3",
		Model:       "deepseek-r1:8b",
		WindowClass: "WeChatMainWndForPC",
		Surface:     "scripted",
		CancelKeys:  []string{"Control", "Q"},
		Interval:    [2]time.Duration{8 * time.Second, 15 * time.Second},
	})

	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "greetreply v1.2.3")
	assert.Contains(t, text, "model: deepseek-r1:8b")
	assert.Contains(t, text, "check every: 8s to 15s")
	assert.Contains(t, text, "cancel a reply: Ctrl+Q")
	assert.Contains(t, text, "╭")
}
