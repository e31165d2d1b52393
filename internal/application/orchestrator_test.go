package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bnema/greetreply/internal/adapters/surface/scripted"
	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
	"github.com/bnema/greetreply/internal/ports/mocks"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const greetingScenario = `
windows:
  - handle: w1
    title: 微信
    rect: {left: 0, top: 0, right: 1200, bottom: 800}
    entries:
      - label: 文件传输助手
        messages: [新年快乐]
      - label: 3小明条新消息
        preview: 新年快乐！
        messages: [新年快乐！]
`

// cancellingClock cancels the run context on its nth sleep.
type cancellingClock struct {
	*fakeClock
	cancel context.CancelFunc
	after  int
	count  int
}

func (c *cancellingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.count++
	if c.count == c.after {
		c.cancel()
	}
	return c.fakeClock.Sleep(ctx, d)
}

func newTestOrchestrator(t *testing.T, surface ports.Surface, generator ports.Generator, clock ports.Clock, settings Settings) (*Orchestrator, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	o := NewOrchestrator(Deps{
		Surface:   surface,
		Generator: generator,
		Clock:     clock,
		Rand:      seededRand(),
		Notifier:  notifier,
	}, settings)
	return o, notifier
}

func fixedIntervalSettings(interval time.Duration) Settings {
	settings := DefaultSettings()
	settings.Timing.CheckIntervalMin = interval
	settings.Timing.CheckIntervalMax = interval
	return settings
}

func TestRunCycleRepliesToGreeting(t *testing.T) {
	surface := newSurface(t, greetingScenario)
	generator := mocks.NewMockGenerator(t)
	generator.EXPECT().
		Generate(mock.Anything, DefaultModel, mock.MatchedBy(func(prompt string) bool {
			return strings.Contains(prompt, "收到的拜年祝福：新年快乐！")
		})).
		Return("<think>回祝</think>\n谢谢您！祝您金蛇送福", nil).
		Once()

	clock := newFakeClock()
	o, notifier := newTestOrchestrator(t, surface, generator, clock, DefaultSettings())

	outcome := o.RunCycle(context.Background())
	assert.Equal(t, domain.Replied("小明"), outcome)

	want := []scripted.Action{
		{Kind: "focus", Target: "w1"},
		{Kind: "click_at", Detail: "100,400"},
		{Kind: "keys", Target: "w1", Detail: "{Alt}1"},
		{Kind: "focus", Target: "w1"},
		{Kind: "focus", Target: "w1/panel/1"},
		{Kind: "click", Target: "w1/panel/1", Detail: "primary"},
		{Kind: "maximize", Target: "w1"},
		{Kind: "click_at", Detail: "1100,700"},
	}
	for _, r := range "谢谢您！祝您金蛇送福" {
		want = append(want, scripted.Action{Kind: "keys", Target: "w1", Detail: string(r)})
	}
	want = append(want, scripted.Action{Kind: "keys", Target: "w1", Detail: "{Enter}"})
	if diff := cmp.Diff(want, surface.Journal()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}

	sent := surface.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "小明", sent[0].Contact)
	assert.Equal(t, "谢谢您！祝您金蛇送福", sent[0].Text)

	_, ok := o.Ledger().LastReply("小明")
	assert.True(t, ok)
	assert.Equal(t, []domain.ContactID{"小明"}, notifier.sent)

	stats := o.Stats()
	assert.Equal(t, 1, stats.Cycles)
	assert.Equal(t, 1, stats.Replies)
	assert.Equal(t, 1, stats.Contacts)
	assert.Equal(t, domain.ContactID("小明"), stats.LastRepliedTo)
}

func TestRunCycleUsesFallbackWhenGenerationFails(t *testing.T) {
	surface := newSurface(t, greetingScenario)
	generator := mocks.NewMockGenerator(t)
	generator.EXPECT().
		Generate(mock.Anything, mock.Anything, mock.Anything).
		Return("", domain.ErrServiceError).
		Once()

	o, _ := newTestOrchestrator(t, surface, generator, newFakeClock(), DefaultSettings())

	outcome := o.RunCycle(context.Background())
	assert.Equal(t, domain.Replied("小明"), outcome)

	sent := surface.Sent()
	require.Len(t, sent, 1)
	reply := sent[0].Text
	assert.Equal(t, domain.DefaultFallbackReply, reply)
	assert.True(t, strings.HasPrefix(reply, "谢谢"))
	assert.LessOrEqual(t, utf8.RuneCountInString(reply), DefaultMaxRunes)
}

func TestLedgerBlocksSecondReplyWithinInterval(t *testing.T) {
	surface := newSurface(t, `
windows:
  - handle: w1
    rect: {left: 0, top: 0, right: 1200, bottom: 800}
    entries:
      - label: 3小明条新消息
        sticky_unread: true
        messages: [新年快乐！]
`)
	clock := newFakeClock()
	o, _ := newTestOrchestrator(t, surface, nil, clock, DefaultSettings())
	ctx := context.Background()

	assert.Equal(t, domain.Replied("小明"), o.RunCycle(ctx))
	first, ok := o.Ledger().LastReply("小明")
	require.True(t, ok)

	assert.Equal(t, domain.NoEligibleContact(), o.RunCycle(ctx))
	again, _ := o.Ledger().LastReply("小明")
	assert.Equal(t, first, again)
	assert.Len(t, surface.Sent(), 1)

	clock.Advance(time.Minute)
	assert.Equal(t, domain.Replied("小明"), o.RunCycle(ctx))
	assert.Len(t, surface.Sent(), 2)
}

func TestRunCycleSpecialAccountOnly(t *testing.T) {
	surface := newSurface(t, `
windows:
  - handle: w1
    rect: {left: 0, top: 0, right: 1200, bottom: 800}
    entries:
      - label: 文件传输助手
        messages: [新年快乐]
      - label: 1微信团队条新消息
        messages: [新春快乐]
`)
	o, _ := newTestOrchestrator(t, surface, mocks.NewMockGenerator(t), newFakeClock(), DefaultSettings())

	assert.Equal(t, domain.NoEligibleContact(), o.RunCycle(context.Background()))
	assert.Zero(t, o.Ledger().Len())
	for _, action := range surface.Journal() {
		assert.NotEqual(t, "click", action.Kind)
	}
}

func TestRunCycleCancelledSend(t *testing.T) {
	surface := newSurface(t, greetingScenario)
	surface.PressKeys(domain.KeyControl, "Q")
	o, notifier := newTestOrchestrator(t, surface, nil, newFakeClock(), DefaultSettings())

	assert.Equal(t, domain.SendCancelled("小明"), o.RunCycle(context.Background()))
	assert.Zero(t, o.Ledger().Len())
	assert.Equal(t, []domain.ContactID{"小明"}, notifier.cancelled)
	assert.Equal(t, 1, o.Stats().Cancelled)
}

func TestCancelledReplyIsNotSentToNextContact(t *testing.T) {
	surface := newSurface(t, `
windows:
  - handle: w1
    rect: {left: 0, top: 0, right: 1200, bottom: 800}
    entries:
      - label: 1小明条新消息
        messages: [新年快乐]
      - label: 1小红条新消息
        messages: [新春快乐]
`)
	o, _ := newTestOrchestrator(t, surface, nil, newFakeClock(), DefaultSettings())
	ctx := context.Background()

	surface.PressKeys(domain.KeyControl, "Q")
	assert.Equal(t, domain.SendCancelled("小明"), o.RunCycle(ctx))

	surface.ReleaseKeys(domain.KeyControl, "Q")
	assert.Equal(t, domain.Replied("小红"), o.RunCycle(ctx))

	assert.Equal(t, []scripted.SentMessage{
		{Window: "w1", Contact: "小红", Text: domain.DefaultFallbackReply},
	}, surface.Sent())
	_, replied := o.Ledger().LastReply("小明")
	assert.False(t, replied)
}

func TestOrchestratorUsesCallerLedger(t *testing.T) {
	clock := newFakeClock()
	ledger := domain.NewReplyLedger()
	ledger.Record("小明", clock.Now())

	o := NewOrchestrator(Deps{
		Surface: newSurface(t, greetingScenario),
		Clock:   clock,
		Rand:    seededRand(),
		Ledger:  ledger,
	}, DefaultSettings())

	assert.Same(t, ledger, o.Ledger())
	assert.Equal(t, domain.NoEligibleContact(), o.RunCycle(context.Background()))
	assert.Equal(t, 1, ledger.Len())
}

func TestRunCycleOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		scenario string
		want     domain.OutcomeKind
	}{
		{
			name:     "no window of the chat class",
			scenario: "windows:\n  - handle: other\n    class_name: Notepad\n",
			want:     domain.OutcomeNoWindow,
		},
		{
			name:     "window enumeration fails",
			scenario: "list_error: access denied\n",
			want:     domain.OutcomeError,
		},
		{
			name:     "focus fails",
			scenario: "windows:\n  - handle: w1\n    focus_fails: true\n",
			want:     domain.OutcomeSwitchFailed,
		},
		{
			name:     "panel missing",
			scenario: "windows:\n  - handle: w1\n    layout: none\n",
			want:     domain.OutcomeError,
		},
		{
			name:     "nothing unread",
			scenario: "windows:\n  - handle: w1\n    entries:\n      - label: 小红\n",
			want:     domain.OutcomeNoEligibleContact,
		},
		{
			name:     "commit fails",
			scenario: "windows:\n  - handle: w1\n    commit_fails: true\n    entries:\n      - label: 1小红条新消息\n        messages: [新年好]\n",
			want:     domain.OutcomeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newTestOrchestrator(t, newSurface(t, tt.scenario), nil, newFakeClock(), DefaultSettings())
			assert.Equal(t, tt.want, o.RunCycle(context.Background()).Kind)
		})
	}
}

func TestRunCycleSurfaceUnavailableIsNoWindow(t *testing.T) {
	surface := newSurface(t, greetingScenario)
	surface.SetListError(domain.ErrSurfaceUnavailable)
	o, _ := newTestOrchestrator(t, surface, nil, newFakeClock(), DefaultSettings())

	assert.Equal(t, domain.NoWindow(), o.RunCycle(context.Background()))
}

func TestRunCycleRotatesWindows(t *testing.T) {
	surface := newSurface(t, `
windows:
  - handle: w1
  - handle: w2
`)
	o, _ := newTestOrchestrator(t, surface, nil, newFakeClock(), DefaultSettings())

	for range 3 {
		assert.Equal(t, domain.NoEligibleContact(), o.RunCycle(context.Background()))
	}

	var switched []string
	for _, action := range surface.Journal() {
		if action.Kind == "keys" && action.Detail == chatTabKeys {
			switched = append(switched, action.Target)
		}
	}
	assert.Equal(t, []string{"w1", "w2", "w1"}, switched)
}

func TestNextDelayBackoff(t *testing.T) {
	interval := 10 * time.Second
	o, _ := newTestOrchestrator(t, newSurface(t, greetingScenario), nil, newFakeClock(), DefaultSettings())
	failed := domain.Failed(errors.New("boom"))

	assert.Equal(t, interval, o.NextDelay(failed, interval))
	assert.Equal(t, interval, o.NextDelay(failed, interval))
	assert.Equal(t, min(300*time.Second, interval*3), o.NextDelay(failed, interval))

	replied := o.NextDelay(domain.Replied("小明"), interval)
	assert.GreaterOrEqual(t, replied, 8*time.Second)
	assert.LessOrEqual(t, replied, 12*time.Second)

	assert.Equal(t, interval, o.NextDelay(failed, interval))
	assert.Equal(t, 1, o.backoff.Failures())

	assert.Equal(t, interval, o.NextDelay(domain.NoWindow(), interval))
	switchDelay := o.NextDelay(domain.SwitchFailed(), interval)
	assert.GreaterOrEqual(t, switchDelay, time.Second)
	assert.LessOrEqual(t, switchDelay, 2*time.Second)
	assert.Equal(t, 1, o.backoff.Failures(), "non-error outcomes other than replied keep the count")
}

func TestRunBacksOffAfterConsecutiveFailures(t *testing.T) {
	surface := newSurface(t, "list_error: access denied\n")
	clock := newFakeClock()
	o, _ := newTestOrchestrator(t, surface, nil, clock, fixedIntervalSettings(10*time.Second))

	require.NoError(t, o.Run(context.Background(), 5))

	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second, 30 * time.Second, 40 * time.Second}, clock.Sleeps())
	assert.Equal(t, 5, o.Stats().Errors)
}

func TestRunBackoffIsCapped(t *testing.T) {
	surface := newSurface(t, "list_error: access denied\n")
	clock := newFakeClock()
	settings := fixedIntervalSettings(15 * time.Second)
	settings.Timing.BackoffCap = 40 * time.Second
	o, _ := newTestOrchestrator(t, surface, nil, clock, settings)

	require.NoError(t, o.Run(context.Background(), 5))

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 4)
	assert.Equal(t, 40*time.Second, sleeps[2])
	assert.Equal(t, 40*time.Second, sleeps[3])
}

func TestRunStopsBetweenCycles(t *testing.T) {
	surface := newSurface(t, "list_error: access denied\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &cancellingClock{fakeClock: newFakeClock(), cancel: cancel, after: 2}
	o, _ := newTestOrchestrator(t, surface, nil, clock, fixedIntervalSettings(10*time.Second))

	require.NoError(t, o.Run(ctx, 0))
	assert.Equal(t, 2, o.Stats().Cycles)
}

func TestRunFinishesCycleInFlight(t *testing.T) {
	surface := newSurface(t, greetingScenario)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &cancellingClock{fakeClock: newFakeClock(), cancel: cancel, after: 1}
	o, _ := newTestOrchestrator(t, surface, nil, clock, DefaultSettings())

	require.NoError(t, o.Run(ctx, 0))

	stats := o.Stats()
	assert.Equal(t, 1, stats.Cycles)
	assert.Equal(t, domain.Replied("小明"), stats.LastOutcome)
	assert.Len(t, surface.Sent(), 1)
}

func TestRunWithCancelledContextRunsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o, _ := newTestOrchestrator(t, newSurface(t, greetingScenario), nil, newFakeClock(), DefaultSettings())
	require.NoError(t, o.Run(ctx, 3))
	assert.Zero(t, o.Stats().Cycles)
}

func TestReloadAppliesLatestSettingsBetweenCycles(t *testing.T) {
	surface := newSurface(t, "list_error: access denied\n")
	o, _ := newTestOrchestrator(t, surface, nil, newFakeClock(), DefaultSettings())

	first := DefaultSettings()
	first.Model = "qwen2.5:7b"
	second := DefaultSettings()
	second.Model = "llama3:8b"
	second.Timing.ReplyInterval = 2 * time.Minute

	o.Reload(first)
	o.Reload(second)
	assert.Equal(t, DefaultModel, o.Settings().Model)

	require.NoError(t, o.Run(context.Background(), 1))
	assert.Equal(t, "llama3:8b", o.Settings().Model)
	assert.Equal(t, 2*time.Minute, o.Settings().Timing.ReplyInterval)
}
