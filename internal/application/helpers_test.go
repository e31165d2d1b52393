package application

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/bnema/greetreply/internal/adapters/surface/scripted"
	"github.com/bnema/greetreply/internal/domain"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2025, 1, 29, 8, 0, 0, 0, time.UTC)

// fakeClock advances its own time on Sleep instead of blocking.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(20250129, 1))
}

func newTestPacer(clock *fakeClock) *Pacer {
	return NewPacer(clock, seededRand(), 2*time.Second)
}

func newSurface(t *testing.T, yaml string) *scripted.Surface {
	t.Helper()

	scenario, err := scripted.Parse([]byte(yaml))
	require.NoError(t, err)
	return scripted.New(scenario)
}

func firstWindow(t *testing.T, surface *scripted.Surface) domain.Window {
	t.Helper()

	windows, err := surface.ListWindows(context.Background(), DefaultWindowClass)
	require.NoError(t, err)
	require.NotEmpty(t, windows)
	return windows[0]
}

// recordingNotifier captures operator notices.
type recordingNotifier struct {
	mu        sync.Mutex
	pending   []domain.ContactID
	cancelled []domain.ContactID
	sent      []domain.ContactID
}

func (n *recordingNotifier) PendingSend(contact domain.ContactID, _ string, _ time.Duration, _ []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, contact)
}

func (n *recordingNotifier) SendCancelled(contact domain.ContactID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, contact)
}

func (n *recordingNotifier) Sent(contact domain.ContactID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, contact)
}
