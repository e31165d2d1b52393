package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// chatTabKeys brings the chat tab of the focused window to the front.
const chatTabKeys = "{Alt}1"

// leftRegionOffset is how far right of the window edge the switch click lands.
const leftRegionOffset = 100

// Deps are the collaborators of an Orchestrator. The ledger belongs to the
// caller; a nil Ledger starts an empty one.
type Deps struct {
	Surface   ports.Surface
	Generator ports.Generator
	Clock     ports.Clock
	Rand      *rand.Rand
	Notifier  ports.Notifier
	Logger    *zap.Logger
	Ledger    *domain.ReplyLedger
}

type Stats struct {
	Cycles        int
	Replies       int
	Cancelled     int
	Errors        int
	NoWindow      int
	Idle          int
	SwitchFailed  int
	Contacts      int
	LastOutcome   domain.CycleOutcome
	LastRepliedTo domain.ContactID
}

// Orchestrator drives one window per cycle through scan, classify, compose
// and send. It is single-threaded: Run executes cycles back to back and
// settings updates are applied only between cycles.
type Orchestrator struct {
	surface   ports.Surface
	generator ports.Generator
	notifier  ports.Notifier
	logger    *zap.Logger

	settings Settings
	ledger   *domain.ReplyLedger
	pacer    *Pacer
	backoff  *Backoff

	classifier *Classifier
	composer   *Composer
	scanner    *Scanner
	sender     *Sender

	windowCursor int
	updates      chan Settings
	stats        Stats
}

func NewOrchestrator(deps Deps, settings Settings) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = ports.NopNotifier{}
	}
	if deps.Ledger == nil {
		deps.Ledger = domain.NewReplyLedger()
	}

	o := &Orchestrator{
		surface:   deps.Surface,
		generator: deps.Generator,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		ledger:    deps.Ledger,
		pacer:     NewPacer(deps.Clock, deps.Rand, settings.Timing.MinOperationInterval),
		backoff:   NewBackoff(settings.Timing.BackoffThreshold, settings.Timing.BackoffCap),
		updates:   make(chan Settings, 1),
	}
	o.apply(settings)

	return o
}

func (o *Orchestrator) Ledger() *domain.ReplyLedger {
	return o.ledger
}

func (o *Orchestrator) Stats() Stats {
	stats := o.stats
	stats.Contacts = o.ledger.Len()
	return stats
}

func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// Reload queues new settings for the next cycle boundary. Only the most
// recent pending update is kept. Safe to call from any goroutine.
func (o *Orchestrator) Reload(settings Settings) {
	for {
		select {
		case o.updates <- settings:
			return
		default:
		}
		select {
		case <-o.updates:
		default:
		}
	}
}

func (o *Orchestrator) apply(settings Settings) {
	o.settings = settings
	o.pacer.SetMinOperationInterval(settings.Timing.MinOperationInterval)
	o.backoff.Reconfigure(settings.Timing.BackoffThreshold, settings.Timing.BackoffCap)

	o.classifier = NewClassifier(o.generator, settings.Model, settings.Keywords, o.logger.Named("classifier"))
	o.composer = NewComposer(o.generator, settings.Model, settings.Reply, o.logger.Named("composer"))
	o.scanner = NewScanner(o.surface, o.classifier, o.ledger, settings.Filter, settings.Timing.ReplyInterval, o.pacer, o.logger.Named("scanner"))
	o.sender = NewSender(o.surface, o.ledger, o.pacer, o.notifier, settings.CancelKeys, settings.Timing, o.logger.Named("sender"))
}

func (o *Orchestrator) drainUpdates() {
	select {
	case settings := <-o.updates:
		o.apply(settings)
		o.logger.Info("settings reloaded")
	default:
	}
}

// Run executes cycles until ctx is cancelled or maxCycles cycles have run
// (maxCycles <= 0 means no limit). Cancellation is observed between cycles:
// a cycle in flight always completes.
func (o *Orchestrator) Run(ctx context.Context, maxCycles int) error {
	clock := o.pacer.Clock()

	for n := 1; maxCycles <= 0 || n <= maxCycles; n++ {
		if ctx.Err() != nil {
			return nil
		}
		o.drainUpdates()

		interval := o.pacer.CheckInterval(o.settings.Timing.CheckIntervalMin, o.settings.Timing.CheckIntervalMax)
		outcome := o.RunCycle(context.WithoutCancel(ctx))
		delay := o.NextDelay(outcome, interval)

		if maxCycles > 0 && n == maxCycles {
			break
		}

		o.logger.Debug("cycle finished",
			zap.Stringer("outcome", outcome),
			zap.Duration("next_in", delay),
			zap.Int("consecutive_errors", o.backoff.Failures()))

		if err := clock.Sleep(ctx, delay); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}

	return nil
}

// NextDelay updates the error counter for outcome and returns the wait before
// the next cycle.
func (o *Orchestrator) NextDelay(outcome domain.CycleOutcome, interval time.Duration) time.Duration {
	switch outcome.Kind {
	case domain.OutcomeError:
		delay := o.backoff.Failure(interval)
		if o.backoff.Failures() >= o.settings.Timing.BackoffThreshold {
			o.logger.Warn("consecutive cycle failures, backing off",
				zap.Int("failures", o.backoff.Failures()),
				zap.Duration("wait", delay))
		}
		return delay
	case domain.OutcomeNoWindow:
		return interval
	case domain.OutcomeSwitchFailed:
		return o.pacer.Between(time.Second, 2*time.Second)
	case domain.OutcomeReplied:
		o.backoff.Reset()
		return o.pacer.Jitter(interval, 0.8, 1.2)
	default:
		return o.pacer.Jitter(interval, 0.8, 1.2)
	}
}

// RunCycle performs a single select-window, scan, compose, send pass.
func (o *Orchestrator) RunCycle(ctx context.Context) domain.CycleOutcome {
	logger := o.logger.With(zap.String("cycle", uuid.NewString()))
	outcome := o.runCycle(ctx, logger)
	o.record(outcome)

	switch outcome.Kind {
	case domain.OutcomeError:
		logger.Error("cycle failed", zap.Error(outcome.Err))
	default:
		logger.Info("cycle complete", zap.Stringer("outcome", outcome))
	}

	return outcome
}

func (o *Orchestrator) runCycle(ctx context.Context, logger *zap.Logger) domain.CycleOutcome {
	windows, err := o.surface.ListWindows(ctx, o.settings.WindowClass)
	if err != nil {
		if errors.Is(err, domain.ErrSurfaceUnavailable) {
			logger.Warn("no chat window available", zap.Error(err))
			return domain.NoWindow()
		}
		return domain.Failed(fmt.Errorf("list windows: %w", err))
	}
	if len(windows) == 0 {
		logger.Warn("no chat window found, make sure the client is logged in and open")
		return domain.NoWindow()
	}
	logger.Debug("chat windows found", zap.Int("count", len(windows)))

	window, err := o.switchToNext(ctx, windows, logger)
	if err != nil {
		logger.Warn("switch window", zap.Error(err))
		return domain.SwitchFailed()
	}

	candidate, err := o.scanner.Scan(ctx, window)
	if err != nil {
		return domain.Failed(fmt.Errorf("scan window %q: %w", window.Title, err))
	}
	if candidate == nil {
		return domain.NoEligibleContact()
	}

	reply := o.composer.Compose(ctx, candidate.Message)

	result, err := o.sender.Send(ctx, window, candidate.Contact, reply)
	switch {
	case result == SendSent:
		return domain.Replied(candidate.Contact)
	case errors.Is(err, domain.ErrSendCancelled):
		return domain.SendCancelled(candidate.Contact)
	default:
		if err == nil {
			err = domain.ErrInteractionFailed
		}
		return domain.Failed(fmt.Errorf("send reply to %q: %w", candidate.Contact, err))
	}
}

// switchToNext focuses the next window in round-robin order and brings its
// chat tab forward. Only the focus step is fatal to the cycle.
func (o *Orchestrator) switchToNext(ctx context.Context, windows []domain.Window, logger *zap.Logger) (domain.Window, error) {
	index := o.windowCursor % len(windows)
	o.windowCursor = index + 1
	window := windows[index]

	if err := o.pacer.AwaitOperationSlot(ctx); err != nil {
		return domain.Window{}, err
	}
	if err := o.surface.SetFocus(ctx, window.Control); err != nil {
		return domain.Window{}, fmt.Errorf("focus window %d: %w", index+1, err)
	}
	logger.Info("switched window", zap.Int("index", index+1), zap.Int("total", len(windows)))

	if err := o.pacer.Clock().Sleep(ctx, time.Second); err != nil {
		return domain.Window{}, err
	}

	rect, err := o.surface.BoundingRect(ctx, window)
	if err != nil {
		logger.Warn("read window bounds", zap.Error(err))
		return window, nil
	}
	if err := o.surface.ClickAt(ctx, rect.Left+leftRegionOffset, rect.CenterY()); err != nil {
		logger.Warn("click left region", zap.Error(err))
		return window, nil
	}
	if err := o.pacer.Pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		return domain.Window{}, err
	}
	if err := o.surface.SendKeys(ctx, chatTabKeys); err != nil {
		logger.Warn("open chat tab", zap.Error(err))
		return window, nil
	}
	if err := o.pacer.Pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		return domain.Window{}, err
	}

	return window, nil
}

func (o *Orchestrator) record(outcome domain.CycleOutcome) {
	o.stats.Cycles++
	o.stats.LastOutcome = outcome

	switch outcome.Kind {
	case domain.OutcomeReplied:
		o.stats.Replies++
		o.stats.LastRepliedTo = outcome.Contact
	case domain.OutcomeSendCancelled:
		o.stats.Cancelled++
	case domain.OutcomeError:
		o.stats.Errors++
	case domain.OutcomeNoWindow:
		o.stats.NoWindow++
	case domain.OutcomeSwitchFailed:
		o.stats.SwitchFailed++
	case domain.OutcomeNoEligibleContact:
		o.stats.Idle++
	}
}
