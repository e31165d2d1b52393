package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
	"go.uber.org/zap"
)

type SendResult string

const (
	SendSent      SendResult = "sent"
	SendCancelled SendResult = "cancelled"
	SendFailed    SendResult = "failed"
)

// inputOffset is the distance from the bottom-right window corner to the
// message input area.
const inputOffset = 100

// Sender types a reply into the open conversation, gives the operator a
// cancellation window and commits. It is the only writer of the reply ledger.
type Sender struct {
	surface      ports.Surface
	ledger       *domain.ReplyLedger
	pacer        *Pacer
	notifier     ports.Notifier
	cancelKeys   []string
	cancelWindow time.Duration
	cancelPoll   time.Duration
	logger       *zap.Logger
}

func NewSender(surface ports.Surface, ledger *domain.ReplyLedger, pacer *Pacer, notifier ports.Notifier, cancelKeys []string, timing Timing, logger *zap.Logger) *Sender {
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		surface:      surface,
		ledger:       ledger,
		pacer:        pacer,
		notifier:     notifier,
		cancelKeys:   cancelKeys,
		cancelWindow: timing.CancelWindow,
		cancelPoll:   timing.CancelPoll,
		logger:       logger,
	}
}

func (s *Sender) Send(ctx context.Context, window domain.Window, contact domain.ContactID, message string) (SendResult, error) {
	if err := s.pacer.AwaitOperationSlot(ctx); err != nil {
		return SendFailed, err
	}

	if err := s.ensureMaximized(ctx, window); err != nil {
		return SendFailed, err
	}

	rect, err := s.surface.BoundingRect(ctx, window)
	if err != nil {
		return SendFailed, fmt.Errorf("read window bounds: %w", err)
	}
	if err := s.surface.ClickAt(ctx, rect.Right-inputOffset, rect.Bottom-inputOffset); err != nil {
		return SendFailed, fmt.Errorf("focus input area: %w", err)
	}
	if err := s.pacer.Clock().Sleep(ctx, 500*time.Millisecond); err != nil {
		return SendFailed, err
	}

	if err := s.typeMessage(ctx, message); err != nil {
		return SendFailed, err
	}
	if err := s.pacer.Pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		return SendFailed, err
	}

	s.logger.Info("reply typed, waiting for cancellation window",
		zap.String("contact", string(contact)),
		zap.Duration("window", s.cancelWindow))
	s.notifier.PendingSend(contact, message, s.cancelWindow, s.cancelKeys)

	cancelled, err := s.awaitCancellation(ctx)
	if err != nil {
		return SendFailed, err
	}
	if cancelled {
		s.logger.Info("send cancelled by operator", zap.String("contact", string(contact)))
		s.notifier.SendCancelled(contact)
		return SendCancelled, fmt.Errorf("reply to %q: %w", contact, domain.ErrSendCancelled)
	}

	if err := s.pacer.Pause(ctx, 300*time.Millisecond, 800*time.Millisecond); err != nil {
		return SendFailed, err
	}
	if err := s.surface.SendKeys(ctx, domain.KeyEnter); err != nil {
		return SendFailed, fmt.Errorf("commit reply: %w", err)
	}

	s.ledger.Record(contact, s.pacer.Clock().Now())
	s.logger.Info("reply sent", zap.String("contact", string(contact)))
	s.notifier.Sent(contact)

	return SendSent, nil
}

func (s *Sender) ensureMaximized(ctx context.Context, window domain.Window) error {
	maximized, err := s.surface.IsMaximized(ctx, window)
	if err != nil {
		s.logger.Debug("read window state", zap.Error(err))
	}
	if maximized && err == nil {
		return nil
	}

	if err := s.surface.Maximize(ctx, window); err != nil {
		s.logger.Warn("maximize window", zap.Error(err))
	}
	return s.pacer.Pause(ctx, 500*time.Millisecond, time.Second)
}

func (s *Sender) typeMessage(ctx context.Context, message string) error {
	for _, r := range message {
		if err := s.surface.SendKeys(ctx, keystroke(r)); err != nil {
			return fmt.Errorf("type reply: %w", err)
		}
		if err := s.pacer.Pause(ctx, 50*time.Millisecond, 150*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// awaitCancellation samples the cancel hotkey for the whole cancellation window.
func (s *Sender) awaitCancellation(ctx context.Context) (bool, error) {
	ticks := int(s.cancelWindow / s.cancelPoll)
	if ticks < 1 {
		ticks = 1
	}

	for range ticks {
		if s.cancelPressed(ctx) {
			return true, nil
		}
		if err := s.pacer.Clock().Sleep(ctx, s.pacer.Jitter(s.cancelPoll, 0.8, 1.2)); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *Sender) cancelPressed(ctx context.Context) bool {
	for _, key := range s.cancelKeys {
		pressed, err := s.surface.IsKeyPressed(ctx, key)
		if err != nil {
			s.logger.Debug("read key state", zap.String("key", key), zap.Error(err))
			return false
		}
		if !pressed {
			return false
		}
	}
	return len(s.cancelKeys) > 0
}

// keystroke maps one rune of the reply to a key-send sequence. Newlines become
// the commit key; braces are escaped because they delimit key names.
func keystroke(r rune) string {
	switch r {
	case '\n':
		return domain.KeyEnter
	case '{':
		return "{{}"
	case '}':
		return "{}}"
	default:
		return string(r)
	}
}
