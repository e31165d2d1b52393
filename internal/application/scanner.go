package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
	"go.uber.org/zap"
)

const (
	sessionListName = "会话"
	leftRegionName  = "左侧区域"
	messageListName = "消息"
)

var panelClassNames = []string{"ListBox", "List", "ListView"}

// Candidate is the first conversation of a scan that passed every filter.
type Candidate struct {
	Contact domain.ContactID
	Message string
	Entry   domain.Entry
}

type panelStrategy struct {
	name string
	find func(ctx context.Context, surface ports.Surface, window domain.Window) (domain.Control, error)
}

// panelStrategies locate the conversation list; the first one that succeeds wins.
var panelStrategies = []panelStrategy{
	{
		name: "session list",
		find: func(ctx context.Context, surface ports.Surface, window domain.Window) (domain.Control, error) {
			return surface.FindControl(ctx, window.Control, domain.Selector{Name: sessionListName, Role: domain.RoleList})
		},
	},
	{
		name: "listbox pane",
		find: func(ctx context.Context, surface ports.Surface, window domain.Window) (domain.Control, error) {
			return surface.FindControl(ctx, window.Control, domain.Selector{ClassName: "ListBox", Role: domain.RolePane})
		},
	},
	{
		name: "left region",
		find: func(ctx context.Context, surface ports.Surface, window domain.Window) (domain.Control, error) {
			left, err := surface.FindControl(ctx, window.Control, domain.Selector{Name: leftRegionName, Role: domain.RolePane})
			if err != nil {
				return domain.Control{}, err
			}
			return surface.FindControl(ctx, left, domain.Selector{Role: domain.RoleList})
		},
	},
	{
		name: "child scan",
		find: func(ctx context.Context, surface ports.Surface, window domain.Window) (domain.Control, error) {
			children, err := surface.Children(ctx, window.Control)
			if err != nil {
				return domain.Control{}, err
			}
			for _, child := range children {
				for _, className := range panelClassNames {
					if child.ClassName == className {
						return child, nil
					}
				}
			}
			return domain.Control{}, domain.ErrElementNotFound
		},
	},
}

// Scanner walks the conversation list of one window and opens the first
// unread, eligible greeting.
type Scanner struct {
	surface       ports.Surface
	classifier    *Classifier
	ledger        *domain.ReplyLedger
	filter        domain.AccountFilter
	replyInterval time.Duration
	pacer         *Pacer
	logger        *zap.Logger
}

func NewScanner(surface ports.Surface, classifier *Classifier, ledger *domain.ReplyLedger, filter domain.AccountFilter, replyInterval time.Duration, pacer *Pacer, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scanner{
		surface:       surface,
		classifier:    classifier,
		ledger:        ledger,
		filter:        filter,
		replyInterval: replyInterval,
		pacer:         pacer,
		logger:        logger,
	}
}

// Scan returns nil without error when no entry qualifies. Failures on a
// single entry are logged and the scan moves on; only a missing panel or an
// unreadable entry list fails the scan.
func (s *Scanner) Scan(ctx context.Context, window domain.Window) (*Candidate, error) {
	panel, err := s.locatePanel(ctx, window)
	if err != nil {
		return nil, err
	}

	items, err := s.surface.Children(ctx, panel)
	if err != nil {
		return nil, fmt.Errorf("list conversation entries: %w", err)
	}
	s.logger.Debug("conversation entries found", zap.Int("count", len(items)))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := domain.Entry{Label: item.Name, Preview: item.Value, Control: item}
		candidate, err := s.inspect(ctx, window, entry)
		if err != nil {
			s.logger.Warn("skip conversation entry",
				zap.Int("index", i),
				zap.String("label", entry.Label),
				zap.Error(err))
			continue
		}
		if candidate != nil {
			return candidate, nil
		}
	}

	return nil, nil
}

func (s *Scanner) locatePanel(ctx context.Context, window domain.Window) (domain.Control, error) {
	var errs []error
	for _, strategy := range panelStrategies {
		panel, err := strategy.find(ctx, s.surface, window)
		if err == nil {
			s.logger.Debug("conversation panel located", zap.String("strategy", strategy.name))
			return panel, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", strategy.name, err))
	}

	return domain.Control{}, fmt.Errorf("locate conversation panel: %w: %w", domain.ErrElementNotFound, errors.Join(errs...))
}

// inspect applies every filter to one entry. It returns a nil candidate with a
// nil error when the entry is simply not eligible.
func (s *Scanner) inspect(ctx context.Context, window domain.Window, entry domain.Entry) (*Candidate, error) {
	if entry.Label == "" {
		return nil, nil
	}

	parsed := domain.ParseEntryLabel(entry.Label)
	if s.filter.IsSpecial(entry.Label, parsed.Contact) {
		s.logger.Info("skip special account", zap.String("label", entry.Label))
		return nil, nil
	}
	if !parsed.Unread {
		return nil, nil
	}
	if s.filter.IsGroup(entry.Label, entry.Preview) {
		s.logger.Info("skip group chat", zap.String("label", entry.Label), zap.String("preview", entry.Preview))
		return nil, nil
	}

	contact := parsed.Contact
	s.logger.Info("unread conversation found", zap.String("contact", string(contact)))

	if wait := s.ledger.Remaining(contact, s.pacer.Clock().Now(), s.replyInterval); wait > 0 {
		s.logger.Info("contact throttled",
			zap.String("contact", string(contact)),
			zap.Duration("remaining", wait))
		return nil, nil
	}

	if err := s.openEntry(ctx, window, entry); err != nil {
		return nil, err
	}

	message, err := s.latestMessage(ctx, window)
	if err != nil {
		return nil, err
	}

	if !s.classifier.IsGreeting(ctx, message) {
		s.logger.Info("not a greeting, skipping",
			zap.String("contact", string(contact)),
			zap.String("message", message))
		return nil, nil
	}

	return &Candidate{Contact: contact, Message: message, Entry: entry}, nil
}

func (s *Scanner) openEntry(ctx context.Context, window domain.Window, entry domain.Entry) error {
	if err := s.pacer.AwaitOperationSlot(ctx); err != nil {
		return err
	}

	if err := s.surface.SetFocus(ctx, window.Control); err != nil {
		s.logger.Warn("focus window before opening entry", zap.Error(err))
	}
	if err := s.pacer.Pause(ctx, 300*time.Millisecond, 800*time.Millisecond); err != nil {
		return err
	}

	if err := s.surface.SetFocus(ctx, entry.Control); err != nil {
		s.logger.Warn("focus conversation entry", zap.String("label", entry.Label), zap.Error(err))
	}
	if err := s.pacer.Pause(ctx, 200*time.Millisecond, 500*time.Millisecond); err != nil {
		return err
	}

	primaryErr := s.surface.Click(ctx, entry.Control, domain.ClickPrimary)
	if primaryErr != nil {
		s.logger.Debug("primary click failed, retrying with simulated move", zap.Error(primaryErr))
		if err := s.pacer.Pause(ctx, 100*time.Millisecond, 300*time.Millisecond); err != nil {
			return err
		}
		if err := s.surface.Click(ctx, entry.Control, domain.ClickSimulated); err != nil {
			return fmt.Errorf("open conversation %q: %w", entry.Label, errors.Join(primaryErr, err))
		}
	}

	return s.pacer.Pause(ctx, 1500*time.Millisecond, 2500*time.Millisecond)
}

func (s *Scanner) latestMessage(ctx context.Context, window domain.Window) (string, error) {
	if err := s.pacer.Clock().Sleep(ctx, time.Second); err != nil {
		return "", err
	}

	list, err := s.surface.FindControl(ctx, window.Control, domain.Selector{Name: messageListName, Role: domain.RoleList})
	if err != nil {
		return "", fmt.Errorf("find message list: %w", err)
	}

	messages, err := s.surface.Children(ctx, list)
	if err != nil {
		return "", fmt.Errorf("read message list: %w", err)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("message list is empty: %w", domain.ErrElementNotFound)
	}

	latest := strings.TrimSpace(messages[len(messages)-1].Name)
	if latest == "" {
		return "", fmt.Errorf("latest message has no text: %w", domain.ErrElementNotFound)
	}

	return latest, nil
}
