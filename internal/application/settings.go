package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/greetreply/internal/domain"
)

const (
	DefaultWindowClass = "WeChatMainWndForPC"
	DefaultModel       = "deepseek-r1:8b"

	// PersonaLengthLimit is the reply length DefaultPersona asks the model for.
	PersonaLengthLimit = 40

	// DefaultMaxRunes is the hard cut on a generated reply. It is deliberately
	// looser than PersonaLengthLimit: the prompt asks, the cut enforces.
	DefaultMaxRunes = 60
)

type Timing struct {
	ReplyInterval        time.Duration
	MinOperationInterval time.Duration
	CheckIntervalMin     time.Duration
	CheckIntervalMax     time.Duration
	BackoffThreshold     int
	BackoffCap           time.Duration
	CancelWindow         time.Duration
	CancelPoll           time.Duration
}

type ReplySettings struct {
	Persona         string
	GratitudeTokens []string
	Fallback        string
	MaxRunes        int
}

type Settings struct {
	WindowClass string
	Model       string
	Keywords    []string
	Reply       ReplySettings
	Filter      domain.AccountFilter
	CancelKeys  []string
	Timing      Timing
}

func DefaultSettings() Settings {
	return Settings{
		WindowClass: DefaultWindowClass,
		Model:       DefaultModel,
		Keywords:    append([]string(nil), domain.DefaultGreetingKeywords...),
		Reply: ReplySettings{
			Persona:         DefaultPersona,
			GratitudeTokens: append([]string(nil), domain.DefaultGratitudeTokens...),
			Fallback:        domain.DefaultFallbackReply,
			MaxRunes:        DefaultMaxRunes,
		},
		Filter:     domain.DefaultAccountFilter(),
		CancelKeys: []string{domain.KeyControl, "Q"},
		Timing: Timing{
			ReplyInterval:        60 * time.Second,
			MinOperationInterval: 2 * time.Second,
			CheckIntervalMin:     8 * time.Second,
			CheckIntervalMax:     15 * time.Second,
			BackoffThreshold:     3,
			BackoffCap:           300 * time.Second,
			CancelWindow:         3 * time.Second,
			CancelPoll:           100 * time.Millisecond,
		},
	}
}

func (s Settings) Validate() error {
	var errs []error

	if strings.TrimSpace(s.WindowClass) == "" {
		errs = append(errs, errors.New("window class is required"))
	}
	if strings.TrimSpace(s.Model) == "" {
		errs = append(errs, errors.New("generation model is required"))
	}
	if strings.TrimSpace(s.Reply.Fallback) == "" {
		errs = append(errs, errors.New("fallback reply is required"))
	}
	if s.Reply.MaxRunes <= 0 {
		errs = append(errs, fmt.Errorf("reply max runes must be > 0, got %d", s.Reply.MaxRunes))
	}
	if len(s.CancelKeys) == 0 {
		errs = append(errs, errors.New("at least one cancel key is required"))
	}

	t := s.Timing
	for _, check := range []struct {
		name string
		d    time.Duration
	}{
		{"reply interval", t.ReplyInterval},
		{"check interval min", t.CheckIntervalMin},
		{"check interval max", t.CheckIntervalMax},
		{"backoff cap", t.BackoffCap},
		{"cancel window", t.CancelWindow},
		{"cancel poll", t.CancelPoll},
	} {
		if check.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", check.name))
		}
	}
	if t.MinOperationInterval < 0 {
		errs = append(errs, errors.New("min operation interval must be >= 0"))
	}
	if t.CheckIntervalMax < t.CheckIntervalMin {
		errs = append(errs, fmt.Errorf("check interval max %s is below min %s", t.CheckIntervalMax, t.CheckIntervalMin))
	}
	if t.BackoffThreshold < 1 {
		errs = append(errs, fmt.Errorf("backoff threshold must be >= 1, got %d", t.BackoffThreshold))
	}

	return errors.Join(errs...)
}
