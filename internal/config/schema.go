package config

import (
	"fmt"
	"time"

	"github.com/bnema/greetreply/internal/application"
	"github.com/bnema/greetreply/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version    int              `toml:"version" mapstructure:"version"`
	Window     windowSchema     `toml:"window" mapstructure:"window"`
	Timing     timingSchema     `toml:"timing" mapstructure:"timing"`
	Generation generationSchema `toml:"generation" mapstructure:"generation"`
	Classifier classifierSchema `toml:"classifier" mapstructure:"classifier"`
	Reply      replySchema      `toml:"reply" mapstructure:"reply"`
	Filters    filtersSchema    `toml:"filters" mapstructure:"filters"`
	Send       sendSchema       `toml:"send" mapstructure:"send"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported config schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type windowSchema struct {
	ClassName string `toml:"class_name" mapstructure:"class_name"`
}

type timingSchema struct {
	ReplyInterval        string `toml:"reply_interval" mapstructure:"reply_interval"`
	MinOperationInterval string `toml:"min_operation_interval" mapstructure:"min_operation_interval"`
	CheckIntervalMin     string `toml:"check_interval_min" mapstructure:"check_interval_min"`
	CheckIntervalMax     string `toml:"check_interval_max" mapstructure:"check_interval_max"`
	BackoffThreshold     int    `toml:"backoff_threshold" mapstructure:"backoff_threshold"`
	BackoffCap           string `toml:"backoff_cap" mapstructure:"backoff_cap"`
	CancelWindow         string `toml:"cancel_window" mapstructure:"cancel_window"`
	CancelPoll           string `toml:"cancel_poll" mapstructure:"cancel_poll"`
}

type generationSchema struct {
	Host    string `toml:"host" mapstructure:"host"`
	Model   string `toml:"model" mapstructure:"model"`
	Timeout string `toml:"timeout" mapstructure:"timeout"`
}

type classifierSchema struct {
	Keywords []string `toml:"keywords" mapstructure:"keywords"`
}

type replySchema struct {
	GratitudeTokens []string `toml:"gratitude_tokens" mapstructure:"gratitude_tokens"`
	Fallback        string   `toml:"fallback" mapstructure:"fallback"`
	MaxRunes        int      `toml:"max_runes" mapstructure:"max_runes"`
	Persona         string   `toml:"persona,multiline" mapstructure:"persona"`
}

type filtersSchema struct {
	SpecialAccounts        []string `toml:"special_accounts" mapstructure:"special_accounts"`
	SkipGroups             bool     `toml:"skip_groups" mapstructure:"skip_groups"`
	GroupNameIndicators    []string `toml:"group_name_indicators" mapstructure:"group_name_indicators"`
	GroupPreviewIndicators []string `toml:"group_preview_indicators" mapstructure:"group_preview_indicators"`
}

type sendSchema struct {
	CancelKeys []string `toml:"cancel_keys" mapstructure:"cancel_keys"`
}

func toSchema(cfg Config) fileSchema {
	s := cfg.Settings
	t := s.Timing

	return fileSchema{
		Version: currentSchemaVersion,
		Window:  windowSchema{ClassName: s.WindowClass},
		Timing: timingSchema{
			ReplyInterval:        formatDuration(t.ReplyInterval),
			MinOperationInterval: formatDuration(t.MinOperationInterval),
			CheckIntervalMin:     formatDuration(t.CheckIntervalMin),
			CheckIntervalMax:     formatDuration(t.CheckIntervalMax),
			BackoffThreshold:     t.BackoffThreshold,
			BackoffCap:           formatDuration(t.BackoffCap),
			CancelWindow:         formatDuration(t.CancelWindow),
			CancelPoll:           formatDuration(t.CancelPoll),
		},
		Generation: generationSchema{
			Host:    cfg.Generation.Host,
			Model:   s.Model,
			Timeout: formatDuration(cfg.Generation.Timeout),
		},
		Classifier: classifierSchema{Keywords: cloneStrings(s.Keywords)},
		Reply: replySchema{
			GratitudeTokens: cloneStrings(s.Reply.GratitudeTokens),
			Fallback:        s.Reply.Fallback,
			MaxRunes:        s.Reply.MaxRunes,
			Persona:         s.Reply.Persona,
		},
		Filters: filtersSchema{
			SpecialAccounts:        cloneStrings(s.Filter.SpecialAccounts),
			SkipGroups:             s.Filter.SkipGroups,
			GroupNameIndicators:    cloneStrings(s.Filter.GroupNameIndicators),
			GroupPreviewIndicators: cloneStrings(s.Filter.GroupPreviewIndicators),
		},
		Send: sendSchema{CancelKeys: cloneStrings(s.CancelKeys)},
	}
}

func fromSchema(file fileSchema) (Config, error) {
	var parser durationParser
	timing := application.Timing{
		ReplyInterval:        parser.parse("timing.reply_interval", file.Timing.ReplyInterval),
		MinOperationInterval: parser.parse("timing.min_operation_interval", file.Timing.MinOperationInterval),
		CheckIntervalMin:     parser.parse("timing.check_interval_min", file.Timing.CheckIntervalMin),
		CheckIntervalMax:     parser.parse("timing.check_interval_max", file.Timing.CheckIntervalMax),
		BackoffThreshold:     file.Timing.BackoffThreshold,
		BackoffCap:           parser.parse("timing.backoff_cap", file.Timing.BackoffCap),
		CancelWindow:         parser.parse("timing.cancel_window", file.Timing.CancelWindow),
		CancelPoll:           parser.parse("timing.cancel_poll", file.Timing.CancelPoll),
	}
	timeout := parser.parse("generation.timeout", file.Generation.Timeout)
	if parser.err != nil {
		return Config{}, parser.err
	}

	return Config{
		Settings: application.Settings{
			WindowClass: file.Window.ClassName,
			Model:       file.Generation.Model,
			Keywords:    cloneStrings(file.Classifier.Keywords),
			Reply: application.ReplySettings{
				Persona:         file.Reply.Persona,
				GratitudeTokens: cloneStrings(file.Reply.GratitudeTokens),
				Fallback:        file.Reply.Fallback,
				MaxRunes:        file.Reply.MaxRunes,
			},
			Filter: domain.AccountFilter{
				SpecialAccounts:        cloneStrings(file.Filters.SpecialAccounts),
				SkipGroups:             file.Filters.SkipGroups,
				GroupNameIndicators:    cloneStrings(file.Filters.GroupNameIndicators),
				GroupPreviewIndicators: cloneStrings(file.Filters.GroupPreviewIndicators),
			},
			CancelKeys: cloneStrings(file.Send.CancelKeys),
			Timing:     timing,
		},
		Generation: Generation{
			Host:    file.Generation.Host,
			Timeout: timeout,
		},
	}, nil
}

// durationParser keeps the first parse failure so a schema converts in one pass.
type durationParser struct {
	err error
}

func (p *durationParser) parse(key, raw string) time.Duration {
	if p.err != nil || raw == "" {
		return 0
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return 0
	}

	return d
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	return d.String()
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}

	return append([]string(nil), values...)
}
