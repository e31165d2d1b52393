package scripted

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/greetreply/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	LayoutSessionList = "session_list"
	LayoutListBoxPane = "listbox_pane"
	LayoutLeftRegion  = "left_region"
	LayoutChildScan   = "child_scan"
	LayoutNone        = "none"
)

// Scenario describes the chat client state the scripted surface exposes.
type Scenario struct {
	ListError   string       `yaml:"list_error,omitempty"`
	PressedKeys []string     `yaml:"pressed_keys,omitempty"`
	Windows     []WindowSpec `yaml:"windows"`
}

type WindowSpec struct {
	Handle      string      `yaml:"handle"`
	Title       string      `yaml:"title,omitempty"`
	ClassName   string      `yaml:"class_name,omitempty"`
	Rect        RectSpec    `yaml:"rect"`
	Maximized   bool        `yaml:"maximized,omitempty"`
	FocusFails  bool        `yaml:"focus_fails,omitempty"`
	CommitFails bool        `yaml:"commit_fails,omitempty"`
	Layout      string      `yaml:"layout,omitempty"`
	Entries     []EntrySpec `yaml:"entries,omitempty"`
}

type RectSpec struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
}

type EntrySpec struct {
	Label        string   `yaml:"label"`
	Preview      string   `yaml:"preview,omitempty"`
	Messages     []string `yaml:"messages,omitempty"`
	ClickFails   []string `yaml:"click_fails,omitempty"`
	StickyUnread bool     `yaml:"sticky_unread,omitempty"`
}

func Load(path string) (*Surface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	scenario, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return New(scenario), nil
}

func Parse(data []byte) (Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return Scenario{}, err
	}

	return scenario, nil
}

func (s Scenario) Validate() error {
	seen := map[string]struct{}{}
	for i, window := range s.Windows {
		handle := strings.TrimSpace(window.Handle)
		if handle == "" {
			return fmt.Errorf("window %d: handle is required", i+1)
		}
		if strings.Contains(handle, "/") {
			return fmt.Errorf("window %q: handle must not contain '/'", handle)
		}
		if _, ok := seen[handle]; ok {
			return fmt.Errorf("window %q: duplicate handle", handle)
		}
		seen[handle] = struct{}{}

		switch window.Layout {
		case "", LayoutSessionList, LayoutListBoxPane, LayoutLeftRegion, LayoutChildScan, LayoutNone:
		default:
			return fmt.Errorf("window %q: unknown layout %q", handle, window.Layout)
		}

		for j, entry := range window.Entries {
			if entry.Label == "" {
				return fmt.Errorf("window %q entry %d: label is required", handle, j+1)
			}
			for _, mode := range entry.ClickFails {
				switch domain.ClickMode(mode) {
				case domain.ClickPrimary, domain.ClickSimulated:
				default:
					return fmt.Errorf("window %q entry %d: unknown click mode %q", handle, j+1, mode)
				}
			}
		}
	}

	if len(s.Windows) == 0 && s.ListError == "" {
		return errors.New("scenario declares no windows")
	}

	return nil
}
