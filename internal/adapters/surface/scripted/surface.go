package scripted

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/ports"
)

const defaultClassName = "WeChatMainWndForPC"

// Action is one recorded call against the surface.
type Action struct {
	Kind   string
	Target string
	Detail string
}

// SentMessage is a reply committed into a conversation.
type SentMessage struct {
	Window  string
	Contact string
	Text    string
}

type nodeKind int

const (
	kindWindow nodeKind = iota
	kindRegion
	kindPanel
	kindEntry
	kindMessageList
	kindMessage
)

type node struct {
	kind     nodeKind
	control  domain.Control
	window   *windowState
	entry    *entryState
	children []*node
}

type windowState struct {
	spec      WindowSpec
	root      *node
	maximized bool
	open      *entryState
	scratch   strings.Builder // keystrokes while no conversation is open
}

// draft is the input box of the open conversation. Each conversation keeps
// its own draft, so switching conversations never carries text over.
func (w *windowState) draft() *strings.Builder {
	if w.open != nil {
		return &w.open.draft
	}
	return &w.scratch
}

type entryState struct {
	spec     EntrySpec
	label    string
	messages []string
	draft    strings.Builder
	node     *node
}

// Surface is an in-memory automation surface driven by a Scenario. It
// records every action so runs can be inspected afterwards.
type Surface struct {
	mu      sync.Mutex
	listErr error
	windows []*windowState
	nodes   map[string]*node
	pressed map[string]bool
	focused *windowState
	journal []Action
	sent    []SentMessage
}

var _ ports.Surface = (*Surface)(nil)

func New(scenario Scenario) *Surface {
	s := &Surface{
		nodes:   map[string]*node{},
		pressed: map[string]bool{},
	}
	if scenario.ListError != "" {
		s.listErr = errors.New(scenario.ListError)
	}
	for _, key := range scenario.PressedKeys {
		s.pressed[key] = true
	}
	for _, spec := range scenario.Windows {
		s.windows = append(s.windows, s.buildWindow(spec))
	}

	return s
}

func (s *Surface) buildWindow(spec WindowSpec) *windowState {
	if spec.ClassName == "" {
		spec.ClassName = defaultClassName
	}
	w := &windowState{spec: spec, maximized: spec.Maximized}

	w.root = s.add(&node{kind: kindWindow, window: w, control: domain.Control{
		Handle:    spec.Handle,
		Name:      spec.Title,
		ClassName: spec.ClassName,
		Role:      domain.RoleWindow,
	}})

	var panel *node
	switch spec.Layout {
	case "", LayoutSessionList:
		panel = s.child(w.root, kindPanel, domain.Control{Handle: spec.Handle + "/panel", Name: "会话", Role: domain.RoleList})
	case LayoutListBoxPane:
		panel = s.child(w.root, kindPanel, domain.Control{Handle: spec.Handle + "/panel", ClassName: "ListBox", Role: domain.RolePane})
	case LayoutLeftRegion:
		region := s.child(w.root, kindRegion, domain.Control{Handle: spec.Handle + "/left", Name: "左侧区域", Role: domain.RolePane})
		panel = s.child(region, kindPanel, domain.Control{Handle: spec.Handle + "/left/panel", Role: domain.RoleList})
	case LayoutChildScan:
		panel = s.child(w.root, kindPanel, domain.Control{Handle: spec.Handle + "/panel", ClassName: "ListView", Role: domain.RolePane})
	}

	if panel != nil {
		for i, entrySpec := range spec.Entries {
			entry := &entryState{
				spec:     entrySpec,
				label:    entrySpec.Label,
				messages: append([]string(nil), entrySpec.Messages...),
			}
			entry.node = s.child(panel, kindEntry, domain.Control{
				Handle: panel.control.Handle + "/" + strconv.Itoa(i),
				Role:   domain.RoleItem,
			})
			entry.node.entry = entry
		}
	}

	s.child(w.root, kindMessageList, domain.Control{Handle: spec.Handle + "/messages", Name: "消息", Role: domain.RoleList})

	return w
}

func (s *Surface) add(n *node) *node {
	s.nodes[n.control.Handle] = n
	return n
}

func (s *Surface) child(parent *node, kind nodeKind, control domain.Control) *node {
	n := s.add(&node{kind: kind, control: control, window: parent.window})
	parent.children = append(parent.children, n)
	return n
}

// snapshot renders the current state of n as a Control.
func (s *Surface) snapshot(n *node) domain.Control {
	control := n.control
	if n.kind == kindEntry {
		control.Name = n.entry.label
		control.Value = n.entry.spec.Preview
	}
	return control
}

func (s *Surface) childrenOf(n *node) []*node {
	if n.kind != kindMessageList {
		return n.children
	}

	open := n.window.open
	if open == nil {
		return nil
	}
	messages := make([]*node, 0, len(open.messages))
	for i, text := range open.messages {
		messages = append(messages, &node{kind: kindMessage, window: n.window, control: domain.Control{
			Handle: n.control.Handle + "/" + strconv.Itoa(i),
			Name:   text,
			Role:   domain.RoleText,
		}})
	}
	return messages
}

func (s *Surface) lookup(control domain.Control) (*node, error) {
	n, ok := s.nodes[control.Handle]
	if !ok {
		return nil, fmt.Errorf("control %q: %w", control.Handle, domain.ErrElementNotFound)
	}
	return n, nil
}

func (s *Surface) record(kind, target, detail string) {
	s.journal = append(s.journal, Action{Kind: kind, Target: target, Detail: detail})
}

func (s *Surface) ListWindows(ctx context.Context, className string) ([]domain.Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, fmt.Errorf("enumerate windows: %w", s.listErr)
	}

	windows := make([]domain.Window, 0, len(s.windows))
	for _, w := range s.windows {
		if className != "" && w.spec.ClassName != className {
			continue
		}
		windows = append(windows, domain.Window{Control: s.snapshot(w.root), Title: w.spec.Title})
	}
	return windows, nil
}

func (s *Surface) FindControl(ctx context.Context, root domain.Control, sel domain.Selector) (domain.Control, error) {
	if err := ctx.Err(); err != nil {
		return domain.Control{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start, err := s.lookup(root)
	if err != nil {
		return domain.Control{}, err
	}

	queue := slices.Clone(s.childrenOf(start))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		control := s.snapshot(n)
		if sel.Matches(control) {
			return control, nil
		}
		queue = append(queue, s.childrenOf(n)...)
	}

	return domain.Control{}, fmt.Errorf("find %+v under %q: %w", sel, root.Handle, domain.ErrElementNotFound)
}

func (s *Surface) Children(ctx context.Context, parent domain.Control) ([]domain.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(parent)
	if err != nil {
		return nil, err
	}

	children := s.childrenOf(n)
	controls := make([]domain.Control, 0, len(children))
	for _, child := range children {
		controls = append(controls, s.snapshot(child))
	}
	return controls, nil
}

func (s *Surface) Click(ctx context.Context, target domain.Control, mode domain.ClickMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(target)
	if err != nil {
		return err
	}

	if n.kind == kindEntry && slices.Contains(n.entry.spec.ClickFails, string(mode)) {
		s.record("click_failed", target.Handle, string(mode))
		return fmt.Errorf("click %q (%s): %w", target.Handle, mode, domain.ErrInteractionFailed)
	}

	s.record("click", target.Handle, string(mode))
	if n.kind == kindEntry {
		n.window.open = n.entry
		if !n.entry.spec.StickyUnread {
			n.entry.label = string(domain.ParseEntryLabel(n.entry.label).Contact)
		}
	}
	return nil
}

func (s *Surface) ClickAt(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.record("click_at", "", strconv.Itoa(x)+","+strconv.Itoa(y))
	return nil
}

func (s *Surface) SetFocus(ctx context.Context, target domain.Control) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(target)
	if err != nil {
		return err
	}
	if n.window.spec.FocusFails {
		s.record("focus_failed", target.Handle, "")
		return fmt.Errorf("focus %q: %w", target.Handle, domain.ErrInteractionFailed)
	}

	s.record("focus", target.Handle, "")
	s.focused = n.window
	return nil
}

func (s *Surface) SendKeys(ctx context.Context, keys string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.focused
	if w == nil {
		return fmt.Errorf("send keys %q without a focused window: %w", keys, domain.ErrInteractionFailed)
	}

	switch keys {
	case domain.KeyEnter:
		if w.spec.CommitFails {
			s.record("keys_failed", w.spec.Handle, keys)
			return fmt.Errorf("send keys %q: %w", keys, domain.ErrInteractionFailed)
		}
		s.record("keys", w.spec.Handle, keys)
		s.commit(w)
	case "{{}":
		s.record("keys", w.spec.Handle, keys)
		w.draft().WriteString("{")
	case "{}}":
		s.record("keys", w.spec.Handle, keys)
		w.draft().WriteString("}")
	default:
		s.record("keys", w.spec.Handle, keys)
		if !strings.HasPrefix(keys, "{") {
			w.draft().WriteString(keys)
		}
	}
	return nil
}

func (s *Surface) commit(w *windowState) {
	draft := w.draft()
	text := draft.String()
	draft.Reset()
	if text == "" || w.open == nil {
		return
	}

	contact := string(domain.ParseEntryLabel(w.open.spec.Label).Contact)
	w.open.messages = append(w.open.messages, text)
	s.sent = append(s.sent, SentMessage{Window: w.spec.Handle, Contact: contact, Text: text})
}

func (s *Surface) IsKeyPressed(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pressed[key], nil
}

func (s *Surface) BoundingRect(ctx context.Context, window domain.Window) (domain.Rect, error) {
	if err := ctx.Err(); err != nil {
		return domain.Rect{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(window.Control)
	if err != nil {
		return domain.Rect{}, err
	}

	r := n.window.spec.Rect
	return domain.Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}, nil
}

func (s *Surface) IsMaximized(ctx context.Context, window domain.Window) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(window.Control)
	if err != nil {
		return false, err
	}
	return n.window.maximized, nil
}

func (s *Surface) Maximize(ctx context.Context, window domain.Window) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(window.Control)
	if err != nil {
		return err
	}

	s.record("maximize", window.Handle, "")
	n.window.maximized = true
	return nil
}

// PressKeys marks keys as held down until ReleaseKeys is called.
func (s *Surface) PressKeys(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.pressed[key] = true
	}
}

func (s *Surface) ReleaseKeys(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.pressed, key)
	}
}

// SetListError makes every following ListWindows call fail with err (nil clears it).
func (s *Surface) SetListError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listErr = err
}

func (s *Surface) Journal() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.journal)
}

func (s *Surface) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.sent)
}

// Input returns the uncommitted draft of the conversation open in a window.
func (s *Surface) Input(handle string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.windows {
		if w.spec.Handle == handle {
			return w.draft().String()
		}
	}
	return ""
}
