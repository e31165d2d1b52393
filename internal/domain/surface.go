package domain

type Role string

const (
	RoleWindow Role = "window"
	RoleList   Role = "list"
	RolePane   Role = "pane"
	RoleItem   Role = "list_item"
	RoleText   Role = "text"
)

// Control is a transient reference to one element of the automation tree.
// Handle is only meaningful to the surface that produced it.
type Control struct {
	Handle    string
	Name      string
	ClassName string
	Role      Role
	Value     string
}

// Window is one top-level application window.
type Window struct {
	Control
	Title string
}

// Selector matches controls by any combination of its non-empty fields.
type Selector struct {
	Name      string
	ClassName string
	Role      Role
}

func (s Selector) Matches(c Control) bool {
	if s.Name != "" && s.Name != c.Name {
		return false
	}
	if s.ClassName != "" && s.ClassName != c.ClassName {
		return false
	}
	if s.Role != "" && s.Role != c.Role {
		return false
	}
	return true
}

type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (r Rect) CenterY() int {
	return (r.Top + r.Bottom) / 2
}

type ClickMode string

const (
	ClickPrimary   ClickMode = "primary"
	ClickSimulated ClickMode = "simulated_move"
)

const (
	KeyEnter   = "{Enter}"
	KeyControl = "Control"
)
