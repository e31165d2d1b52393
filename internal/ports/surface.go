package ports

import (
	"context"

	"github.com/bnema/greetreply/internal/domain"
)

// Surface is the UI automation layer driving the chat application. Every call
// may fail transiently; implementations wrap failures with the domain
// sentinels (ErrElementNotFound, ErrInteractionFailed, ErrSurfaceUnavailable).
type Surface interface {
	ListWindows(ctx context.Context, className string) ([]domain.Window, error)
	FindControl(ctx context.Context, root domain.Control, sel domain.Selector) (domain.Control, error)
	Children(ctx context.Context, parent domain.Control) ([]domain.Control, error)
	Click(ctx context.Context, target domain.Control, mode domain.ClickMode) error
	ClickAt(ctx context.Context, x, y int) error
	SetFocus(ctx context.Context, target domain.Control) error
	SendKeys(ctx context.Context, keys string) error
	IsKeyPressed(ctx context.Context, key string) (bool, error)
	BoundingRect(ctx context.Context, window domain.Window) (domain.Rect, error)
	IsMaximized(ctx context.Context, window domain.Window) (bool, error)
	Maximize(ctx context.Context, window domain.Window) error
}
