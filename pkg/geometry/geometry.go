// Package geometry computes placement for the two floating panes: the small
// anchor and the larger task panel. It is a pure function of the current
// rects and the screen bounds; it never stores window state itself.
package geometry

// Rect is a pane position and size in screen cells.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the x coordinate just past the right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the y coordinate just past the bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Size is a pane extent without a position.
type Size struct {
	Width  int
	Height int
}

// Bounds is the usable screen area.
type Bounds struct {
	Width  int
	Height int
}

// Side records which side of the anchor the panel landed on.
type Side string

const (
	// SideRight places the panel flush right of the anchor.
	SideRight Side = "right"
	// SideLeft places the panel flush left of the anchor.
	SideLeft Side = "left"
	// SideRightAdjusted is the fallback: right of the anchor with the
	// vertical position clamped so the panel stays on screen.
	SideRightAdjusted Side = "right-adjusted"
)

// Placement is the computed panel position.
type Placement struct {
	X    int
	Y    int
	Side Side
}

// ClampToScreen moves rect back inside screen, keeping margin cells of
// breathing room on every edge. Width and height are never shrunk; if the
// screen is too small for both margins the high-edge clamp wins and the rect
// may poke past the low margin. Applying the clamp twice yields the same
// rect.
func ClampToScreen(r Rect, screen Bounds, margin int) Rect {
	if r.X < margin {
		r.X = margin
	}
	if r.X+r.Width > screen.Width-margin {
		r.X = screen.Width - r.Width - margin
	}
	if r.Y < margin {
		r.Y = margin
	}
	if r.Y+r.Height > screen.Height-margin {
		r.Y = screen.Height - r.Height - margin
	}
	return r
}

// PlacePanel positions a panel of the given size adjacent to the anchor.
// The right side is preferred, then the left; when neither fits the panel
// goes right anyway and only its vertical position is adjusted to stay on
// screen. Every branch ends with a global clamp because directional
// placement alone can still violate bounds near screen corners. A screen too
// small for both panes still produces a placement; overlap is the accepted
// degraded fallback.
func PlacePanel(anchor Rect, panel Size, screen Bounds, gap int) Placement {
	spaceRight := screen.Width - anchor.Right() - gap
	spaceLeft := anchor.X - gap

	var p Placement
	switch {
	case spaceRight >= panel.Width:
		p = Placement{X: anchor.Right() + gap, Y: anchor.Y, Side: SideRight}
	case spaceLeft >= panel.Width:
		p = Placement{X: anchor.X - gap - panel.Width, Y: anchor.Y, Side: SideLeft}
	default:
		p = Placement{X: anchor.Right() + gap, Side: SideRightAdjusted}
		if anchor.Y+panel.Height > screen.Height {
			p.Y = screen.Height - panel.Height - gap
		} else {
			p.Y = anchor.Y
		}
	}

	// Global safety clamp. The high-edge clamp runs last so the panel's
	// right/bottom edge never exceeds screen - gap.
	if p.X < gap {
		p.X = gap
	}
	if p.X+panel.Width > screen.Width-gap {
		p.X = screen.Width - panel.Width - gap
	}
	if p.Y < gap {
		p.Y = gap
	}
	if p.Y+panel.Height > screen.Height-gap {
		p.Y = screen.Height - panel.Height - gap
	}
	return p
}

// RepositionAnchor places the anchor in the corner of the panel's bounding
// box diagonally opposite the screen quadrant the panel's center occupies.
// Used when the user drags the panel itself: the anchor stays visible and
// out of the way no matter where the panel ends up. Only the non-dragged
// pane is ever adjusted, which breaks the reposition feedback loop.
func RepositionAnchor(panel Rect, anchor Size, screen Bounds, gap int) Rect {
	cx := panel.X + panel.Width/2
	cy := panel.Y + panel.Height/2
	right := cx >= screen.Width/2
	bottom := cy >= screen.Height/2

	var r Rect
	r.Width = anchor.Width
	r.Height = anchor.Height
	if right {
		r.X = panel.X - anchor.Width - gap
	} else {
		r.X = panel.Right() + gap
	}
	if bottom {
		r.Y = panel.Y - anchor.Height - gap
	} else {
		r.Y = panel.Bottom() + gap
	}
	return ClampToScreen(r, screen, gap)
}
