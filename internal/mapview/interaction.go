package mapview

import "math"

// ClickThreshold is the largest per-axis movement, in device pixels, for
// which a press/release pair still counts as a click.
const ClickThreshold = 5.0

// GestureState is the pointer state of the map view.
type GestureState int

const (
	Idle GestureState = iota
	Dragging
	ClickPending
)

func (s GestureState) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case ClickPending:
		return "click-pending"
	default:
		return "idle"
	}
}

// Pointer is a pointer event in device pixels.
type Pointer struct {
	X, Y  float64
	Shift bool
	Ctrl  bool
	Meta  bool
}

func (p Pointer) modified() bool {
	return p.Shift || p.Ctrl || p.Meta
}

// OutcomeKind says what a pointer event means to the consumer.
type OutcomeKind int

const (
	None OutcomeKind = iota
	Hover
	Select
	BulkToggle
)

// Outcome is reported back by the controller. For Hover, ID/OK carry the
// picked region; Select and BulkToggle act on the consumer's hovered id.
type Outcome struct {
	Kind OutcomeKind
	ID   ID
	OK   bool
}

// Picker resolves screen points to regions.
type Picker interface {
	Pick(canvasW, canvasH int, view ViewTransform, layer Layer, x, y float64) (ID, bool)
}

// Controller owns the view transform and the gesture state. Every
// mutation of either goes through its methods; callers serialize access.
type Controller struct {
	view  ViewTransform
	state GestureState

	startX, startY       float64
	startPanX, startPanY float64

	hovered   ID
	hoveredOK bool
}

func NewController() *Controller {
	return &Controller{view: NewViewTransform()}
}

// View returns a copy of the current transform.
func (c *Controller) View() ViewTransform {
	return c.view
}

func (c *Controller) State() GestureState {
	return c.state
}

// ResetView restores pan 0 and zoom 1.
func (c *Controller) ResetView() {
	c.view = NewViewTransform()
}

func (c *Controller) PointerDown(p Pointer) {
	c.state = Dragging
	c.startX, c.startY = p.X, p.Y
	c.startPanX, c.startPanY = c.view.PanX, c.view.PanY
}

// PointerMove pans while dragging. While idle in inspection mode it picks
// and reports a Hover outcome when the hovered region changes.
func (c *Controller) PointerMove(p Pointer, inspecting bool, picker Picker, canvasW, canvasH int, layer Layer) Outcome {
	if c.state == Dragging {
		c.view.PanX = c.startPanX + (p.X - c.startX)
		c.view.PanY = c.startPanY + (p.Y - c.startY)
		return Outcome{}
	}
	c.state = Idle
	if !inspecting || picker == nil {
		return Outcome{}
	}
	id, ok := picker.Pick(canvasW, canvasH, c.view, layer, p.X, p.Y)
	if ok == c.hoveredOK && id == c.hovered {
		return Outcome{}
	}
	c.hovered, c.hoveredOK = id, ok
	return Outcome{Kind: Hover, ID: id, OK: ok}
}

// PointerUp ends a gesture. A short press in inspection mode is a click:
// with a modifier key or bulk mode it toggles bulk selection, otherwise it
// selects. A click leaves the controller in ClickPending until the next
// pointer event.
func (c *Controller) PointerUp(p Pointer, inspecting, bulkActive bool) Outcome {
	wasDragging := c.state == Dragging
	c.state = Idle
	if !wasDragging {
		return Outcome{}
	}

	dx := math.Abs(p.X - c.startX)
	dy := math.Abs(p.Y - c.startY)
	if dx >= ClickThreshold || dy >= ClickThreshold || !inspecting {
		return Outcome{}
	}

	c.state = ClickPending
	if bulkActive || p.modified() {
		return Outcome{Kind: BulkToggle}
	}
	return Outcome{Kind: Select}
}

// Wheel zooms toward the cursor.
func (c *Controller) Wheel(x, y, deltaY float64) {
	c.view.ZoomAt(x, y, deltaY)
}

// ForgetHover clears the cached hover so the next move reports again.
func (c *Controller) ForgetHover() {
	c.hovered, c.hoveredOK = NoRegion, false
}
