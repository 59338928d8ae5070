package controller

import (
	"errors"
	"fmt"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/selection"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/viewport"
)

// Mode is the interaction mode. Exactly one is active.
type Mode string

const (
	ModeCell      Mode = "cell"
	ModePlacement Mode = "placement"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeCell || m == ModePlacement
}

// Button follows the DOM MouseEvent.button numbering.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

// ActionType names an input event or editor command.
type ActionType string

const (
	ActionSetMode        ActionType = "set_mode"
	ActionPointerDown    ActionType = "pointer_down"
	ActionPointerMove    ActionType = "pointer_move"
	ActionPointerUp      ActionType = "pointer_up"
	ActionWheel          ActionType = "wheel"
	ActionKeyDown        ActionType = "key_down"
	ActionKeyUp          ActionType = "key_up"
	ActionResize         ActionType = "resize"
	ActionZoomIn         ActionType = "zoom_in"
	ActionZoomOut        ActionType = "zoom_out"
	ActionResetView      ActionType = "reset_view"
	ActionFit            ActionType = "fit"
	ActionSelectAll      ActionType = "select_all"
	ActionClearSelection ActionType = "clear_selection"
	ActionToggleGrid     ActionType = "toggle_grid"
	ActionToggleSnap     ActionType = "toggle_snap"
)

// Action is one input event. Only the fields relevant to Type are read.
type Action struct {
	Type      ActionType          `json:"type"`
	Mode      Mode                `json:"mode,omitempty"`
	Button    Button              `json:"button,omitempty"`
	Position  viewport.Point      `json:"position"`
	Modifiers selection.Modifiers `json:"modifiers"`
	Delta     float64             `json:"delta,omitempty"`
	Key       string              `json:"key,omitempty"`
	Size      viewport.Size       `json:"size"`
}

// ErrInvalidAction is matched by every *InvalidActionError via errors.Is.
var ErrInvalidAction = errors.New("invalid action")

// InvalidActionError reports an action the controller cannot apply.
type InvalidActionError struct {
	Type   ActionType
	Reason string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q: %s", e.Type, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidAction) match any invalid action.
func (e *InvalidActionError) Is(target error) bool {
	return target == ErrInvalidAction
}

func PointerDown(button Button, x, y float64, mods selection.Modifiers) Action {
	return Action{Type: ActionPointerDown, Button: button, Position: viewport.Point{X: x, Y: y}, Modifiers: mods}
}

func PointerMove(x, y float64) Action {
	return Action{Type: ActionPointerMove, Position: viewport.Point{X: x, Y: y}}
}

func PointerUp(button Button, x, y float64) Action {
	return Action{Type: ActionPointerUp, Button: button, Position: viewport.Point{X: x, Y: y}}
}

func Wheel(delta, x, y float64) Action {
	return Action{Type: ActionWheel, Delta: delta, Position: viewport.Point{X: x, Y: y}}
}

func KeyDown(key string, mods selection.Modifiers) Action {
	return Action{Type: ActionKeyDown, Key: key, Modifiers: mods}
}

func KeyUp(key string) Action {
	return Action{Type: ActionKeyUp, Key: key}
}

func SetMode(mode Mode) Action {
	return Action{Type: ActionSetMode, Mode: mode}
}

func Resize(width, height float64) Action {
	return Action{Type: ActionResize, Size: viewport.Size{Width: width, Height: height}}
}

func ToggleGrid() Action {
	return Action{Type: ActionToggleGrid}
}

func ClearSelection() Action {
	return Action{Type: ActionClearSelection}
}
