package schemas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// -- Low-Level Input Vocabulary --
//
// These are the only events the actuator understands. Positions are already
// resolved to relative pixel deltas; nothing here refers to a Box.

// LowLevelKind is the discriminator of a LowLevelAction.
type LowLevelKind string

const (
	KindRelMove  LowLevelKind = "REL_MOVE"
	KindPause    LowLevelKind = "PAUSE"
	KindMouseBtn LowLevelKind = "MOUSE_BTN"
	KindKey      LowLevelKind = "KEY"
	KindScroll   LowLevelKind = "SCROLL"
)

// MouseButton names a physical mouse button, matching the actuator's HID strings.
type MouseButton string

const (
	ButtonLeft   MouseButton = "LEFT"
	ButtonRight  MouseButton = "RIGHT"
	ButtonMiddle MouseButton = "MIDDLE"
)

// ParseMouseButton maps a case-insensitive name to a MouseButton.
// Anything unrecognized resolves to ButtonLeft.
func ParseMouseButton(s string) MouseButton {
	switch MouseButton(strings.ToUpper(strings.TrimSpace(s))) {
	case ButtonRight:
		return ButtonRight
	case ButtonMiddle:
		return ButtonMiddle
	default:
		return ButtonLeft
	}
}

// Phase is the edge of a button or key event.
type Phase string

const (
	PhasePress   Phase = "press"
	PhaseRelease Phase = "release"
)

// ModShift is the HID left-shift modifier bit.
const ModShift = 0x02

// ErrInvalidLowLevel is returned when a serialized low-level action cannot be decoded.
var ErrInvalidLowLevel = errors.New("invalid low-level action")

// LowLevelAction is a closed tagged union over the five device events.
// Only the fields belonging to Kind are meaningful.
type LowLevelAction struct {
	Kind LowLevelKind

	// REL_MOVE
	DX, DY int
	// PAUSE
	Seconds float64
	// MOUSE_BTN and KEY
	Button MouseButton
	Phase  Phase
	// KEY
	Code     int
	Modifier int
	// SCROLL, -1 or +1
	Direction int
}

// RelMove builds a relative pointer move.
func RelMove(dx, dy int) LowLevelAction {
	return LowLevelAction{Kind: KindRelMove, DX: dx, DY: dy}
}

// Pause builds a sleep step. Negative and non-finite durations are clamped to zero.
func Pause(seconds float64) LowLevelAction {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	return LowLevelAction{Kind: KindPause, Seconds: seconds}
}

// MouseBtn builds a button press or release.
func MouseBtn(button MouseButton, phase Phase) LowLevelAction {
	return LowLevelAction{Kind: KindMouseBtn, Button: button, Phase: phase}
}

// Key builds a keyboard event with a HID usage code and modifier byte.
func Key(code, modifier int, phase Phase) LowLevelAction {
	return LowLevelAction{Kind: KindKey, Code: code, Modifier: modifier, Phase: phase}
}

// Scroll builds a single wheel tick. Any non-negative direction is treated as +1.
func Scroll(direction int) LowLevelAction {
	if direction < 0 {
		direction = -1
	} else {
		direction = 1
	}
	return LowLevelAction{Kind: KindScroll, Direction: direction}
}

// MarshalJSON encodes the action in the tuple form the actuator consumes,
// e.g. ["REL_MOVE",[3,-1]] or ["PAUSE",0.0125].
func (a LowLevelAction) MarshalJSON() ([]byte, error) {
	var params any
	switch a.Kind {
	case KindRelMove:
		params = [2]int{a.DX, a.DY}
	case KindPause:
		params = a.Seconds
	case KindMouseBtn:
		params = [2]string{string(a.Button), string(a.Phase)}
	case KindKey:
		params = [3]any{a.Code, a.Modifier, string(a.Phase)}
	case KindScroll:
		params = [1]int{a.Direction}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidLowLevel, a.Kind)
	}
	return json.Marshal([2]any{string(a.Kind), params})
}

// UnmarshalJSON decodes the tuple form produced by MarshalJSON.
func (a *LowLevelAction) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLowLevel, err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("%w: expected [TYPE, params], got %d elements", ErrInvalidLowLevel, len(tuple))
	}
	var kind string
	if err := json.Unmarshal(tuple[0], &kind); err != nil {
		return fmt.Errorf("%w: type tag: %v", ErrInvalidLowLevel, err)
	}
	raw := tuple[1]

	switch LowLevelKind(kind) {
	case KindRelMove:
		var p [2]int
		if err := strictDecode(raw, &p); err != nil {
			return fmt.Errorf("%w: REL_MOVE: %v", ErrInvalidLowLevel, err)
		}
		*a = RelMove(p[0], p[1])
	case KindPause:
		var s float64
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("%w: PAUSE: %v", ErrInvalidLowLevel, err)
		}
		if s < 0 {
			return fmt.Errorf("%w: PAUSE: negative duration %v", ErrInvalidLowLevel, s)
		}
		*a = Pause(s)
	case KindMouseBtn:
		var p [2]string
		if err := strictDecode(raw, &p); err != nil {
			return fmt.Errorf("%w: MOUSE_BTN: %v", ErrInvalidLowLevel, err)
		}
		btn := MouseButton(p[0])
		if btn != ButtonLeft && btn != ButtonRight && btn != ButtonMiddle {
			return fmt.Errorf("%w: MOUSE_BTN: unknown button %q", ErrInvalidLowLevel, p[0])
		}
		ph, err := parsePhase(p[1])
		if err != nil {
			return err
		}
		*a = MouseBtn(btn, ph)
	case KindKey:
		var p []json.RawMessage
		if err := json.Unmarshal(raw, &p); err != nil || len(p) != 3 {
			return fmt.Errorf("%w: KEY: expected [code, modifier, phase]", ErrInvalidLowLevel)
		}
		var code, mod int
		var phase string
		if err := json.Unmarshal(p[0], &code); err != nil {
			return fmt.Errorf("%w: KEY code: %v", ErrInvalidLowLevel, err)
		}
		if err := json.Unmarshal(p[1], &mod); err != nil {
			return fmt.Errorf("%w: KEY modifier: %v", ErrInvalidLowLevel, err)
		}
		if err := json.Unmarshal(p[2], &phase); err != nil {
			return fmt.Errorf("%w: KEY phase: %v", ErrInvalidLowLevel, err)
		}
		ph, err := parsePhase(phase)
		if err != nil {
			return err
		}
		*a = Key(code, mod, ph)
	case KindScroll:
		var p []int
		if err := json.Unmarshal(raw, &p); err != nil || len(p) != 1 {
			return fmt.Errorf("%w: SCROLL: expected [direction]", ErrInvalidLowLevel)
		}
		if p[0] != 1 && p[0] != -1 {
			return fmt.Errorf("%w: SCROLL: direction must be -1 or 1, got %d", ErrInvalidLowLevel, p[0])
		}
		*a = Scroll(p[0])
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidLowLevel, kind)
	}
	return nil
}

// PiCommand renders the pipe-delimited line format used by the actuator's debug console.
func (a LowLevelAction) PiCommand() string {
	switch a.Kind {
	case KindRelMove:
		return fmt.Sprintf("REL_MOVE|%d|%d", a.DX, a.DY)
	case KindPause:
		return "PAUSE|" + strconv.FormatFloat(a.Seconds, 'f', -1, 64)
	case KindMouseBtn:
		return fmt.Sprintf("MOUSE|%s|%s", a.Button, a.Phase)
	case KindKey:
		return fmt.Sprintf("KEY|%d|%d|%s", a.Code, a.Modifier, a.Phase)
	case KindScroll:
		return fmt.Sprintf("SCROLL|%d", a.Direction)
	}
	return ""
}

func (a LowLevelAction) String() string {
	switch a.Kind {
	case KindRelMove:
		return fmt.Sprintf("REL_MOVE(%d,%d)", a.DX, a.DY)
	case KindPause:
		return fmt.Sprintf("PAUSE(%.4fs)", a.Seconds)
	case KindMouseBtn:
		return fmt.Sprintf("MOUSE_BTN(%s,%s)", a.Button, a.Phase)
	case KindKey:
		return fmt.Sprintf("KEY(0x%02X,0x%02X,%s)", a.Code, a.Modifier, a.Phase)
	case KindScroll:
		return fmt.Sprintf("SCROLL(%+d)", a.Direction)
	}
	return "UNKNOWN"
}

func parsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhasePress, PhaseRelease:
		return Phase(s), nil
	}
	return "", fmt.Errorf("%w: unknown phase %q", ErrInvalidLowLevel, s)
}

// strictDecode rejects arrays whose length differs from the fixed-size target.
func strictDecode(raw json.RawMessage, target any) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return err
	}
	want := 0
	switch target.(type) {
	case *[2]int, *[2]string:
		want = 2
	}
	if want > 0 && len(elems) != want {
		return fmt.Errorf("expected %d elements, got %d", want, len(elems))
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	return dec.Decode(target)
}
