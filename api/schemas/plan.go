// api/schemas/plan.go
package schemas

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// -- High-Level Plan Model --

// ActionType enumerates the authoring vocabulary.
type ActionType string

const (
	ActionClick  ActionType = "CLICK"
	ActionText   ActionType = "TYPE"
	ActionScroll ActionType = "SCROLL"
	ActionMove   ActionType = "MOVE"
	ActionWait   ActionType = "WAIT"
	ActionWake   ActionType = "WAKE"
)

// RequiresBox reports whether the action must reference a resolvable box.
func (t ActionType) RequiresBox() bool {
	return t == ActionClick || t == ActionMove
}

// Known reports whether t is part of the vocabulary.
func (t ActionType) Known() bool {
	switch t {
	case ActionClick, ActionText, ActionScroll, ActionMove, ActionWait, ActionWake:
		return true
	}
	return false
}

// Point is an integer screen coordinate, serialized as [x, y].
type Point struct {
	X int
	Y int
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var arr [2]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("point must be [x, y]: %w", err)
	}
	p.X, p.Y = arr[0], arr[1]
	return nil
}

// Box is a rectangular screen region. Ids are dense 0..N-1 within one plan.
type Box struct {
	ID     int `json:"id"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the integer-division center of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains reports whether p lies inside the box (right and bottom edges exclusive).
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X < b.X+b.Width && p.Y >= b.Y && p.Y < b.Y+b.Height
}

// Action is one authored intent. Params are type specific: TYPE uses "text",
// SCROLL uses "amount", WAIT uses "seconds", CLICK uses "button".
type Action struct {
	Type      ActionType     `json:"type"`
	BoxID     *int           `json:"box_id"`
	Params    map[string]any `json:"params"`
	Generated bool           `json:"generated"`
	Timestamp float64        `json:"timestamp"`

	// Inferred MOVE extras.
	From       *Point `json:"from,omitempty"`
	To         *Point `json:"to,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	Curve      string `json:"curve,omitempty"`
	Seed       uint32 `json:"seed,omitempty"`
}

// BoxRef returns a pointer suitable for Action.BoxID.
func BoxRef(id int) *int {
	return &id
}

// rawAction mirrors Action with box_id left undecoded so a bad value can be
// tolerated instead of failing the whole plan.
type rawAction struct {
	Type       ActionType      `json:"type"`
	BoxID      json.RawMessage `json:"box_id"`
	Params     map[string]any  `json:"params"`
	Generated  bool            `json:"generated"`
	Timestamp  float64         `json:"timestamp"`
	From       *Point          `json:"from,omitempty"`
	To         *Point          `json:"to,omitempty"`
	DurationMs int             `json:"duration_ms,omitempty"`
	Curve      string          `json:"curve,omitempty"`
	Seed       uint32          `json:"seed,omitempty"`
}

// UnmarshalJSON accepts box_id as an integer, an integral float, a numeric
// string, or null. Anything else yields a nil BoxID.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw rawAction
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Action{
		Type:       ActionType(strings.ToUpper(string(raw.Type))),
		Params:     raw.Params,
		Generated:  raw.Generated,
		Timestamp:  raw.Timestamp,
		From:       raw.From,
		To:         raw.To,
		DurationMs: raw.DurationMs,
		Curve:      raw.Curve,
		Seed:       raw.Seed,
	}
	a.BoxID = decodeBoxID(raw.BoxID)
	return nil
}

func decodeBoxID(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return nil
		}
		return BoxRef(int(t))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return BoxRef(n)
	}
	return nil
}

// StringParam returns params[key] rendered as a string, or "" when absent.
func (a Action) StringParam(key string) string {
	v, ok := a.Params[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// IntParam coerces params[key] to an int. Strings are parsed as base-10
// integers; anything unparsable yields 0.
func (a Action) IntParam(key string) int {
	v, ok := a.Params[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// FloatParam coerces params[key] to a float64, yielding 0 when unparsable
// or not finite.
func (a Action) FloatParam(key string) float64 {
	f := a.rawFloatParam(key)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (a Action) rawFloatParam(key string) float64 {
	v, ok := a.Params[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Plan is the document exchanged with the authoring editor.
type Plan struct {
	Boxes   []Box    `json:"boxes"`
	Actions []Action `json:"actions"`
}

// Box resolves a box reference by position. The bool is false for nil or
// out-of-range ids.
func (p *Plan) Box(id *int) (Box, bool) {
	if id == nil || *id < 0 || *id >= len(p.Boxes) {
		return Box{}, false
	}
	return p.Boxes[*id], true
}
