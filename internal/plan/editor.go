// internal/plan/editor.go
package plan

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/humanoid"
)

// ErrBoxRequired is returned when a CLICK or MOVE is authored without a valid box.
var ErrBoxRequired = errors.New("action requires a valid box")

// Inferred move duration model: int(lognormal(0, 0.6) * 400) ms.
const (
	inferredMoveMu      = 0.0
	inferredMoveSigma   = 0.6
	inferredMoveScaleMs = 400
	inferredMoveCurve   = "lognormal"
)

// Editor is the headless authoring model: an ordered box list plus an action
// queue, with the renumbering and move-inference rules of the box editor.
type Editor struct {
	plan schemas.Plan
	rng  *rand.Rand
	now  func() time.Time
}

// NewEditor wraps an existing plan, or starts empty when p is nil.
func NewEditor(p *schemas.Plan, rng *rand.Rand) *Editor {
	e := &Editor{rng: rng, now: time.Now}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p != nil {
		e.plan.Boxes = append([]schemas.Box(nil), p.Boxes...)
		e.plan.Actions = append([]schemas.Action(nil), p.Actions...)
	}
	return e
}

// Plan returns a copy of the current document.
func (e *Editor) Plan() *schemas.Plan {
	return &schemas.Plan{
		Boxes:   append([]schemas.Box(nil), e.plan.Boxes...),
		Actions: append([]schemas.Action(nil), e.plan.Actions...),
	}
}

// AddBox appends a box with the next dense id.
func (e *Editor) AddBox(x, y, width, height int) (schemas.Box, error) {
	if width < 1 || height < 1 {
		return schemas.Box{}, fmt.Errorf("box must be at least 1x1, got %dx%d", width, height)
	}
	b := schemas.Box{ID: len(e.plan.Boxes), X: x, Y: y, Width: width, Height: height}
	e.plan.Boxes = append(e.plan.Boxes, b)
	return b, nil
}

// DeleteBox removes box k, drops every action that referenced it, shifts
// references above k down by one, and renumbers boxes densely.
func (e *Editor) DeleteBox(k int) error {
	if k < 0 || k >= len(e.plan.Boxes) {
		return fmt.Errorf("box %d out of range [0,%d)", k, len(e.plan.Boxes))
	}
	e.plan.Boxes = append(e.plan.Boxes[:k], e.plan.Boxes[k+1:]...)
	for i := range e.plan.Boxes {
		e.plan.Boxes[i].ID = i
	}

	kept := e.plan.Actions[:0]
	for _, a := range e.plan.Actions {
		if a.BoxID != nil {
			switch id := *a.BoxID; {
			case id == k:
				continue
			case id > k:
				a.BoxID = schemas.BoxRef(id - 1)
			}
		}
		kept = append(kept, a)
	}
	e.plan.Actions = kept
	return nil
}

// Append queues an authored action. When both it and the previous action
// are CLICKs on different boxes, a generated MOVE between the two box
// centers is queued first. The returned bool reports that insertion.
func (e *Editor) Append(a schemas.Action) (bool, error) {
	if !a.Type.Known() {
		return false, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	if a.Type.RequiresBox() {
		if _, ok := e.plan.Box(a.BoxID); !ok {
			return false, fmt.Errorf("%w: %s", ErrBoxRequired, a.Type)
		}
	}
	if a.Params == nil {
		a.Params = map[string]any{}
	}
	if a.Timestamp == 0 {
		a.Timestamp = e.timestamp()
	}

	inserted := false
	if n := len(e.plan.Actions); n > 0 {
		last := e.plan.Actions[n-1]
		if last.Type == schemas.ActionClick && a.Type == schemas.ActionClick &&
			last.BoxID != nil && *last.BoxID != *a.BoxID {
			if move, ok := e.inferMove(*last.BoxID, *a.BoxID); ok {
				e.plan.Actions = append(e.plan.Actions, move)
				inserted = true
			}
		}
	}
	e.plan.Actions = append(e.plan.Actions, a)
	return inserted, nil
}

func (e *Editor) inferMove(from, to int) (schemas.Action, bool) {
	fromBox, ok1 := e.plan.Box(&from)
	toBox, ok2 := e.plan.Box(&to)
	if !ok1 || !ok2 {
		return schemas.Action{}, false
	}
	seed := e.rng.Uint32()
	local := rand.New(rand.NewSource(int64(seed)))
	duration := int(humanoid.LogNormal(local, inferredMoveMu, inferredMoveSigma) * inferredMoveScaleMs)

	fc, tc := fromBox.Center(), toBox.Center()
	return schemas.Action{
		Type:       schemas.ActionMove,
		BoxID:      schemas.BoxRef(to),
		Params:     map[string]any{},
		Generated:  true,
		Timestamp:  e.timestamp(),
		From:       &fc,
		To:         &tc,
		DurationMs: duration,
		Curve:      inferredMoveCurve,
		Seed:       seed,
	}, true
}

// Remove deletes the action at index i.
func (e *Editor) Remove(i int) error {
	if i < 0 || i >= len(e.plan.Actions) {
		return fmt.Errorf("action %d out of range [0,%d)", i, len(e.plan.Actions))
	}
	e.plan.Actions = append(e.plan.Actions[:i], e.plan.Actions[i+1:]...)
	return nil
}

// Export writes the plan JSON.
func (e *Editor) Export(w io.Writer) error {
	data, err := Marshal(&e.plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (e *Editor) timestamp() float64 {
	return float64(e.now().UnixNano()) / 1e9
}
