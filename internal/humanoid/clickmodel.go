package humanoid

import "github.com/xkilldash9x/auroch/api/schemas"

// Click appends a pre-click hesitation, a press, a short hold and a release.
func (h *Humanoid) Click(button schemas.MouseButton) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clickInternal(button)
}

func (h *Humanoid) clickInternal(button schemas.MouseButton) {
	if button == "" {
		button = schemas.ButtonLeft
	}
	h.plan = append(h.plan,
		schemas.Pause(uniform(h.rng, 0.05, 0.2)),
		schemas.MouseBtn(button, schemas.PhasePress),
		schemas.Pause(uniform(h.rng, 0.04, 0.08)),
		schemas.MouseBtn(button, schemas.PhaseRelease),
	)
}

// ClickAt moves to (x, y) and clicks there.
func (h *Humanoid) ClickAt(x, y int, button schemas.MouseButton) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.moveToInternal(schemas.Point{X: x, Y: y})
	h.clickInternal(button)
}
