package humanoid

import "github.com/xkilldash9x/auroch/api/schemas"

// scrollUnitsPerTick is how many authored scroll units one wheel tick covers.
const scrollUnitsPerTick = 5

// ScrollTicks returns the tick count and direction for a scroll amount:
// ceil(|amount|/5) ticks, at least one, positive for amount > 0 and negative
// otherwise (zero scrolls down by one tick).
func ScrollTicks(amount int) (ticks, direction int) {
	mag := amount
	if mag < 0 {
		mag = -mag
	}
	ticks = (mag + scrollUnitsPerTick - 1) / scrollUnitsPerTick
	if ticks < 1 {
		ticks = 1
	}
	direction = -1
	if amount > 0 {
		direction = 1
	}
	return ticks, direction
}

// Scroll appends wheel ticks, each followed by a short pause.
func (h *Humanoid) Scroll(amount int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ticks, direction := ScrollTicks(amount)
	for i := 0; i < ticks; i++ {
		h.plan = append(h.plan,
			schemas.Scroll(direction),
			schemas.Pause(uniform(h.rng, 0.01, 0.03)),
		)
	}
}
