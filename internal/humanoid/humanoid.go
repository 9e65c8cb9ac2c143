// internal/humanoid/humanoid.go
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/auroch/api/schemas"
	"go.uber.org/zap"
)

// Humanoid turns high-level input intents into low-level device events while
// tracking where the remote cursor is believed to be.
type Humanoid struct {
	// mu protects every field below. Public methods acquire it; helpers
	// suffixed with Internal assume it is held.
	mu       sync.Mutex
	config   Config
	logger   *zap.Logger
	rng      *rand.Rand
	cursor   schemas.Point
	plan     []schemas.LowLevelAction
	lastSeed int64
}

// New creates a Humanoid with its cursor at the origin. A nil config.Rng is
// replaced by a time-seeded generator.
func New(config Config, logger *zap.Logger) *Humanoid {
	rng := config.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Humanoid{
		config: config,
		logger: logger.Named("humanoid"),
		rng:    rng,
	}
}

// NewTestHumanoid creates a Humanoid with a deterministic RNG for testing.
func NewTestHumanoid(seed int64) *Humanoid {
	config := DefaultConfig()
	config.Rng = rand.New(rand.NewSource(seed))
	return New(config, zap.NewNop())
}

// Position returns the tracked cursor.
func (h *Humanoid) Position() schemas.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// SetPosition overrides the tracked cursor without emitting anything.
func (h *Humanoid) SetPosition(p schemas.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = p
}

// LastSeed returns the seed used by the most recent MoveTo.
func (h *Humanoid) LastSeed() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSeed
}

// MoveTo synthesizes a path from the tracked cursor to (x, y), clamped to the
// screen, and appends it to the plan.
func (h *Humanoid) MoveTo(x, y int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.moveToInternal(schemas.Point{X: x, Y: y})
}

func (h *Humanoid) moveToInternal(target schemas.Point) {
	target = h.clampInternal(target)
	seed := h.rng.Int63()
	h.lastSeed = seed

	motion := Synthesize(h.config, h.cursor, target, seed)
	h.plan = append(h.plan, motion.Actions...)

	h.logger.Debug("Synthesized pointer motion",
		zap.Int64("seed", seed),
		zap.Int("from_x", h.cursor.X), zap.Int("from_y", h.cursor.Y),
		zap.Int("to_x", target.X), zap.Int("to_y", target.Y),
		zap.Int("waypoints", len(motion.Waypoints)),
		zap.Int("events", len(motion.Actions)),
	)
	h.cursor = motion.End
}

func (h *Humanoid) clampInternal(p schemas.Point) schemas.Point {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X > h.config.ScreenWidth-1 {
		p.X = h.config.ScreenWidth - 1
	}
	if p.Y > h.config.ScreenHeight-1 {
		p.Y = h.config.ScreenHeight - 1
	}
	return p
}

// WakeUpScreen jiggles the pointer right then left. The remote position
// afterwards is unknown, so the tracked cursor resets to the origin.
func (h *Humanoid) WakeUpScreen() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plan = append(h.plan,
		schemas.RelMove(15, 0),
		schemas.Pause(0.05),
		schemas.RelMove(-15, 0),
	)
	h.cursor = schemas.Point{}
}

// Pause appends a literal, unjittered sleep.
func (h *Humanoid) Pause(seconds float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plan = append(h.plan, schemas.Pause(seconds))
}

// Plan returns a copy of the accumulated actions.
func (h *Humanoid) Plan() []schemas.LowLevelAction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]schemas.LowLevelAction, len(h.plan))
	copy(out, h.plan)
	return out
}

// Flush returns the accumulated actions and clears the plan. The cursor is kept.
func (h *Humanoid) Flush() []schemas.LowLevelAction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.plan
	h.plan = nil
	return out
}

// ClearPlan discards the accumulated actions but preserves the cursor.
func (h *Humanoid) ClearPlan() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plan = nil
}
