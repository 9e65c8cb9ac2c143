// internal/plan/expander.go
package plan

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/humanoid"
	"go.uber.org/zap"
)

// Result is the flattened output of one plan.
type Result struct {
	Actions []schemas.LowLevelAction
	// Log holds one human-readable line per authored action.
	Log     []string
	Skipped int
}

// Expander turns an authored plan into low-level device events.
type Expander struct {
	motion humanoid.Config
	policy string
	logger *zap.Logger
	rng    *rand.Rand
}

// ExpanderOption customizes an Expander.
type ExpanderOption func(*Expander)

// WithTargetPolicy selects the box targeting policy by name.
func WithTargetPolicy(name string) ExpanderOption {
	return func(e *Expander) { e.policy = name }
}

// WithRand injects the randomness source used for targets, jitter and seeds.
func WithRand(rng *rand.Rand) ExpanderOption {
	return func(e *Expander) { e.rng = rng }
}

// NewExpander validates the motion config and the target policy name.
func NewExpander(motion humanoid.Config, logger *zap.Logger, opts ...ExpanderOption) (*Expander, error) {
	if err := motion.Validate(); err != nil {
		return nil, fmt.Errorf("invalid motion config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Expander{
		motion: motion,
		policy: PolicyCenter,
		logger: logger.Named("expander"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if _, err := NewTargetPolicy(e.policy, e.rng); err != nil {
		return nil, err
	}
	return e, nil
}

// Expand produces the low-level list for p. Each call starts with the cursor
// at the origin. Bad actions are skipped and counted; they never abort.
func (e *Expander) Expand(p *schemas.Plan) (Result, error) {
	policy, err := NewTargetPolicy(e.policy, e.rng)
	if err != nil {
		return Result{}, err
	}
	cfg := e.motion
	cfg.Rng = e.rng
	h := humanoid.New(cfg, e.logger)

	var res Result
	for i, a := range p.Actions {
		line, err := e.expandOne(h, policy, p, a)
		if err != nil {
			res.Skipped++
			e.logger.Warn("Skipping action", zap.Int("index", i), zap.String("type", string(a.Type)), zap.Error(err))
			res.Log = append(res.Log, fmt.Sprintf("[%d] skipped %s: %v", i, a.Type, err))
			continue
		}
		res.Actions = append(res.Actions, h.Flush()...)
		res.Log = append(res.Log, fmt.Sprintf("[%d] %s", i, line))
	}
	e.logger.Info("Plan expanded",
		zap.Int("authored", len(p.Actions)),
		zap.Int("low_level", len(res.Actions)),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (e *Expander) expandOne(h *humanoid.Humanoid, policy TargetPolicy, p *schemas.Plan, a schemas.Action) (string, error) {
	switch a.Type {
	case schemas.ActionWake:
		h.WakeUpScreen()
		return "WAKE", nil

	case schemas.ActionWait:
		secs := a.FloatParam("seconds")
		if secs < 0 {
			secs = 0
		}
		h.Pause(secs)
		return fmt.Sprintf("WAIT %.3fs", secs), nil

	case schemas.ActionMove, schemas.ActionClick:
		box, ok := p.Box(a.BoxID)
		if !ok {
			return "", fmt.Errorf("box_id %s does not resolve to one of %d boxes", describeBoxID(a.BoxID), len(p.Boxes))
		}
		target := policy.Target(*a.BoxID, box)
		if a.Type == schemas.ActionMove {
			h.MoveTo(target.X, target.Y)
			return fmt.Sprintf("MOVE box %d -> (%d, %d) seed=%d", *a.BoxID, target.X, target.Y, h.LastSeed()), nil
		}
		button := schemas.ParseMouseButton(a.StringParam("button"))
		h.ClickAt(target.X, target.Y, button)
		return fmt.Sprintf("CLICK %s box %d at (%d, %d) seed=%d", button, *a.BoxID, target.X, target.Y, h.LastSeed()), nil

	case schemas.ActionText:
		text := strings.ReplaceAll(a.StringParam("text"), "{ENTER}", "\n")
		h.TypeText(text)
		return fmt.Sprintf("TYPE %q", text), nil

	case schemas.ActionScroll:
		amount := a.IntParam("amount")
		h.Scroll(amount)
		return fmt.Sprintf("SCROLL %d", amount), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}

func describeBoxID(id *int) string {
	if id == nil {
		return "<none>"
	}
	return fmt.Sprint(*id)
}
