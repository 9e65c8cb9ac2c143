package plan

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/xkilldash9x/auroch/api/schemas"
)

// Policy names accepted by NewTargetPolicy.
const (
	PolicyCenter = "center"
	PolicyRandom = "random"
)

// TargetPolicy picks the pixel inside a box that a MOVE or CLICK aims at.
// Implementations may keep per-plan state and are not safe for concurrent use.
type TargetPolicy interface {
	Target(index int, box schemas.Box) schemas.Point
}

// NewTargetPolicy builds a fresh policy by name.
func NewTargetPolicy(name string, rng *rand.Rand) (TargetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyCenter:
		return CenterPolicy{}, nil
	case PolicyRandom:
		return NewRandomPolicy(rng), nil
	}
	return nil, fmt.Errorf("unknown target policy %q (want %q or %q)", name, PolicyCenter, PolicyRandom)
}

// CenterPolicy always targets the integer center of the box.
type CenterPolicy struct{}

func (CenterPolicy) Target(_ int, box schemas.Box) schemas.Point {
	return box.Center()
}

// RandomPolicy targets a uniform point inside the box, avoiding the exact
// point last used for the same box when the box has more than one pixel.
type RandomPolicy struct {
	rng  *rand.Rand
	last map[int]schemas.Point
}

func NewRandomPolicy(rng *rand.Rand) *RandomPolicy {
	return &RandomPolicy{rng: rng, last: make(map[int]schemas.Point)}
}

func (p *RandomPolicy) Target(index int, box schemas.Box) schemas.Point {
	pick := func() schemas.Point {
		return schemas.Point{X: box.X + p.rng.Intn(box.Width), Y: box.Y + p.rng.Intn(box.Height)}
	}
	pt := pick()
	if prev, ok := p.last[index]; ok && box.Width*box.Height > 1 {
		for pt == prev {
			pt = pick()
		}
	}
	p.last[index] = pt
	return pt
}
