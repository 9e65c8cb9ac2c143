// internal/humanoid/trajectory.go
package humanoid

import (
	"math"
	"math/rand"

	"github.com/xkilldash9x/auroch/api/schemas"
)

// Motion is everything produced for one pointer movement.
type Motion struct {
	Waypoints []Vector2D
	Path      []Vector2D
	Actions   []schemas.LowLevelAction
	// End is the integer cursor after all REL_MOVEs are applied.
	End schemas.Point
}

// Synthesize generates a complete movement from start to end using a fresh RNG
// seeded with seed. Identical inputs always yield identical output.
func Synthesize(cfg Config, start, end schemas.Point, seed int64) Motion {
	rng := rand.New(rand.NewSource(seed))
	return synthesize(cfg, rng, start, end)
}

func synthesize(cfg Config, rng *rand.Rand, start, end schemas.Point) Motion {
	if start == end {
		return Motion{Waypoints: []Vector2D{FromPoint(start)}, End: start}
	}
	s, e := FromPoint(start), FromPoint(end)
	waypoints := GenerateFractalPath(cfg, rng, s, e, cfg.FractalDepth)
	path := Interpolate(waypoints, cfg.InterpolationStep)
	path = ApplyNoise(cfg, rng, path, e)
	actions, cursor := ToActions(cfg, rng, path, start, end)
	return Motion{Waypoints: waypoints, Path: path, Actions: actions, End: cursor}
}

// GenerateFractalPath recursively injects perpendicular detours into the
// segment start→end. The returned path begins with start and ends with end.
func GenerateFractalPath(cfg Config, rng *rand.Rand, start, end Vector2D, depth int) []Vector2D {
	main := newWeightedChoice(cfg.MainDetourWeights)
	sub := newWeightedChoice(cfg.SubDetourWeights)
	out := []Vector2D{start}
	return append(out, fractalSegment(cfg, rng, main, sub, start, end, depth)...)
}

// fractalSegment returns the points after start, up to and including end.
func fractalSegment(cfg Config, rng *rand.Rand, main, sub weightedChoice, start, end Vector2D, depth int) []Vector2D {
	if depth <= 0 {
		return []Vector2D{end}
	}

	dist := main
	if depth != cfg.FractalDepth {
		dist = sub
	}
	n := dist.sample(rng)

	maxX := float64(cfg.ScreenWidth - 1)
	maxY := float64(cfg.ScreenHeight - 1)
	segment := end.Sub(start)
	segLen := segment.Mag()
	perp := segment.Perp().Normalize()

	waypoints := make([]Vector2D, 0, n+2)
	waypoints = append(waypoints, start)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n+1)
		onLine := start.Lerp(end, t)
		magnitude := math.Min(logNormal(rng, cfg.DetourMu, cfg.DetourSigma), segLen*cfg.MaxDetourFraction)
		detour := onLine.Add(perp.Mul(magnitude * randomSign(rng)))
		waypoints = append(waypoints, detour.Clamp(maxX, maxY))
	}
	waypoints = append(waypoints, end)

	var out []Vector2D
	for i := 0; i < len(waypoints)-1; i++ {
		out = append(out, fractalSegment(cfg, rng, main, sub, waypoints[i], waypoints[i+1], depth-1)...)
	}
	return out
}

// Interpolate densifies the waypoint list. Each segment contributes
// max(2, floor(dist/step)) evenly spaced points including both endpoints;
// shared endpoints between segments appear once.
func Interpolate(waypoints []Vector2D, step float64) []Vector2D {
	if len(waypoints) == 0 {
		return nil
	}
	path := []Vector2D{waypoints[0]}
	for i := 0; i < len(waypoints)-1; i++ {
		a, b := waypoints[i], waypoints[i+1]
		steps := int(a.Dist(b) / step)
		if steps < 2 {
			steps = 2
		}
		for j := 1; j < steps; j++ {
			path = append(path, a.Lerp(b, float64(j)/float64(steps-1)))
		}
	}
	return path
}

// ApplyNoise jitters every point farther than the exclusion radius from dest
// by a uniform radius at a uniform angle. Points near the destination are left
// untouched so the path converges.
func ApplyNoise(cfg Config, rng *rand.Rand, path []Vector2D, dest Vector2D) []Vector2D {
	maxX := float64(cfg.ScreenWidth - 1)
	maxY := float64(cfg.ScreenHeight - 1)
	out := make([]Vector2D, len(path))
	for i, p := range path {
		if p.Dist(dest) < cfg.NoiseExclusionRadius {
			out[i] = p
			continue
		}
		r := uniform(rng, 0, cfg.NoiseMax)
		theta := uniform(rng, 0, 2*math.Pi)
		out[i] = p.Add(Vector2D{X: math.Cos(theta) * r, Y: math.Sin(theta) * r}).Clamp(maxX, maxY)
	}
	return out
}

// ToActions converts a dense path into REL_MOVE/PAUSE steps. Deltas are taken
// against a running integer cursor that starts at cursor, and a final
// correction lands exactly on dest. No REL_MOVE is ever (0,0).
func ToActions(cfg Config, rng *rand.Rand, path []Vector2D, cursor, dest schemas.Point) ([]schemas.LowLevelAction, schemas.Point) {
	var actions []schemas.LowLevelAction
	if len(path) >= 2 {
		total := 0.0
		for i := 1; i < len(path); i++ {
			total += path[i].Dist(path[i-1])
		}
		if total > 0 {
			duration := total / cfg.AvgPixelsPerSecond
			last := float64(len(path) - 1)
			for i := 1; i < len(path); i++ {
				mult := cfg.StartSpeedMultiplier + (cfg.EndSpeedMultiplier-cfg.StartSpeedMultiplier)*float64(i)/last
				segDuration := (path[i].Dist(path[i-1]) / total) * duration / mult

				target := path[i].Round()
				dx, dy := target.X-cursor.X, target.Y-cursor.Y
				if dx != 0 || dy != 0 {
					actions = append(actions, schemas.RelMove(dx, dy))
					cursor = target
				}
				if segDuration > 0 {
					jitter := uniform(rng, 1-cfg.PauseJitter, 1+cfg.PauseJitter)
					actions = append(actions, schemas.Pause(segDuration*jitter))
				}
			}
		}
	}

	if dx, dy := dest.X-cursor.X, dest.Y-cursor.Y; dx != 0 || dy != 0 {
		actions = append(actions, schemas.RelMove(dx, dy))
		cursor = dest
	}
	return actions, cursor
}
