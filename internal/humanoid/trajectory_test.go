// internal/humanoid/trajectory_test.go
package humanoid

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/auroch/api/schemas"
)

func sumRelMoves(actions []schemas.LowLevelAction) schemas.Point {
	var p schemas.Point
	for _, a := range actions {
		if a.Kind == schemas.KindRelMove {
			p.X += a.DX
			p.Y += a.DY
		}
	}
	return p
}

func TestSynthesize_RelMoveSumIsExact(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		start := schemas.Point{X: rng.Intn(cfg.ScreenWidth), Y: rng.Intn(cfg.ScreenHeight)}
		end := schemas.Point{X: rng.Intn(cfg.ScreenWidth), Y: rng.Intn(cfg.ScreenHeight)}
		if start == end {
			continue
		}
		m := Synthesize(cfg, start, end, rng.Int63())

		sum := sumRelMoves(m.Actions)
		require.Equal(t, end.X-start.X, sum.X, "dx sum for %v -> %v", start, end)
		require.Equal(t, end.Y-start.Y, sum.Y, "dy sum for %v -> %v", start, end)
		assert.Equal(t, end, m.End)
	}
}

func TestSynthesize_NeverEmitsZeroMove(t *testing.T) {
	cfg := DefaultConfig()
	m := Synthesize(cfg, schemas.Point{X: 10, Y: 10}, schemas.Point{X: 900, Y: 600}, 42)

	require.NotEmpty(t, m.Actions)
	for _, a := range m.Actions {
		if a.Kind == schemas.KindRelMove {
			assert.False(t, a.DX == 0 && a.DY == 0, "found zero REL_MOVE")
		}
		if a.Kind == schemas.KindPause {
			assert.GreaterOrEqual(t, a.Seconds, 0.0)
		}
	}
}

func TestSynthesize_ZeroLength(t *testing.T) {
	p := schemas.Point{X: 320, Y: 240}
	m := Synthesize(DefaultConfig(), p, p, 1)
	assert.Empty(t, m.Actions)
	assert.Equal(t, p, m.End)
}

func TestSynthesize_PathStaysOnScreen(t *testing.T) {
	cfg := DefaultConfig()
	// Corner-hugging moves are the ones most likely to push detours off screen.
	cases := [][2]schemas.Point{
		{{X: 0, Y: 0}, {X: 1279, Y: 799}},
		{{X: 1279, Y: 0}, {X: 0, Y: 799}},
		{{X: 0, Y: 0}, {X: 1279, Y: 0}},
		{{X: 0, Y: 799}, {X: 0, Y: 0}},
		{{X: 5, Y: 5}, {X: 8, Y: 3}},
	}
	for seed := int64(0); seed < 50; seed++ {
		for _, c := range cases {
			m := Synthesize(cfg, c[0], c[1], seed)
			for _, p := range append(m.Waypoints, m.Path...) {
				require.GreaterOrEqual(t, p.X, 0.0)
				require.GreaterOrEqual(t, p.Y, 0.0)
				require.LessOrEqual(t, p.X, float64(cfg.ScreenWidth-1))
				require.LessOrEqual(t, p.Y, float64(cfg.ScreenHeight-1))
			}
		}
	}
}

func TestGenerateFractalPath_DeterministicForSeed(t *testing.T) {
	cfg := DefaultConfig()
	start, end := Vector2D{X: 100, Y: 100}, Vector2D{X: 1000, Y: 700}

	a := GenerateFractalPath(cfg, rand.New(rand.NewSource(99)), start, end, cfg.FractalDepth)
	b := GenerateFractalPath(cfg, rand.New(rand.NewSource(99)), start, end, cfg.FractalDepth)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("waypoints differ for identical seed (-a +b):\n%s", diff)
	}

	c := GenerateFractalPath(cfg, rand.New(rand.NewSource(100)), start, end, cfg.FractalDepth)
	assert.NotEqual(t, a, c)
}

func TestGenerateFractalPath_Endpoints(t *testing.T) {
	cfg := DefaultConfig()
	start, end := Vector2D{X: 50, Y: 60}, Vector2D{X: 700, Y: 400}

	path := GenerateFractalPath(cfg, rand.New(rand.NewSource(3)), start, end, cfg.FractalDepth)
	require.GreaterOrEqual(t, len(path), 3, "depth 2 always injects at least one detour per level")
	assert.Equal(t, start, path[0])
	assert.Equal(t, end, path[len(path)-1])
}

func TestGenerateFractalPath_DepthZeroIsStraightHop(t *testing.T) {
	cfg := DefaultConfig()
	start, end := Vector2D{X: 1, Y: 2}, Vector2D{X: 3, Y: 4}
	path := GenerateFractalPath(cfg, rand.New(rand.NewSource(1)), start, end, 0)
	assert.Equal(t, []Vector2D{start, end}, path)
}

func TestGenerateFractalPath_DetourCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DetourMu = 20 // log-normal draws will always exceed the cap
	cfg.DetourSigma = 0
	cfg.FractalDepth = 1
	cfg.MainDetourWeights = map[int]float64{1: 1}

	start, end := Vector2D{X: 400, Y: 400}, Vector2D{X: 500, Y: 400}
	path := GenerateFractalPath(cfg, rand.New(rand.NewSource(5)), start, end, 1)
	require.Len(t, path, 3)
	assert.InDelta(t, 450, path[1].X, 1e-9)
	assert.InDelta(t, 80, abs(path[1].Y-400), 1e-9, "detour is capped at 80%% of the segment")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestInterpolate(t *testing.T) {
	t.Run("short segment still yields both endpoints", func(t *testing.T) {
		path := Interpolate([]Vector2D{{X: 0, Y: 0}, {X: 3, Y: 0}}, 5)
		assert.Equal(t, []Vector2D{{X: 0, Y: 0}, {X: 3, Y: 0}}, path)
	})

	t.Run("step spacing", func(t *testing.T) {
		path := Interpolate([]Vector2D{{X: 0, Y: 0}, {X: 100, Y: 0}}, 5)
		require.Len(t, path, 20)
		assert.Equal(t, Vector2D{X: 100, Y: 0}, path[len(path)-1])
	})

	t.Run("shared endpoints are not duplicated", func(t *testing.T) {
		path := Interpolate([]Vector2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, 5)
		assert.Equal(t, []Vector2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, path)
	})
}

func TestApplyNoise_LeavesDestinationNeighborhoodAlone(t *testing.T) {
	cfg := DefaultConfig()
	dest := Vector2D{X: 600, Y: 300}
	path := []Vector2D{{X: 100, Y: 100}, {X: 595, Y: 300}, dest}

	out := ApplyNoise(cfg, rand.New(rand.NewSource(11)), path, dest)
	require.Len(t, out, 3)
	assert.LessOrEqual(t, out[0].Dist(path[0]), cfg.NoiseMax+1e-9)
	assert.Equal(t, path[1], out[1])
	assert.Equal(t, dest, out[2])
}

func TestToActions_EaseOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PauseJitter = 0
	path := Interpolate([]Vector2D{{X: 0, Y: 0}, {X: 500, Y: 0}}, 5)

	actions, end := ToActions(cfg, rand.New(rand.NewSource(1)), path, schemas.Point{}, schemas.Point{X: 500})
	assert.Equal(t, schemas.Point{X: 500}, end)

	var pauses []float64
	for _, a := range actions {
		if a.Kind == schemas.KindPause {
			pauses = append(pauses, a.Seconds)
		}
	}
	require.NotEmpty(t, pauses)
	assert.Greater(t, pauses[len(pauses)-1], pauses[0], "segments near the destination are slower")
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.ScreenWidth = 0
	bad.MainDetourWeights = nil
	bad.InterpolationStep = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screen bounds")
	assert.Contains(t, err.Error(), "main_detour_weights")
	assert.Contains(t, err.Error(), "interpolation_step")
}
