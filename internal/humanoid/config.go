// internal/humanoid/config.go
package humanoid

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// Config holds the immutable tunables of the motion model. It is read only
// once handed to New or Synthesize.
type Config struct {
	Rng *rand.Rand `json:"-" yaml:"-"`

	// Screen bounds. Every generated point lies in [0,W-1]×[0,H-1].
	ScreenWidth  int `json:"screen_width" yaml:"screen_width"`
	ScreenHeight int `json:"screen_height" yaml:"screen_height"`

	// Timing
	AvgPixelsPerSecond   float64 `json:"avg_pixels_per_second" yaml:"avg_pixels_per_second"`
	StartSpeedMultiplier float64 `json:"start_speed_multiplier" yaml:"start_speed_multiplier"`
	EndSpeedMultiplier   float64 `json:"end_speed_multiplier" yaml:"end_speed_multiplier"`
	PauseJitter          float64 `json:"pause_jitter" yaml:"pause_jitter"`

	// Fractal path shape
	FractalDepth      int             `json:"fractal_depth" yaml:"fractal_depth"`
	MainDetourWeights map[int]float64 `json:"main_detour_weights" yaml:"main_detour_weights"`
	SubDetourWeights  map[int]float64 `json:"sub_detour_weights" yaml:"sub_detour_weights"`
	DetourMu          float64         `json:"detour_mu" yaml:"detour_mu"`
	DetourSigma       float64         `json:"detour_sigma" yaml:"detour_sigma"`
	MaxDetourFraction float64         `json:"max_detour_fraction" yaml:"max_detour_fraction"`

	// Densification and tremor
	InterpolationStep    float64 `json:"interpolation_step" yaml:"interpolation_step"`
	NoiseMax             float64 `json:"noise_max" yaml:"noise_max"`
	NoiseExclusionRadius float64 `json:"noise_exclusion_radius" yaml:"noise_exclusion_radius"`
}

// DefaultConfig returns the tuning used against a 1280x800 guest display.
func DefaultConfig() Config {
	return Config{
		ScreenWidth:          1280,
		ScreenHeight:         800,
		AvgPixelsPerSecond:   150,
		StartSpeedMultiplier: 1.5,
		EndSpeedMultiplier:   0.5,
		PauseJitter:          0.2,
		FractalDepth:         2,
		MainDetourWeights:    map[int]float64{1: 0.80, 2: 0.15, 3: 0.05},
		SubDetourWeights:     map[int]float64{2: 0.80, 3: 0.15, 4: 0.05},
		DetourMu:             1.0,
		DetourSigma:          1.5,
		MaxDetourFraction:    0.8,
		InterpolationStep:    5,
		NoiseMax:             3,
		NoiseExclusionRadius: 10,
	}
}

// Validate rejects configurations the path generator cannot honor.
func (c Config) Validate() error {
	var errs []error
	if c.ScreenWidth < 1 || c.ScreenHeight < 1 {
		errs = append(errs, fmt.Errorf("screen bounds must be positive, got %dx%d", c.ScreenWidth, c.ScreenHeight))
	}
	if c.AvgPixelsPerSecond <= 0 {
		errs = append(errs, errors.New("avg_pixels_per_second must be > 0"))
	}
	if c.StartSpeedMultiplier <= 0 || c.EndSpeedMultiplier <= 0 {
		errs = append(errs, errors.New("speed multipliers must be > 0"))
	}
	if c.PauseJitter < 0 || c.PauseJitter >= 1 {
		errs = append(errs, errors.New("pause_jitter must be in [0,1)"))
	}
	if c.FractalDepth < 0 {
		errs = append(errs, errors.New("fractal_depth must be >= 0"))
	}
	if err := validateWeights("main_detour_weights", c.MainDetourWeights); err != nil {
		errs = append(errs, err)
	}
	if err := validateWeights("sub_detour_weights", c.SubDetourWeights); err != nil {
		errs = append(errs, err)
	}
	if c.DetourSigma < 0 {
		errs = append(errs, errors.New("detour_sigma must be >= 0"))
	}
	if c.MaxDetourFraction < 0 {
		errs = append(errs, errors.New("max_detour_fraction must be >= 0"))
	}
	if c.InterpolationStep <= 0 {
		errs = append(errs, errors.New("interpolation_step must be > 0"))
	}
	if c.NoiseMax < 0 || c.NoiseExclusionRadius < 0 {
		errs = append(errs, errors.New("noise parameters must be >= 0"))
	}
	return errors.Join(errs...)
}

func validateWeights(name string, w map[int]float64) error {
	if len(w) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	total := 0.0
	for n, p := range w {
		if n < 0 || p < 0 {
			return fmt.Errorf("%s: negative entry %d:%v", name, n, p)
		}
		total += p
	}
	if total <= 0 {
		return fmt.Errorf("%s: weights sum to zero", name)
	}
	return nil
}

// weightedChoice holds a detour-count distribution in a stable order so that
// a seeded RNG always maps to the same outcome.
type weightedChoice struct {
	values  []int
	weights []float64
	total   float64
}

func newWeightedChoice(w map[int]float64) weightedChoice {
	wc := weightedChoice{values: make([]int, 0, len(w))}
	for n := range w {
		wc.values = append(wc.values, n)
	}
	sort.Ints(wc.values)
	for _, n := range wc.values {
		wc.weights = append(wc.weights, w[n])
		wc.total += w[n]
	}
	return wc
}

func (wc weightedChoice) sample(rng *rand.Rand) int {
	r := rng.Float64() * wc.total
	for i, w := range wc.weights {
		if r < w {
			return wc.values[i]
		}
		r -= w
	}
	return wc.values[len(wc.values)-1]
}
