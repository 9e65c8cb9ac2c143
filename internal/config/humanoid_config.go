// File: internal/config/humanoid_config.go
// MotionConfig carries the tunables of the pointer motion model. Detour
// weights are keyed by the number of detours as strings so they survive
// YAML, env and viper key handling unchanged.
package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/auroch/internal/humanoid"
)

type MotionConfig struct {
	ScreenWidth          int                `mapstructure:"screen_width" yaml:"screen_width"`
	ScreenHeight         int                `mapstructure:"screen_height" yaml:"screen_height"`
	AvgPixelsPerSecond   float64            `mapstructure:"avg_pixels_per_second" yaml:"avg_pixels_per_second"`
	StartSpeedMultiplier float64            `mapstructure:"start_speed_multiplier" yaml:"start_speed_multiplier"`
	EndSpeedMultiplier   float64            `mapstructure:"end_speed_multiplier" yaml:"end_speed_multiplier"`
	PauseJitter          float64            `mapstructure:"pause_jitter" yaml:"pause_jitter"`
	FractalDepth         int                `mapstructure:"fractal_depth" yaml:"fractal_depth"`
	MainDetourWeights    map[string]float64 `mapstructure:"main_detour_weights" yaml:"main_detour_weights"`
	SubDetourWeights     map[string]float64 `mapstructure:"sub_detour_weights" yaml:"sub_detour_weights"`
	DetourMu             float64            `mapstructure:"detour_mu" yaml:"detour_mu"`
	DetourSigma          float64            `mapstructure:"detour_sigma" yaml:"detour_sigma"`
	MaxDetourFraction    float64            `mapstructure:"max_detour_fraction" yaml:"max_detour_fraction"`
	InterpolationStep    float64            `mapstructure:"interpolation_step" yaml:"interpolation_step"`
	NoiseMax             float64            `mapstructure:"noise_max" yaml:"noise_max"`
	NoiseExclusionRadius float64            `mapstructure:"noise_exclusion_radius" yaml:"noise_exclusion_radius"`
}

// setMotionDefaults mirrors humanoid.DefaultConfig.
func setMotionDefaults(v *viper.Viper) {
	d := humanoid.DefaultConfig()
	v.SetDefault("motion.screen_width", d.ScreenWidth)
	v.SetDefault("motion.screen_height", d.ScreenHeight)
	v.SetDefault("motion.avg_pixels_per_second", d.AvgPixelsPerSecond)
	v.SetDefault("motion.start_speed_multiplier", d.StartSpeedMultiplier)
	v.SetDefault("motion.end_speed_multiplier", d.EndSpeedMultiplier)
	v.SetDefault("motion.pause_jitter", d.PauseJitter)
	v.SetDefault("motion.fractal_depth", d.FractalDepth)
	v.SetDefault("motion.main_detour_weights", weightsToStrings(d.MainDetourWeights))
	v.SetDefault("motion.sub_detour_weights", weightsToStrings(d.SubDetourWeights))
	v.SetDefault("motion.detour_mu", d.DetourMu)
	v.SetDefault("motion.detour_sigma", d.DetourSigma)
	v.SetDefault("motion.max_detour_fraction", d.MaxDetourFraction)
	v.SetDefault("motion.interpolation_step", d.InterpolationStep)
	v.SetDefault("motion.noise_max", d.NoiseMax)
	v.SetDefault("motion.noise_exclusion_radius", d.NoiseExclusionRadius)
}

// Humanoid converts and validates the motion tunables.
func (m MotionConfig) Humanoid() (humanoid.Config, error) {
	main, err := weightsFromStrings(m.MainDetourWeights)
	if err != nil {
		return humanoid.Config{}, fmt.Errorf("main_detour_weights: %w", err)
	}
	sub, err := weightsFromStrings(m.SubDetourWeights)
	if err != nil {
		return humanoid.Config{}, fmt.Errorf("sub_detour_weights: %w", err)
	}
	hc := humanoid.Config{
		ScreenWidth:          m.ScreenWidth,
		ScreenHeight:         m.ScreenHeight,
		AvgPixelsPerSecond:   m.AvgPixelsPerSecond,
		StartSpeedMultiplier: m.StartSpeedMultiplier,
		EndSpeedMultiplier:   m.EndSpeedMultiplier,
		PauseJitter:          m.PauseJitter,
		FractalDepth:         m.FractalDepth,
		MainDetourWeights:    main,
		SubDetourWeights:     sub,
		DetourMu:             m.DetourMu,
		DetourSigma:          m.DetourSigma,
		MaxDetourFraction:    m.MaxDetourFraction,
		InterpolationStep:    m.InterpolationStep,
		NoiseMax:             m.NoiseMax,
		NoiseExclusionRadius: m.NoiseExclusionRadius,
	}
	if err := hc.Validate(); err != nil {
		return humanoid.Config{}, err
	}
	return hc, nil
}

func weightsToStrings(w map[int]float64) map[string]any {
	out := make(map[string]any, len(w))
	for k, v := range w {
		out[strconv.Itoa(k)] = v
	}
	return out
}

func weightsFromStrings(w map[string]float64) (map[int]float64, error) {
	out := make(map[int]float64, len(w))
	for k, v := range w {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("detour count %q is not an integer", k)
		}
		out[n] = v
	}
	return out, nil
}
