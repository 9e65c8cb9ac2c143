// internal/humanoid/vector.go
package humanoid

import (
	"math"

	"github.com/xkilldash9x/auroch/api/schemas"
)

// Vector2D represents a point or vector in screen space. Path generation works
// in floating point; rounding to device pixels happens only when emitting
// REL_MOVE deltas.
type Vector2D struct {
	X float64
	Y float64
}

// FromPoint lifts an integer screen point into vector space.
func FromPoint(p schemas.Point) Vector2D {
	return Vector2D{X: float64(p.X), Y: float64(p.Y)}
}

// Add performs vector addition, returning `v + other`.
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub performs vector subtraction, returning `v - other`.
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul performs scalar multiplication.
func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{X: v.X * scalar, Y: v.Y * scalar}
}

// Mag calculates the Euclidean length of the vector.
func (v Vector2D) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns the unit vector in the direction of v, or the zero vector.
func (v Vector2D) Normalize() Vector2D {
	mag := v.Mag()
	if mag < 1e-9 {
		return Vector2D{}
	}
	return v.Mul(1.0 / mag)
}

// Perp returns v rotated by +90 degrees.
func (v Vector2D) Perp() Vector2D {
	return Vector2D{X: -v.Y, Y: v.X}
}

// Dist calculates the Euclidean distance between two points.
func (v Vector2D) Dist(other Vector2D) float64 {
	return math.Hypot(v.X-other.X, v.Y-other.Y)
}

// Lerp returns the point a fraction t of the way from v to other.
func (v Vector2D) Lerp(other Vector2D, t float64) Vector2D {
	return Vector2D{X: v.X + (other.X-v.X)*t, Y: v.Y + (other.Y-v.Y)*t}
}

// Clamp restricts v to the closed rectangle [0,maxX]×[0,maxY].
func (v Vector2D) Clamp(maxX, maxY float64) Vector2D {
	return Vector2D{
		X: math.Max(0, math.Min(v.X, maxX)),
		Y: math.Max(0, math.Min(v.Y, maxY)),
	}
}

// Round converts to the nearest integer screen point.
func (v Vector2D) Round() schemas.Point {
	return schemas.Point{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}
