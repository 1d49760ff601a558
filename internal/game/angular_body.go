package game

import (
	"fmt"
	"math"
)

// AngularBody is one rotating element of the wheel assembly (the wheel itself
// or the ball). Velocity is in degrees per tick; its sign is the direction.
type AngularBody struct {
	Angle    float64 `json:"angle"`
	Velocity float64 `json:"velocity"`
	Friction float64 `json:"friction"`
}

// NewAngularBody returns a body at rest. Friction must lie strictly inside (0, 1).
func NewAngularBody(friction float64) (*AngularBody, error) {
	if !(friction > 0 && friction < 1) {
		return nil, fmt.Errorf("%w: friction %v outside (0, 1)", ErrInvalidConfig, friction)
	}
	return &AngularBody{Friction: friction}, nil
}

// Advance moves the body by one tick and applies friction.
func (b *AngularBody) Advance() {
	b.Angle = normalizeAngle(b.Angle + b.Velocity)
	b.Velocity *= b.Friction
}

func (b *AngularBody) Launch(angle, velocity float64) {
	b.Angle = normalizeAngle(angle)
	b.Velocity = velocity
}

func (b *AngularBody) Stop() {
	b.Velocity = 0
}

func (b *AngularBody) Reset() {
	b.Angle = 0
	b.Velocity = 0
}

// normalizeAngle maps any finite angle into [0, 360).
func normalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	// -1e-15 + 360 rounds to 360
	if a >= 360 {
		a = 0
	}
	return a
}
