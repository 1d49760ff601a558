package game

import (
	"errors"
	"math"
	"testing"
)

func TestNewAngularBody_Friction(t *testing.T) {
	tests := []struct {
		name     string
		friction float64
		wantErr  bool
	}{
		{name: "wheel friction", friction: WHEEL_FRICTION},
		{name: "ball friction", friction: BALL_FRICTION},
		{name: "zero", friction: 0, wantErr: true},
		{name: "one", friction: 1, wantErr: true},
		{name: "negative", friction: -0.5, wantErr: true},
		{name: "above one", friction: 1.5, wantErr: true},
		{name: "NaN", friction: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := NewAngularBody(tt.friction)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("NewAngularBody(%v) error = %v, want ErrInvalidConfig", tt.friction, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAngularBody(%v) unexpected error: %v", tt.friction, err)
			}
			if body.Angle != 0 || body.Velocity != 0 {
				t.Errorf("new body should be at rest, got angle %v velocity %v", body.Angle, body.Velocity)
			}
		})
	}
}

func TestAngularBody_Advance(t *testing.T) {
	body, _ := NewAngularBody(0.5)
	body.Launch(350, 20)

	body.Advance()
	if math.Abs(body.Angle-10) > 1e-9 {
		t.Errorf("angle after wrap = %v, want 10", body.Angle)
	}
	if body.Velocity != 10 {
		t.Errorf("velocity after friction = %v, want 10", body.Velocity)
	}

	t.Run("negative velocity wraps below zero", func(t *testing.T) {
		b, _ := NewAngularBody(0.9)
		b.Launch(5, -10)
		b.Advance()
		if math.Abs(b.Angle-355) > 1e-9 {
			t.Errorf("angle = %v, want 355", b.Angle)
		}
	})

	t.Run("angle stays in range", func(t *testing.T) {
		b, _ := NewAngularBody(BALL_FRICTION)
		b.Launch(0, -11.7)
		for i := 0; i < 2000; i++ {
			b.Advance()
			if b.Angle < 0 || b.Angle >= 360 {
				t.Fatalf("tick %d: angle %v outside [0, 360)", i, b.Angle)
			}
		}
	})
}

func TestAngularBody_Deterministic(t *testing.T) {
	run := func() AngularBody {
		b, _ := NewAngularBody(WHEEL_FRICTION)
		b.Launch(123.4, 5.55)
		for i := 0; i < 777; i++ {
			b.Advance()
		}
		return *b
	}

	first, second := run(), run()
	if first != second {
		t.Errorf("identical runs diverged: %+v vs %+v", first, second)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{720.5, 0.5},
		{-90, 270},
		{-360, 0},
		{-1e-15, 0},
	}
	for _, tt := range tests {
		if got := normalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("normalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
