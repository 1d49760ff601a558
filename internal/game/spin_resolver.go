package game

import (
	"fmt"
	"math"
)

const (
	WHEEL_FRICTION      = 0.995
	BALL_FRICTION       = 0.990
	BALL_STOP_THRESHOLD = 0.1

	WHEEL_SPEED_MIN = 3.0
	WHEEL_SPEED_MAX = 6.0
	BALL_SPEED_MIN  = 8.0
	BALL_SPEED_MAX  = 12.0

	// Default physics lands in roughly 480 ticks.
	DEFAULT_TICK_BUDGET = 100000
)

type PhysicsConfig struct {
	WheelFriction float64 `json:"wheel_friction"`
	BallFriction  float64 `json:"ball_friction"`
	StopThreshold float64 `json:"stop_threshold"`
	WheelSpeedMin float64 `json:"wheel_speed_min"`
	WheelSpeedMax float64 `json:"wheel_speed_max"`
	BallSpeedMin  float64 `json:"ball_speed_min"`
	BallSpeedMax  float64 `json:"ball_speed_max"`
}

func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		WheelFriction: WHEEL_FRICTION,
		BallFriction:  BALL_FRICTION,
		StopThreshold: BALL_STOP_THRESHOLD,
		WheelSpeedMin: WHEEL_SPEED_MIN,
		WheelSpeedMax: WHEEL_SPEED_MAX,
		BallSpeedMin:  BALL_SPEED_MIN,
		BallSpeedMax:  BALL_SPEED_MAX,
	}
}

func (c PhysicsConfig) Validate() error {
	if c.StopThreshold <= 0 {
		return fmt.Errorf("%w: stop threshold must be positive", ErrInvalidConfig)
	}
	if c.WheelSpeedMin < 0 || c.WheelSpeedMax < c.WheelSpeedMin {
		return fmt.Errorf("%w: wheel speed range [%v, %v]", ErrInvalidConfig, c.WheelSpeedMin, c.WheelSpeedMax)
	}
	if c.BallSpeedMin < 0 || c.BallSpeedMax < c.BallSpeedMin {
		return fmt.Errorf("%w: ball speed range [%v, %v]", ErrInvalidConfig, c.BallSpeedMin, c.BallSpeedMax)
	}
	return nil
}

// SpinConditions fully determine a spin. WheelAngle is the wheel's resting
// angle at launch; the other three are the drawn values.
type SpinConditions struct {
	WheelAngle    float64 `json:"wheel_angle"`
	WheelVelocity float64 `json:"wheel_velocity"`
	BallVelocity  float64 `json:"ball_velocity"`
	BallAngle     float64 `json:"ball_angle"`
}

// SpinOutcome is the result of replaying a spin to its landing tick.
type SpinOutcome struct {
	Conditions  SpinConditions `json:"conditions"`
	PocketIndex int            `json:"pocket_index"`
	Number      int            `json:"number"`
	Color       Color          `json:"color"`
	Ticks       int            `json:"ticks"`
}

// SpinResolver turns the continuous wheel/ball simulation into a pocket.
// It knows nothing about tokens.
type SpinResolver struct {
	cfg   PhysicsConfig
	wheel *AngularBody
	ball  *AngularBody

	active            bool
	landed            bool
	ballRelativeAngle float64
	resultIndex       int
	resultNumber      int
	ticks             int
}

func NewSpinResolver(cfg PhysicsConfig) (*SpinResolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wheel, err := NewAngularBody(cfg.WheelFriction)
	if err != nil {
		return nil, fmt.Errorf("wheel: %w", err)
	}
	ball, err := NewAngularBody(cfg.BallFriction)
	if err != nil {
		return nil, fmt.Errorf("ball: %w", err)
	}
	return &SpinResolver{cfg: cfg, wheel: wheel, ball: ball}, nil
}

// StartSpin draws wheel speed, ball speed and ball angle, in that order.
// The ball is launched against the wheel's rotation.
func (r *SpinResolver) StartSpin(src RandomSource) (SpinConditions, error) {
	if r.active {
		return SpinConditions{}, ErrSpinInProgress
	}
	cond := DrawConditions(r.cfg, src, r.wheel.Angle)
	return cond, r.StartFrom(cond)
}

// DrawConditions consumes exactly three values from src.
func DrawConditions(cfg PhysicsConfig, src RandomSource, wheelAngle float64) SpinConditions {
	return SpinConditions{
		WheelAngle:    wheelAngle,
		WheelVelocity: src.Uniform(cfg.WheelSpeedMin, cfg.WheelSpeedMax),
		BallVelocity:  -src.Uniform(cfg.BallSpeedMin, cfg.BallSpeedMax),
		BallAngle:     src.Uniform(0, 360),
	}
}

// StartFrom launches a spin from explicit initial conditions.
func (r *SpinResolver) StartFrom(cond SpinConditions) error {
	if r.active {
		return ErrSpinInProgress
	}
	r.wheel.Launch(cond.WheelAngle, cond.WheelVelocity)
	r.ball.Launch(cond.BallAngle, cond.BallVelocity)
	r.active = true
	r.landed = false
	r.ballRelativeAngle = 0
	r.resultIndex = 0
	r.resultNumber = 0
	r.ticks = 0
	return nil
}

// Tick advances the simulation one step and reports whether the ball landed
// on this tick. The landing is reported exactly once per spin.
func (r *SpinResolver) Tick() bool {
	switch {
	case r.landed:
		r.wheel.Advance()
		r.ball.Angle = normalizeAngle(r.ballRelativeAngle + r.wheel.Angle)
		return false
	case !r.active:
		return false
	}

	r.ticks++
	r.wheel.Advance()
	r.ball.Advance()

	if math.Abs(r.ball.Velocity) >= r.cfg.StopThreshold {
		return false
	}

	r.ball.Stop()
	r.ballRelativeAngle = normalizeAngle(r.ball.Angle - r.wheel.Angle)
	r.resultIndex, r.resultNumber = PocketAt(r.ballRelativeAngle)
	r.landed = true
	r.active = false
	return true
}

func (r *SpinResolver) IsSettled() bool {
	return r.landed
}

// Spinning is true from spin start until the ball lands.
func (r *SpinResolver) Spinning() bool {
	return r.active
}

func (r *SpinResolver) Result() (index, number int, ok bool) {
	if !r.landed {
		return 0, 0, false
	}
	return r.resultIndex, r.resultNumber, true
}

func (r *SpinResolver) WheelAngle() float64    { return r.wheel.Angle }
func (r *SpinResolver) WheelVelocity() float64 { return r.wheel.Velocity }
func (r *SpinResolver) BallAngle() float64     { return r.ball.Angle }
func (r *SpinResolver) Ticks() int             { return r.ticks }

func (r *SpinResolver) Reset() {
	r.wheel.Reset()
	r.ball.Reset()
	r.active = false
	r.landed = false
	r.ballRelativeAngle = 0
	r.resultIndex = 0
	r.resultNumber = 0
	r.ticks = 0
}

// Replay runs a spin from its initial conditions until the ball lands. A spin that
// never crosses the stop threshold within budget is a configuration error.
func Replay(cfg PhysicsConfig, cond SpinConditions, budget int) (SpinOutcome, error) {
	r, err := NewSpinResolver(cfg)
	if err != nil {
		return SpinOutcome{}, err
	}
	if err := r.StartFrom(cond); err != nil {
		return SpinOutcome{}, err
	}
	for i := 0; i < budget; i++ {
		if r.Tick() {
			return SpinOutcome{
				Conditions:  cond,
				PocketIndex: r.resultIndex,
				Number:      r.resultNumber,
				Color:       ColorOf(r.resultNumber),
				Ticks:       r.ticks,
			}, nil
		}
	}
	return SpinOutcome{}, fmt.Errorf("%w: %d ticks", ErrTickBudgetExceeded, budget)
}
