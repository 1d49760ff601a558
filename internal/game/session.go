package game

import (
	"errors"
	"fmt"
)

type SessionState string

const (
	StateIdle     SessionState = "IDLE"
	StateSpinning SessionState = "SPINNING"
	StateSettled  SessionState = "SETTLED"
)

// SpinSnapshot is the read-only view a renderer polls every frame.
type SpinSnapshot struct {
	State         SessionState `json:"state"`
	WheelAngle    float64      `json:"wheel_angle"`
	WheelVelocity float64      `json:"wheel_velocity"`
	BallAngle     float64      `json:"ball_angle"`
	Landed        bool         `json:"landed"`
	PocketIndex   *int         `json:"pocket_index"`
	ResultNumber  *int         `json:"result_number"`
	ResultColor   Color        `json:"result_color,omitempty"`
	Winnings      int          `json:"winnings"`
	Balance       int          `json:"balance"`
	BetAmount     int          `json:"bet_amount"`
	BetType       BetType      `json:"bet_type"`
	BetNumber     *int         `json:"bet_number,omitempty"`
	Tick          int          `json:"tick"`
}

// RouletteSession ties the resolver to the ledger for a single player. It is
// not safe for concurrent use; a host loop owns it.
type RouletteSession struct {
	resolver *SpinResolver
	ledger   *BetLedger
	state    SessionState
	winnings int
}

func NewRouletteSession(cfg PhysicsConfig, balance int) (*RouletteSession, error) {
	resolver, err := NewSpinResolver(cfg)
	if err != nil {
		return nil, err
	}
	ledger, err := NewBetLedger(balance)
	if err != nil {
		return nil, err
	}
	return &RouletteSession{
		resolver: resolver,
		ledger:   ledger,
		state:    StateIdle,
	}, nil
}

// StartSpin stakes the current bet and launches the wheel and ball. On
// failure nothing is mutated.
func (s *RouletteSession) StartSpin(src RandomSource) (SpinConditions, error) {
	if s.state == StateSpinning {
		return SpinConditions{}, ErrSpinInProgress
	}
	if err := s.ledger.PlaceBet(); err != nil {
		return SpinConditions{}, err
	}
	cond, err := s.resolver.StartSpin(src)
	if err != nil {
		// unreachable while state and resolver agree
		return SpinConditions{}, fmt.Errorf("start resolver: %w", err)
	}
	s.state = StateSpinning
	s.winnings = 0
	return cond, nil
}

// Tick advances one simulation step. Settlement runs on the landing tick and
// only then.
func (s *RouletteSession) Tick() SpinSnapshot {
	landed := s.resolver.Tick()
	if landed && s.state == StateSpinning {
		_, number, _ := s.resolver.Result()
		winnings, err := s.ledger.Settle(number)
		if err == nil {
			s.winnings = winnings
		}
		s.state = StateSettled
	}
	return s.Snapshot()
}

func (s *RouletteSession) ChangeBet(delta int) error {
	return s.ledger.ChangeBetAmount(delta)
}

func (s *RouletteSession) SetBetType(t BetType, number *int) error {
	return s.ledger.SetBetType(t, number)
}

// Reset returns to Idle keeping balance, bet amount and bet type. A spin in
// flight cannot be abandoned.
func (s *RouletteSession) Reset() error {
	if s.state == StateSpinning {
		return ErrSpinInProgress
	}
	s.resolver.Reset()
	s.state = StateIdle
	s.winnings = 0
	return nil
}

func (s *RouletteSession) Balance() int        { return s.ledger.Balance() }
func (s *RouletteSession) State() SessionState { return s.state }

func (s *RouletteSession) Result() (number int, ok bool) {
	_, number, ok = s.resolver.Result()
	return number, ok
}

func (s *RouletteSession) Snapshot() SpinSnapshot {
	snap := SpinSnapshot{
		State:         s.state,
		WheelAngle:    s.resolver.WheelAngle(),
		WheelVelocity: s.resolver.WheelVelocity(),
		BallAngle:     s.resolver.BallAngle(),
		Landed:        s.resolver.IsSettled(),
		Winnings:      s.winnings,
		Balance:       s.ledger.Balance(),
		BetAmount:     s.ledger.BetAmount(),
		BetType:       s.ledger.BetType(),
		BetNumber:     s.ledger.BetNumber(),
		Tick:          s.resolver.Ticks(),
	}
	if index, number, ok := s.resolver.Result(); ok {
		snap.PocketIndex = &index
		snap.ResultNumber = &number
		snap.ResultColor = ColorOf(number)
	}
	return snap
}

// IsRejection reports whether err is a recoverable player-facing refusal
// rather than a fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidBetNumber) ||
		errors.Is(err, ErrInvalidBetType) ||
		errors.Is(err, ErrBetLocked) ||
		errors.Is(err, ErrSpinInProgress)
}
