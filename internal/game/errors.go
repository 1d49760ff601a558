package game

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid roulette configuration")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidBetNumber   = errors.New("bet number must be between 0 and 36")
	ErrInvalidBetType     = errors.New("unknown bet type")
	ErrBetLocked          = errors.New("bet is locked while a spin is pending")
	ErrNoPendingBet       = errors.New("no pending bet to settle")
	ErrSpinInProgress     = errors.New("spin already in progress")
	ErrTickBudgetExceeded = errors.New("ball did not settle within tick budget")
	ErrTableStopped       = errors.New("table is stopped")
	ErrInvalidClientSeed  = errors.New("client seed must not be empty")
)
