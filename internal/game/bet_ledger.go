package game

import (
	"fmt"
	"strings"
)

const (
	MIN_BET_AMOUNT  = 10
	MAX_BET_AMOUNT  = 100
	BET_AMOUNT_STEP = 10
)

type BetType string

const (
	BetRed    BetType = "red"
	BetBlack  BetType = "black"
	BetGreen  BetType = "green"
	BetOdd    BetType = "odd"
	BetEven   BetType = "even"
	BetNumber BetType = "number"
)

// payoutMultipliers are total returns, stake included.
var payoutMultipliers = map[BetType]int{
	BetNumber: 36,
	BetRed:    2,
	BetBlack:  2,
	BetGreen:  35,
	BetOdd:    2,
	BetEven:   2,
}

func ParseBetType(s string) (BetType, error) {
	t := BetType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := payoutMultipliers[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidBetType, s)
	}
	return t, nil
}

// Multiplier returns the total return for a winning bet of this type.
func (t BetType) Multiplier() int {
	return payoutMultipliers[t]
}

// Wins reports whether a bet of this type wins on result. number is only
// consulted for BetNumber.
func (t BetType) Wins(result int, number *int) bool {
	switch t {
	case BetNumber:
		return number != nil && *number == result
	case BetRed:
		return ColorOf(result) == ColorRed
	case BetBlack:
		return ColorOf(result) == ColorBlack
	case BetGreen:
		return result == 0
	case BetOdd:
		return result != 0 && result%2 == 1
	case BetEven:
		return result != 0 && result%2 == 0
	}
	return false
}

// BetLedger holds the player's tokens and the single active bet.
type BetLedger struct {
	balance   int
	betAmount int
	betType   BetType
	betNumber *int
	pending   bool
}

func NewBetLedger(balance int) (*BetLedger, error) {
	if balance < 0 {
		return nil, fmt.Errorf("%w: negative balance %d", ErrInvalidConfig, balance)
	}
	return &BetLedger{
		balance:   balance,
		betAmount: MIN_BET_AMOUNT,
		betType:   BetRed,
	}, nil
}

// SetBetType replaces the active bet type. number is required for BetNumber
// and dropped for every other type.
func (l *BetLedger) SetBetType(t BetType, number *int) error {
	if l.pending {
		return ErrBetLocked
	}
	if _, ok := payoutMultipliers[t]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidBetType, t)
	}
	if t != BetNumber {
		l.betType = t
		l.betNumber = nil
		return nil
	}
	if number == nil || *number < 0 || *number > 36 {
		return ErrInvalidBetNumber
	}
	n := *number
	l.betType = t
	l.betNumber = &n
	return nil
}

// ChangeBetAmount clamps the new amount to [MIN_BET_AMOUNT, min(MAX_BET_AMOUNT, balance)].
// The minimum wins when the balance is below it; PlaceBet then refuses.
func (l *BetLedger) ChangeBetAmount(delta int) error {
	if l.pending {
		return ErrBetLocked
	}
	amount := min(l.betAmount+delta, MAX_BET_AMOUNT, l.balance)
	l.betAmount = max(amount, MIN_BET_AMOUNT)
	return nil
}

// PlaceBet deducts the stake and locks the bet until Settle.
func (l *BetLedger) PlaceBet() error {
	if l.pending {
		return ErrBetLocked
	}
	if l.balance < l.betAmount {
		return fmt.Errorf("%w: balance %d, bet %d", ErrInsufficientFunds, l.balance, l.betAmount)
	}
	l.balance -= l.betAmount
	l.pending = true
	return nil
}

// Settle resolves the pending bet against result. It returns the amount
// credited on a win or the negated stake on a loss. Settling twice fails
// with ErrNoPendingBet and leaves the balance alone.
func (l *BetLedger) Settle(result int) (int, error) {
	if !l.pending {
		return 0, ErrNoPendingBet
	}
	l.pending = false
	if !l.betType.Wins(result, l.betNumber) {
		return -l.betAmount, nil
	}
	payout := l.betAmount * l.betType.Multiplier()
	l.balance += payout
	return payout, nil
}

func (l *BetLedger) Balance() int     { return l.balance }
func (l *BetLedger) BetAmount() int   { return l.betAmount }
func (l *BetLedger) BetType() BetType { return l.betType }
func (l *BetLedger) Pending() bool    { return l.pending }

func (l *BetLedger) BetNumber() *int {
	if l.betNumber == nil {
		return nil
	}
	n := *l.betNumber
	return &n
}
