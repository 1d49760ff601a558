package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"roulette/internal/game"
)

var ErrSpinNotFound = errors.New("spin not found")

const spinColumns = `spin_id, user_id, server_seed, client_seed, commitment, nonce,
	wheel_angle, wheel_velocity, ball_velocity, ball_angle,
	bet_type, bet_number, bet_amount, pocket_index, result_number, result_color,
	winnings, balance, ticks, started_at, settled_at`

func (s *service) SaveSpin(ctx context.Context, rec game.SpinRecord) error {
	var betNumber sql.NullInt32
	if rec.BetNumber != nil {
		betNumber = sql.NullInt32{Int32: int32(*rec.BetNumber), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO spins (`+spinColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		rec.SpinID, rec.UserID, rec.ServerSeed, rec.ClientSeed, rec.Commitment, rec.Nonce,
		rec.Conditions.WheelAngle, rec.Conditions.WheelVelocity, rec.Conditions.BallVelocity, rec.Conditions.BallAngle,
		string(rec.BetType), betNumber, rec.BetAmount, rec.PocketIndex, rec.ResultNumber, string(rec.ResultColor),
		rec.Winnings, rec.Balance, rec.Ticks, rec.StartedAt, rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert spin %s: %w", rec.SpinID, err)
	}
	return nil
}

func (s *service) GetSpin(ctx context.Context, spinID string) (*game.SpinRecord, error) {
	if _, err := uuid.Parse(spinID); err != nil {
		return nil, ErrSpinNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+spinColumns+` FROM spins WHERE spin_id = $1`, spinID)
	rec, err := scanSpin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSpinNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get spin %s: %w", spinID, err)
	}
	return rec, nil
}

func (s *service) ListSpins(ctx context.Context, userID string, limit int) ([]game.SpinRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+spinColumns+` FROM spins WHERE user_id = $1 ORDER BY settled_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list spins for %s: %w", userID, err)
	}
	defer rows.Close()

	spins := make([]game.SpinRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSpin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spin: %w", err)
		}
		spins = append(spins, *rec)
	}
	return spins, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpin(row rowScanner) (*game.SpinRecord, error) {
	var (
		rec       game.SpinRecord
		betType   string
		color     string
		betNumber sql.NullInt32
	)
	err := row.Scan(
		&rec.SpinID, &rec.UserID, &rec.ServerSeed, &rec.ClientSeed, &rec.Commitment, &rec.Nonce,
		&rec.Conditions.WheelAngle, &rec.Conditions.WheelVelocity, &rec.Conditions.BallVelocity, &rec.Conditions.BallAngle,
		&betType, &betNumber, &rec.BetAmount, &rec.PocketIndex, &rec.ResultNumber, &color,
		&rec.Winnings, &rec.Balance, &rec.Ticks, &rec.StartedAt, &rec.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	rec.BetType = game.BetType(betType)
	rec.ResultColor = game.Color(color)
	if betNumber.Valid {
		n := int(betNumber.Int32)
		rec.BetNumber = &n
	}
	return &rec, nil
}
