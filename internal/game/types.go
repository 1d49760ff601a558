package game

import (
	"time"
)

type TableAction string

const (
	ActionSpin          TableAction = "spin"
	ActionBetAmount     TableAction = "bet_amount"
	ActionBetType       TableAction = "bet_type"
	ActionReset         TableAction = "reset"
	ActionSetClientSeed TableAction = "client_seed"
)

type TableRequest struct {
	Action       TableAction        `json:"action"`
	Delta        int                `json:"delta,omitempty"`
	BetType      BetType            `json:"type,omitempty"`
	BetNumber    *int               `json:"number,omitempty"`
	ClientSeed   string             `json:"client_seed,omitempty"`
	ResponseChan chan TableResponse `json:"-"`
}

type TableResponse struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Err      error        `json:"-"`
	Snapshot SpinSnapshot `json:"snapshot"`
	Round    *RoundInfo   `json:"round,omitempty"`
}

// RoundInfo is what a player may see of a spin before it lands. The server
// seed stays empty until the reveal.
type RoundInfo struct {
	SpinID     string    `json:"spin_id"`
	Commitment string    `json:"commitment"`
	ServerSeed string    `json:"server_seed,omitempty"`
	ClientSeed string    `json:"client_seed"`
	Nonce      int       `json:"nonce"`
	WheelAngle float64   `json:"wheel_angle"`
	StartedAt  time.Time `json:"started_at"`
}

// SpinRecord is the audit row written once per settled spin.
type SpinRecord struct {
	SpinID       string         `json:"spin_id"`
	UserID       string         `json:"user_id"`
	ServerSeed   string         `json:"server_seed"`
	ClientSeed   string         `json:"client_seed"`
	Commitment   string         `json:"commitment"`
	Nonce        int            `json:"nonce"`
	Conditions   SpinConditions `json:"conditions"`
	BetType      BetType        `json:"bet_type"`
	BetNumber    *int           `json:"bet_number,omitempty"`
	BetAmount    int            `json:"bet_amount"`
	PocketIndex  int            `json:"pocket_index"`
	ResultNumber int            `json:"result_number"`
	ResultColor  Color          `json:"result_color"`
	Winnings     int            `json:"winnings"`
	Balance      int            `json:"balance"`
	Ticks        int            `json:"ticks"`
	StartedAt    time.Time      `json:"started_at"`
	SettledAt    time.Time      `json:"settled_at"`
}

type SpinResultMessage struct {
	Record   SpinRecord   `json:"record"`
	Snapshot SpinSnapshot `json:"snapshot"`
}

const (
	MsgInitialState = "initial_state"
	MsgSnapshot     = "snapshot"
	MsgSpinStart    = "spin_start"
	MsgSpinResult   = "spin_result"
	MsgPong         = "pong"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
