package game

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DEFAULT_TICK_RATE       = 60
	DEFAULT_BROADCAST_EVERY = 2
	DEFAULT_INITIAL_BALANCE = 100
	DEFAULT_IDLE_TIMEOUT    = 5 * time.Minute
	COMMAND_TIMEOUT         = 2 * time.Second
	PERSIST_TIMEOUT         = 2 * time.Second

	// Below this wheel speed (degrees/tick) a settled table stops broadcasting.
	WHEEL_REST_VELOCITY = 0.01
)

// BalanceStore persists a player's tokens between sessions.
type BalanceStore interface {
	LoadBalance(ctx context.Context, userID string) (int, bool, error)
	SaveBalance(ctx context.Context, userID string, balance int) error
}

// SpinRecorder keeps the audit trail of settled spins.
type SpinRecorder interface {
	SaveSpin(ctx context.Context, rec SpinRecord) error
}

// SnapshotStore may be implemented by a BalanceStore to cache the last
// settled view of a table.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, userID string, snap SpinSnapshot) error
}

// Broadcaster delivers messages to one player's connections.
type Broadcaster interface {
	SendTo(userID string, message interface{})
}

type TableConfig struct {
	Physics        PhysicsConfig
	TickInterval   time.Duration
	BroadcastEvery int
	InitialBalance int
	// IdleTimeout closes a table that has seen no command and no spin for
	// this long. Zero keeps tables open.
	IdleTimeout time.Duration
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		Physics:        DefaultPhysicsConfig(),
		TickInterval:   time.Second / DEFAULT_TICK_RATE,
		BroadcastEvery: DEFAULT_BROADCAST_EVERY,
		InitialBalance: DEFAULT_INITIAL_BALANCE,
		IdleTimeout:    DEFAULT_IDLE_TIMEOUT,
	}
}

type spinRound struct {
	info       RoundInfo
	conditions SpinConditions
	betType    BetType
	betNumber  *int
	betAmount  int
}

// Table hosts one player's RouletteSession. A single goroutine ticks the
// session and applies requests, so the session itself needs no locking.
type Table struct {
	userID   string
	cfg      TableConfig
	session  *RouletteSession
	hub      Broadcaster
	balances BalanceStore
	recorder SpinRecorder
	ctx      context.Context

	requests chan TableRequest
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	clientSeed   string
	nonce        int
	current      *spinRound
	frame        int
	lastActivity time.Time
	onClose      func(*Table)

	stateMutex sync.RWMutex
	snapshot   SpinSnapshot
	lastRound  *RoundInfo
}

func NewTable(userID string, balance int, cfg TableConfig, hub Broadcaster, balances BalanceStore, recorder SpinRecorder) (*Table, error) {
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfig)
	}
	if cfg.BroadcastEvery < 1 {
		cfg.BroadcastEvery = 1
	}
	session, err := NewRouletteSession(cfg.Physics, balance)
	if err != nil {
		return nil, err
	}
	t := &Table{
		userID:       userID,
		cfg:          cfg,
		session:      session,
		hub:          hub,
		balances:     balances,
		recorder:     recorder,
		ctx:          context.Background(),
		requests:     make(chan TableRequest, 64),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
		clientSeed:   GenerateSeed()[:16],
		lastActivity: time.Now(),
	}
	t.snapshot = session.Snapshot()
	return t, nil
}

func (t *Table) Start(ctx context.Context) {
	t.ctx = ctx
	go t.loop()
	log.Printf("[TABLE] Table opened for %s (balance %d)", t.userID, t.session.Balance())
}

func (t *Table) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

// Done is closed once the loop has exited.
func (t *Table) Done() <-chan struct{} {
	return t.done
}

func (t *Table) UserID() string {
	return t.userID
}

func (t *Table) Snapshot() SpinSnapshot {
	t.stateMutex.RLock()
	defer t.stateMutex.RUnlock()
	return t.snapshot
}

// Round returns the current or most recent spin's fairness data.
func (t *Table) Round() *RoundInfo {
	t.stateMutex.RLock()
	defer t.stateMutex.RUnlock()
	if t.lastRound == nil {
		return nil
	}
	roundCopy := *t.lastRound
	return &roundCopy
}

func (t *Table) Spin() TableResponse {
	return t.submit(TableRequest{Action: ActionSpin})
}

func (t *Table) ChangeBet(delta int) TableResponse {
	return t.submit(TableRequest{Action: ActionBetAmount, Delta: delta})
}

func (t *Table) SetBetType(betType BetType, number *int) TableResponse {
	return t.submit(TableRequest{Action: ActionBetType, BetType: betType, BetNumber: number})
}

func (t *Table) Reset() TableResponse {
	return t.submit(TableRequest{Action: ActionReset})
}

func (t *Table) SetClientSeed(seed string) TableResponse {
	return t.submit(TableRequest{Action: ActionSetClientSeed, ClientSeed: seed})
}

func (t *Table) submit(req TableRequest) TableResponse {
	respChan := make(chan TableResponse, 1)
	req.ResponseChan = respChan

	select {
	case t.requests <- req:
	case <-t.stopChan:
		return TableResponse{Message: "Table is closed", Err: ErrTableStopped}
	default:
		return TableResponse{Message: "Table queue full", Err: ErrTableStopped}
	}

	select {
	case resp := <-respChan:
		return resp
	case <-t.stopChan:
		return TableResponse{Message: "Table is closed", Err: ErrTableStopped}
	case <-time.After(COMMAND_TIMEOUT):
		return TableResponse{Message: "Request timeout", Err: context.DeadlineExceeded}
	}
}

func (t *Table) loop() {
	defer func() {
		close(t.done)
		if t.onClose != nil {
			t.onClose(t)
		}
	}()

	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			log.Printf("[TABLE] Table for %s closed", t.userID)
			return
		case <-t.ctx.Done():
			log.Printf("[TABLE] Table for %s cancelled", t.userID)
			return
		case req := <-t.requests:
			t.handle(req)
		case now := <-ticker.C:
			t.step()
			if t.idle(now) {
				t.saveBalance()
				t.Stop()
				log.Printf("[TABLE] Table for %s closed after %s idle", t.userID, t.cfg.IdleTimeout)
				return
			}
		}
	}
}

// idle reports whether the table may be closed: nothing in flight, nothing
// queued and no activity for IdleTimeout.
func (t *Table) idle(now time.Time) bool {
	if t.cfg.IdleTimeout <= 0 || t.session.State() == StateSpinning || len(t.requests) > 0 {
		return false
	}
	return now.Sub(t.lastActivity) >= t.cfg.IdleTimeout
}

// Closed reports whether Stop has been called.
func (t *Table) Closed() bool {
	select {
	case <-t.stopChan:
		return true
	default:
		return false
	}
}

// step runs one frame of the host loop.
func (t *Table) step() {
	wasSpinning := t.session.State() == StateSpinning
	snap := t.session.Tick()
	t.frame++
	t.publish(snap)

	if wasSpinning && snap.State == StateSettled {
		t.finishRound(snap)
		return
	}
	if t.moving(snap) && t.frame%t.cfg.BroadcastEvery == 0 {
		t.send(MsgSnapshot, snap)
	}
}

// moving is true while a spin is in flight or the wheel is still visibly
// turning after the ball landed.
func (t *Table) moving(snap SpinSnapshot) bool {
	switch snap.State {
	case StateSpinning:
		return true
	case StateSettled:
		return math.Abs(snap.WheelVelocity) >= WHEEL_REST_VELOCITY
	}
	return false
}

func (t *Table) handle(req TableRequest) {
	t.lastActivity = time.Now()
	resp := TableResponse{}
	defer func() {
		resp.Snapshot = t.session.Snapshot()
		t.publish(resp.Snapshot)
		if req.ResponseChan != nil {
			req.ResponseChan <- resp
		}
	}()

	var err error
	switch req.Action {
	case ActionSpin:
		resp.Round, err = t.startRound()
	case ActionBetAmount:
		err = t.session.ChangeBet(req.Delta)
	case ActionBetType:
		err = t.session.SetBetType(req.BetType, req.BetNumber)
	case ActionReset:
		err = t.session.Reset()
	case ActionSetClientSeed:
		err = t.setClientSeed(req.ClientSeed)
	default:
		err = fmt.Errorf("unknown action %q", req.Action)
	}

	if err != nil {
		resp.Err = err
		resp.Message = err.Error()
		return
	}
	resp.Success = true
	resp.Message = "OK"
}

func (t *Table) setClientSeed(seed string) error {
	if t.session.State() == StateSpinning {
		return ErrSpinInProgress
	}
	if seed == "" {
		return ErrInvalidClientSeed
	}
	t.clientSeed = seed
	return nil
}

func (t *Table) startRound() (*RoundInfo, error) {
	serverSeed := GenerateSeed()
	nonce := t.nonce + 1
	betType := t.session.ledger.BetType()
	betNumber := t.session.ledger.BetNumber()
	betAmount := t.session.ledger.BetAmount()

	cond, err := t.session.StartSpin(NewSeededSource(serverSeed, t.clientSeed, nonce))
	if err != nil {
		return nil, err
	}
	t.nonce = nonce

	info := RoundInfo{
		SpinID:     uuid.New().String(),
		Commitment: HashCommitment(serverSeed),
		ClientSeed: t.clientSeed,
		Nonce:      nonce,
		WheelAngle: cond.WheelAngle,
		StartedAt:  time.Now(),
	}
	t.current = &spinRound{
		info:       info,
		conditions: cond,
		betType:    betType,
		betNumber:  betNumber,
		betAmount:  betAmount,
	}
	// withheld from info until the ball lands
	t.current.info.ServerSeed = serverSeed

	t.stateMutex.Lock()
	t.lastRound = &info
	t.stateMutex.Unlock()

	t.saveBalance()
	t.send(MsgSpinStart, info)

	log.Printf("[TABLE] %s spin %s: %d on %s (nonce %d, commitment %s...)",
		t.userID, info.SpinID, betAmount, betType, nonce, info.Commitment[:16])

	return &info, nil
}

func (t *Table) finishRound(snap SpinSnapshot) {
	t.lastActivity = time.Now()
	round := t.current
	t.current = nil
	if round == nil || snap.ResultNumber == nil || snap.PocketIndex == nil {
		log.Printf("[TABLE] %s landed without an open round", t.userID)
		return
	}

	rec := SpinRecord{
		SpinID:       round.info.SpinID,
		UserID:       t.userID,
		ServerSeed:   round.info.ServerSeed,
		ClientSeed:   round.info.ClientSeed,
		Commitment:   round.info.Commitment,
		Nonce:        round.info.Nonce,
		Conditions:   round.conditions,
		BetType:      round.betType,
		BetNumber:    round.betNumber,
		BetAmount:    round.betAmount,
		PocketIndex:  *snap.PocketIndex,
		ResultNumber: *snap.ResultNumber,
		ResultColor:  snap.ResultColor,
		Winnings:     snap.Winnings,
		Balance:      snap.Balance,
		Ticks:        snap.Tick,
		StartedAt:    round.info.StartedAt,
		SettledAt:    time.Now(),
	}

	revealed := round.info
	t.stateMutex.Lock()
	t.lastRound = &revealed
	t.stateMutex.Unlock()

	t.send(MsgSpinResult, SpinResultMessage{Record: rec, Snapshot: snap})

	t.saveBalance()
	if store, ok := t.balances.(SnapshotStore); ok {
		ctx, cancel := context.WithTimeout(t.ctx, PERSIST_TIMEOUT)
		if err := store.SaveSnapshot(ctx, t.userID, snap); err != nil {
			log.Printf("[TABLE] Failed to cache snapshot for %s: %v", t.userID, err)
		}
		cancel()
	}
	if t.recorder != nil {
		ctx, cancel := context.WithTimeout(t.ctx, PERSIST_TIMEOUT)
		if err := t.recorder.SaveSpin(ctx, rec); err != nil {
			log.Printf("[TABLE] Failed to record spin %s: %v", rec.SpinID, err)
		}
		cancel()
	}

	outcome := "lost"
	if rec.Winnings > 0 {
		outcome = "won"
	}
	log.Printf("[TABLE] %s spin %s landed on %d (%s), %s %d, balance %d",
		t.userID, rec.SpinID, rec.ResultNumber, rec.ResultColor, outcome, rec.Winnings, rec.Balance)
}

func (t *Table) saveBalance() {
	if t.balances == nil {
		return
	}
	ctx, cancel := context.WithTimeout(t.ctx, PERSIST_TIMEOUT)
	defer cancel()
	if err := t.balances.SaveBalance(ctx, t.userID, t.session.Balance()); err != nil {
		log.Printf("[TABLE] Failed to save balance for %s: %v", t.userID, err)
	}
}

func (t *Table) publish(snap SpinSnapshot) {
	t.stateMutex.Lock()
	t.snapshot = snap
	t.stateMutex.Unlock()
}

func (t *Table) send(msgType string, data interface{}) {
	if t.hub == nil {
		return
	}
	t.hub.SendTo(t.userID, WSMessage{Type: msgType, Data: data})
}
