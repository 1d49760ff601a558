package game

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Lobby opens one Table per player on first use and owns their lifetimes.
type Lobby struct {
	tables   map[string]*Table
	cfg      TableConfig
	hub      Broadcaster
	balances BalanceStore
	recorder SpinRecorder
	ctx      context.Context
	mu       sync.Mutex
}

func NewLobby(cfg TableConfig, hub Broadcaster, balances BalanceStore, recorder SpinRecorder) *Lobby {
	return &Lobby{
		tables:   make(map[string]*Table),
		cfg:      cfg,
		hub:      hub,
		balances: balances,
		recorder: recorder,
		ctx:      context.Background(),
	}
}

// Start sets the context new tables run under.
func (l *Lobby) Start(ctx context.Context) {
	l.mu.Lock()
	l.ctx = ctx
	l.mu.Unlock()
}

// Table returns the player's table, opening it with the persisted balance
// (or the configured starting balance) if needed.
func (l *Lobby) Table(ctx context.Context, userID string) (*Table, error) {
	if t, ok := l.Lookup(userID); ok {
		return t, nil
	}

	// the store round trip happens outside the lock
	balance, err := l.storedBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.tables[userID]; ok && !t.Closed() {
		return t, nil
	}

	t, err := NewTable(userID, balance, l.cfg, l.hub, l.balances, l.recorder)
	if err != nil {
		return nil, err
	}
	t.onClose = l.remove
	t.Start(l.ctx)
	l.tables[userID] = t
	return t, nil
}

// Peek returns the player's current view without opening a table: the live
// snapshot when a table is open, otherwise an idle view of the stored balance.
func (l *Lobby) Peek(ctx context.Context, userID string) (SpinSnapshot, error) {
	if t, ok := l.Lookup(userID); ok {
		return t.Snapshot(), nil
	}
	balance, err := l.storedBalance(ctx, userID)
	if err != nil {
		return SpinSnapshot{}, err
	}
	session, err := NewRouletteSession(l.cfg.Physics, balance)
	if err != nil {
		return SpinSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// Balance reads the player's tokens without opening a table.
func (l *Lobby) Balance(ctx context.Context, userID string) (int, error) {
	if t, ok := l.Lookup(userID); ok {
		return t.Snapshot().Balance, nil
	}
	return l.storedBalance(ctx, userID)
}

func (l *Lobby) storedBalance(ctx context.Context, userID string) (int, error) {
	if l.balances == nil {
		return l.cfg.InitialBalance, nil
	}
	stored, found, err := l.balances.LoadBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load balance for %s: %w", userID, err)
	}
	if !found {
		return l.cfg.InitialBalance, nil
	}
	return stored, nil
}

// remove drops a closed table unless it has already been replaced.
func (l *Lobby) remove(t *Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tables[t.UserID()] == t {
		delete(l.tables, t.UserID())
		log.Printf("[LOBBY] Removed closed table for %s (%d open)", t.UserID(), len(l.tables))
	}
}

// Lookup returns the player's open table without creating one.
func (l *Lobby) Lookup(userID string) (*Table, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[userID]
	if !ok || t.Closed() {
		return nil, false
	}
	return t, true
}

func (l *Lobby) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tables)
}

func (l *Lobby) StopAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, t := range l.tables {
		t.Stop()
		<-t.Done()
		log.Printf("[LOBBY] Stopped table for %s", userID)
	}
	l.tables = make(map[string]*Table)
}
