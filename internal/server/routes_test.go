package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"roulette/internal/database"
	"roulette/internal/game"
)

type stubBalances struct {
	mu       sync.Mutex
	balances map[string]int
}

func (s *stubBalances) LoadBalance(ctx context.Context, userID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[userID]
	return b, ok, nil
}

func (s *stubBalances) SaveBalance(ctx context.Context, userID string, balance int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
	return nil
}

type stubHistory struct {
	spins []game.SpinRecord
}

func (s *stubHistory) ListSpins(ctx context.Context, userID string, limit int) ([]game.SpinRecord, error) {
	var out []game.SpinRecord
	for _, rec := range s.spins {
		if rec.UserID == userID && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubHistory) GetSpin(ctx context.Context, spinID string) (*game.SpinRecord, error) {
	for _, rec := range s.spins {
		if rec.SpinID == spinID {
			return &rec, nil
		}
	}
	return nil, database.ErrSpinNotFound
}

// newTestServer never ticks, so a started spin stays in flight.
func newTestServer(t *testing.T, history SpinHistory) *FiberServer {
	t.Helper()
	cfg := game.DefaultTableConfig()
	cfg.TickInterval = time.Hour

	balances := &stubBalances{balances: map[string]int{"broke": 5}}
	hub := game.NewHub()
	lobby := game.NewLobby(cfg, hub, balances, nil)

	s := NewWithDeps(cfg, hub, lobby, history)
	s.RegisterFiberRoutes()
	t.Cleanup(func() {
		s.lobby.StopAll()
		s.cancel()
		s.hub.Stop()
	})
	return s
}

func doJSON(t *testing.T, s *FiberServer, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App.Test(req, -1)
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("could not read response body: %v", err)
	}
	var result map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Fatalf("could not unmarshal %q: %v", raw, err)
		}
	}
	return resp.StatusCode, result
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, nil)

	status, result := doJSON(t, s, http.MethodGet, "/health", "")
	if status != http.StatusOK {
		t.Fatalf("expected status OK; got %v", status)
	}
	gameHealth, ok := result["game"].(map[string]interface{})
	if !ok || gameHealth["status"] != "running" {
		t.Errorf("unexpected health body: %v", result)
	}
}

func TestStateAndBalance(t *testing.T) {
	s := newTestServer(t, nil)

	status, state := doJSON(t, s, http.MethodGet, "/api/v1/roulette/alice/state", "")
	if status != http.StatusOK {
		t.Fatalf("state status = %d", status)
	}
	if state["state"] != string(game.StateIdle) || state["balance"] != float64(game.DEFAULT_INITIAL_BALANCE) {
		t.Errorf("state = %v", state)
	}

	status, balance := doJSON(t, s, http.MethodGet, "/api/v1/roulette/broke/balance", "")
	if status != http.StatusOK || balance["balance"] != float64(5) {
		t.Errorf("balance = %d %v", status, balance)
	}
}

func TestBetHandlers(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"raise bet", "/api/v1/roulette/alice/bet/amount", `{"delta":20}`, http.StatusOK},
		{"bad body", "/api/v1/roulette/alice/bet/amount", `{"delta":`, http.StatusBadRequest},
		{"number bet", "/api/v1/roulette/alice/bet/type", `{"type":"number","number":17}`, http.StatusOK},
		{"number out of range", "/api/v1/roulette/alice/bet/type", `{"type":"number","number":40}`, http.StatusBadRequest},
		{"unknown type", "/api/v1/roulette/alice/bet/type", `{"type":"dozen"}`, http.StatusBadRequest},
		{"empty client seed", "/api/v1/roulette/alice/client-seed", `{"client_seed":""}`, http.StatusBadRequest},
		{"client seed", "/api/v1/roulette/alice/client-seed", `{"client_seed":"lucky"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, s, http.MethodPost, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (%v)", status, tt.wantStatus, body)
			}
		})
	}

	_, state := doJSON(t, s, http.MethodGet, "/api/v1/roulette/alice/state", "")
	if state["bet_amount"] != float64(30) || state["bet_type"] != "number" || state["bet_number"] != float64(17) {
		t.Errorf("state after bets = %v", state)
	}
}

func TestSpinHandler(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := doJSON(t, s, http.MethodGet, "/api/v1/roulette/alice/round", "")
	if status != http.StatusNotFound {
		t.Errorf("round before spin = %d, want 404", status)
	}

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/roulette/alice/spin", "")
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("spin = %d %v", status, body)
	}
	round, ok := body["round"].(map[string]interface{})
	if !ok || round["commitment"] == "" || round["server_seed"] != nil {
		t.Errorf("round = %v", body["round"])
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"spin again", http.MethodPost, "/api/v1/roulette/alice/spin", "", http.StatusConflict},
		{"change bet", http.MethodPost, "/api/v1/roulette/alice/bet/amount", `{"delta":10}`, http.StatusConflict},
		{"reset", http.MethodPost, "/api/v1/roulette/alice/reset", "", http.StatusConflict},
		{"round", http.MethodGet, "/api/v1/roulette/alice/round", "", http.StatusOK},
		{"broke player", http.MethodPost, "/api/v1/roulette/broke/spin", "", http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, s, tt.method, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d (%v)", status, tt.wantStatus, body)
			}
		})
	}
}

func TestVerifyHandler(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := doJSON(t, s, http.MethodGet, "/api/v1/roulette/verify?server_seed=abc", "")
	if status != http.StatusBadRequest {
		t.Errorf("missing params status = %d, want 400", status)
	}

	commitment := game.HashCommitment("abc")
	status, body := doJSON(t, s, http.MethodGet,
		"/api/v1/roulette/verify?server_seed=abc&client_seed=def&nonce=3&wheel_angle=45.5&commitment="+commitment, "")
	if status != http.StatusOK {
		t.Fatalf("verify status = %d (%v)", status, body)
	}
	if body["commitment_valid"] != true {
		t.Errorf("commitment_valid = %v", body["commitment_valid"])
	}

	want, err := game.VerifySpin(game.DefaultPhysicsConfig(), "abc", "def", 3, 45.5)
	if err != nil {
		t.Fatalf("VerifySpin: %v", err)
	}
	outcome, _ := body["outcome"].(map[string]interface{})
	if outcome["number"] != float64(want.Number) {
		t.Errorf("outcome number = %v, want %d", outcome["number"], want.Number)
	}
}

func TestHistoryHandlers(t *testing.T) {
	t.Run("unavailable without a database", func(t *testing.T) {
		s := newTestServer(t, nil)
		status, _ := doJSON(t, s, http.MethodGet, "/api/v1/roulette/alice/history", "")
		if status != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", status)
		}
	})

	history := &stubHistory{spins: []game.SpinRecord{
		{SpinID: "spin-1", UserID: "alice", ResultNumber: 17},
		{SpinID: "spin-2", UserID: "bob", ResultNumber: 0},
		{SpinID: "spin-3", UserID: "alice", ResultNumber: 32},
	}}
	s := newTestServer(t, history)

	status, body := doJSON(t, s, http.MethodGet, "/api/v1/roulette/alice/history?limit=1", "")
	if status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	if spins, _ := body["spins"].([]interface{}); len(spins) != 1 {
		t.Errorf("spins = %v, want 1 entry", body["spins"])
	}

	status, body = doJSON(t, s, http.MethodGet, "/api/v1/roulette/spins/spin-2", "")
	if status != http.StatusOK || body["result_number"] != float64(0) {
		t.Errorf("spin = %d %v", status, body)
	}

	status, _ = doJSON(t, s, http.MethodGet, "/api/v1/roulette/spins/missing", "")
	if status != http.StatusNotFound {
		t.Errorf("missing spin status = %d, want 404", status)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{game.ErrInsufficientFunds, http.StatusPaymentRequired},
		{game.ErrSpinInProgress, http.StatusConflict},
		{game.ErrBetLocked, http.StatusConflict},
		{game.ErrInvalidBetNumber, http.StatusBadRequest},
		{game.ErrTableStopped, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestReadOnlyRoutesDoNotOpenTables(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{
		"/api/v1/roulette/visitor-1/state",
		"/api/v1/roulette/visitor-2/balance",
		"/api/v1/roulette/visitor-3/round",
		"/api/v1/roulette/broke/balance",
	} {
		doJSON(t, s, http.MethodGet, path, "")
	}
	if n := s.lobby.Count(); n != 0 {
		t.Errorf("read-only requests opened %d tables", n)
	}

	doJSON(t, s, http.MethodPost, "/api/v1/roulette/visitor-1/spin", "")
	if n := s.lobby.Count(); n != 1 {
		t.Errorf("spin opened %d tables, want 1", n)
	}
	_, state := doJSON(t, s, http.MethodGet, "/api/v1/roulette/visitor-1/state", "")
	if state["state"] != string(game.StateSpinning) {
		t.Errorf("state of an open table = %v", state["state"])
	}
}

func TestWebSocketRequiresUserID(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"missing user id", "/ws", http.StatusBadRequest},
		{"empty user id", "/ws?user_id=", http.StatusBadRequest},
		{"plain http with user id", "/ws?user_id=alice", http.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			if err != nil {
				t.Fatalf("could not perform request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
	if s.lobby.Count() != 0 {
		t.Error("rejected websocket requests opened a table")
	}
}
