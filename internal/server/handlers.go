package server

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"roulette/internal/database"
	"roulette/internal/game"
)

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"game": fiber.Map{
			"status":            "running",
			"open_tables":       s.lobby.Count(),
			"connected_clients": s.hub.GetClientCount(),
		},
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	if s.cache != nil {
		health["cache"] = s.cache.Health()
	}
	return c.JSON(health)
}

// statusFor maps game errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired
	case errors.Is(err, game.ErrSpinInProgress), errors.Is(err, game.ErrBetLocked):
		return fiber.StatusConflict
	case errors.Is(err, game.ErrInvalidBetNumber),
		errors.Is(err, game.ErrInvalidBetType),
		errors.Is(err, game.ErrInvalidClientSeed):
		return fiber.StatusBadRequest
	case errors.Is(err, game.ErrTableStopped):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *FiberServer) table(c *fiber.Ctx) (*game.Table, error) {
	userID := c.Params("userId")
	if userID == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "User ID is required")
	}
	t, err := s.lobby.Table(c.UserContext(), userID)
	if err != nil {
		log.Printf("[SERVER] Failed to open table for %s: %v", userID, err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to open table")
	}
	return t, nil
}

func respond(c *fiber.Ctx, resp game.TableResponse) error {
	if resp.Err != nil {
		return c.Status(statusFor(resp.Err)).JSON(resp)
	}
	return c.JSON(resp)
}

func errorJSON(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// getStateHandler serves the live snapshot, or the last cached one when the
// player has no open table. Read-only routes never open a table.
func (s *FiberServer) getStateHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if _, open := s.lobby.Lookup(userID); !open && s.cache != nil {
		snap, err := s.cache.LoadSnapshot(c.UserContext(), userID)
		if err != nil {
			log.Printf("[SERVER] Failed to load cached snapshot for %s: %v", userID, err)
		}
		if snap != nil {
			return c.JSON(snap)
		}
	}

	snap, err := s.lobby.Peek(c.UserContext(), userID)
	if err != nil {
		log.Printf("[SERVER] Failed to read state for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load state",
		})
	}
	return c.JSON(snap)
}

func (s *FiberServer) getBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	balance, err := s.lobby.Balance(c.UserContext(), userID)
	if err != nil {
		log.Printf("[SERVER] Failed to read balance for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load balance",
		})
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

func (s *FiberServer) getRoundHandler(c *fiber.Ctx) error {
	var round *game.RoundInfo
	if t, open := s.lobby.Lookup(c.Params("userId")); open {
		round = t.Round()
	}
	if round == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No spin yet",
		})
	}
	return c.JSON(round)
}

func (s *FiberServer) spinHandler(c *fiber.Ctx) error {
	t, err := s.table(c)
	if err != nil {
		return errorJSON(c, err)
	}
	return respond(c, t.Spin())
}

func (s *FiberServer) betAmountHandler(c *fiber.Ctx) error {
	var body struct {
		Delta int `json:"delta"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	t, err := s.table(c)
	if err != nil {
		return errorJSON(c, err)
	}
	return respond(c, t.ChangeBet(body.Delta))
}

func (s *FiberServer) betTypeHandler(c *fiber.Ctx) error {
	var body struct {
		Type   string `json:"type"`
		Number *int   `json:"number"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	betType, err := game.ParseBetType(body.Type)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	t, err := s.table(c)
	if err != nil {
		return errorJSON(c, err)
	}
	return respond(c, t.SetBetType(betType, body.Number))
}

func (s *FiberServer) resetHandler(c *fiber.Ctx) error {
	t, err := s.table(c)
	if err != nil {
		return errorJSON(c, err)
	}
	return respond(c, t.Reset())
}

func (s *FiberServer) clientSeedHandler(c *fiber.Ctx) error {
	var body struct {
		ClientSeed string `json:"client_seed"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	t, err := s.table(c)
	if err != nil {
		return errorJSON(c, err)
	}
	return respond(c, t.SetClientSeed(body.ClientSeed))
}

func (s *FiberServer) getHistoryHandler(c *fiber.Ctx) error {
	if s.history == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Spin history unavailable",
		})
	}
	userID := c.Params("userId")
	spins, err := s.history.ListSpins(c.UserContext(), userID, c.QueryInt("limit", 20))
	if err != nil {
		log.Printf("[SERVER] Failed to list spins for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"spins":   spins,
	})
}

func (s *FiberServer) getSpinHandler(c *fiber.Ctx) error {
	if s.history == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Spin history unavailable",
		})
	}
	rec, err := s.history.GetSpin(c.UserContext(), c.Params("spinId"))
	if errors.Is(err, database.ErrSpinNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Spin not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load spin",
		})
	}
	return c.JSON(rec)
}

// verifyHandler replays a revealed spin from its seeds.
func (s *FiberServer) verifyHandler(c *fiber.Ctx) error {
	serverSeed := c.Query("server_seed")
	clientSeed := c.Query("client_seed")
	nonce := c.QueryInt("nonce", -1)
	if serverSeed == "" || clientSeed == "" || nonce < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "server_seed, client_seed and nonce are required",
		})
	}

	wheelAngle := 0.0
	if raw := c.Query("wheel_angle"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "wheel_angle must be a number",
			})
		}
		wheelAngle = v
	}

	outcome, err := game.VerifySpin(s.physics, serverSeed, clientSeed, nonce, wheelAngle)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp := fiber.Map{
		"commitment": game.HashCommitment(serverSeed),
		"outcome":    outcome,
	}
	if commitment := c.Query("commitment"); commitment != "" {
		resp["commitment_valid"] = game.VerifyCommitment(serverSeed, commitment)
	}
	return c.JSON(resp)
}

type wsInbound struct {
	Type       string `json:"type"`
	Delta      int    `json:"delta"`
	BetType    string `json:"bet_type"`
	Number     *int   `json:"number"`
	ClientSeed string `json:"client_seed"`
}

// gameWebSocketHandler streams table snapshots and accepts table commands.
func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	userID := conn.Query("user_id")
	if userID == "" {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user_id is required"))
		conn.Close()
		return
	}

	log.Printf("[WS] New connection from user: %s", userID)

	t, err := s.lobby.Table(s.ctx, userID)
	if err != nil {
		log.Printf("[WS] Failed to open table for %s: %v", userID, err)
		conn.Close()
		return
	}

	client := s.hub.RegisterClient(conn, userID)
	defer s.hub.UnregisterClient(client)
	client.Send(game.WSMessage{Type: game.MsgInitialState, Data: t.Snapshot()})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for user %s: %v", userID, err)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg wsInbound
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		var resp game.TableResponse
		switch msg.Type {
		case "spin":
			resp = t.Spin()
		case "bet_amount":
			resp = t.ChangeBet(msg.Delta)
		case "bet_type":
			betType, err := game.ParseBetType(msg.BetType)
			if err != nil {
				resp = game.TableResponse{Message: err.Error(), Err: err, Snapshot: t.Snapshot()}
				break
			}
			resp = t.SetBetType(betType, msg.Number)
		case "reset":
			resp = t.Reset()
		case "client_seed":
			resp = t.SetClientSeed(msg.ClientSeed)
		case "ping":
			client.Send(game.WSMessage{Type: game.MsgPong})
			continue
		default:
			continue
		}

		client.Send(game.WSMessage{Type: msg.Type, Data: resp})
	}
}
