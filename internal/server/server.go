package server

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"roulette/internal/cache"
	"roulette/internal/database"
	"roulette/internal/game"
)

// SpinHistory is the read side of the spin audit trail.
type SpinHistory interface {
	ListSpins(ctx context.Context, userID string, limit int) ([]game.SpinRecord, error)
	GetSpin(ctx context.Context, spinID string) (*game.SpinRecord, error)
}

type FiberServer struct {
	*fiber.App

	db      database.Service
	cache   cache.Service
	hub     *game.Hub
	lobby   *game.Lobby
	history SpinHistory
	physics game.PhysicsConfig
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(cfg game.TableConfig) *FiberServer {
	db := database.New()

	redisService := cache.New()
	if redisService == nil {
		log.Fatal("[SERVER] Redis is required for balance persistence")
	}

	hub := game.NewHub()
	lobby := game.NewLobby(cfg, hub, redisService, db)

	server := NewWithDeps(cfg, hub, lobby, db)
	server.db = db
	server.cache = redisService

	log.Println("[SERVER] Roulette lobby started")

	return server
}

// NewWithDeps builds the server around already constructed game components.
// db and cache may be nil.
func NewWithDeps(cfg game.TableConfig, hub *game.Hub, lobby *game.Lobby, history SpinHistory) *FiberServer {
	ctx, cancel := context.WithCancel(context.Background())

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "roulette",
			AppName:       "roulette",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		hub:     hub,
		lobby:   lobby,
		history: history,
		physics: cfg.Physics,
		ctx:     ctx,
		cancel:  cancel,
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
	}))

	go hub.Run()
	lobby.Start(ctx)

	return server
}

// Shutdown gracefully shuts down the server and game components
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] Shutting down...")

	if err := s.App.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("[SERVER] HTTP shutdown error: %v", err)
	}

	s.lobby.StopAll()
	s.cancel()
	s.hub.Stop()

	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return nil
}
